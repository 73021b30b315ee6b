// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package catalog

import "github.com/jeranaias/polychat/internal/model"

// =============================================================================
// COST CALCULATION
// =============================================================================

// tokensPerMTok converts per-million-token prices to per-token prices.
const tokensPerMTok = 1_000_000

// Cost computes the dollar cost of one call from the model's price table
// and the reported token counts. extraUsage is the number of billed extra
// operations (web search calls); it is ignored for models without a
// SearchCostPerCall price.
//
// When the model has a cache discount and the call had cache hits, cached
// input tokens are billed at the discounted price and only the cache misses
// at the full input price. Cache-write tokens are billed at the plain
// input rate.
//
// Callers are responsible for passing an already-adjusted Model when a
// provider's documented tiering applies; see EffectiveModel.
func Cost(m Model, tokens model.TokenCounts, extraUsage int) float64 {
	var cost float64

	if m.CachedInputPerMTok > 0 && tokens.InputCacheHit > 0 {
		hit := float64(tokens.InputCacheHit)
		miss := float64(tokens.Input) - hit
		if miss < 0 {
			miss = 0
		}
		cost = (m.CachedInputPerMTok*hit + m.InputPerMTok*miss + m.OutputPerMTok*float64(tokens.Output)) / tokensPerMTok
	} else {
		cost = (m.InputPerMTok*float64(tokens.Input) + m.OutputPerMTok*float64(tokens.Output)) / tokensPerMTok
	}

	if m.SearchCostPerCall > 0 && extraUsage > 0 {
		cost += m.SearchCostPerCall * float64(extraUsage)
	}

	return cost
}

// =============================================================================
// THRESHOLD OVERRIDES
// =============================================================================

// longContextThreshold is the documented input size above which Google bills
// gemini-2.5-pro at its long-context rates.
const longContextThreshold = 200_000

// EffectiveModel applies documented provider price tiering to a model based
// on the input size of the call, returning the adjusted copy to pass to
// Cost. The price table itself stays declarative; this is the one seam that
// knows about thresholds. Models without tiering are returned unchanged.
func EffectiveModel(m Model, inputTokens uint64) Model {
	if m.ID == "gemini-2.5-pro" && inputTokens > longContextThreshold {
		m.InputPerMTok = 2.50
		m.OutputPerMTok = 15.0
	}
	return m
}
