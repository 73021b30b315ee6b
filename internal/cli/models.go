// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// models.go - Model catalog listing.
package cli

import (
	"fmt"

	"github.com/jeranaias/polychat/internal/catalog"
	"github.com/jeranaias/polychat/internal/display"
)

// runModels lists the model catalog with pricing. An optional positional
// filters to one provider: "polychat models anthropic".
func (a *App) runModels(args *ArgParser) error {
	models := catalog.Catalog
	if filter := args.Positional(0); filter != "" {
		byProvider := catalog.ByProvider(catalog.Provider(filter))
		if len(byProvider) == 0 {
			return fmt.Errorf("no models for provider %q (openai, anthropic, google, deepseek, xai)", filter)
		}
		models = byProvider
	}

	fmt.Print(display.ModelTable(models))
	return nil
}
