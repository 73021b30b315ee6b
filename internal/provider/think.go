// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import "strings"

// =============================================================================
// INLINE REASONING EXTRACTION
// =============================================================================

const (
	thinkOpenTag  = "<think>"
	thinkCloseTag = "</think>"
)

// extractInlineThink splits reasoning delimited by <think>...</think> out of
// a chat-completions content body. Some providers emit the markers inline
// instead of using a dedicated response field, and one (xAI) omits the
// opening tag entirely: a body that contains a close tag with no open tag is
// treated as reasoning from the start of the body.
//
// Returns the content with the think block removed and the extracted
// reasoning, both trimmed. Content without markers passes through unchanged.
func extractInlineThink(content string) (text, reasoning string) {
	closeIdx := strings.Index(content, thinkCloseTag)
	if closeIdx < 0 {
		return content, ""
	}

	head := content[:closeIdx]
	tail := content[closeIdx+len(thinkCloseTag):]

	if openIdx := strings.Index(head, thinkOpenTag); openIdx >= 0 {
		reasoning = head[openIdx+len(thinkOpenTag):]
		head = head[:openIdx]
	} else {
		// Opening tag omitted: everything before the close tag is the trace.
		reasoning = head
		head = ""
	}

	return strings.TrimSpace(head + tail), strings.TrimSpace(reasoning)
}
