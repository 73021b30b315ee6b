// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package background

import "errors"

// ErrNoTask is returned when a resume or cancel is requested for a chat
// with no outstanding background task.
var ErrNoTask = errors.New("chat has no outstanding background task")
