// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package devserver is a local chat backend for development and tests.
//
// It serves the prediction and streaming-probe endpoints and the event
// socket. When streaming is enabled and a prediction names a connected
// socket client, the answer is streamed as start/token/sourceDocuments/end
// events before the HTTP response is written.
package devserver
