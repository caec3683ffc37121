// ABOUTME: Embeds the chat page and transcript templates into the binary
// ABOUTME: Single-binary deployment, no files to ship alongside

package webui

import "embed"

//go:embed static/*.html
var staticFS embed.FS

//go:embed templates/*.html
var templateFS embed.FS
