package web

import (
	"bytes"
	"encoding/base64"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdRenderer      goldmark.Markdown
	htmlSanitizer   *bluemonday.Policy
	challengePolicy *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(html.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()

	// Banks format challenge texts with a small HTML subset.
	challengePolicy = bluemonday.NewPolicy()
	challengePolicy.AllowElements("b", "strong", "i", "em", "u", "br", "p", "ul", "ol", "li")
}

// RenderMarkdown converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

// SanitizeChallengeText keeps the formatting tags banks use in challenge
// texts and strips everything else. Plain line breaks become <br>.
func SanitizeChallengeText(text string) string {
	if text == "" {
		return ""
	}
	if !strings.Contains(text, "<") {
		text = strings.ReplaceAll(text, "\n", "<br>")
	}
	return challengePolicy.Sanitize(text)
}

// ChallengeImageURI returns a data URI for image challenge payloads, such as
// photoTAN graphics. Non-image payloads yield an empty string.
func ChallengeImageURI(data []byte, mimeType string) string {
	if len(data) == 0 || !isImageMimeType(mimeType) {
		return ""
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func isImageMimeType(mimeType string) bool {
	switch strings.ToLower(mimeType) {
	case "image/png", "image/jpeg", "image/gif":
		return true
	}
	return false
}
