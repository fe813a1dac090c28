package extract

import (
	"context"
	"strings"

	"github.com/coursebrain/coursebrain/pkg/filestore"
)

// PlainTextEngine handles text payloads that need no parsing beyond
// normalizing line endings.
type PlainTextEngine struct{}

func NewPlainTextEngine() *PlainTextEngine {
	return &PlainTextEngine{}
}

func (e *PlainTextEngine) Name() string {
	return "plain_text"
}

func (e *PlainTextEngine) Extract(ctx context.Context, file *filestore.File) (Result, error) {
	return Result{
		Content:     normalizeText(string(file.Buffer)),
		ContentType: file.MimeType,
		Confidence:  1,
	}, nil
}

// MarkdownEngine strips markdown syntax down to the readable text so
// chunk windows are not padded with markup.
type MarkdownEngine struct{}

func NewMarkdownEngine() *MarkdownEngine {
	return &MarkdownEngine{}
}

func (e *MarkdownEngine) Name() string {
	return "markdown_parser"
}

func (e *MarkdownEngine) Extract(ctx context.Context, file *filestore.File) (Result, error) {
	raw := string(file.Buffer)

	var (
		title   string
		lines   = strings.Split(raw, "\n")
		out     = make([]string, 0, len(lines))
		inFence bool
	)

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "```") {
			inFence = !inFence
			continue
		}
		if inFence {
			out = append(out, line)
			continue
		}

		if title == "" && strings.HasPrefix(trimmed, "# ") {
			title = strings.TrimSpace(strings.TrimPrefix(trimmed, "# "))
		}

		trimmed = strings.TrimLeft(trimmed, "#> ")
		trimmed = strings.TrimPrefix(trimmed, "- ")
		trimmed = strings.TrimPrefix(trimmed, "* ")
		trimmed = strings.ReplaceAll(trimmed, "**", "")
		trimmed = strings.ReplaceAll(trimmed, "`", "")

		out = append(out, trimmed)
	}

	return Result{
		Content:     normalizeText(strings.Join(out, "\n")),
		ContentType: "text/markdown",
		Title:       title,
		Confidence:  1,
	}, nil
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}
