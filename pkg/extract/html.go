package extract

import (
	"bytes"
	"context"
	"strings"

	"golang.org/x/net/html"

	"github.com/coursebrain/coursebrain/pkg/filestore"
)

// HTMLEngine walks the DOM and collects visible text, skipping script,
// style and other non-content subtrees. The document title and meta
// description are surfaced when present.
type HTMLEngine struct{}

func NewHTMLEngine() *HTMLEngine {
	return &HTMLEngine{}
}

func (e *HTMLEngine) Name() string {
	return "html_parser"
}

var skippedHTMLTags = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"iframe":   true,
	"template": true,
}

func (e *HTMLEngine) Extract(ctx context.Context, file *filestore.File) (Result, error) {
	doc, err := html.Parse(bytes.NewReader(file.Buffer))
	if err != nil {
		return Result{}, err
	}

	var (
		sb          strings.Builder
		title       string
		description string
		inBody      bool
	)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if skippedHTMLTags[n.Data] {
				return
			}
			switch n.Data {
			case "title":
				if n.FirstChild != nil && title == "" {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
				return
			case "meta":
				var name, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "name":
						name = attr.Val
					case "content":
						content = attr.Val
					}
				}
				if name == "description" && description == "" {
					description = strings.TrimSpace(content)
				}
				return
			case "body":
				inBody = true
			case "br", "p", "div", "li", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
				sb.WriteString("\n")
			}
		}

		if n.Type == html.TextNode && inBody {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	content := sb.String()
	for strings.Contains(content, "\n\n\n") {
		content = strings.ReplaceAll(content, "\n\n\n", "\n\n")
	}

	return Result{
		Content:     normalizeText(content),
		ContentType: "text/html",
		Title:       title,
		Description: description,
		Confidence:  1,
	}, nil
}
