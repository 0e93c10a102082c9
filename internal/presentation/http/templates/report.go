package templates

import (
	"fmt"
	"strings"

	"github.com/a-h/templ"
)

const pageStyle = `body{font-family:system-ui,sans-serif;max-width:46rem;margin:2rem auto;padding:0 1rem;line-height:1.55;color:#1d1d1f}
header{border-bottom:1px solid #ddd;margin-bottom:1.5rem}
dl{display:grid;grid-template-columns:max-content 1fr;gap:.25rem 1rem}
dt{font-weight:600}
.analysis p{margin:0 0 1rem}
footer{margin-top:2rem;font-size:.85rem;color:#666}`

// ReportPage renders a discovery with its generation settings and token usage.
func ReportPage(data ReportPageData) templ.Component {
	return Layout(data.Title,
		Element("header", "",
			Element("h1", "", Text(data.FieldOfTopic)),
			Element("p", "keywords", Text(data.Keywords)),
		),
		Element("section", "analysis", analysisParagraphs(data.AnalysisText)...),
		Element("dl", "usage",
			term("Input tokens", fmt.Sprintf("%d", data.InputTokens)),
			term("Output tokens", fmt.Sprintf("%d", data.OutputTokens)),
			term("Max tokens", fmt.Sprintf("%d", data.MaxTokens)),
			term("Temperature", fmt.Sprintf("%g", data.Temperature)),
			term("Created", data.CreatedAt),
		),
		Element("footer", "",
			Text("Discovery "+data.ID+". Generated analysis; verify before relying on it."),
		),
	)
}

// ErrorPage renders a minimal HTML error page.
func ErrorPage(data ErrorPageData) templ.Component {
	return Layout(data.Title,
		Element("header", "", Element("h1", "", Text(data.StatusLabel))),
		Element("p", "", Text(data.Message)),
	)
}

// Layout wraps body in the shared HTML document.
func Layout(title string, body ...templ.Component) templ.Component {
	return Group(
		staticHTML(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1">`),
		Element("title", "", Text(title)),
		Element("style", "", staticHTML(pageStyle)),
		staticHTML(`</head>`),
		Element("body", "", body...),
		staticHTML(`</html>`),
	)
}

// Paragraphs splits text on blank lines and drops empty chunks.
func Paragraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	chunks := strings.Split(normalized, "\n\n")

	paragraphs := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		if trimmed := strings.TrimSpace(chunk); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

func analysisParagraphs(text string) []templ.Component {
	paragraphs := Paragraphs(text)
	components := make([]templ.Component, 0, len(paragraphs))
	for _, paragraph := range paragraphs {
		components = append(components, Element("p", "", MultilineText(paragraph)))
	}
	return components
}

func term(name, value string) templ.Component {
	return Group(
		Element("dt", "", Text(name)),
		Element("dd", "", Text(value)),
	)
}
