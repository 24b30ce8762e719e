package depgraph

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"regexp"
	"strings"
)

var boldPattern = regexp.MustCompile(`\*\*(.+?)\*\*`)

type htmlBlock struct {
	Kind    string // h1, h2, h3, list, table, mermaid, p
	Text    string
	Items   []template.HTML
	Rows    [][]template.HTML
	Heading []template.HTML
}

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"inline": inlineHTML,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Module Dependency Report</title>
<style>
body { font-family: Arial, sans-serif; max-width: 1200px; margin: 0 auto; padding: 20px; background-color: #f5f5f5; }
.container { background-color: white; padding: 30px; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
h1 { color: #333; border-bottom: 2px solid #007bff; padding-bottom: 10px; }
h2 { color: #555; margin-top: 30px; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; }
th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
th { background-color: #007bff; color: white; }
tr:nth-child(even) { background-color: #f9f9f9; }
</style>
<script type="module">import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@10/dist/mermaid.esm.min.mjs"; mermaid.initialize({ startOnLoad: true });</script>
</head>
<body>
<div class="container">
<p>Generated: {{.GeneratedAt}}</p>
{{range .Blocks}}{{if eq .Kind "h1"}}<h1>{{inline .Text}}</h1>
{{else if eq .Kind "h2"}}<h2>{{inline .Text}}</h2>
{{else if eq .Kind "h3"}}<h3>{{inline .Text}}</h3>
{{else if eq .Kind "list"}}<ul>
{{range .Items}}<li>{{.}}</li>
{{end}}</ul>
{{else if eq .Kind "table"}}<table>
<tr>{{range .Heading}}<th>{{.}}</th>{{end}}</tr>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</table>
{{else if eq .Kind "mermaid"}}<pre class="mermaid">
{{.Text}}</pre>
{{else}}<p>{{inline .Text}}</p>
{{end}}{{end}}</div>
</body>
</html>
`))

// ExportHTML renders the Markdown report as a standalone HTML page. The
// Mermaid chart is left for mermaid.js to draw in the browser.
func ExportHTML(r *Report) ([]byte, error) {
	generated := "unknown"
	if !r.GeneratedAt.IsZero() {
		generated = r.GeneratedAt.Format("2006-01-02 15:04:05 MST")
	}
	var buf bytes.Buffer
	err := htmlTemplate.Execute(&buf, struct {
		GeneratedAt string
		Blocks      []htmlBlock
	}{generated, markdownBlocks(ExportMarkdown(r))})
	if err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

// markdownBlocks splits the subset of Markdown produced by ExportMarkdown
// into renderable blocks.
func markdownBlocks(md string) []htmlBlock {
	var blocks []htmlBlock
	lines := strings.Split(md, "\n")
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case strings.TrimSpace(line) == "":
		case strings.HasPrefix(line, "```mermaid"):
			var chart []string
			for i++; i < len(lines) && !strings.HasPrefix(lines[i], "```"); i++ {
				chart = append(chart, lines[i])
			}
			blocks = append(blocks, htmlBlock{Kind: "mermaid", Text: strings.Join(chart, "\n")})
		case strings.HasPrefix(line, "### "):
			blocks = append(blocks, htmlBlock{Kind: "h3", Text: line[4:]})
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, htmlBlock{Kind: "h2", Text: line[3:]})
		case strings.HasPrefix(line, "# "):
			blocks = append(blocks, htmlBlock{Kind: "h1", Text: line[2:]})
		case strings.HasPrefix(line, "|"):
			b := htmlBlock{Kind: "table", Heading: tableCells(line)}
			for i+1 < len(lines) && strings.HasPrefix(lines[i+1], "|") {
				i++
				if strings.HasPrefix(lines[i], "|-") {
					continue
				}
				b.Rows = append(b.Rows, tableCells(lines[i]))
			}
			blocks = append(blocks, b)
		case isListItem(line):
			b := htmlBlock{Kind: "list"}
			for ; i < len(lines) && isListItem(lines[i]); i++ {
				b.Items = append(b.Items, inlineHTML(strings.TrimSpace(lines[i])[2:]))
			}
			i--
			blocks = append(blocks, b)
		default:
			blocks = append(blocks, htmlBlock{Kind: "p", Text: line})
		}
	}
	return blocks
}

func isListItem(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "- ")
}

func tableCells(line string) []template.HTML {
	parts := strings.Split(strings.Trim(strings.TrimSpace(line), "|"), "|")
	cells := make([]template.HTML, len(parts))
	for i, p := range parts {
		cells[i] = inlineHTML(strings.TrimSpace(p))
	}
	return cells
}

// inlineHTML escapes s and turns **bold** spans into <strong>.
func inlineHTML(s string) template.HTML {
	return template.HTML(boldPattern.ReplaceAllString(html.EscapeString(s), "<strong>$1</strong>"))
}
