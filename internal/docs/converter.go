package docs

import (
	"fmt"
	"strings"

	docs "google.golang.org/api/docs/v1"
)

// orderedGlyphs are list glyph types rendered as numbered Markdown items.
var orderedGlyphs = map[string]bool{
	"DECIMAL":      true,
	"ZERO_DECIMAL": true,
	"ALPHA":        true,
	"UPPER_ALPHA":  true,
	"ROMAN":        true,
	"UPPER_ROMAN":  true,
}

// renderer turns document content into Markdown or plain text.
type renderer struct {
	out      strings.Builder
	lists    map[string]docs.List
	markdown bool
}

func newRenderer(doc *docs.Document, markdown bool) *renderer {
	r := &renderer{markdown: markdown, lists: map[string]docs.List{}}
	for id, l := range doc.Lists {
		r.lists[id] = l
	}
	return r
}

// DocumentToMarkdown converts a document to Markdown. Tabbed documents
// render each tab under its own heading.
func DocumentToMarkdown(doc *docs.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("document is nil")
	}

	r := newRenderer(doc, true)
	if doc.Title != "" {
		fmt.Fprintf(&r.out, "# %s\n\n", doc.Title)
	}
	r.document(doc)
	return r.out.String(), nil
}

// DocumentToPlainText extracts the text of a document without formatting.
func DocumentToPlainText(doc *docs.Document) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("document is nil")
	}

	r := newRenderer(doc, false)
	if doc.Title != "" {
		r.out.WriteString(doc.Title)
		r.out.WriteString("\n\n")
	}
	r.document(doc)
	return r.out.String(), nil
}

func (r *renderer) document(doc *docs.Document) {
	if len(doc.Tabs) == 0 {
		if doc.Body != nil {
			r.content(doc.Body.Content)
		}
		return
	}
	r.tabs(doc.Tabs, 0)
}

func (r *renderer) tabs(tabs []*docs.Tab, depth int) {
	for i, tab := range tabs {
		title := ""
		if tab.TabProperties != nil {
			title = tab.TabProperties.Title
		}
		if title == "" && (i > 0 || depth > 0) {
			title = fmt.Sprintf("Tab %d", i+1)
		}
		if title != "" {
			r.tabHeading(title, depth)
		}

		if tab.DocumentTab != nil {
			for id, l := range tab.DocumentTab.Lists {
				r.lists[id] = l
			}
			if tab.DocumentTab.Body != nil {
				r.content(tab.DocumentTab.Body.Content)
			}
		}
		r.tabs(tab.ChildTabs, depth+1)
	}
}

func (r *renderer) tabHeading(title string, depth int) {
	if r.markdown {
		level := depth + 2
		if level > 6 {
			level = 6
		}
		fmt.Fprintf(&r.out, "%s %s\n\n", strings.Repeat("#", level), title)
		return
	}
	fmt.Fprintf(&r.out, "%s=== %s ===\n\n", strings.Repeat("  ", depth), title)
}

func (r *renderer) content(elements []*docs.StructuralElement) {
	for i, el := range elements {
		switch {
		case el.Paragraph != nil:
			r.paragraph(el.Paragraph)
		case el.Table != nil:
			r.table(el.Table)
		case el.SectionBreak != nil && i > 0 && r.markdown:
			// Every body starts with a section break; only later ones are visible.
			r.out.WriteString("---\n\n")
		}
	}
}

func headingLevel(style *docs.ParagraphStyle) int {
	if style == nil {
		return 0
	}
	switch style.NamedStyleType {
	case "TITLE", "HEADING_1":
		return 1
	case "SUBTITLE", "HEADING_2":
		return 2
	case "HEADING_3":
		return 3
	case "HEADING_4":
		return 4
	case "HEADING_5":
		return 5
	case "HEADING_6":
		return 6
	}
	return 0
}

func (r *renderer) paragraph(p *docs.Paragraph) {
	if !r.markdown {
		r.out.WriteString(paragraphText(p))
		return
	}

	var body strings.Builder
	for _, el := range p.Elements {
		switch {
		case el.TextRun != nil:
			writeRun(&body, el.TextRun)
		case el.InlineObjectElement != nil:
			body.WriteString("[inline object]")
		case el.PageBreak != nil:
			body.WriteString("\n\n---\n\n")
		}
	}
	text := strings.TrimRight(body.String(), " \t\n")
	if strings.TrimSpace(text) == "" {
		return
	}

	if p.Bullet != nil {
		r.out.WriteString(r.bulletPrefix(p.Bullet))
		r.out.WriteString(text)
		r.out.WriteString("\n")
		return
	}
	if level := headingLevel(p.ParagraphStyle); level > 0 {
		r.out.WriteString(strings.Repeat("#", level))
		r.out.WriteString(" ")
	}
	r.out.WriteString(text)
	r.out.WriteString("\n\n")
}

func (r *renderer) bulletPrefix(b *docs.Bullet) string {
	level := b.NestingLevel
	indent := strings.Repeat("  ", int(level))

	l, ok := r.lists[b.ListId]
	if ok && l.ListProperties != nil && int(level) < len(l.ListProperties.NestingLevels) {
		if nl := l.ListProperties.NestingLevels[level]; nl != nil && orderedGlyphs[nl.GlyphType] {
			return indent + "1. "
		}
	}
	return indent + "- "
}

// writeRun writes a text run with Markdown emphasis. Markers wrap only the
// visible text so surrounding whitespace and newlines stay outside them.
func writeRun(b *strings.Builder, run *docs.TextRun) {
	content := run.Content
	if content == "" {
		return
	}
	style := run.TextStyle
	if style == nil {
		b.WriteString(content)
		return
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		b.WriteString(content)
		return
	}
	lead := content[:strings.Index(content, trimmed)]
	trail := content[len(lead)+len(trimmed):]

	var formatted string
	switch {
	case style.Link != nil && style.Link.Url != "":
		formatted = "[" + trimmed + "](" + style.Link.Url + ")"
	case style.WeightedFontFamily != nil && isMonospace(style.WeightedFontFamily.FontFamily):
		formatted = "`" + trimmed + "`"
	default:
		formatted = trimmed
		if style.Strikethrough {
			formatted = "~~" + formatted + "~~"
		}
		switch {
		case style.Bold && style.Italic:
			formatted = "***" + formatted + "***"
		case style.Bold:
			formatted = "**" + formatted + "**"
		case style.Italic:
			formatted = "*" + formatted + "*"
		}
	}

	b.WriteString(lead)
	b.WriteString(formatted)
	b.WriteString(trail)
}

func isMonospace(family string) bool {
	f := strings.ToLower(family)
	return strings.Contains(f, "courier") || strings.Contains(f, "mono") || strings.Contains(f, "consolas")
}

func (r *renderer) table(t *docs.Table) {
	if len(t.TableRows) == 0 {
		return
	}

	for i, row := range t.TableRows {
		cells := make([]string, len(row.TableCells))
		for j, cell := range row.TableCells {
			cells[j] = cellText(cell)
		}

		if !r.markdown {
			r.out.WriteString(strings.Join(cells, "\t"))
			r.out.WriteString("\n")
			continue
		}

		r.out.WriteString("| ")
		r.out.WriteString(strings.Join(cells, " | "))
		r.out.WriteString(" |\n")
		if i == 0 {
			r.out.WriteString("|")
			r.out.WriteString(strings.Repeat(" --- |", len(cells)))
			r.out.WriteString("\n")
		}
	}
	r.out.WriteString("\n")
}

func cellText(cell *docs.TableCell) string {
	var parts []string
	for _, el := range cell.Content {
		if el.Paragraph == nil {
			continue
		}
		if s := strings.TrimSpace(paragraphText(el.Paragraph)); s != "" {
			parts = append(parts, s)
		}
	}
	text := strings.Join(parts, " ")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.ReplaceAll(text, "|", `\|`)
}

func paragraphText(p *docs.Paragraph) string {
	var b strings.Builder
	for _, el := range p.Elements {
		if el.TextRun != nil {
			b.WriteString(el.TextRun.Content)
		}
	}
	return b.String()
}
