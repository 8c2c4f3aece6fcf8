package extraction

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"golang.org/x/net/html"

	"noticeboard/models"
)

// HTMLExtractor builds a draft from an HTML notice (or plain text) without
// any remote service. Headings become sections and sub-sections, tables
// become TABLE blocks, anchors LINK blocks and "Label: value" lines pairs.
type HTMLExtractor struct{}

func NewHTMLExtractor() *HTMLExtractor {
	return &HTMLExtractor{}
}

var (
	pairLine  = regexp.MustCompile(`^([^:]{1,60}?)\s*:\s+(.+)$`)
	urlValue  = regexp.MustCompile(`^(https?://|www\.)\S+$`)
	mdLinkRaw = regexp.MustCompile(`^\[([^\]]+)\]\(([^)]+)\)$`)
)

const defaultSection = "Details"

func (e *HTMLExtractor) Extract(ctx context.Context, raw string) (*models.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := newDraftBuilder()
	if looksLikeHTML(raw) {
		doc, err := html.Parse(strings.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse HTML: %w", err)
		}
		if err := b.walk(doc); err != nil {
			return nil, err
		}
	} else {
		b.plain(raw)
	}
	b.flushProse()
	return b.page, nil
}

func looksLikeHTML(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(s, "<") && strings.Contains(s, ">")
}

type draftBuilder struct {
	page  *models.Page
	sub   *models.SubSection
	prose []string
}

func newDraftBuilder() *draftBuilder {
	p := models.NewPage()
	return &draftBuilder{page: p}
}

func (b *draftBuilder) section() *models.Section {
	if len(b.page.Sections) == 0 {
		b.page.Sections = append(b.page.Sections, models.NewSection(defaultSection))
	}
	return &b.page.Sections[len(b.page.Sections)-1]
}

func (b *draftBuilder) startSection(title string) {
	b.flushProse()
	b.sub = nil
	b.page.Sections = append(b.page.Sections, models.NewSection(title))
}

func (b *draftBuilder) startSubSection(title string) {
	b.flushProse()
	s := b.section()
	b.sub = models.NewSubSection(title)
	s.Children = append(s.Children, b.sub)
}

func (b *draftBuilder) add(block models.Block) {
	if b.sub != nil {
		b.sub.Children = append(b.sub.Children, block)
		return
	}
	s := b.section()
	s.Children = append(s.Children, block)
}

func (b *draftBuilder) flushProse() {
	text := strings.TrimSpace(strings.Join(b.prose, "\n"))
	b.prose = nil
	if text == "" {
		return
	}
	b.add(&models.MarkdownBlock{ID: models.NewID(), Value: text})
}

// line classifies one line of text as a link, a pair or prose.
func (b *draftBuilder) line(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		b.prose = append(b.prose, "")
		return
	}
	if m := mdLinkRaw.FindStringSubmatch(trimmed); m != nil {
		b.flushProse()
		b.add(&models.LinkBlock{ID: models.NewID(), Key: m[1], Value: m[2]})
		return
	}
	m := pairLine.FindStringSubmatch(trimmed)
	if m == nil || strings.Contains(m[1], "://") {
		b.prose = append(b.prose, line)
		return
	}
	b.flushProse()
	b.add(pairBlock(cleanLabel(m[1]), strings.TrimSpace(m[2])))
}

func pairBlock(label, value string) models.Block {
	id := models.NewID()
	if m := mdLinkRaw.FindStringSubmatch(value); m != nil {
		return &models.LinkBlock{ID: id, Key: label, Value: m[2]}
	}
	if urlValue.MatchString(value) {
		return &models.LinkBlock{ID: id, Key: label, Value: value}
	}
	if strings.Contains(strings.ToLower(label), "date") {
		return &models.DateBlock{ID: id, Key: label, Value: value}
	}
	return &models.KeyValueBlock{ID: id, Key: label, Value: value}
}

func cleanLabel(s string) string {
	s = strings.Trim(s, " *_-#>")
	return strings.TrimSpace(s)
}

// plain handles text input: the first line is the title and a line ending
// in ":" with nothing after it opens a section.
func (b *draftBuilder) plain(raw string) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case b.page.Title == "" && trimmed != "":
			b.page.Title = strings.TrimLeft(trimmed, "# ")
		case strings.HasPrefix(trimmed, "## "):
			b.startSection(strings.TrimSpace(trimmed[3:]))
		case strings.HasPrefix(trimmed, "### "):
			b.startSubSection(strings.TrimSpace(trimmed[4:]))
		case len(trimmed) > 1 && strings.HasSuffix(trimmed, ":") && !strings.Contains(trimmed[:len(trimmed)-1], ":"):
			b.startSection(strings.TrimSuffix(trimmed, ":"))
		default:
			b.line(line)
		}
	}
}

func (b *draftBuilder) walk(n *html.Node) error {
	if n.Type == html.TextNode {
		for _, line := range strings.Split(n.Data, "\n") {
			if strings.TrimSpace(line) != "" {
				b.line(line)
			}
		}
		return nil
	}
	if n.Type != html.ElementNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := b.walk(c); err != nil {
				return err
			}
		}
		return nil
	}

	switch n.Data {
	case "head":
		if t := findTag(n, "title"); t != nil && b.page.Title == "" {
			b.page.Title = textOf(t)
		}
		return nil
	case "script", "style", "noscript", "nav", "footer":
		return nil
	case "h1":
		if title := textOf(n); title != "" {
			if b.page.Title == "" || len(b.page.Sections) == 0 {
				b.page.Title = title
			} else {
				b.startSection(title)
			}
		}
		return nil
	case "h2":
		b.startSection(textOf(n))
		return nil
	case "h3", "h4", "h5", "h6":
		b.startSubSection(textOf(n))
		return nil
	case "table":
		b.flushProse()
		if t := tableOf(n); len(t.Columns) > 0 {
			b.add(&models.TableBlock{ID: models.NewID(), TableData: t})
		}
		return nil
	case "a":
		if href := attr(n, "href"); href != "" {
			b.flushProse()
			b.add(&models.LinkBlock{ID: models.NewID(), Key: textOf(n), Value: href})
			return nil
		}
	case "p", "li", "dt", "dd", "pre", "blockquote", "span", "strong", "b":
		if linksOnly(n) {
			b.flushProse()
			for _, a := range findAll(n, "a") {
				b.add(&models.LinkBlock{ID: models.NewID(), Key: textOf(a), Value: attr(a, "href")})
			}
			return nil
		}
		if n.Data == "li" || n.Data == "p" || n.Data == "pre" || n.Data == "blockquote" {
			return b.markdown(n)
		}
	case "ul", "ol":
		if hasDescendant(n, "table") {
			break
		}
		if linksOnly(n) {
			b.flushProse()
			for _, a := range findAll(n, "a") {
				b.add(&models.LinkBlock{ID: models.NewID(), Key: textOf(a), Value: attr(a, "href")})
			}
			return nil
		}
		return b.markdown(n)
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := b.walk(c); err != nil {
			return err
		}
	}
	return nil
}

func (b *draftBuilder) markdown(n *html.Node) error {
	out, err := htmltomarkdown.ConvertNode(n)
	if err != nil {
		return fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		b.line(line)
	}
	b.prose = append(b.prose, "")
	return nil
}

func tableOf(n *html.Node) models.TableData {
	var rows [][]string
	for _, tr := range findAll(n, "tr") {
		var cells []string
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.Data == "th" || c.Data == "td") {
				cells = append(cells, textOf(c))
			}
		}
		if len(cells) > 0 {
			rows = append(rows, cells)
		}
	}
	if len(rows) == 0 {
		return models.TableData{}
	}

	header := rows[0]
	columns := make([]string, len(header))
	for i, h := range header {
		if h == "" {
			h = fmt.Sprintf("Column %d", i+1)
		}
		columns[i] = h
	}
	data := models.NewTableData(columns...)
	for _, cells := range rows[1:] {
		row := data.EmptyRow()
		for i, cell := range cells {
			if i < len(columns) {
				row[columns[i]] = cell
			}
		}
		data.Rows = append(data.Rows, row)
	}
	return data.Sanitized()
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(sb.String()), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return strings.TrimSpace(a.Val)
		}
	}
	return ""
}

func findTag(n *html.Node, tag string) *html.Node {
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findTag(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
			continue
		}
		out = append(out, findAll(c, tag)...)
	}
	return out
}

func hasDescendant(n *html.Node, tag string) bool {
	return len(findAll(n, tag)) > 0
}

// linksOnly reports whether every piece of text under n sits inside an
// anchor with an href.
func linksOnly(n *html.Node) bool {
	anchors := findAll(n, "a")
	if len(anchors) == 0 {
		return false
	}
	var linked strings.Builder
	for _, a := range anchors {
		if attr(a, "href") == "" {
			return false
		}
		linked.WriteString(textOf(a))
	}
	return stripSeparators(linked.String()) == stripSeparators(textOf(n))
}

func stripSeparators(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '|', ',', '•', '-', '/':
			return -1
		}
		return r
	}, s)
}
