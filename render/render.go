// Package render turns a page tree into HTML for the editor preview and the
// public page view.
package render

import (
	"bytes"
	"html/template"
	"net/url"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"noticeboard/models"
)

var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

// Markdown converts markdown to HTML. Raw HTML in the source is dropped.
func Markdown(content string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// Page renders the sections of p. Title and metadata are left to the caller.
func Page(p *models.Page) (template.HTML, error) {
	r := &renderer{}
	for i := range p.Sections {
		if err := r.section(&p.Sections[i]); err != nil {
			return "", err
		}
	}
	return template.HTML(r.buf.String()), nil
}

type renderer struct {
	buf strings.Builder
	dl  bool // inside an open <dl>
}

func (r *renderer) write(parts ...string) {
	for _, s := range parts {
		r.buf.WriteString(s)
	}
}

func esc(s string) string { return template.HTMLEscapeString(s) }

func (r *renderer) section(s *models.Section) error {
	r.write(`<section class="nb-section" id="`, esc(s.ID), `">`, "<h2>", esc(s.Title), "</h2>")
	for _, child := range s.Children {
		if err := child.AcceptChild(r); err != nil {
			return err
		}
	}
	r.closeList()
	r.write("</section>")
	return nil
}

func (r *renderer) openList() {
	if !r.dl {
		r.write(`<dl class="nb-pairs">`)
		r.dl = true
	}
}

func (r *renderer) closeList() {
	if r.dl {
		r.write("</dl>")
		r.dl = false
	}
}

func (r *renderer) VisitKeyValue(b *models.KeyValueBlock) error {
	r.openList()
	r.write("<dt>", esc(b.Key), "</dt><dd>", esc(b.Value), "</dd>")
	return nil
}

func (r *renderer) VisitDate(b *models.DateBlock) error {
	r.openList()
	r.write("<dt>", esc(b.Key), `</dt><dd><time>`, esc(b.Value), "</time></dd>")
	return nil
}

func (r *renderer) VisitLink(b *models.LinkBlock) error {
	r.closeList()
	r.write(`<p class="nb-link"><a href="`, esc(safeURL(b.Value)), `" rel="noopener" target="_blank">`, esc(b.Key), "</a></p>")
	return nil
}

func (r *renderer) VisitMarkdown(b *models.MarkdownBlock) error {
	r.closeList()
	html, err := Markdown(b.Value)
	if err != nil {
		return err
	}
	r.write(`<div class="nb-markdown">`, string(html), "</div>")
	return nil
}

func (r *renderer) VisitTable(b *models.TableBlock) error {
	r.closeList()
	r.write(`<table class="nb-table"><thead><tr>`)
	for _, col := range b.TableData.Columns {
		r.write("<th>", esc(col), "</th>")
	}
	r.write("</tr></thead><tbody>")
	for _, row := range b.TableData.Rows {
		r.write("<tr>")
		for _, col := range b.TableData.Columns {
			r.write("<td>", esc(row[col]), "</td>")
		}
		r.write("</tr>")
	}
	r.write("</tbody></table>")
	return nil
}

func (r *renderer) VisitSubSection(s *models.SubSection) error {
	r.closeList()
	r.write(`<div class="nb-subsection" id="`, esc(s.ID), `"><h3>`, esc(s.Title), "</h3>")
	for _, b := range s.Children {
		if err := b.AcceptBlock(r); err != nil {
			return err
		}
	}
	r.closeList()
	r.write("</div>")
	return nil
}

// safeURL keeps http(s), mailto and relative links; anything else becomes "#".
func safeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "#"
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto":
		return u.String()
	}
	return "#"
}
