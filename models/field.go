package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type FieldType string

const (
	FieldKeyValue   FieldType = "KEY_VALUE"
	FieldTable      FieldType = "TABLE"
	FieldMarkdown   FieldType = "MARKDOWN"
	FieldLink       FieldType = "LINK"
	FieldDate       FieldType = "DATE"
	FieldSubSection FieldType = "SUB_SECTION"
)

// SectionTypeTag is the only accepted type tag for a top-level section.
const SectionTypeTag = "SECTION"

// BlockTypes lists the leaf variants in the order the editor offers them.
var BlockTypes = []FieldType{FieldKeyValue, FieldTable, FieldMarkdown, FieldLink, FieldDate}

var (
	ErrUnknownFieldType = errors.New("unknown field type")
	ErrNestedSubSection = errors.New("sub-section cannot contain a sub-section")
)

// ParseFieldType accepts only the closed set of field tags.
func ParseFieldType(s string) (FieldType, error) {
	switch t := FieldType(s); t {
	case FieldKeyValue, FieldTable, FieldMarkdown, FieldLink, FieldDate, FieldSubSection:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFieldType, s)
}

func (t FieldType) IsBlock() bool {
	for _, b := range BlockTypes {
		if t == b {
			return true
		}
	}
	return false
}

// SectionChild is anything that can sit directly inside a Section:
// a Block or a SubSection.
type SectionChild interface {
	GetID() string
	Kind() FieldType
	AcceptChild(v ChildVisitor) error
	cloneChild() SectionChild
}

// Block is a leaf content element. SubSection is deliberately not a Block,
// so a SubSection can never hold another SubSection.
type Block interface {
	SectionChild
	AcceptBlock(v BlockVisitor) error
	cloneBlock() Block
}

// BlockVisitor gets one call per leaf variant. Adding a variant means adding
// a method here, which breaks every visitor that does not handle it.
type BlockVisitor interface {
	VisitKeyValue(b *KeyValueBlock) error
	VisitDate(b *DateBlock) error
	VisitLink(b *LinkBlock) error
	VisitMarkdown(b *MarkdownBlock) error
	VisitTable(b *TableBlock) error
}

type ChildVisitor interface {
	BlockVisitor
	VisitSubSection(s *SubSection) error
}

type KeyValueBlock struct {
	ID    string `json:"_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type DateBlock struct {
	ID    string `json:"_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type LinkBlock struct {
	ID    string `json:"_id"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

type MarkdownBlock struct {
	ID    string `json:"_id"`
	Value string `json:"value"`
}

type TableData struct {
	Columns []string            `json:"columns"`
	Rows    []map[string]string `json:"rows"`
}

type TableBlock struct {
	ID        string    `json:"_id"`
	TableData TableData `json:"tableData"`
}

func (b *KeyValueBlock) GetID() string { return b.ID }
func (b *DateBlock) GetID() string     { return b.ID }
func (b *LinkBlock) GetID() string     { return b.ID }
func (b *MarkdownBlock) GetID() string { return b.ID }
func (b *TableBlock) GetID() string    { return b.ID }

func (b *KeyValueBlock) Kind() FieldType { return FieldKeyValue }
func (b *DateBlock) Kind() FieldType     { return FieldDate }
func (b *LinkBlock) Kind() FieldType     { return FieldLink }
func (b *MarkdownBlock) Kind() FieldType { return FieldMarkdown }
func (b *TableBlock) Kind() FieldType    { return FieldTable }

func (b *KeyValueBlock) AcceptBlock(v BlockVisitor) error { return v.VisitKeyValue(b) }
func (b *DateBlock) AcceptBlock(v BlockVisitor) error     { return v.VisitDate(b) }
func (b *LinkBlock) AcceptBlock(v BlockVisitor) error     { return v.VisitLink(b) }
func (b *MarkdownBlock) AcceptBlock(v BlockVisitor) error { return v.VisitMarkdown(b) }
func (b *TableBlock) AcceptBlock(v BlockVisitor) error    { return v.VisitTable(b) }

func (b *KeyValueBlock) AcceptChild(v ChildVisitor) error { return v.VisitKeyValue(b) }
func (b *DateBlock) AcceptChild(v ChildVisitor) error     { return v.VisitDate(b) }
func (b *LinkBlock) AcceptChild(v ChildVisitor) error     { return v.VisitLink(b) }
func (b *MarkdownBlock) AcceptChild(v ChildVisitor) error { return v.VisitMarkdown(b) }
func (b *TableBlock) AcceptChild(v ChildVisitor) error    { return v.VisitTable(b) }

func (b *KeyValueBlock) cloneBlock() Block { cp := *b; return &cp }
func (b *DateBlock) cloneBlock() Block     { cp := *b; return &cp }
func (b *LinkBlock) cloneBlock() Block     { cp := *b; return &cp }
func (b *MarkdownBlock) cloneBlock() Block { cp := *b; return &cp }
func (b *TableBlock) cloneBlock() Block {
	return &TableBlock{ID: b.ID, TableData: b.TableData.Clone()}
}

func (b *KeyValueBlock) cloneChild() SectionChild { return b.cloneBlock() }
func (b *DateBlock) cloneChild() SectionChild     { return b.cloneBlock() }
func (b *LinkBlock) cloneChild() SectionChild     { return b.cloneBlock() }
func (b *MarkdownBlock) cloneChild() SectionChild { return b.cloneBlock() }
func (b *TableBlock) cloneChild() SectionChild    { return b.cloneBlock() }

func (b *KeyValueBlock) MarshalJSON() ([]byte, error) {
	type alias KeyValueBlock
	return json.Marshal(struct {
		*alias
		Type FieldType `json:"type"`
	}{(*alias)(b), FieldKeyValue})
}

func (b *DateBlock) MarshalJSON() ([]byte, error) {
	type alias DateBlock
	return json.Marshal(struct {
		*alias
		Type FieldType `json:"type"`
	}{(*alias)(b), FieldDate})
}

func (b *LinkBlock) MarshalJSON() ([]byte, error) {
	type alias LinkBlock
	return json.Marshal(struct {
		*alias
		Type FieldType `json:"type"`
	}{(*alias)(b), FieldLink})
}

func (b *MarkdownBlock) MarshalJSON() ([]byte, error) {
	type alias MarkdownBlock
	return json.Marshal(struct {
		*alias
		Type FieldType `json:"type"`
	}{(*alias)(b), FieldMarkdown})
}

func (b *TableBlock) MarshalJSON() ([]byte, error) {
	type alias TableBlock
	return json.Marshal(struct {
		*alias
		Type FieldType `json:"type"`
	}{&alias{ID: b.ID, TableData: b.TableData.normalized()}, FieldTable})
}

// NewTableData returns a table with the given columns and no rows.
func NewTableData(columns ...string) TableData {
	return TableData{Columns: append([]string{}, columns...), Rows: []map[string]string{}}
}

// EmptyRow returns a row holding "" for every column.
func (t TableData) EmptyRow() map[string]string {
	row := make(map[string]string, len(t.Columns))
	for _, col := range t.Columns {
		row[col] = ""
	}
	return row
}

// HasColumn reports whether name is already a column, ignoring case.
func (t TableData) HasColumn(name string) bool {
	for _, col := range t.Columns {
		if strings.EqualFold(col, name) {
			return true
		}
	}
	return false
}

func (t TableData) Clone() TableData {
	out := TableData{
		Columns: append([]string{}, t.Columns...),
		Rows:    make([]map[string]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cp := make(map[string]string, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}

// Sanitized drops blank and repeated (ignoring case) column names and limits
// every row to the remaining columns, filling gaps with "".
func (t TableData) Sanitized() TableData {
	out := TableData{Columns: []string{}, Rows: make([]map[string]string, 0, len(t.Rows))}
	for _, col := range t.Columns {
		col = strings.TrimSpace(col)
		if col == "" || out.HasColumn(col) {
			continue
		}
		out.Columns = append(out.Columns, col)
	}
	for _, row := range t.Rows {
		clean := out.EmptyRow()
		for _, col := range out.Columns {
			if v, ok := row[col]; ok {
				clean[col] = v
			}
		}
		out.Rows = append(out.Rows, clean)
	}
	return out
}

func (t TableData) normalized() TableData {
	if t.Columns == nil {
		t.Columns = []string{}
	}
	if t.Rows == nil {
		t.Rows = []map[string]string{}
	}
	return t
}

// NewBlock builds a block of the given leaf type with editor defaults.
// A table starts with the Item and Details columns and one empty row.
func NewBlock(t FieldType) (Block, error) {
	id := NewID()
	switch t {
	case FieldKeyValue:
		return &KeyValueBlock{ID: id}, nil
	case FieldDate:
		return &DateBlock{ID: id}, nil
	case FieldLink:
		return &LinkBlock{ID: id}, nil
	case FieldMarkdown:
		return &MarkdownBlock{ID: id}, nil
	case FieldTable:
		data := NewTableData("Item", "Details")
		data.Rows = append(data.Rows, data.EmptyRow())
		return &TableBlock{ID: id, TableData: data}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownFieldType, t)
}

func decodeBlock(raw json.RawMessage) (Block, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	var b Block
	switch FieldType(head.Type) {
	case FieldKeyValue:
		b = &KeyValueBlock{}
	case FieldDate:
		b = &DateBlock{}
	case FieldLink:
		b = &LinkBlock{}
	case FieldMarkdown:
		b = &MarkdownBlock{}
	case FieldTable:
		b = &TableBlock{}
	case FieldSubSection:
		return nil, ErrNestedSubSection
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFieldType, head.Type)
	}
	if err := json.Unmarshal(raw, b); err != nil {
		return nil, err
	}
	if tb, ok := b.(*TableBlock); ok {
		tb.TableData = tb.TableData.normalized()
	}
	return b, nil
}

func decodeChild(raw json.RawMessage) (SectionChild, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	if FieldType(head.Type) == FieldSubSection {
		sub := &SubSection{}
		if err := json.Unmarshal(raw, sub); err != nil {
			return nil, err
		}
		return sub, nil
	}
	return decodeBlock(raw)
}
