package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePage() *Page {
	p := NewPage()
	p.Title = "SSC CGL 2024"
	p.Slug = "ssc-cgl-2024"
	p.Category = "ssc"
	p.ImportantDates = &ImportantDates{LastDateOfApplication: "2024-08-01"}

	s := NewSection("Overview")
	table, _ := NewBlock(FieldTable)
	md := &MarkdownBlock{ID: "md-1", Value: "**Apply** online"}
	sub := NewSubSection("Fees")
	sub.Children = append(sub.Children, &KeyValueBlock{ID: "kv-1", Key: "General", Value: "100"})
	s.Children = append(s.Children, table, md, sub)
	p.Sections = append(p.Sections, s)
	return p
}

func TestNewPageDefaults(t *testing.T) {
	p := NewPage()

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, StatusDraft, p.Status)
	assert.Equal(t, PageTypeJob, p.Type)
	assert.Equal(t, CurrentSchemaVersion, p.SchemaVersion)
	assert.NotNil(t, p.Sections)
	assert.Len(t, p.UpdatedAt, len(TimestampLayout))
	assert.Equal(t, byte('Z'), p.UpdatedAt[len(p.UpdatedAt)-1])
}

func TestPageJSONRoundTrip(t *testing.T) {
	p := samplePage()

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var decoded Page
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, p, &decoded)
}

func TestBlockJSONCarriesTypeTag(t *testing.T) {
	data, err := json.Marshal(&LinkBlock{ID: "l1", Key: "Apply", Value: "https://example.org"})
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "LINK", raw["type"])
	assert.Equal(t, "l1", raw["_id"])
}

func TestSectionJSONEmitsSectionTag(t *testing.T) {
	data, err := json.Marshal(Section{ID: "s1", Title: "Section 1"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"s1","title":"Section 1","type":"SECTION","children":[]}`, string(data))
}

func TestSubSectionRejectsNestedSubSection(t *testing.T) {
	raw := `{"_id":"s1","title":"S","type":"SECTION","children":[
		{"_id":"ss1","title":"Sub","type":"SUB_SECTION","children":[
			{"_id":"ss2","title":"Nested","type":"SUB_SECTION","children":[]}
		]}
	]}`

	var s Section
	err := json.Unmarshal([]byte(raw), &s)
	assert.ErrorIs(t, err, ErrNestedSubSection)
}

func TestUnknownChildType(t *testing.T) {
	var s Section
	err := json.Unmarshal([]byte(`{"_id":"s1","title":"S","children":[{"_id":"x","type":"BOGUS"}]}`), &s)
	assert.ErrorIs(t, err, ErrUnknownFieldType)
}

func TestCloneIsDeep(t *testing.T) {
	p := samplePage()
	p.Metadata = map[string]any{"tags": []any{"a"}}
	cp := p.Clone()

	cp.Title = "changed"
	cp.ImportantDates.LastDateOfApplication = "changed"
	table := cp.Sections[0].Children[0].(*TableBlock)
	table.TableData.Rows[0]["Item"] = "changed"
	cp.Sections[0].Children[2].(*SubSection).Children[0].(*KeyValueBlock).Value = "changed"
	cp.Metadata["tags"].([]any)[0] = "changed"

	assert.Equal(t, "SSC CGL 2024", p.Title)
	assert.Equal(t, "2024-08-01", p.ImportantDates.LastDateOfApplication)
	assert.Equal(t, "", p.Sections[0].Children[0].(*TableBlock).TableData.Rows[0]["Item"])
	assert.Equal(t, "100", p.Sections[0].Children[2].(*SubSection).Children[0].(*KeyValueBlock).Value)
	assert.Equal(t, "a", p.Metadata["tags"].([]any)[0])
}

func TestNewBlockDefaults(t *testing.T) {
	b, err := NewBlock(FieldTable)
	require.NoError(t, err)
	table := b.(*TableBlock)
	assert.Equal(t, []string{"Item", "Details"}, table.TableData.Columns)
	assert.Equal(t, []map[string]string{{"Item": "", "Details": ""}}, table.TableData.Rows)

	_, err = NewBlock(FieldSubSection)
	assert.ErrorIs(t, err, ErrUnknownFieldType)
}

func TestParseFieldType(t *testing.T) {
	ft, err := ParseFieldType("MARKDOWN")
	assert.NoError(t, err)
	assert.Equal(t, FieldMarkdown, ft)

	_, err = ParseFieldType("markdown")
	assert.Error(t, err)
}

func TestPageRecordRoundTrip(t *testing.T) {
	p := samplePage()
	p.DisplayConfig = map[string]any{"theme": "dark"}

	rec, err := NewPageRecord(p)
	require.NoError(t, err)
	assert.Equal(t, "ssc-cgl-2024", rec.Slug)

	back, err := rec.ToPage()
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestMetadataPatchApply(t *testing.T) {
	p := NewPage()
	title := "New title"
	status := StatusPublished
	MetadataPatch{Title: &title, Status: &status}.Apply(p)

	assert.Equal(t, "New title", p.Title)
	assert.Equal(t, StatusPublished, p.Status)
	assert.True(t, MetadataPatch{}.IsEmpty())
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		title    string
		expected string
	}{
		{"SSC CGL 2026 Notification", "ssc-cgl-2026-notification"},
		{"  Clerk / Typist (Grade-II)  ", "clerk-typist-grade-ii"},
		{"Educação Física", "educacao-fisica"},
		{"!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.expected, Slugify(tt.title))
		})
	}
}

func TestEmptyObjectsRoundTrip(t *testing.T) {
	p := samplePage()
	MetadataPatch{DisplayConfig: map[string]any{}, Metadata: map[string]any{}}.Apply(p)
	assert.Nil(t, p.DisplayConfig)
	assert.Nil(t, p.Metadata)

	data, err := json.Marshal(p)
	require.NoError(t, err)
	var back Page
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p, &back)

	withEmpty := samplePage()
	withEmpty.Metadata = map[string]any{}
	assert.Nil(t, withEmpty.Clone().Metadata)
}

func TestPageValueMarshalsEmptySections(t *testing.T) {
	wrapper := struct {
		Page Page `json:"page"`
	}{Page: Page{ID: "p1", Title: "t", Slug: "s", Type: PageTypeJob}}

	data, err := json.Marshal(wrapper)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sections":[]`)
	assert.NotContains(t, string(data), `null`)
}
