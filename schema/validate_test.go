package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"noticeboard/models"
)

func validationError(t *testing.T, err error) *ValidationError {
	t.Helper()
	require.Error(t, err)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected *ValidationError, got %T", err)
	return verr
}

func TestValidateJSON_Valid(t *testing.T) {
	raw := `{
		"_id": "p1",
		"schemaVersion": 1,
		"title": "Railway Group D",
		"slug": "railway-group-d",
		"type": "job",
		"status": "DRAFT",
		"importantDates": {"lastDateOfApplication": "2024-05-01"},
		"displayConfig": {},
		"sections": [{
			"_id": "s1", "title": "Details", "type": "SECTION",
			"children": [
				{"_id": "f1", "type": "KEY_VALUE", "key": "Posts", "value": "1000"},
				{"_id": "f2", "type": "TABLE", "tableData": {"columns": ["Item", "Details"], "rows": [{"Item": "Fee"}]}},
				{"_id": "ss1", "type": "SUB_SECTION", "title": "Links", "children": [
					{"_id": "f3", "type": "LINK", "key": "Apply", "value": "https://example.org"},
					{"_id": "f4", "type": "MARKDOWN", "value": "*note*"}
				]}
			]
		}]
	}`
	assert.NoError(t, ValidateJSON([]byte(raw)))
}

func TestValidateJSON_Rejections(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		path string
	}{
		{
			name: "bogus child type",
			raw:  `{"title":"x","slug":"y","type":"job","sections":[{"_id":"s1","title":"S","type":"SECTION","children":[{"_id":"f1","type":"BOGUS"}]}]}`,
			path: "Page.sections[0].children[0]",
		},
		{
			name: "unknown page key",
			raw:  `{"title":"x","slug":"y","type":"job","sections":[],"author":"me"}`,
			path: "Page",
		},
		{
			name: "unknown important dates key",
			raw:  `{"title":"x","slug":"y","type":"job","sections":[],"importantDates":{"examDate":"2024"}}`,
			path: "Page.importantDates",
		},
		{
			name: "missing slug",
			raw:  `{"title":"x","type":"job","sections":[]}`,
			path: "Page",
		},
		{
			name: "unknown page type",
			raw:  `{"title":"x","slug":"y","type":"blog","sections":[]}`,
			path: "Page.type",
		},
		{
			name: "section with wrong tag",
			raw:  `{"title":"x","slug":"y","type":"job","sections":[{"_id":"s1","title":"S","type":"SUB_SECTION","children":[]}]}`,
			path: "Page.sections[0].type",
		},
		{
			name: "nested sub-section",
			raw: `{"title":"x","slug":"y","type":"job","sections":[{"_id":"s1","title":"S","type":"SECTION","children":[
				{"_id":"ss1","title":"A","type":"SUB_SECTION","children":[
					{"_id":"f1","type":"MARKDOWN","value":""},
					{"_id":"ss2","title":"B","type":"SUB_SECTION","children":[]}
				]}]}]}`,
			path: "Page.sections[0].children[0].children[1]",
		},
		{
			name: "table row with unknown column",
			raw:  `{"title":"x","slug":"y","type":"job","sections":[{"_id":"s1","title":"S","type":"SECTION","children":[{"_id":"t1","type":"TABLE","tableData":{"columns":["A"],"rows":[{"B":""}]}}]}]}`,
			path: "Page.sections[0].children[0].tableData.rows[0]",
		},
		{
			name: "table duplicate column ignoring case",
			raw:  `{"title":"x","slug":"y","type":"job","sections":[{"_id":"s1","title":"S","type":"SECTION","children":[{"_id":"t1","type":"TABLE","tableData":{"columns":["Fee","fee"],"rows":[]}}]}]}`,
			path: "Page.sections[0].children[0].tableData.columns[1]",
		},
		{
			name: "table missing tableData",
			raw:  `{"title":"x","slug":"y","type":"job","sections":[{"_id":"s1","title":"S","type":"SECTION","children":[{"_id":"t1","type":"TABLE"}]}]}`,
			path: "Page.sections[0].children[0]",
		},
		{
			name: "key value with extra key",
			raw:  `{"title":"x","slug":"y","type":"job","sections":[{"_id":"s1","title":"S","type":"SECTION","children":[{"_id":"k1","type":"KEY_VALUE","key":"a","value":"b","tableData":{}}]}]}`,
			path: "Page.sections[0].children[0]",
		},
		{
			name: "duplicate section ids",
			raw:  `{"title":"x","slug":"y","type":"job","sections":[{"_id":"s1","title":"A","type":"SECTION","children":[]},{"_id":"s1","title":"B","type":"SECTION","children":[]}]}`,
			path: "Page.sections[1]._id",
		},
		{
			name: "non-integer schema version",
			raw:  `{"title":"x","slug":"y","type":"job","sections":[],"schemaVersion":1.5}`,
			path: "Page.schemaVersion",
		},
		{
			name: "not json",
			raw:  `{"title":`,
			path: "Page",
		},
		{
			name: "root is array",
			raw:  `[]`,
			path: "Page",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := validationError(t, ValidateJSON([]byte(tt.raw)))
			assert.Equal(t, tt.path, verr.Path, verr.Reason)
		})
	}
}

func TestValidate_DecodedWithoutNumbers(t *testing.T) {
	doc := map[string]any{
		"title":         "x",
		"slug":          "y",
		"type":          "result",
		"schemaVersion": float64(2),
		"sections":      []any{},
	}
	assert.NoError(t, Validate(doc))
}

func TestValidatePage_NewPage(t *testing.T) {
	assert.NoError(t, ValidatePage(models.NewPage()))
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Path: "Page.sections[0]", Reason: "must be an object"}
	assert.Equal(t, "Page.sections[0]: must be an object", err.Error())
}
