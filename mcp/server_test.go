package mcp

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"noticeboard/extraction"
	"noticeboard/models"
	"noticeboard/repository"
)

func callRequest(name string, args any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Request: mcp.Request{Method: "tools/call"},
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestNewServer(t *testing.T) {
	assert.NotNil(t, NewServer(nil, nil))
	assert.NotNil(t, NewServer(extraction.NewPipeline(extraction.NewHTMLExtractor()), nil))
	assert.NotNil(t, NewHTTPServer(NewServer(nil, nil)))
}

func TestValidatePageHandler(t *testing.T) {
	tests := []struct {
		name     string
		document string
		valid    bool
		path     string
	}{
		{"valid", `{"title":"t","slug":"s","type":"job","sections":[]}`, true, ""},
		{"unknown page key", `{"title":"t","slug":"s","type":"job","sections":[],"color":"red"}`, false, "Page"},
		{"bad child", `{"title":"t","slug":"s","type":"job","sections":[{"_id":"a","title":"x","type":"SECTION","children":[{"_id":"b","type":"KEY_VALUE","key":"k"}]}]}`, false, "Page.sections[0].children[0]"},
		{"not json", `{`, false, "Page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := ValidatePageRequest{Document: tt.document}
			result, err := validatePageHandler(context.Background(), callRequest("validate_page", args), args)
			require.NoError(t, err)
			assert.False(t, result.IsError)

			var resp ValidatePageResponse
			require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
			assert.Equal(t, tt.valid, resp.Valid)
			assert.Equal(t, tt.path, resp.Path)
			if !tt.valid {
				assert.NotEmpty(t, resp.Reason)
			}
		})
	}
}

func TestValidatePageHandler_Empty(t *testing.T) {
	result, err := validatePageHandler(context.Background(), callRequest("validate_page", nil), ValidatePageRequest{})
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestExtractPageHandler(t *testing.T) {
	handler := getExtractPageHandler(extraction.NewPipeline(extraction.NewHTMLExtractor()))

	args := ExtractPageRequest{Input: "<h1>Bank PO Exam</h1><h2>Dates</h2><p>Exam Date: 2024-09-01</p>"}
	result, err := handler(context.Background(), callRequest("extract_page", args), args)
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var page models.Page
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &page))
	assert.Equal(t, "Bank PO Exam", page.Title)
	assert.Equal(t, "bank-po-exam", page.Slug)
	assert.NotEmpty(t, page.Sections)

	empty := ExtractPageRequest{Input: " "}
	result, err = handler(context.Background(), callRequest("extract_page", empty), empty)
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestGetPageHandler(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.PageRecord{}))
	repo := repository.NewGormRepository(db)

	p := models.NewPage()
	p.Title = "Railway Group D"
	p.Slug = "railway-group-d"
	p.Category = "Railway"
	_, err = repo.Create(context.Background(), p)
	require.NoError(t, err)

	handler := getGetPageHandler(repo)

	args := GetPageRequest{Slug: "railway-group-d"}
	result, err := handler(context.Background(), callRequest("get_page", args), args)
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, resultText(t, result), `"title": "Railway Group D"`)

	missing := GetPageRequest{Slug: "nope"}
	result, err = handler(context.Background(), callRequest("get_page", missing), missing)
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "nope")
}
