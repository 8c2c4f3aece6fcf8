// Package mcp exposes page validation, extraction and lookup as MCP tools.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	"noticeboard/extraction"
	"noticeboard/repository"
	"noticeboard/schema"
)

const (
	Version      = "0.1.0"
	EndpointPath = "/mcp"
)

type ValidatePageRequest struct {
	Document string `json:"document"` // raw page JSON
}

type ValidatePageResponse struct {
	Valid  bool   `json:"valid"`
	Path   string `json:"path,omitempty"`
	Reason string `json:"reason,omitempty"`
}

type ExtractPageRequest struct {
	Input string `json:"input"` // notice text or HTML
}

type GetPageRequest struct {
	Slug string `json:"slug"`
}

// NewServer builds the MCP server. The extract_page tool is only registered
// with a pipeline and get_page only with a repository.
func NewServer(pipeline *extraction.Pipeline, repo repository.PageRepository) *server.MCPServer {
	s := server.NewMCPServer(
		"Noticeboard MCP",
		Version,
		server.WithToolCapabilities(false),
	)

	validateTool := mcp.NewTool("validate_page",
		mcp.WithDescription("Check a page JSON document against the page schema and report the first problem"),
		mcp.WithString("document",
			mcp.Required(),
			mcp.Description("The page as a JSON string"),
		),
	)
	s.AddTool(validateTool, mcp.NewTypedToolHandler(validatePageHandler))

	if pipeline != nil {
		extractTool := mcp.NewTool("extract_page",
			mcp.WithDescription("Turn a raw notice (plain text or HTML) into a validated draft page"),
			mcp.WithString("input",
				mcp.Required(),
				mcp.Description("The notice text or HTML"),
			),
		)
		s.AddTool(extractTool, mcp.NewTypedToolHandler(getExtractPageHandler(pipeline)))
	}

	if repo != nil {
		getPageTool := mcp.NewTool("get_page",
			mcp.WithDescription("Get a stored page by its slug"),
			mcp.WithString("slug",
				mcp.Required(),
				mcp.Description("The page slug"),
			),
		)
		s.AddTool(getPageTool, mcp.NewTypedToolHandler(getGetPageHandler(repo)))
	}

	return s
}

// NewHTTPServer serves s over streamable HTTP at EndpointPath.
func NewHTTPServer(s *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s, server.WithEndpointPath(EndpointPath))
}

// ServeHTTP blocks serving s on addr until the listener fails.
func ServeHTTP(s *server.MCPServer, addr string) error {
	log.Info().Str("addr", addr).Str("endpoint", EndpointPath).Msg("serving MCP over HTTP")
	err := NewHTTPServer(s).Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func ServeStdio(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func validatePageHandler(ctx context.Context, request mcp.CallToolRequest, args ValidatePageRequest) (*mcp.CallToolResult, error) {
	if args.Document == "" {
		return mcp.NewToolResultError("document is required"), nil
	}

	response := ValidatePageResponse{Valid: true}
	if err := schema.ValidateJSON([]byte(args.Document)); err != nil {
		var verr *schema.ValidationError
		if !errors.As(err, &verr) {
			return mcp.NewToolResultError(fmt.Sprintf("failed to validate: %v", err)), nil
		}
		response = ValidatePageResponse{Path: verr.Path, Reason: verr.Reason}
	}
	return jsonResult(response)
}

func getExtractPageHandler(pipeline *extraction.Pipeline) func(ctx context.Context, request mcp.CallToolRequest, args ExtractPageRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args ExtractPageRequest) (*mcp.CallToolResult, error) {
		page, err := pipeline.Draft(ctx, args.Input)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to extract page: %v", err)), nil
		}
		return jsonResult(page)
	}
}

func getGetPageHandler(repo repository.PageRepository) func(ctx context.Context, request mcp.CallToolRequest, args GetPageRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest, args GetPageRequest) (*mcp.CallToolResult, error) {
		if args.Slug == "" {
			return mcp.NewToolResultError("slug is required"), nil
		}
		page, err := repo.GetBySlug(ctx, args.Slug)
		if errors.Is(err, repository.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("no page with slug %q", args.Slug)), nil
		}
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to get page: %v", err)), nil
		}
		return jsonResult(page)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
