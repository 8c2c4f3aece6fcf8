package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"noticeboard/models"
	"noticeboard/schema"
)

var errTransport = errors.New("transport error")

// Prompt is sent with every request so the gateway knows the draft shape.
const Prompt = `You are a data entry expert for a government job portal.
Extract the notice below into one JSON object with:
- title: string
- slug: string (kebab-case)
- description: string (2-3 sentences)
- importantDates: {"startDateOfApplication": string, "lastDateOfApplication": string}
- sections: array of Section

Block = {"_id": string, "type": "KEY_VALUE"|"TABLE"|"MARKDOWN"|"LINK"|"DATE",
  "key": string (KEY_VALUE, DATE, LINK), "value": string (KEY_VALUE, DATE, LINK, MARKDOWN),
  "tableData": {"columns": [string], "rows": [{column: string}]} (TABLE)}
SubSection = {"_id": string, "type": "SUB_SECTION", "title": string, "children": [Block]}
Section = {"_id": string, "type": "SECTION", "title": string, "children": [Block or SubSection]}

Rules:
- Group related data into sections. Sub-sections never contain sub-sections.
- One block per item: three important dates are three DATE blocks.
- DATE: key is the label ("Last Date"), value the date. KEY_VALUE: key is the field name.
- LINK: key is the link text, value the URL. MARKDOWN: value is the text.
- TABLE: tableData holds the columns and one object per row.`

type RemoteConfig struct {
	URL       string
	APIKey    string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
	Retry     RetryConfig
	Transport http.RoundTripper
}

// RemoteExtractor posts the raw notice to an HTTP gateway (usually fronting
// an LLM) and reads back a JSON draft.
type RemoteExtractor struct {
	cfg     RemoteConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewRemoteExtractor(cfg RemoteConfig) *RemoteExtractor {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &RemoteExtractor{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
	}
}

type remoteRequest struct {
	Instructions string `json:"instructions"`
	Input        string `json:"input"`
}

func (e *RemoteExtractor) Extract(ctx context.Context, raw string) (*models.Page, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	payload, err := json.Marshal(remoteRequest{Instructions: Prompt, Input: raw})
	if err != nil {
		return nil, err
	}

	body, err := withRetry(ctx, e.cfg.Retry, func(ctx context.Context) ([]byte, error) {
		return e.post(ctx, payload)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	return decodeDraft(body)
}

func (e *RemoteExtractor) post(ctx context.Context, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response body: %w", errTransport, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(body) > 200 {
			body = body[:200]
		}
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// decodeDraft normalizes the gateway answer onto the page shape, validates
// it and decodes it. The answer may be the draft itself or {"draft": {...}}.
func decodeDraft(body []byte) (*models.Page, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, &schema.ValidationError{Path: schema.RootPath, Reason: "extractor returned invalid JSON"}
	}
	if inner, ok := doc["draft"].(map[string]any); ok {
		doc = inner
	}
	normalizeDraft(doc)

	if err := schema.Validate(doc); err != nil {
		return nil, err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var p models.Page
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, &schema.ValidationError{Path: schema.RootPath, Reason: err.Error()}
	}
	return &p, nil
}

var legacyTypes = map[string]models.FieldType{
	"LINKS": models.FieldLink,
	"DATES": models.FieldDate,
}

// normalizeDraft fills what generated drafts commonly leave out: ids, the
// SECTION tag and page defaults. It also maps older field names.
func normalizeDraft(doc map[string]any) {
	if v, ok := doc["shortDescription"]; ok {
		if _, has := doc["description"]; !has {
			doc["description"] = v
		}
		delete(doc, "shortDescription")
	}
	if v, ok := doc["lastDate"].(string); ok {
		dates, _ := doc["importantDates"].(map[string]any)
		if dates == nil {
			dates = map[string]any{}
		}
		if _, has := dates["lastDateOfApplication"]; !has {
			dates["lastDateOfApplication"] = v
		}
		doc["importantDates"] = dates
	}
	delete(doc, "lastDate")

	setDefault(doc, "_id", models.NewID())
	setDefault(doc, "schemaVersion", json.Number(fmt.Sprint(models.CurrentSchemaVersion)))
	setDefault(doc, "type", string(models.PageTypeJob))
	setDefault(doc, "status", string(models.StatusDraft))
	setDefault(doc, "sections", []any{})
	if _, ok := doc["slug"]; !ok {
		title, _ := doc["title"].(string)
		doc["slug"] = models.Slugify(title)
	}

	sections, _ := doc["sections"].([]any)
	for _, s := range sections {
		sec, ok := s.(map[string]any)
		if !ok {
			continue
		}
		normalizeNode(sec)
		setDefault(sec, "type", models.SectionTypeTag)
		children, _ := sec["children"].([]any)
		for _, c := range children {
			child, ok := c.(map[string]any)
			if !ok {
				continue
			}
			normalizeNode(child)
			if grand, ok := child["children"].([]any); ok {
				for _, g := range grand {
					if block, ok := g.(map[string]any); ok {
						normalizeNode(block)
					}
				}
			}
		}
	}
}

func normalizeNode(node map[string]any) {
	if id, ok := node["id"]; ok {
		if _, has := node["_id"]; !has {
			node["_id"] = id
		}
		delete(node, "id")
	}
	setDefault(node, "_id", models.NewID())
	if t, ok := node["type"].(string); ok {
		if mapped, ok := legacyTypes[t]; ok {
			node["type"] = string(mapped)
		}
	}
	if id, ok := node["_id"].(string); ok && id == "" {
		node["_id"] = models.NewID()
	}
}

func setDefault(m map[string]any, key string, v any) {
	if cur, ok := m[key]; !ok || cur == nil {
		m[key] = v
	}
}
