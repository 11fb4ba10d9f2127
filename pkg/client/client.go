package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/promptstash/promptstash/internal/common"
	"github.com/promptstash/promptstash/internal/domain"
)

// Client talks to the promptstash API and translates HTTP statuses back
// into the shared sentinel errors, so CLI code handles failures the same
// way service code does.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client. apiKey may be empty when the server allows
// localhost bypass.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    *Meta           `json:"meta"`
	Error   *apiError       `json:"error"`
}

// Meta mirrors the server's pagination meta.
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"total_pages"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) (*Meta, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, path, env.Error)
	}

	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, fmt.Errorf("decode data: %w", err)
		}
	}
	return env.Meta, nil
}

// statusError maps an HTTP status back to the sentinel error taxonomy.
func statusError(status int, path string, apiErr *apiError) error {
	detail := ""
	if apiErr != nil {
		detail = apiErr.Message
	}

	var kind error
	switch status {
	case http.StatusNotFound:
		kind = common.ErrNotFound
		if strings.Contains(path, "/versions/") || strings.Contains(detail, "version") {
			kind = common.ErrVersionNotFound
		}
	case http.StatusConflict:
		kind = common.ErrConflict
		if strings.Contains(detail, "slug") {
			kind = common.ErrDuplicateSlug
		}
	case http.StatusUnprocessableEntity:
		kind = common.ErrValidation
	case http.StatusBadRequest:
		kind = common.ErrTemplateRender
		if !strings.Contains(detail, "template") {
			kind = common.ErrValidation
		}
	case http.StatusUnauthorized:
		kind = common.ErrUnauthorized
	default:
		return fmt.Errorf("server returned %d: %s", status, detail)
	}
	if detail != "" {
		return fmt.Errorf("%w: %s", kind, detail)
	}
	return kind
}

// CreateRequest is the payload for CreatePrompt.
type CreateRequest struct {
	Slug         string   `json:"slug,omitempty"`
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Description  string   `json:"description,omitempty"`
	Category     string   `json:"category,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	SourceURL    string   `json:"source_url,omitempty"`
	RelatedSlugs []string `json:"related_slugs,omitempty"`
}

// UpdateRequest is the payload for UpdatePrompt; nil fields are omitted.
type UpdateRequest struct {
	Title        *string   `json:"title,omitempty"`
	Content      *string   `json:"content,omitempty"`
	Description  *string   `json:"description,omitempty"`
	Category     *string   `json:"category,omitempty"`
	Tags         *[]string `json:"tags,omitempty"`
	SourceURL    *string   `json:"source_url,omitempty"`
	RelatedSlugs *[]string `json:"related_slugs,omitempty"`
	ChangeNote   string    `json:"change_note,omitempty"`
}

// ListOptions filters ListPrompts.
type ListOptions struct {
	Page     int
	PageSize int
	Category string
	Tags     []string
	Query    string
	Sort     string
}

// RenderResult is the server's render response.
type RenderResult struct {
	Content       string                 `json:"content"`
	Slug          string                 `json:"slug"`
	IsTemplate    bool                   `json:"is_template"`
	VariablesUsed map[string]interface{} `json:"variables_used"`
}

func (c *Client) CreatePrompt(ctx context.Context, req CreateRequest) (*domain.Prompt, error) {
	var p domain.Prompt
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/prompts", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetPrompt(ctx context.Context, slug string, incrementUsage bool) (*domain.Prompt, error) {
	path := "/api/v1/prompts/" + url.PathEscape(slug)
	if !incrementUsage {
		path += "?increment_usage=false"
	}
	var p domain.Prompt
	if _, err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) UpdatePrompt(ctx context.Context, slug string, req UpdateRequest) (*domain.Prompt, error) {
	var p domain.Prompt
	if _, err := c.do(ctx, http.MethodPut, "/api/v1/prompts/"+url.PathEscape(slug), req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) DeletePrompt(ctx context.Context, slug string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/v1/prompts/"+url.PathEscape(slug), nil, nil)
	return err
}

func (c *Client) Render(ctx context.Context, slug string, vars map[string]interface{}) (*RenderResult, error) {
	var res RenderResult
	body := map[string]interface{}{"variables": vars}
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/prompts/"+url.PathEscape(slug)+"/render", body, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) AddNote(ctx context.Context, slug, kind, text string) (*domain.Prompt, error) {
	var p domain.Prompt
	body := map[string]string{"kind": kind, "text": text}
	if _, err := c.do(ctx, http.MethodPost, "/api/v1/prompts/"+url.PathEscape(slug)+"/notes", body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) ListPrompts(ctx context.Context, opts ListOptions) ([]*domain.Prompt, *Meta, error) {
	q := url.Values{}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(opts.PageSize))
	}
	if opts.Category != "" {
		q.Set("category", opts.Category)
	}
	if len(opts.Tags) > 0 {
		q.Set("tags", strings.Join(opts.Tags, ","))
	}
	if opts.Query != "" {
		q.Set("q", opts.Query)
	}
	if opts.Sort != "" {
		q.Set("sort", opts.Sort)
	}

	path := "/api/v1/prompts"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var prompts []*domain.Prompt
	meta, err := c.do(ctx, http.MethodGet, path, nil, &prompts)
	if err != nil {
		return nil, nil, err
	}
	return prompts, meta, nil
}

func (c *Client) ListVersions(ctx context.Context, slug string) ([]*domain.PromptVersion, error) {
	var versions []*domain.PromptVersion
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/prompts/"+url.PathEscape(slug)+"/versions", nil, &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

func (c *Client) GetVersion(ctx context.Context, slug string, version int) (*domain.PromptVersion, error) {
	var v domain.PromptVersion
	path := fmt.Sprintf("/api/v1/prompts/%s/versions/%d", url.PathEscape(slug), version)
	if _, err := c.do(ctx, http.MethodGet, path, nil, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

func (c *Client) RestoreVersion(ctx context.Context, slug string, version int) (*domain.Prompt, error) {
	var p domain.Prompt
	path := fmt.Sprintf("/api/v1/prompts/%s/versions/%d/restore", url.PathEscape(slug), version)
	if _, err := c.do(ctx, http.MethodPost, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Stats(ctx context.Context) (*domain.Stats, error) {
	var stats domain.Stats
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

func (c *Client) Categories(ctx context.Context) ([]domain.CategoryCount, error) {
	var counts []domain.CategoryCount
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/categories", nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *Client) Tags(ctx context.Context) ([]domain.TagCount, error) {
	var counts []domain.TagCount
	if _, err := c.do(ctx, http.MethodGet, "/api/v1/tags", nil, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func (c *Client) Random(ctx context.Context, category string) (*domain.Prompt, error) {
	path := "/api/v1/random"
	if category != "" {
		path += "?category=" + url.QueryEscape(category)
	}
	var p domain.Prompt
	if _, err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
