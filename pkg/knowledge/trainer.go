package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

const trainerTimeout = 15 * time.Second

// TrainerClient reaches the externally hosted training service over
// HTTP. It serves the same query contract as StoreResolver and also
// backs the document management endpoints.
type TrainerClient struct {
	baseURL string
	http    *http.Client
}

func NewTrainerClient(baseURL string) *TrainerClient {
	return &TrainerClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: trainerTimeout},
	}
}

type chunk struct {
	Content string  `json:"content"`
	Source  string  `json:"source"`
	Score   float64 `json:"score"`
	Type    string  `json:"type"`
}

type SearchRequest struct {
	Query         string   `json:"query"`
	Limit         int      `json:"limit"`
	Threshold     float64  `json:"threshold,omitempty"`
	DocumentTypes []string `json:"documentTypes,omitempty"`
}

func (c *TrainerClient) Query(ctx context.Context, query, scope string, maxResults int) (*Result, error) {
	var resp struct {
		Chunks []chunk `json:"chunks"`
	}
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/agents/%s/search", scope),
		SearchRequest{Query: query, Limit: maxResults}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Chunks) == 0 {
		return &Result{Found: false, Message: "no trained knowledge matched the query"}, nil
	}

	var blocks []string
	var sources []Source
	for _, ch := range resp.Chunks {
		blocks = append(blocks, fmt.Sprintf("--- Document: %s ---\n%s", ch.Source, ch.Content))
		sources = append(sources, Source{Name: ch.Source, Score: int(ch.Score * 100)})
	}
	return &Result{
		Found:     true,
		Content:   strings.Join(blocks, "\n\n"),
		Sources:   sources,
		FileCount: len(sources),
	}, nil
}

// Search exposes the raw search contract used by the knowledge HTTP
// surface, without the prompt-block formatting Query applies.
func (c *TrainerClient) Search(ctx context.Context, scope string, req SearchRequest) ([]map[string]any, error) {
	var resp struct {
		Chunks []map[string]any `json:"chunks"`
	}
	if err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/agents/%s/search", scope), req, &resp); err != nil {
		return nil, err
	}
	return resp.Chunks, nil
}

func (c *TrainerClient) Upload(ctx context.Context, scope, fileName string, content io.Reader) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return fmt.Errorf("reading upload content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("building upload request: %w", err)
	}

	url := fmt.Sprintf("%s/api/agents/%s/documents", c.baseURL, scope)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("training service unavailable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("training service rejected upload: %s", resp.Status)
	}
	return nil
}

func (c *TrainerClient) List(ctx context.Context, scope string) ([]map[string]any, error) {
	var resp struct {
		Documents []map[string]any `json:"documents"`
	}
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/agents/%s/documents", scope), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (c *TrainerClient) Stats(ctx context.Context, scope string) (map[string]any, error) {
	var resp map[string]any
	if err := c.call(ctx, http.MethodGet, fmt.Sprintf("/api/agents/%s/stats", scope), nil, &resp); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *TrainerClient) Delete(ctx context.Context, scope, documentID string) error {
	return c.call(ctx, http.MethodDelete, fmt.Sprintf("/api/agents/%s/documents/%s", scope, documentID), nil, nil)
}

func (c *TrainerClient) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("training service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("training service returned %s", resp.Status)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding training service response: %w", err)
		}
	}
	return nil
}
