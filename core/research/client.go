package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client is a JobService over the deep-research service's REST interface:
// runs are created, polled, and cancelled by id, and the final message
// carries citations as structured url_citation annotations.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type ClientOption func(*Client)

// WithClientAPIKey authenticates requests with a bearer token.
func WithClientAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the default instrumented client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// NewClient builds a client for the service at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type createRunRequest struct {
	Query            string `json:"query"`
	ArbitrationModel string `json:"arbitration_model,omitempty"`
	ResearchModel    string `json:"research_model,omitempty"`
	SearchResource   string `json:"search_resource,omitempty"`
}

type runPayload struct {
	ID       string   `json:"id"`
	Status   string   `json:"status"`
	Progress []string `json:"progress,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type runResultPayload struct {
	Answer      string       `json:"answer"`
	Annotations []annotation `json:"annotations,omitempty"`
}

type annotation struct {
	Type        string       `json:"type"`
	URLCitation *urlCitation `json:"url_citation,omitempty"`
}

type urlCitation struct {
	URL   string `json:"url"`
	Title string `json:"title,omitempty"`
}

func (c *Client) CreateJob(ctx context.Context, req Request) (string, error) {
	body := createRunRequest{
		Query:            req.Query,
		ArbitrationModel: req.ArbitrationModel,
		ResearchModel:    req.ResearchModel,
		SearchResource:   req.SearchResource,
	}
	var run runPayload
	if err := c.do(ctx, http.MethodPost, "/runs", body, &run); err != nil {
		return "", err
	}
	if run.ID == "" {
		return "", fmt.Errorf("research service returned a run without an id")
	}
	return run.ID, nil
}

func (c *Client) JobStatus(ctx context.Context, remoteID string) (StatusSnapshot, error) {
	var run runPayload
	if err := c.do(ctx, http.MethodGet, "/runs/"+remoteID, nil, &run); err != nil {
		return StatusSnapshot{}, err
	}
	return StatusSnapshot{
		Status:   mapRunStatus(run.Status),
		Progress: run.Progress,
		Error:    run.Error,
	}, nil
}

func (c *Client) JobResult(ctx context.Context, remoteID string) (Result, error) {
	var payload runResultPayload
	if err := c.do(ctx, http.MethodGet, "/runs/"+remoteID+"/result", nil, &payload); err != nil {
		return Result{}, err
	}

	// Citations come exclusively from structured annotations. URLs embedded
	// in the answer text are ignored so fabricated references never surface.
	citations := make([]Citation, 0, len(payload.Annotations))
	for _, ann := range payload.Annotations {
		if ann.Type != "url_citation" || ann.URLCitation == nil || ann.URLCitation.URL == "" {
			continue
		}
		title := ann.URLCitation.Title
		if title == "" {
			title = ann.URLCitation.URL
		}
		citations = append(citations, Citation{URI: ann.URLCitation.URL, Title: title})
	}

	return Result{Answer: payload.Answer, Citations: citations}, nil
}

func (c *Client) CancelJob(ctx context.Context, remoteID string) error {
	return c.do(ctx, http.MethodPost, "/runs/"+remoteID+"/cancel", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("research service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("research service returned %s: %s", resp.Status, string(payload))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode research service response: %w", err)
	}
	return nil
}

func mapRunStatus(status string) Status {
	switch status {
	case "queued", "pending":
		return StatusQueued
	case "in_progress", "running":
		return StatusRunning
	case "completed", "succeeded":
		return StatusCompleted
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return StatusFailed
	}
}
