// Package apiclient is the setoran backend client. Every call takes the
// bearer access token explicitly; the client keeps no session state and
// performs no retries; that orchestration lives in the session package.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/model"
)

// Client is a stateless backend API client.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// New creates a backend client rooted at baseURL.
func New(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "apiclient").Logger(),
	}
}

// AdvisorSummary fetches the authenticated advisor's dashboard:
// GET /dosen/pa-saya.
func (c *Client) AdvisorSummary(ctx context.Context, token string) (*model.AdvisorSummary, error) {
	resp, err := c.do(ctx, http.MethodGet, "/dosen/pa-saya", token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	var body model.AdvisorSummaryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !body.Response {
		return nil, &BackendError{Message: body.Message}
	}
	return &body.Data, nil
}

// StudentSubmissions fetches one student's full submission state:
// GET /mahasiswa/setoran/{nim}.
func (c *Client) StudentSubmissions(ctx context.Context, token, nim string) (*model.StudentDetail, error) {
	resp, err := c.do(ctx, http.MethodGet, "/mahasiswa/setoran/"+nim, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return nil, err
	}

	var body model.StudentDetailResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !body.Response {
		return nil, &BackendError{Message: body.Message}
	}
	return &body.Data, nil
}

// SubmitComponents marks the given components as completed for the student:
// POST /mahasiswa/setoran/{nim}. When date is empty the server assigns the
// submission date.
func (c *Client) SubmitComponents(ctx context.Context, token, nim string, items []model.SubmissionItem, date string) error {
	return c.write(ctx, http.MethodPost, token, nim, model.SubmissionRequest{Items: items, Date: date})
}

// WithdrawComponents reverses completion for the given components:
// DELETE /mahasiswa/setoran/{nim} with a body. Each item must carry the
// evidence id of the validated submission being withdrawn.
func (c *Client) WithdrawComponents(ctx context.Context, token, nim string, items []model.SubmissionItem) error {
	return c.write(ctx, http.MethodDelete, token, nim, model.SubmissionRequest{Items: items})
}

func (c *Client) write(ctx context.Context, method, token, nim string, req model.SubmissionRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal submission request: %w", err)
	}

	resp, err := c.do(ctx, method, "/mahasiswa/setoran/"+nim, token, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	var env model.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !env.Response {
		return &BackendError{Message: env.Message}
	}
	return nil
}

// do issues one request with bearer auth and a request id for tracing.
func (c *Client) do(ctx context.Context, method, path, token string, body []byte) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Str("request_id", req.Header.Get("X-Request-ID")).
		Msg("Backend call")
	return resp, nil
}

// statusError maps non-2xx responses onto the error taxonomy. It consumes
// the body for non-mapped statuses so the message can surface.
func statusError(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
}
