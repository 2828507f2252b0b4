package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"super_clicker/internal/domain"
)

const defaultRemoteTimeout = 10 * time.Second

// Remote talks to the game API's /api/v1/user/:id endpoints.
type Remote struct {
	baseURL string
	token   string
	http    *http.Client
}

type RemoteOption func(*Remote)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.http = c }
}

func NewRemote(baseURL, token string, opts ...RemoteOption) *Remote {
	r := &Remote{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: defaultRemoteTimeout},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Remote) userURL(userID int64) string {
	return r.baseURL + "/api/v1/user/" + strconv.FormatInt(userID, 10)
}

func (r *Remote) Fetch(ctx context.Context, userID int64) (*domain.PlayerRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.userURL(userID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := r.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rec domain.PlayerRecord
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return &rec, nil
}

func (r *Remote) Store(ctx context.Context, rec *domain.PlayerRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.userURL(rec.UserID), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// do sends the request and maps transport failures and 5xx to ErrUnreachable
// and 404 to ErrNotFound.
func (r *Remote) do(req *http.Request) (*http.Response, error) {
	if r.token != "" {
		req.Header.Set("Authorization", "Bearer "+r.token)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	var apiErr struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&apiErr)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	case apiErr.Error != "":
		return nil, fmt.Errorf("remote store: status %d: %s", resp.StatusCode, apiErr.Error)
	default:
		return nil, fmt.Errorf("remote store: status %d", resp.StatusCode)
	}
}
