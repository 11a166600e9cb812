package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	dashboard "energy-dashboard/internal/dashboard/domain"
)

const defaultRemoteTimeout = 30 * time.Second

// Remote asks an HTTP compute backend for the dashboard payload.
type Remote struct {
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// NewRemote constructs the backend provider. An empty endpoint makes every
// attempt skip.
func NewRemote(endpoint string, timeout time.Duration) *Remote {
	if timeout <= 0 {
		timeout = defaultRemoteTimeout
	}
	return &Remote{endpoint: endpoint, timeout: timeout, client: &http.Client{}}
}

// Name implements dashboard.Provider.
func (r *Remote) Name() dashboard.SourceTag { return dashboard.TagRemoteBackend }

// TryLoad posts {filters} and decodes {summary, history}.
func (r *Remote) TryLoad(ctx context.Context, f dashboard.Filters) (*dashboard.Payload, error) {
	if r.endpoint == "" {
		return nil, dashboard.ErrSkipped
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	body, err := json.Marshal(map[string]any{"filters": f})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", dashboard.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: remote backend http %d", dashboard.ErrProviderUnavailable, resp.StatusCode)
	}
	payload, err := decodePayload(resp.Body)
	if err != nil {
		return nil, err
	}
	payload.SourceUsed = dashboard.TagRemoteBackend
	return payload, nil
}
