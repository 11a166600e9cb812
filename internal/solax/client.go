package solax

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public SolaX Cloud endpoint.
	DefaultBaseURL = "https://global.solaxcloud.com"
	realtimePath   = "/api/v2/dataAccess/realtimeInfo/get"

	defaultTimeout       = 10 * time.Second
	defaultRatePerMinute = 10
)

// Config holds the device credentials and transport limits.
type Config struct {
	BaseURL       string
	TokenID       string
	WifiSN        string
	Timeout       time.Duration
	RatePerMinute int
}

// Configured reports whether credentials are present.
func (c Config) Configured() bool {
	return c.TokenID != "" && c.WifiSN != ""
}

// Realtime is the instantaneous inverter state reported by the cloud.
type Realtime struct {
	SN            string   `json:"sn"`
	InverterSN    string   `json:"inverterSN"`
	ACPower       *float64 `json:"acpower"`
	YieldToday    *float64 `json:"yieldtoday"`
	YieldTotal    *float64 `json:"yieldtotal"`
	FeedInPower   *float64 `json:"feedinpower"`
	FeedInEnergy  *float64 `json:"feedinenergy"`
	ConsumeEnergy *float64 `json:"consumeenergy"`
	SoC           *float64 `json:"soc"`
	BatPower      *float64 `json:"batPower"`
	UploadTime    string   `json:"uploadTime"`
}

// Power returns the AC output in W, zero when unreported.
func (r Realtime) Power() float64 { return deref(r.ACPower) }

// FeedIn returns the grid feed-in in W, zero when unreported.
func (r Realtime) FeedIn() float64 { return deref(r.FeedInPower) }

// YieldTodayKWh returns today's yield, zero when unreported.
func (r Realtime) YieldTodayKWh() float64 { return deref(r.YieldToday) }

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

type realtimeResponse struct {
	Success   bool      `json:"success"`
	Exception string    `json:"exception"`
	Result    *Realtime `json:"result"`
}

// Client is a throttled SolaX Cloud realtime client.
type Client struct {
	cfg     Config
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient constructs a client. Missing credentials are not an error;
// FetchRealtime then returns ErrNotConfigured.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("solax: invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RatePerMinute <= 0 {
		cfg.RatePerMinute = defaultRatePerMinute
	}
	return &Client{
		cfg:     cfg,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RatePerMinute)), 1),
	}, nil
}

// Configured reports whether the client has credentials.
func (c *Client) Configured() bool {
	return c != nil && c.cfg.Configured()
}

// FetchRealtime reads the current inverter state.
func (c *Client) FetchRealtime(ctx context.Context) (Realtime, error) {
	if !c.Configured() {
		return Realtime{}, ErrNotConfigured
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return Realtime{}, err
	}
	var resp realtimeResponse
	body := map[string]string{"wifiSn": c.cfg.WifiSN}
	if err := c.doJSON(ctx, http.MethodPost, realtimePath, body, &resp); err != nil {
		return Realtime{}, err
	}
	if !resp.Success || resp.Result == nil {
		if resp.Exception != "" {
			return Realtime{}, fmt.Errorf("%w: %s", ErrNoResult, resp.Exception)
		}
		return Realtime{}, ErrNoResult
	}
	return *resp.Result, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("tokenId", c.cfg.TokenID)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("solax: http %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Join(ErrNoResult, err)
	}
	return nil
}
