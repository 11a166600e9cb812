package solax

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRealtime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, realtimePath, r.URL.Path)
		assert.Equal(t, "token-1", r.Header.Get("tokenId"))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SN123", body["wifiSn"])
		_, _ = w.Write([]byte(`{"success":true,"result":{"acpower":2500,"feedinpower":800,"yieldtoday":12.5,"soc":64,"uploadTime":"2024-06-01 10:00:00"}}`))
	}))
	defer server.Close()

	client, err := NewClient(Config{BaseURL: server.URL, TokenID: "token-1", WifiSN: "SN123", RatePerMinute: 600})
	require.NoError(t, err)

	rt, err := client.FetchRealtime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2500.0, rt.Power())
	assert.Equal(t, 800.0, rt.FeedIn())
	assert.Equal(t, 12.5, rt.YieldTodayKWh())
	require.NotNil(t, rt.SoC)
	assert.Equal(t, 64.0, *rt.SoC)
	assert.Nil(t, rt.BatPower)
}

func TestFetchRealtimeNotConfigured(t *testing.T) {
	client, err := NewClient(Config{})
	require.NoError(t, err)
	assert.False(t, client.Configured())

	_, err = client.FetchRealtime(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestFetchRealtimeFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "unsuccessful", status: http.StatusOK, body: `{"success":false,"exception":"invalid token"}`, want: ErrNoResult},
		{name: "malformed", status: http.StatusOK, body: `not json`, want: ErrNoResult},
		{name: "server error", status: http.StatusBadGateway, body: `down`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			client, err := NewClient(Config{BaseURL: server.URL, TokenID: "t", WifiSN: "s", RatePerMinute: 600})
			require.NoError(t, err)
			_, err = client.FetchRealtime(context.Background())
			require.Error(t, err)
			if tc.want != nil {
				assert.True(t, errors.Is(err, tc.want), "got %v", err)
			}
		})
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "ftp://example"})
	assert.Error(t, err)
}
