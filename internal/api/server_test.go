// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/gatekeeper/internal/api"
	"github.com/taibuivan/gatekeeper/internal/platform/config"
	"github.com/taibuivan/gatekeeper/internal/platform/ratelimit"
	"github.com/taibuivan/gatekeeper/internal/platform/sec"
	"github.com/taibuivan/gatekeeper/internal/users/auth"
	"github.com/taibuivan/gatekeeper/pkg/ids"
)

func newTestServer(t *testing.T, checks []api.Check) *httptest.Server {
	t.Helper()

	cfg, err := config.LoadFrom(map[string]string{"STORAGE_DRIVER": config.StorageDriverMemory})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	adapter := auth.NewMemoryAdapter(nil)
	generator := ids.NewULID(ids.KindToken)

	service := auth.NewService(auth.ServiceOptions{
		Adapter:      adapter,
		Hasher:       sec.NewHasher(sec.DefaultKeyLength),
		Issuer:       auth.NewIssuer(generator, cfg.SessionTTL, nil),
		IDs:          generator,
		Requirements: cfg.PasswordRequirements(),
	})
	limiter := ratelimit.New(cfg.RateLimits, ratelimit.NewMemoryStore(nil))

	liveness, readiness := api.NewHealthHandlers(checks, logger)
	server := api.NewServer(cfg, logger, api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Metrics:   api.MetricsHandler(api.NewMetricsRegistry()),
		Auth:      auth.NewHandler(auth.NewDispatcher(service, limiter)),
	})

	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(httpServer.Close)
	return httpServer
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]any) {
	t.Helper()

	response, err := http.Get(url)
	require.NoError(t, err)
	defer response.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(response.Body).Decode(&body))
	return response, body
}

/*
TestServer_Liveness reports the process as alive and tags the request.
*/
func TestServer_Liveness(t *testing.T) {
	server := newTestServer(t, nil)

	response, body := getJSON(t, server.URL+"/health")
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "gatekeeper", body["app"])
	assert.NotEmpty(t, response.Header.Get("X-Request-ID"))
}

/*
TestServer_Readiness turns a failing probe into 503 degraded.
*/
func TestServer_Readiness(t *testing.T) {
	healthy := api.Check{Name: "storage", Probe: func(context.Context) error { return nil }}
	failing := api.Check{Name: "redis", Probe: func(context.Context) error { return errors.New("dial tcp: refused") }}

	t.Run("ready", func(t *testing.T) {
		server := newTestServer(t, []api.Check{healthy})

		response, body := getJSON(t, server.URL+"/ready")
		assert.Equal(t, http.StatusOK, response.StatusCode)
		assert.Equal(t, "ready", body["status"])
	})

	t.Run("degraded", func(t *testing.T) {
		server := newTestServer(t, []api.Check{healthy, failing})

		response, body := getJSON(t, server.URL+"/ready")
		assert.Equal(t, http.StatusServiceUnavailable, response.StatusCode)
		assert.Equal(t, "degraded", body["status"])

		checks, ok := body["checks"].([]any)
		require.True(t, ok)
		require.Len(t, checks, 2)
		assert.Equal(t, false, checks[1].(map[string]any)["ok"])
		assert.Equal(t, "dial tcp: refused", checks[1].(map[string]any)["error"])
	})
}

/*
TestServer_AuthEndpoint serves the dispatcher under the configured prefix.
*/
func TestServer_AuthEndpoint(t *testing.T) {
	server := newTestServer(t, nil)

	body := `{"email":"a@b.com","password":"Abc123!","confirmedPassword":"Abc123!"}`
	response, err := http.Post(server.URL+"/api/auth/register", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer response.Body.Close()

	var session map[string]any
	require.NoError(t, json.NewDecoder(response.Body).Decode(&session))
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.NotEmpty(t, session["accessToken"])
	assert.Greater(t, session["expires"].(float64), float64(time.Now().UnixMilli()))

	notFound, payload := getJSON(t, server.URL+"/api/auth/nothing")
	assert.Equal(t, http.StatusUnauthorized, notFound.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", payload["error"])
}

/*
TestServer_ForwardedForIgnoredFromUntrustedPeer keeps one register budget per
socket peer no matter what X-Forwarded-For claims.
*/
func TestServer_ForwardedForIgnoredFromUntrustedPeer(t *testing.T) {
	server := newTestServer(t, nil)

	statuses := make([]int, 0, 12)
	for i := range 12 {
		request, err := http.NewRequest(http.MethodPost, server.URL+"/api/auth/register", strings.NewReader(`{}`))
		require.NoError(t, err)
		request.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
		request.Header.Set("X-Real-IP", fmt.Sprintf("10.0.1.%d", i+1))

		response, err := http.DefaultClient.Do(request)
		require.NoError(t, err)
		response.Body.Close()
		statuses = append(statuses, response.StatusCode)
	}

	for i := range 10 {
		assert.Equal(t, http.StatusBadRequest, statuses[i], "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, statuses[10])
	assert.Equal(t, http.StatusTooManyRequests, statuses[11])
}

/*
TestServer_CORS echoes the origin in development and answers pre-flights.
*/
func TestServer_CORS(t *testing.T) {
	server := newTestServer(t, nil)

	request, err := http.NewRequest(http.MethodOptions, server.URL+"/api/auth/login", nil)
	require.NoError(t, err)
	request.Header.Set("Origin", "https://app.example.com")

	response, err := http.DefaultClient.Do(request)
	require.NoError(t, err)
	defer response.Body.Close()

	assert.Equal(t, http.StatusNoContent, response.StatusCode)
	assert.Equal(t, "https://app.example.com", response.Header.Get("Access-Control-Allow-Origin"))
}

/*
TestServer_Metrics exposes dispatch counters after traffic.
*/
func TestServer_Metrics(t *testing.T) {
	server := newTestServer(t, nil)

	warmup, err := http.Get(server.URL + "/api/auth/@me")
	require.NoError(t, err)
	warmup.Body.Close()

	response, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer response.Body.Close()

	raw, err := io.ReadAll(response.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Contains(t, string(raw), "gatekeeper_auth_dispatch_total")
	assert.Contains(t, string(raw), "go_goroutines")
}
