package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openshelf/bookharvest/internal/checkpoint"
	"github.com/openshelf/bookharvest/internal/harvest"
)

type stubStatus struct{ snap harvest.Snapshot }

func (s stubStatus) Status() harvest.Snapshot { return s.snap }

type stubSummary struct{ sum checkpoint.Summary }

func (s stubSummary) Summary() checkpoint.Summary { return s.sum }

func testServer() *Server {
	status := stubStatus{snap: harvest.Snapshot{
		RunID:     "0196b2a1-0000-7000-8000-000000000001",
		Job:       "authors-tier1",
		State:     harvest.StateRunning,
		Processed: 42,
		Failed:    2,
		Remaining: 956,
		StartedAt: time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
	}}
	summary := stubSummary{sum: checkpoint.Summary{
		ProcessedCount: 42,
		FailedCount:    2,
		Total:          1000,
	}}
	return NewServer(status, summary, prometheus.NewRegistry(), zap.NewNop())
}

func TestHealthAndReadyEndpoints(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(testServer().Handler())
	defer srv.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	}
}

func TestRunStatusEndpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(testServer().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/run/status")
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap harvest.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "authors-tier1", snap.Job)
	assert.Equal(t, harvest.StateRunning, snap.State)
	assert.Equal(t, 42, snap.Processed)
	assert.Equal(t, 956, snap.Remaining)
}

func TestRunCheckpointEndpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(testServer().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/v1/run/checkpoint")
	require.NoError(t, err)
	defer func() { require.NoError(t, resp.Body.Close()) }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var sum checkpoint.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sum))
	assert.Equal(t, 42, sum.ProcessedCount)
	assert.Equal(t, 1000, sum.Total)
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(testServer().Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, resp.Body.Close())
}

func TestMissingProvidersReturnNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(NewServer(nil, nil, nil, zap.NewNop()).Handler())
	defer srv.Close()

	for _, path := range []string{"/v1/run/status", "/v1/run/checkpoint"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		require.NoError(t, resp.Body.Close())
	}
}
