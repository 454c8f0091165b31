package client

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Compare(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/compare", r.URL.Path)

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Meet on Monday.", body["original_text"])
		assert.Equal(t, "Meet on Tuesday.", body["generated_text"])
		assert.Equal(t, "high", body["sensitivity"])
		assert.Equal(t, true, body["use_premium"])

		w.Header().Set(headerCache, "HIT")
		w.Header().Set(headerCacheSource, "shared")
		w.Header().Set(headerChunked, "false")
		w.Header().Set(headerProcessingTime, "42")
		w.Header().Set(headerComparisonID, "cmp-1")
		_, _ = w.Write([]byte(`{
			"summary": {"is_safe": false, "risk_score": 70, "semantic_change_level": "CRITICAL"},
			"changes": [{
				"id": "c1", "type": "FACTUAL", "severity": "critical",
				"description": "day changed", "reasoning": "",
				"original_span": {"text": "Monday", "start": 8, "end": 14, "context_before": "", "context_after": ""},
				"generated_span": {"text": "Tuesday", "start": 8, "end": 15, "context_before": "", "context_after": ""}
			}]
		}`))
	}
	c := newTestClient(t, handler)

	resp, err := c.Compare(context.Background(), CompareRequest{
		OriginalText:  "Meet on Monday.",
		GeneratedText: "Meet on Tuesday.",
		Sensitivity:   SensitivityHigh,
		UsePremium:    true,
	})
	require.NoError(t, err)

	assert.Equal(t, "cmp-1", resp.ComparisonID)
	assert.True(t, resp.Cached)
	assert.Equal(t, "shared", resp.CacheSource)
	assert.False(t, resp.Chunked)
	assert.Equal(t, 42*time.Millisecond, resp.ProcessingTime)

	require.Len(t, resp.Result.Changes, 1)
	change := resp.Result.Changes[0]
	assert.Equal(t, "critical", change.Severity)
	require.NotNil(t, change.GeneratedSpan.Start)
	assert.Equal(t, 8, *change.GeneratedSpan.Start)
	assert.Equal(t, 70, resp.Result.Summary.RiskScore)
	assert.False(t, resp.Result.Summary.IsSafe)
}

func TestClient_Compare_MissingHeadersAndChanges(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"summary":{"is_safe":true,"risk_score":0,"semantic_change_level":"NONE"}}`))
	}
	c := newTestClient(t, handler)

	resp, err := c.Compare(context.Background(), CompareRequest{OriginalText: "a", GeneratedText: "a"})
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Zero(t, resp.ProcessingTime)
	assert.NotNil(t, resp.Result.Changes)
	assert.Empty(t, resp.Result.Changes)
}

func TestClient_Compare_OmitsEmptySensitivity(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, present := body["sensitivity"]
		assert.False(t, present)
		_, _ = w.Write([]byte(`{"summary":{},"changes":[]}`))
	}
	c := newTestClient(t, handler)
	_, err := c.Compare(context.Background(), CompareRequest{OriginalText: "a", GeneratedText: "b"})
	require.NoError(t, err)
}

func TestClient_CacheEndpoints(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/v1/cache/stats":
			_, _ = w.Write([]byte(`{"size":3,"max_size":1000,"hits":7,"misses":3,"hit_rate":0.7,"shared_enabled":true,"shared_hits":2}`))
		case r.Method == http.MethodDelete && r.URL.Path == "/v1/cache":
			_, _ = w.Write([]byte(`{"cleared":3}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
	c := newTestClient(t, handler)

	stats, err := c.CacheStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Size)
	assert.InDelta(t, 0.7, stats.HitRate, 1e-9)
	assert.True(t, stats.SharedEnabled)
	assert.Equal(t, int64(2), stats.SharedHits)

	cleared, err := c.ClearCache(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), cleared)
}

func TestClient_Health(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		_, _ = w.Write([]byte(`{"status":"degraded","version":"1.2.0","oracle_configured":true,
			"components":{"redis":{"status":"unhealthy","error":"dial tcp: refused"}}}`))
	}
	c := newTestClient(t, handler)

	status, err := c.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "degraded", status.Status)
	assert.Equal(t, "1.2.0", status.Version)
	assert.Equal(t, "unhealthy", status.Components["redis"].Status)
}

//Personal.AI order the ending
