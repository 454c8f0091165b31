package client

import (
	"context"
	"net/http"
	"strconv"
	"time"
)

// Response headers set by POST /v1/compare.
const (
	headerCache          = "X-Cache"
	headerCacheSource    = "X-Cache-Source"
	headerChunked        = "X-Chunked"
	headerProcessingTime = "X-Processing-Time-Ms"
	headerComparisonID   = "X-Comparison-ID"
)

// Compare asks the server for a verdict on req.
func (c *Client) Compare(ctx context.Context, req CompareRequest) (*CompareResponse, error) {
	var result DiffResult
	header, err := c.post(ctx, "/v1/compare", req, &result)
	if err != nil {
		return nil, err
	}
	return compareResponse(&result, header), nil
}

func compareResponse(result *DiffResult, header http.Header) *CompareResponse {
	resp := &CompareResponse{
		Result:       result,
		ComparisonID: header.Get(headerComparisonID),
		Cached:       header.Get(headerCache) == "HIT",
		CacheSource:  header.Get(headerCacheSource),
		Chunked:      header.Get(headerChunked) == "true",
	}
	if ms, err := strconv.ParseInt(header.Get(headerProcessingTime), 10, 64); err == nil {
		resp.ProcessingTime = time.Duration(ms) * time.Millisecond
	}
	if resp.Result.Changes == nil {
		resp.Result.Changes = []ChangeItem{}
	}
	return resp
}

// CacheStats returns the server's verdict cache counters.
func (c *Client) CacheStats(ctx context.Context) (*CacheStats, error) {
	var stats CacheStats
	if _, err := c.get(ctx, "/v1/cache/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// ClearCache empties the server's verdict cache and returns the number of
// entries removed.
func (c *Client) ClearCache(ctx context.Context) (int64, error) {
	var resp struct {
		Cleared int64 `json:"cleared"`
	}
	if _, err := c.delete(ctx, "/v1/cache", &resp); err != nil {
		return 0, err
	}
	return resp.Cleared, nil
}

// Health returns the server's liveness report.
func (c *Client) Health(ctx context.Context) (*HealthStatus, error) {
	var status HealthStatus
	if _, err := c.get(ctx, "/health", &status); err != nil {
		return nil, err
	}
	return &status, nil
}

//Personal.AI order the ending
