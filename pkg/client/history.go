package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// ListComparisons returns a page of comparison history, newest first.
func (c *Client) ListComparisons(ctx context.Context, filter HistoryFilter) (*ComparisonPage, error) {
	params := url.Values{}
	if !filter.Since.IsZero() {
		params.Set("since", filter.Since.UTC().Format(time.RFC3339))
	}
	if !filter.Until.IsZero() {
		params.Set("until", filter.Until.UTC().Format(time.RFC3339))
	}
	if filter.UnsafeOnly {
		params.Set("unsafe", "true")
	}
	if filter.Limit > 0 {
		params.Set("limit", strconv.Itoa(filter.Limit))
	}
	if filter.Offset > 0 {
		params.Set("offset", strconv.Itoa(filter.Offset))
	}

	path := "/v1/comparisons"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page ComparisonPage
	if _, err := c.get(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetComparison fetches one record including its verdict.
func (c *Client) GetComparison(ctx context.Context, id string) (*ComparisonRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("comparison id is required")
	}
	var rec ComparisonRecord
	if _, err := c.get(ctx, "/v1/comparisons/"+url.PathEscape(id), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// ReportURL returns a time-limited download link for the archived report.
func (c *Client) ReportURL(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", fmt.Errorf("comparison id is required")
	}
	var resp struct {
		URL string `json:"url"`
	}
	if _, err := c.get(ctx, "/v1/comparisons/"+url.PathEscape(id)+"/report", &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}
