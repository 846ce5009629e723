//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package client provides an HTTP client for the MediaWiki action API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Client provides methods to interact with the MediaWiki action API.
type Client struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
}

// New creates a new client. baseURL is the wiki root, for example
// "https://en.wikipedia.org"; requests go to baseURL + "/w/api.php".
func New(baseURL, userAgent string, httpClient *http.Client) *Client {
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/w/api.php",
		userAgent:  userAgent,
		httpClient: httpClient,
	}
}

// SearchResult is a single hit of list=search.
type SearchResult struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// Page is a page returned by prop=extracts.
type Page struct {
	PageID  int    `json:"pageid"`
	Title   string `json:"title"`
	Extract string `json:"extract"`
	Missing bool   `json:"missing"`
}

// APIError is the error object MediaWiki embeds in a 200 response.
type APIError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

// Error implements error.
func (e *APIError) Error() string {
	return fmt.Sprintf("mediawiki error %s: %s", e.Code, e.Info)
}

type searchResponse struct {
	Error *APIError `json:"error"`
	Query struct {
		Search []SearchResult `json:"search"`
	} `json:"query"`
}

type extractResponse struct {
	Error *APIError `json:"error"`
	Query struct {
		Pages []Page `json:"pages"`
	} `json:"query"`
}

// Search runs a full text search and returns at most limit hits.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("srlimit", strconv.Itoa(limit))
	params.Set("srprop", "snippet")

	var rsp searchResponse
	if err := c.get(ctx, params, &rsp); err != nil {
		return nil, err
	}
	if rsp.Error != nil {
		return nil, rsp.Error
	}
	return rsp.Query.Search, nil
}

// Extract returns the plain text introduction of the page titled title.
// Redirects are followed.
func (c *Client) Extract(ctx context.Context, title string) (*Page, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("exintro", "1")
	params.Set("explaintext", "1")
	params.Set("redirects", "1")
	params.Set("titles", title)

	var rsp extractResponse
	if err := c.get(ctx, params, &rsp); err != nil {
		return nil, err
	}
	if rsp.Error != nil {
		return nil, rsp.Error
	}
	for _, p := range rsp.Query.Pages {
		if !p.Missing {
			page := p
			return &page, nil
		}
	}
	return nil, fmt.Errorf("page %q not found", title)
}

func (c *Client) get(ctx context.Context, params url.Values, out any) error {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	params.Set("utf8", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
