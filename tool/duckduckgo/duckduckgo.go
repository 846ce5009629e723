//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package duckduckgo provides a DuckDuckGo Instant Answer lookup tool.
// It is an alternative to the Wikipedia tool for factual, encyclopedic
// questions and is NOT suitable for real-time data.
package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/tool"
	"trpc.group/trpc-go/mathsgpt/tool/duckduckgo/internal/client"
	"trpc.group/trpc-go/mathsgpt/tool/function"
)

const (
	// Name is the tool name shown to the agent.
	Name = "DuckDuckGo"
	// Description tells the agent when to pick this tool.
	Description = "Look up factual information about topics, people, places, or events " +
		"using DuckDuckGo instant answers."

	// maxResults is the maximum number of related topics to include.
	maxResults = 5
	// maxTitleLength is the maximum length for extracted titles.
	maxTitleLength = 50
	// defaultBaseURL is the default base URL for DuckDuckGo Instant Answer API.
	defaultBaseURL = "https://api.duckduckgo.com"
	// defaultUserAgent is the default user agent for HTTP requests.
	defaultUserAgent = "mathsgpt-duckduckgo/1.0"
	// defaultTimeout is the default timeout for HTTP requests.
	defaultTimeout = 30 * time.Second
)

// Option is a functional option for configuring the DuckDuckGo tool.
type Option func(*config)

// config holds the configuration for the DuckDuckGo tool.
type config struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// WithBaseURL sets the base URL for the DuckDuckGo API.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		c.baseURL = baseURL
	}
}

// WithUserAgent sets the user agent for HTTP requests.
func WithUserAgent(userAgent string) Option {
	return func(c *config) {
		c.userAgent = userAgent
	}
}

// WithHTTPClient sets the HTTP client to use.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *config) {
		c.httpClient = httpClient
	}
}

// ddgTool represents the DuckDuckGo lookup tool.
type ddgTool struct {
	client *client.Client
}

// NewTool creates a new DuckDuckGo lookup tool with the provided options.
func NewTool(opts ...Option) tool.CallableTool {
	cfg := &config{
		baseURL:   defaultBaseURL,
		userAgent: defaultUserAgent,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	t := &ddgTool{
		client: client.New(cfg.baseURL, cfg.userAgent, cfg.httpClient),
	}
	return function.NewFunctionTool(
		t.search,
		function.WithName(Name),
		function.WithDescription(Description),
		function.WithPlainTextInput(),
	)
}

// search performs the lookup and renders a plain text summary.
func (t *ddgTool) search(ctx context.Context, req tool.QueryInput) (string, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return "Error: Empty search query provided", nil
	}

	response, err := t.client.Search(ctx, query)
	if err != nil {
		log.Warnf("duckduckgo: search %q failed: %v", query, err)
		return fmt.Sprintf("Error performing search: %v", err), nil
	}

	var parts []string
	if response.Answer != "" {
		parts = append(parts, fmt.Sprintf("Answer: %s", response.Answer))
	}
	if response.AbstractText != "" {
		abstract := fmt.Sprintf("Abstract: %s", response.AbstractText)
		if response.AbstractSource != "" {
			abstract += fmt.Sprintf(" (Source: %s)", response.AbstractSource)
		}
		parts = append(parts, abstract)
	}
	if response.Definition != "" {
		parts = append(parts, fmt.Sprintf("Definition: %s", response.Definition))
	}

	var related []string
	for _, topic := range response.RelatedTopics {
		if len(related) >= maxResults {
			break
		}
		if topic.Text == "" {
			continue
		}
		related = append(related, fmt.Sprintf("- %s: %s", extractTitleFromTopic(topic.Text), topic.Text))
	}
	if len(related) > 0 {
		parts = append(parts, "Related:\n"+strings.Join(related, "\n"))
	}

	if len(parts) == 0 {
		return fmt.Sprintf("No DuckDuckGo instant answer was found for '%s'", query), nil
	}
	return strings.Join(parts, "\n"), nil
}

// extractTitleFromTopic extracts a title from a topic text.
func extractTitleFromTopic(text string) string {
	title := strings.TrimSpace(text)
	if before, _, ok := strings.Cut(text, " - "); ok && before != "" {
		title = strings.TrimSpace(before)
	}
	if len(title) > maxTitleLength {
		return title[:maxTitleLength-3] + "..."
	}
	return title
}
