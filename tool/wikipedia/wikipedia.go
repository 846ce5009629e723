//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package wikipedia provides a Wikipedia lookup tool for factual questions.
// It searches the wiki, then returns the introduction of the best pages as
// "Page: <title>\nSummary: <text>" blocks.
package wikipedia

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"

	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/tool"
	"trpc.group/trpc-go/mathsgpt/tool/function"
	"trpc.group/trpc-go/mathsgpt/tool/wikipedia/internal/client"
)

const (
	// Name is the tool name shown to the agent.
	Name = "Wikipedia"
	// Description tells the agent when to pick this tool.
	Description = "Search Wikipedia for factual information about topics, people, places, or events."

	// NoResult is returned when the search finds nothing usable.
	NoResult = "No good Wikipedia Search Result was found"

	defaultBaseURL   = "https://en.wikipedia.org"
	defaultUserAgent = "mathsgpt-wikipedia/1.0"
	defaultTimeout   = 30 * time.Second
	defaultTopK      = 3
	defaultMaxChars  = 4000
	maxQueryRunes    = 300
)

// Option is a functional option for configuring the Wikipedia tool.
type Option func(*config)

type config struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	topK       int
	maxChars   int
}

// WithBaseURL sets the wiki root URL, e.g. "https://de.wikipedia.org".
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

// WithTopK sets how many pages are summarized.
func WithTopK(k int) Option {
	return func(c *config) {
		if k > 0 {
			c.topK = k
		}
	}
}

// WithMaxChars caps the length of the returned text.
func WithMaxChars(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

type wikiTool struct {
	client   *client.Client
	topK     int
	maxChars int
}

// NewTool creates a new Wikipedia lookup tool with the provided options.
func NewTool(opts ...Option) tool.CallableTool {
	cfg := &config{
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultTimeout},
		topK:       defaultTopK,
		maxChars:   defaultMaxChars,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	w := &wikiTool{
		client:   client.New(cfg.baseURL, cfg.userAgent, cfg.httpClient),
		topK:     cfg.topK,
		maxChars: cfg.maxChars,
	}
	return function.NewFunctionTool(
		w.lookup,
		function.WithName(Name),
		function.WithDescription(Description),
		function.WithPlainTextInput(),
	)
}

// lookup never returns an error; failures are reported in the text.
func (w *wikiTool) lookup(ctx context.Context, req tool.QueryInput) (string, error) {
	query := normalizeQuery(req.Query)
	if query == "" {
		return "Error: Empty search query provided", nil
	}

	hits, err := w.client.Search(ctx, query, w.topK)
	if err != nil {
		log.Warnf("wikipedia: search %q failed: %v", query, err)
		return fmt.Sprintf("Error performing search: %v", err), nil
	}

	if len(hits) > w.topK {
		hits = hits[:w.topK]
	}
	summaries := make([]string, 0, len(hits))
	for _, hit := range hits {
		text := ""
		page, err := w.client.Extract(ctx, hit.Title)
		if err != nil {
			log.Debugf("wikipedia: extract %q failed: %v", hit.Title, err)
		} else {
			text = strings.TrimSpace(page.Extract)
		}
		if text == "" {
			text = snippetText(hit.Snippet)
		}
		if text == "" {
			continue
		}
		summaries = append(summaries, fmt.Sprintf("Page: %s\nSummary: %s", hit.Title, text))
	}
	if len(summaries) == 0 {
		return NoResult, nil
	}
	return truncate(strings.Join(summaries, "\n\n"), w.maxChars), nil
}

// normalizeQuery applies NFKC, collapses whitespace and caps the length.
func normalizeQuery(q string) string {
	q = strings.Join(strings.Fields(norm.NFKC.String(q)), " ")
	if utf8.RuneCountInString(q) > maxQueryRunes {
		q = string([]rune(q)[:maxQueryRunes])
	}
	return q
}

// snippetText strips the search highlight markup from a snippet.
func snippetText(snippet string) string {
	if snippet == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snippet))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

func truncate(s string, maxChars int) string {
	if utf8.RuneCountInString(s) <= maxChars {
		return s
	}
	return string([]rune(s)[:maxChars])
}
