//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package model provides interfaces for working with LLMs.
package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyResponse is returned by GenerateText when the model produced no choices.
var ErrEmptyResponse = errors.New("model returned no choices")

// Model is the interface for all language models.
//
// Error Handling Strategy:
// This interface uses a dual-layer error handling approach:
//
// 1. Function-level errors (returned as `error`):
//   - System-level failures that prevent communication
//   - Examples: nil request, network issues, invalid parameters
//
// 2. Response-level errors (Response.Error field):
//   - API-level errors returned by the model service
//   - Examples: invalid API key, rate limits, model errors
//   - These are delivered through the response channel as structured errors
//
// Usage pattern:
//
//	responseChan, err := model.GenerateContent(ctx, request)
//	if err != nil {
//	    return fmt.Errorf("failed to generate content: %w", err)
//	}
//
//	for response := range responseChan {
//	    if response.Error != nil {
//	        return fmt.Errorf("API error: %s", response.Error.Message)
//	    }
//	    // Process successful response...
//	}
type Model interface {
	// GenerateContent generates content from the given request.
	//
	// Returns:
	// - A channel of Response objects for streaming results
	// - An error for system-level failures (prevents communication)
	//
	// The Response objects may contain their own Error field for API-level errors.
	GenerateContent(ctx context.Context, request *Request) (<-chan *Response, error)

	// Info returns basic information about the model.
	Info() Info
}

// Info contains basic information about a Model.
type Info struct {
	Name string
}

// Completion is the folded result of a response stream.
type Completion struct {
	Text  string
	Usage *Usage
}

// Generate sends request to m and folds the response stream into the final
// assistant text. Streaming deltas are concatenated; a non-partial response
// carrying a full message wins over accumulated deltas. API-level errors are
// converted to Go errors.
func Generate(ctx context.Context, m Model, request *Request) (*Completion, error) {
	if m == nil {
		return nil, errors.New("model is nil")
	}
	responseChan, err := m.GenerateContent(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	var (
		deltas strings.Builder
		out    Completion
		seen   bool
	)
	for rsp := range responseChan {
		if rsp == nil {
			continue
		}
		if rsp.Error != nil {
			// Drain so the producer goroutine can exit.
			go drain(responseChan)
			return nil, rsp.Error
		}
		if rsp.Usage != nil {
			out.Usage = rsp.Usage
		}
		if len(rsp.Choices) == 0 {
			continue
		}
		seen = true
		choice := rsp.Choices[0]
		if rsp.IsPartial {
			deltas.WriteString(choice.Delta.Content)
			continue
		}
		out.Text = choice.Message.Content
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !seen {
		return nil, ErrEmptyResponse
	}
	if out.Text == "" {
		out.Text = deltas.String()
	}
	return &out, nil
}

// GenerateText is Generate without usage.
func GenerateText(ctx context.Context, m Model, request *Request) (string, error) {
	c, err := Generate(ctx, m, request)
	if err != nil {
		return "", err
	}
	return c.Text, nil
}

func drain(ch <-chan *Response) {
	for range ch {
	}
}
