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

package model

import (
	"fmt"
	"time"
)

// Error types carried in ResponseError.Type.
const (
	// ErrorTypeStreamError is used for errors that occur during streaming.
	ErrorTypeStreamError = "stream_error"
	// ErrorTypeAPIError is used for errors returned by the model service.
	ErrorTypeAPIError = "api_error"
)

// Object types carried in Response.Object.
const (
	ObjectTypeError               = "error"
	ObjectTypeChatCompletionChunk = "chat.completion.chunk"
	ObjectTypeChatCompletion      = "chat.completion"
)

// Choice represents a single completion choice.
type Choice struct {
	// Index is the index of the choice.
	Index int `json:"index"`

	// Message is the completed message, for non-streaming responses.
	Message Message `json:"message,omitempty"`

	// Delta is the incremental content, for streaming responses.
	Delta Message `json:"delta,omitempty"`

	// FinishReason is the reason the model stopped generating tokens.
	FinishReason *string `json:"finish_reason,omitempty"`
}

// Usage describes token usage of a request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ResponseError represents an error returned by the model service.
type ResponseError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error implements error.
func (e *ResponseError) Error() string {
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Response is the response from the model.
type Response struct {
	ID        string         `json:"id"`
	Object    string         `json:"object"`
	Created   int64          `json:"created"`
	Model     string         `json:"model"`
	Choices   []Choice       `json:"choices"`
	Usage     *Usage         `json:"usage,omitempty"`
	Error     *ResponseError `json:"error,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	// Done marks the last response of a stream.
	Done bool `json:"done"`
	// IsPartial marks a streaming chunk.
	IsPartial bool `json:"is_partial"`
}

// Clone returns a deep copy of rsp.
func (rsp *Response) Clone() *Response {
	if rsp == nil {
		return nil
	}
	clone := *rsp
	clone.Choices = make([]Choice, len(rsp.Choices))
	copy(clone.Choices, rsp.Choices)
	if rsp.Usage != nil {
		u := *rsp.Usage
		clone.Usage = &u
	}
	if rsp.Error != nil {
		e := *rsp.Error
		clone.Error = &e
	}
	return &clone
}

// Text returns the content of the first choice, message first then delta.
func (rsp *Response) Text() string {
	if rsp == nil || len(rsp.Choices) == 0 {
		return ""
	}
	if c := rsp.Choices[0].Message.Content; c != "" {
		return c
	}
	return rsp.Choices[0].Delta.Content
}

// NewErrorResponse builds a final response carrying an API-level error.
func NewErrorResponse(modelName, errType string, err error) *Response {
	return &Response{
		Object:    ObjectTypeError,
		Model:     modelName,
		Timestamp: time.Now(),
		Done:      true,
		Error: &ResponseError{
			Message: err.Error(),
			Type:    errType,
		},
	}
}
