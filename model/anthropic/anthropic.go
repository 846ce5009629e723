//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package anthropic provides a model.Model backed by the Anthropic Messages API.
// Responses are always delivered as a single final Response.
package anthropic

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/model"
)

const (
	// DefaultModel is used when no model name is configured.
	DefaultModel = "claude-3-5-haiku-latest"

	defaultMaxTokens         = 1024
	defaultChannelBufferSize = 4
)

// Model implements model.Model for Anthropic.
type Model struct {
	client    anthropic.Client
	name      string
	maxTokens int64
}

type options struct {
	apiKey     string
	baseURL    string
	maxTokens  int64
	maxRetries int
	httpClient option.HTTPClient
}

// Option configures the Anthropic model.
type Option func(*options)

// WithAPIKey sets the default API key. A per-request key in model.Request wins.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL overrides the API endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithMaxTokens sets the default completion budget used when a request has none.
func WithMaxTokens(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxTokens = int64(n)
		}
	}
}

// WithMaxRetries sets how many times the SDK retries failed requests.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxRetries = n }
}

// WithHTTPClient sets the HTTP client used for every request.
func WithHTTPClient(c option.HTTPClient) Option {
	return func(o *options) { o.httpClient = c }
}

// New creates an Anthropic model.
func New(name string, opts ...Option) *Model {
	o := &options{maxTokens: defaultMaxTokens, maxRetries: -1}
	for _, opt := range opts {
		opt(o)
	}
	if name == "" {
		name = DefaultModel
	}
	var clientOpts []option.RequestOption
	if o.apiKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		clientOpts = append(clientOpts, option.WithBaseURL(o.baseURL))
	}
	if o.httpClient != nil {
		clientOpts = append(clientOpts, option.WithHTTPClient(o.httpClient))
	}
	if o.maxRetries >= 0 {
		clientOpts = append(clientOpts, option.WithMaxRetries(o.maxRetries))
	}
	return &Model{
		client:    anthropic.NewClient(clientOpts...),
		name:      name,
		maxTokens: o.maxTokens,
	}
}

// Info implements model.Model.
func (m *Model) Info() model.Info {
	return model.Info{Name: m.name}
}

// GenerateContent implements model.Model.
func (m *Model) GenerateContent(ctx context.Context, request *model.Request) (<-chan *model.Response, error) {
	if request == nil {
		return nil, errors.New("request cannot be nil")
	}
	params := m.buildParams(request)

	var opts []option.RequestOption
	if key := model.ResolveAPIKey(ctx, request); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}

	responseChan := make(chan *model.Response, defaultChannelBufferSize)
	go func() {
		defer close(responseChan)
		log.Debugf("anthropic: messages model=%s messages=%d", m.name, len(params.Messages))

		msg, err := m.client.Messages.New(ctx, params, opts...)
		rsp := m.convertResponse(msg, err)
		select {
		case responseChan <- rsp:
		case <-ctx.Done():
		}
	}()
	return responseChan, nil
}

func (m *Model) buildParams(request *model.Request) anthropic.MessageNewParams {
	maxTokens := m.maxTokens
	if request.MaxTokens != nil && *request.MaxTokens > 0 {
		maxTokens = int64(*request.MaxTokens)
	}
	params := anthropic.MessageNewParams{
		Model:         anthropic.Model(m.name),
		MaxTokens:     maxTokens,
		StopSequences: request.Stop,
	}
	if request.Temperature != nil {
		params.Temperature = anthropic.Float(*request.Temperature)
	}
	if request.TopP != nil {
		params.TopP = anthropic.Float(*request.TopP)
	}
	for _, msg := range request.Messages {
		switch msg.Role {
		case model.RoleSystem:
			params.System = append(params.System, anthropic.TextBlockParam{Text: msg.Content})
		case model.RoleAssistant:
			params.Messages = append(params.Messages,
				anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			params.Messages = append(params.Messages,
				anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}
	return params
}

func (m *Model) convertResponse(msg *anthropic.Message, err error) *model.Response {
	if err != nil {
		return model.NewErrorResponse(m.name, model.ErrorTypeAPIError, err)
	}
	if msg == nil {
		return model.NewErrorResponse(m.name, model.ErrorTypeAPIError, model.ErrEmptyResponse)
	}
	var text strings.Builder
	for _, block := range msg.Content {
		switch b := block.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(b.Text)
		}
	}
	finish := string(msg.StopReason)
	return &model.Response{
		ID:        msg.ID,
		Object:    model.ObjectTypeChatCompletion,
		Created:   time.Now().Unix(),
		Model:     string(msg.Model),
		Timestamp: time.Now(),
		Done:      true,
		Choices: []model.Choice{{
			Message:      model.NewAssistantMessage(text.String()),
			FinishReason: &finish,
		}},
		Usage: &model.Usage{
			PromptTokens:     int(msg.Usage.InputTokens),
			CompletionTokens: int(msg.Usage.OutputTokens),
			TotalTokens:      int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}
}
