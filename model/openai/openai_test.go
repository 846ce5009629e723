//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trpc.group/trpc-go/mathsgpt/model"
)

const completionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "llama-3.1-8b-instant",
  "choices": [{
    "index": 0,
    "message": {"role": "assistant", "content": "Thought: I know it\nFinal Answer: 42"},
    "finish_reason": "stop"
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

type captured struct {
	mu     sync.Mutex
	auth   string
	header http.Header
	body   map[string]any
	called int
}

func newServer(t *testing.T, c *captured, handler func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.called++
		c.auth = r.Header.Get("Authorization")
		c.header = r.Header.Clone()
		c.body = map[string]any{}
		_ = json.Unmarshal(raw, &c.body)
		c.mu.Unlock()
		handler(w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNew(t *testing.T) {
	m := New(GroqDefaultModel, WithAPIKey("k"), WithBaseURL(GroqBaseURL), WithChannelBufferSize(0))
	assert.Equal(t, GroqDefaultModel, m.Info().Name)
	assert.Equal(t, GroqBaseURL, m.baseURL)
	assert.Equal(t, defaultChannelBufferSize, m.channelBufferSize)
}

func TestModel_GenContent_ResponseCallbackAndExtras(t *testing.T) {
	c := &captured{}
	srv := newServer(t, c, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	})

	var (
		seenModel string
		seenID    string
	)
	m := New("m",
		WithBaseURL(srv.URL),
		WithAPIKey("k"),
		WithMaxRetries(0),
		WithChatResponseCallback(func(ctx context.Context, req *openai.ChatCompletionNewParams, resp *openai.ChatCompletion) {
			seenModel = string(req.Model)
			if resp != nil {
				seenID = resp.ID
			}
		}),
		WithExtraFields(map[string]any{"service_tier": "auto"}),
		WithExtraFields(map[string]any{"user": "mathsgpt"}),
		WithOpenAIOptions(openaiopt.WithHeader("X-Mathsgpt-Client", "web")),
	)
	_, err := model.GenerateText(context.Background(), m, &model.Request{
		Messages: []model.Message{model.NewUserMessage("q")},
	})
	require.NoError(t, err)
	assert.Equal(t, "m", seenModel)
	assert.Equal(t, "chatcmpl-1", seenID)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, "auto", c.body["service_tier"])
	assert.Equal(t, "mathsgpt", c.body["user"])
	assert.Equal(t, "web", c.header.Get("X-Mathsgpt-Client"))
}

func TestModel_GenContent_NilReq(t *testing.T) {
	m := New("test-model", WithAPIKey("k"))
	ch, err := m.GenerateContent(context.Background(), nil)
	assert.Error(t, err)
	assert.Nil(t, ch)
}

func TestModel_GenContent_NonStreaming(t *testing.T) {
	c := &captured{}
	srv := newServer(t, c, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	})

	var requestSeen bool
	m := New(GroqDefaultModel,
		WithBaseURL(srv.URL),
		WithAPIKey("default-key"),
		WithMaxRetries(0),
		WithChatRequestCallback(func(ctx context.Context, req *openai.ChatCompletionNewParams) {
			requestSeen = true
		}),
	)
	temp := 0.0
	req := &model.Request{
		Messages: []model.Message{
			model.NewSystemMessage("sys"),
			model.NewUserMessage("what is 6*7?"),
			model.NewAssistantMessage("Thought:"),
		},
		GenerationConfig: model.GenerationConfig{
			Temperature: &temp,
			Stop:        []string{"\nObservation:", "\n\tObservation:"},
		},
		APIKey: "user-key",
	}
	got, err := model.GenerateText(context.Background(), m, req)
	require.NoError(t, err)
	assert.Equal(t, "Thought: I know it\nFinal Answer: 42", got)
	assert.True(t, requestSeen)

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, "Bearer user-key", c.auth)
	assert.Equal(t, GroqDefaultModel, c.body["model"])
	assert.Equal(t, []any{"\nObservation:", "\n\tObservation:"}, c.body["stop"])
	msgs, ok := c.body["messages"].([]any)
	require.True(t, ok)
	require.Len(t, msgs, 3)
	roles := make([]string, 0, 3)
	for _, raw := range msgs {
		roles = append(roles, raw.(map[string]any)["role"].(string))
	}
	assert.Equal(t, []string{"system", "user", "assistant"}, roles)
}

func TestModel_GenContent_SingleStop(t *testing.T) {
	c := &captured{}
	srv := newServer(t, c, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, completionBody)
	})
	m := New("m", WithBaseURL(srv.URL), WithAPIKey("k"), WithMaxRetries(0))
	_, err := model.GenerateText(context.Background(), m, &model.Request{
		Messages:         []model.Message{model.NewUserMessage("q")},
		GenerationConfig: model.GenerationConfig{Stop: []string{"\nObservation:"}},
	})
	require.NoError(t, err)
	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, "\nObservation:", c.body["stop"])
	assert.Equal(t, "Bearer k", c.auth)
}

func TestModel_GenContent_APIError(t *testing.T) {
	c := &captured{}
	srv := newServer(t, c, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":{"message":"Invalid API Key","type":"invalid_request_error","code":"invalid_api_key"}}`)
	})
	m := New("m", WithBaseURL(srv.URL), WithAPIKey("bad"), WithMaxRetries(0))

	ch, err := m.GenerateContent(context.Background(), model.NewPromptRequest("q", model.GenerationConfig{}))
	require.NoError(t, err)
	var last *model.Response
	for rsp := range ch {
		last = rsp
	}
	require.NotNil(t, last)
	require.NotNil(t, last.Error)
	assert.Equal(t, model.ErrorTypeAPIError, last.Error.Type)
	assert.Contains(t, last.Error.Message, "Invalid API Key")
}

func TestModel_GenContent_Streaming(t *testing.T) {
	c := &captured{}
	chunks := []string{"The ", "answer ", "is 4"}
	srv := newServer(t, c, func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range chunks {
			fmt.Fprintf(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	})
	m := New("m", WithBaseURL(srv.URL), WithAPIKey("k"), WithMaxRetries(0))

	req := model.NewPromptRequest("2+2", model.GenerationConfig{Stream: true})
	ch, err := m.GenerateContent(context.Background(), req)
	require.NoError(t, err)

	var partials []string
	var final *model.Response
	for rsp := range ch {
		if rsp.IsPartial {
			partials = append(partials, rsp.Text())
			continue
		}
		final = rsp
	}
	assert.Equal(t, chunks, partials)
	require.NotNil(t, final)
	require.Nil(t, final.Error)
	assert.True(t, final.Done)
	assert.Equal(t, "The answer is 4", final.Text())

	c.mu.Lock()
	defer c.mu.Unlock()
	assert.Equal(t, true, c.body["stream"])
}

func TestConvertMessages(t *testing.T) {
	out := convertMessages([]model.Message{
		model.NewSystemMessage("s"),
		model.NewUserMessage("u"),
		model.NewAssistantMessage("a"),
	})
	require.Len(t, out, 3)
	assert.NotNil(t, out[0].OfSystem)
	assert.NotNil(t, out[1].OfUser)
	assert.NotNil(t, out[2].OfAssistant)
}
