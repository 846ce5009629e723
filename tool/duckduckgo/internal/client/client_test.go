//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Search_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "golden ratio", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"Heading": "Golden ratio",
			"AbstractText": "In mathematics, two quantities are in the golden ratio...",
			"AbstractSource": "Wikipedia",
			"Answer": 1.618,
			"ImageWidth": 220,
			"RelatedTopics": [{"Text": "Fibonacci number - a sequence", "FirstURL": "https://duckduckgo.com/Fibonacci"}]
		}`))
	}))
	defer server.Close()

	c := New(server.URL+"/", "test-agent/1.0", server.Client())
	rsp, err := c.Search(context.Background(), "golden ratio")
	require.NoError(t, err)
	assert.Equal(t, "Golden ratio", rsp.Heading)
	assert.Equal(t, "1.618", rsp.Answer.String())
	assert.Equal(t, "220", rsp.ImageWidth.String())
	require.Len(t, rsp.RelatedTopics, 1)
}

func TestClient_Search_Errors(t *testing.T) {
	c := New("http://unused", "ua", http.DefaultClient)
	_, err := c.Search(context.Background(), " ")
	assert.Error(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "broken" {
			_, _ = w.Write([]byte(`{invalid`))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c = New(server.URL, "ua", server.Client())
	_, err = c.Search(context.Background(), "broken")
	assert.ErrorContains(t, err, "failed to parse response")
	_, err = c.Search(context.Background(), "limited")
	assert.EqualError(t, err, "API returned status 429")
}

func TestFlexibleString_UnmarshalJSON(t *testing.T) {
	cases := map[string]string{
		`"text"`: "text",
		`42`:     "42",
		`3.5`:    "3.5",
		`true`:   "true",
		`null`:   "",
	}
	for in, want := range cases {
		var fs FlexibleString
		require.NoError(t, json.Unmarshal([]byte(in), &fs), in)
		assert.Equal(t, want, fs.String(), in)
	}
}
