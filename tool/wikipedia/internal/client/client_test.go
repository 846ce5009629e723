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
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/w/api.php", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "search", q.Get("list"))
		assert.Equal(t, "Pythagoras", q.Get("srsearch"))
		assert.Equal(t, "3", q.Get("srlimit"))
		assert.Equal(t, "2", q.Get("formatversion"))
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = io.WriteString(w, `{"query":{"search":[
			{"pageid":1,"title":"Pythagoras","snippet":"<span class=\"searchmatch\">Pythagoras</span> of Samos"},
			{"pageid":2,"title":"Pythagorean theorem","snippet":"In mathematics"}]}}`)
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "test-agent", srv.Client())
	res, err := c.Search(context.Background(), "Pythagoras", 3)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "Pythagoras", res[0].Title)
	assert.Equal(t, 2, res[1].PageID)
}

func TestSearch_Errors(t *testing.T) {
	c := New("http://unused", "ua", http.DefaultClient)
	_, err := c.Search(context.Background(), "  ", 3)
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("srsearch") == "bad" {
			_, _ = io.WriteString(w, `{"error":{"code":"badvalue","info":"Unrecognized value"}}`)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c = New(srv.URL, "ua", srv.Client())
	_, err = c.Search(context.Background(), "bad", 3)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "badvalue", apiErr.Code)

	_, err = c.Search(context.Background(), "down", 3)
	assert.EqualError(t, err, "API returned status 503")
}

func TestExtract(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "extracts", q.Get("prop"))
		assert.Equal(t, "1", q.Get("explaintext"))
		switch q.Get("titles") {
		case "Euclid":
			_, _ = io.WriteString(w, `{"query":{"pages":[{"pageid":9,"title":"Euclid","extract":"Euclid was a Greek mathematician."}]}}`)
		default:
			_, _ = io.WriteString(w, `{"query":{"pages":[{"title":"Nope","missing":true}]}}`)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "ua", srv.Client())
	page, err := c.Extract(context.Background(), "Euclid")
	require.NoError(t, err)
	assert.Equal(t, "Euclid was a Greek mathematician.", page.Extract)

	_, err = c.Extract(context.Background(), "Nope")
	assert.Error(t, err)
}
