//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package web

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/runner"
	"trpc.group/trpc-go/mathsgpt/session"
)

//go:embed templates/index.html
var templates embed.FS

// PageTitle is the document title of the chat page.
const PageTitle = "Text to Math Problem Solver and Data Search Assistant"

func parsePage() (*template.Template, error) {
	return template.ParseFS(templates, "templates/index.html")
}

// pageData feeds templates/index.html.
type pageData struct {
	Title     string
	HasKey    bool
	Messages  []messageView
	Notice    *notice
	Question  string
	Result    *askResult
	ModelName string
}

func (s *Server) pageData(sess *session.Session) *pageData {
	data := &pageData{
		Title:     PageTitle,
		HasKey:    sess.APIKey() != "",
		Messages:  s.messages(sess),
		Question:  s.opts.defaultQuestion,
		ModelName: s.opts.modelName,
	}
	if !data.HasKey {
		data.Notice = &notice{Level: LevelInfo, Message: runner.InfoMissingAPIKey}
	}
	return data
}

func (s *Server) renderPage(w http.ResponseWriter, status int, data *pageData) {
	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		log.Errorf("failed to render page: %v", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// markdown renders chat messages. Raw HTML in the source is dropped.
type markdown struct {
	md goldmark.Markdown
}

func newMarkdown() *markdown {
	return &markdown{md: goldmark.New(goldmark.WithExtensions(extension.GFM))}
}

func (m *markdown) render(src string) template.HTML {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(src), &buf); err != nil {
		log.Warnf("markdown render failed, falling back to text: %v", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}
