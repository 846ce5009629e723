//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package web serves the MathsGPT chat page and its JSON and SSE endpoints.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/mathsgpt/event"
	"trpc.group/trpc-go/mathsgpt/log"
	"trpc.group/trpc-go/mathsgpt/model"
	"trpc.group/trpc-go/mathsgpt/runner"
	"trpc.group/trpc-go/mathsgpt/session"
)

// Notice levels, mirroring how the page colours a message.
const (
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notices for questions that cannot start yet.
const (
	busyMessage       = "MathsGPT is busy answering other questions, please try again shortly"
	inProgressMessage = "Please wait for the answer to your previous question"
)

// Server exposes the chat page, the key and transcript endpoints and the ask
// endpoints on top of a runner.
type Server struct {
	runner   runner.Runner
	sessions session.Service
	router   *mux.Router
	page     *template.Template
	md       *markdown
	opts     *options
}

// New creates a Server. The session service given with WithSessionService
// must be shared with the runner.
func New(rn runner.Runner, opts ...Option) (*Server, error) {
	o := newOptions(opts...)
	page, err := parsePage()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page template: %w", err)
	}
	s := &Server{
		runner:   rn,
		sessions: o.sessionService,
		router:   mux.NewRouter(),
		page:     page,
		md:       newMarkdown(),
		opts:     o,
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   o.allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s, nil
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/", s.handlePage).Methods(http.MethodGet)
	s.router.HandleFunc("/ask", s.handleAskForm).Methods(http.MethodPost)
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/key", s.handleSetKey).Methods(http.MethodPost)
	api.HandleFunc("/messages", s.handleMessages).Methods(http.MethodGet)
	api.HandleFunc("/ask", s.handleAsk).Methods(http.MethodPost)
	api.HandleFunc("/ask/stream", s.handleAskStream).Methods(http.MethodPost)
	api.HandleFunc("/reset", s.handleReset).Methods(http.MethodPost)

	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	api.PathPrefix("/").HandlerFunc(preflight).Methods(http.MethodOptions)
}

// ---- Handlers -----------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.renderPage(w, http.StatusOK, s.pageData(sess))
}

// handleAskForm answers a question posted from the page without JavaScript
// and renders the page with the response box.
func (s *Server) handleAskForm(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	question := r.FormValue("question")
	res, askErr := s.ask(r.Context(), sess.ID, question)
	sess, err = s.sessions.GetSession(r.Context(), sess.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data := s.pageData(sess)
	data.Question = question
	status := http.StatusOK
	if askErr != nil {
		status, data.Notice = s.notice(askErr)
	} else {
		data.Result = res
	}
	s.renderPage(w, status, data)
}

type keyRequest struct {
	APIKey string `json:"apiKey"`
}

func (s *Server) handleSetKey(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, LevelError, err.Error())
		return
	}
	var req keyRequest
	form := isForm(r)
	if form {
		req.APIKey = r.FormValue("apiKey")
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, LevelError, "invalid request body")
		return
	}
	key := strings.TrimSpace(req.APIKey)
	if err := s.sessions.SetAPIKey(r.Context(), sess.ID, key); err != nil {
		s.writeError(w, http.StatusInternalServerError, LevelError, err.Error())
		return
	}
	log.Debugf("session %s api key updated (set=%t)", sess.ID, key != "")
	if form {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]bool{"hasKey": key != ""})
}

type messageView struct {
	Role    session.Role  `json:"role"`
	Content string        `json:"content"`
	HTML    template.HTML `json:"html"`
}

type transcriptView struct {
	SessionID string        `json:"sessionId"`
	HasKey    bool          `json:"hasKey"`
	Messages  []messageView `json:"messages"`
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, LevelError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, transcriptView{
		SessionID: sess.ID,
		HasKey:    sess.APIKey() != "",
		Messages:  s.messages(sess),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, LevelError, err.Error())
		return
	}
	if err := s.sessions.ResetSession(r.Context(), sess.ID); err != nil {
		s.writeError(w, http.StatusInternalServerError, LevelError, err.Error())
		return
	}
	if isForm(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, LevelError, err.Error())
		return
	}
	question, ok := s.question(w, r)
	if !ok {
		return
	}
	res, err := s.ask(r.Context(), sess.ID, question)
	if err != nil {
		status, n := s.notice(err)
		s.writeError(w, status, n.Level, n.Message)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAskStream(w http.ResponseWriter, r *http.Request) {
	sess, err := s.session(w, r)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, LevelError, err.Error())
		return
	}
	question, ok := s.question(w, r)
	if !ok {
		return
	}
	sse, err := newSSEWriter(w)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, LevelError, err.Error())
		return
	}

	events, err := s.runner.Run(r.Context(), sess.ID, question)
	if err != nil {
		_, n := s.notice(err)
		_ = sse.write(n.Level, streamPayload{Message: n.Message})
		return
	}
	for evt := range events {
		payload := streamPayload{Event: evt}
		switch evt.Kind {
		case event.KindFinal:
			payload.HTML = s.md.render(evt.Content)
		case event.KindError:
			payload.Message = errorText(evt.Error)
		}
		if err := sse.write(string(evt.Kind), payload); err != nil {
			log.Warnf("session %s: stream closed: %v", sess.ID, err)
			return
		}
	}
	log.Debugf("handleAskStream finished for session %s", sess.ID)
}

// ---- Helpers ------------------------------------------------------------

// session returns the caller's session, creating one and setting the cookie
// when the cookie is missing or its session has expired.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*session.Session, error) {
	if c, err := r.Cookie(s.opts.cookieName); err == nil && c.Value != "" {
		sess, err := s.sessions.GetSession(r.Context(), c.Value)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, session.ErrSessionNotFound) {
			return nil, err
		}
	}
	sess, err := s.sessions.CreateSession(r.Context())
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.opts.cookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

func (s *Server) question(w http.ResponseWriter, r *http.Request) (string, bool) {
	if isForm(r) {
		return r.FormValue("question"), true
	}
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, LevelError, "invalid request body")
		return "", false
	}
	return req.Question, true
}

// askResult is the outcome of a question as returned by /api/ask.
type askResult struct {
	Answer     string        `json:"answer"`
	AnswerHTML template.HTML `json:"answerHtml"`
	Steps      []stepView    `json:"steps"`
}

// stepView is one collapsed thought block.
type stepView struct {
	Step        int    `json:"step"`
	Thought     string `json:"thought,omitempty"`
	Tool        string `json:"tool,omitempty"`
	ToolInput   string `json:"toolInput,omitempty"`
	Observation string `json:"observation,omitempty"`
}

// ask runs a question to completion and groups the intermediate events by step.
func (s *Server) ask(ctx context.Context, sessionID, question string) (*askResult, error) {
	events, err := s.runner.Run(ctx, sessionID, question)
	if err != nil {
		return nil, err
	}
	res := &askResult{}
	cur := func(step int) *stepView {
		if n := len(res.Steps); n > 0 && res.Steps[n-1].Step == step {
			return &res.Steps[n-1]
		}
		res.Steps = append(res.Steps, stepView{Step: step})
		return &res.Steps[len(res.Steps)-1]
	}
	answer, err := runner.Answer(ctx, events, func(evt *event.Event) {
		switch evt.Kind {
		case event.KindThought:
			cur(evt.Step).Thought = evt.Content
		case event.KindAction:
			v := cur(evt.Step)
			v.Tool, v.ToolInput = evt.Tool, evt.ToolInput
		case event.KindObservation:
			cur(evt.Step).Observation = evt.Content
		}
	})
	if err != nil {
		return nil, err
	}
	res.Answer = answer
	res.AnswerHTML = s.md.render(answer)
	return res, nil
}

// notice is a message shown above the question box.
type notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// notice maps a run error to an HTTP status and the message shown to the user.
func (s *Server) notice(err error) (int, *notice) {
	var rspErr *model.ResponseError
	switch {
	case errors.Is(err, runner.ErrEmptyQuestion):
		return http.StatusBadRequest, &notice{Level: LevelWarning, Message: runner.WarningEmptyQuestion}
	case errors.Is(err, runner.ErrMissingAPIKey):
		return http.StatusUnauthorized, &notice{Level: LevelInfo, Message: runner.InfoMissingAPIKey}
	case errors.Is(err, runner.ErrBusy):
		return http.StatusServiceUnavailable, &notice{Level: LevelError, Message: busyMessage}
	case errors.Is(err, runner.ErrRunInProgress):
		return http.StatusConflict, &notice{Level: LevelWarning, Message: inProgressMessage}
	case errors.As(err, &rspErr):
		return http.StatusBadGateway, &notice{Level: LevelError, Message: errorText(rspErr)}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, &notice{Level: LevelError, Message: "Error: " + err.Error()}
	default:
		return http.StatusInternalServerError, &notice{Level: LevelError, Message: "Error: " + err.Error()}
	}
}

func errorText(e *model.ResponseError) string {
	if e == nil {
		return "Error: agent run failed"
	}
	return "Error: " + e.Message
}

func (s *Server) messages(sess *session.Session) []messageView {
	views := make([]messageView, 0, len(sess.Messages))
	for _, m := range sess.Messages {
		v := messageView{Role: m.Role, Content: m.Content}
		if m.Role == session.RoleAssistant {
			v.HTML = s.md.render(m.Content)
		} else {
			v.HTML = template.HTML(template.HTMLEscapeString(m.Content))
		}
		views = append(views, v)
	}
	return views
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, level, message string) {
	s.writeJSON(w, status, notice{Level: level, Message: message})
}

func isForm(r *http.Request) bool {
	ct := r.Header.Get("Content-Type")
	return strings.HasPrefix(ct, "application/x-www-form-urlencoded") ||
		strings.HasPrefix(ct, "multipart/form-data")
}
