//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

// Package session provides the chat transcript of one browser session.
package session

import (
	"context"
	"errors"
	"time"
)

// Greeting is the assistant message every transcript starts with.
const Greeting = "👋 Hi! I'm MathsGPT, your math problem-solving buddy. Ask me any question!"

// StateKeyAPIKey is the state entry holding the user's API key.
const StateKeyAPIKey = "api_key"

// StateMap is a map of state key-value pairs.
type StateMap map[string][]byte

var (
	// ErrSessionIDRequired is the error for session id required.
	ErrSessionIDRequired = errors.New("sessionID is required")
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRole is returned when appending a message with an unknown role.
	ErrInvalidRole = errors.New("invalid message role")
)

// Role is the author of a transcript message.
type Role string

// Transcript roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// IsValid reports whether r is a transcript role.
func (r Role) IsValid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one chat turn.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content, CreatedAt: time.Now()}
}

// Session is the transcript and private state of one browser session.
type Session struct {
	ID       string    `json:"id"`       // ID is the session id.
	Messages []Message `json:"messages"` // Messages is the transcript, oldest first.
	// State holds private per-session values such as the API key. It is
	// never sent to the page.
	State     StateMap  `json:"-"`
	CreatedAt time.Time `json:"createdAt"` // CreatedAt is the creation time.
	UpdatedAt time.Time `json:"updatedAt"` // UpdatedAt is the last update time.
}

// APIKey returns the key the user entered, or "".
func (sess *Session) APIKey() string {
	if sess == nil || sess.State == nil {
		return ""
	}
	return string(sess.State[StateKeyAPIKey])
}

// Service is the interface that all session services must implement.
type Service interface {
	// CreateSession creates a new session seeded with the greeting.
	CreateSession(ctx context.Context) (*Session, error)

	// GetSession returns a copy of the session, or ErrSessionNotFound.
	GetSession(ctx context.Context, sessionID string) (*Session, error)

	// AppendMessage appends a message to the transcript.
	AppendMessage(ctx context.Context, sessionID string, msg Message) error

	// SetAPIKey stores the user's API key. An empty key clears it.
	SetAPIKey(ctx context.Context, sessionID, apiKey string) error

	// ResetSession clears the transcript back to the greeting. The API key is kept.
	ResetSession(ctx context.Context, sessionID string) error

	// DeleteSession deletes a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// Close closes the service.
	Close() error
}
