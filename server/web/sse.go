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
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"trpc.group/trpc-go/mathsgpt/event"
)

var errStreamingUnsupported = errors.New("streaming unsupported")

// streamPayload is the data of one SSE frame. Step events carry the event
// itself; notices carry only Message.
type streamPayload struct {
	*event.Event
	HTML    template.HTML `json:"html,omitempty"`
	Message string        `json:"message,omitempty"`
}

type sseWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEWriter(w http.ResponseWriter) (*sseWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errStreamingUnsupported
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &sseWriter{w: w, flusher: flusher}, nil
}

// write sends one named event and flushes it.
func (s *sseWriter) write(name string, payload streamPayload) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}
