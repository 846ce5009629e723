//
// Tencent is pleased to support the open source community by making trpc-agent-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-agent-go is licensed under the Apache License Version 2.0.
//
//

package react

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const finalAnswerMarker = "Final Answer:"

// Observations fed back to the model when its output cannot be parsed.
const (
	MissingActionMessage      = "Invalid Format: Missing 'Action:' after 'Thought:'"
	MissingActionInputMessage = "Invalid Format: Missing 'Action Input:' after 'Action:'"
	InvalidResponseMessage    = "Invalid or incomplete response"

	finalAndActionMessage = "Parsing LLM output produced both a final answer and a parse-able action:"
)

// ErrOutputParse is wrapped by every parse failure.
var ErrOutputParse = errors.New("could not parse LLM output")

var (
	actionRe      = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
	actionOnlyRe  = regexp.MustCompile(`(?s)Action\s*\d*\s*:[\s]*(.*?)`)
	actionInputRe = regexp.MustCompile(`(?s)[\s]*Action\s*\d*\s*Input\s*\d*\s*:[\s]*(.*)`)
)

// Action is a tool call chosen by the model.
type Action struct {
	Tool  string
	Input string
	// Log is the model output that produced the action.
	Log string
}

// Finish is the final answer of a run.
type Finish struct {
	Output string
	Log    string
}

// Parsed holds exactly one of Action or Finish.
type Parsed struct {
	Action *Action
	Finish *Finish
}

// ParseError describes model output that is neither an action nor a final answer.
type ParseError struct {
	// Message describes the failure.
	Message string
	// Observation is what the model is told about its mistake.
	Observation string
	// LLMOutput is the raw completion.
	LLMOutput string
	// SendToLLM reports whether Observation and LLMOutput should go back to
	// the model verbatim.
	SendToLLM bool
}

// Error implements error.
func (e *ParseError) Error() string {
	return e.Message
}

// Unwrap lets errors.Is match ErrOutputParse.
func (e *ParseError) Unwrap() error {
	return ErrOutputParse
}

// Parse reads a zero-shot ReAct completion.
func Parse(text string) (*Parsed, error) {
	finalIdx := strings.Index(text, finalAnswerMarker)
	includesAnswer := finalIdx >= 0
	m := actionRe.FindStringSubmatchIndex(text)

	if m != nil && includesAnswer {
		// A final answer followed by a hallucinated action still counts.
		if finalIdx < m[0] {
			start := finalIdx + len(finalAnswerMarker)
			end := strings.Index(text[start:], "\n\n")
			if end < 0 {
				end = len(text)
			} else {
				end += start
			}
			return &Parsed{Finish: &Finish{
				Output: strings.TrimSpace(text[start:end]),
				Log:    text[:end],
			}}, nil
		}
		return nil, &ParseError{
			Message:     fmt.Sprintf("%s %s", finalAndActionMessage, text),
			Observation: InvalidResponseMessage,
			LLMOutput:   text,
		}
	}
	if m != nil {
		name := strings.TrimSpace(text[m[2]:m[3]])
		// Only spaces and then quotes are trimmed; other whitespace is input.
		input := strings.Trim(strings.Trim(text[m[4]:m[5]], " "), `"`)
		return &Parsed{Action: &Action{Tool: name, Input: input, Log: text}}, nil
	}
	if includesAnswer {
		parts := strings.Split(text, finalAnswerMarker)
		return &Parsed{Finish: &Finish{
			Output: strings.TrimSpace(parts[len(parts)-1]),
			Log:    text,
		}}, nil
	}

	msg := fmt.Sprintf("Could not parse LLM output: `%s`", text)
	switch {
	case !actionOnlyRe.MatchString(text):
		return nil, &ParseError{Message: msg, Observation: MissingActionMessage, LLMOutput: text, SendToLLM: true}
	case !actionInputRe.MatchString(text):
		return nil, &ParseError{Message: msg, Observation: MissingActionInputMessage, LLMOutput: text, SendToLLM: true}
	default:
		return nil, &ParseError{Message: msg, Observation: InvalidResponseMessage, LLMOutput: text}
	}
}
