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
	"fmt"
	"strings"

	"trpc.group/trpc-go/mathsgpt/tool"
)

const (
	promptPrefix = "Answer the following questions as best you can. You have access to the following tools:"

	formatInstructions = `Use the following format:

Question: the input question you must answer
Thought: you should always think about what to do
Action: the action to take, should be one of [%s]
Action Input: the input to the action
Observation: the result of the action
... (this Thought/Action/Action Input/Observation can repeat N times)
Thought: I now know the final answer
Final Answer: the final answer to the original input question`

	promptSuffix = "Begin!\n\nQuestion: %s\nThought:%s"

	observationPrefix = "Observation: "
	thoughtPrefix     = "Thought:"

	stopGeneratePrompt = "\n\nI now need to return a final answer based on the previous steps:"
)

// stopSequences end a completion before the model invents an observation.
var stopSequences = []string{"\nObservation:", "\n\tObservation:"}

// promptTemplate is the question independent part of the prompt.
type promptTemplate struct {
	header string
}

func newPromptTemplate(tools []tool.Tool) promptTemplate {
	descs := make([]string, 0, len(tools))
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		d := t.Declaration()
		descs = append(descs, fmt.Sprintf("%s: %s", d.Name, d.Description))
		names = append(names, d.Name)
	}
	header := strings.Join([]string{
		promptPrefix,
		strings.Join(descs, "\n"),
		fmt.Sprintf(formatInstructions, strings.Join(names, ", ")),
	}, "\n\n")
	return promptTemplate{header: header}
}

// render fills in the question and the scratchpad of previous steps.
func (p promptTemplate) render(question, scratchpad string) string {
	return p.header + "\n\n" + fmt.Sprintf(promptSuffix, question, scratchpad)
}

// step is one completed action with the observation it produced.
type step struct {
	action      Action
	observation string
}

// scratchpad replays previous steps so the model can continue from them.
func scratchpad(steps []step) string {
	var b strings.Builder
	for _, s := range steps {
		b.WriteString(s.action.Log)
		b.WriteString("\n")
		b.WriteString(observationPrefix)
		b.WriteString(s.observation)
		b.WriteString("\n")
		b.WriteString(thoughtPrefix)
	}
	return b.String()
}
