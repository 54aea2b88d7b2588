package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"pdfqa/internal/ai"
)

// ErrStepLimit is returned when the loop hits its step cap without the model
// producing a final answer. The cap is the loop's only cancellation
// mechanism besides ctx.
var ErrStepLimit = errors.New("agent reached step limit without a final answer")

// Tool is one callable capability exposed to the model. Run reports problems
// as observation text so a failing tool degrades the answer instead of
// aborting the loop.
type Tool struct {
	Name        string
	Description string
	Run         func(ctx context.Context, input string) string
}

// CompleteFunc produces one model completion for a message transcript.
type CompleteFunc func(ctx context.Context, messages []ai.ChatMessage) (string, error)

// Agent runs a reason/act/observe loop: each step the model emits a JSON
// action naming a tool (or a final answer), the tool result is fed back as
// an observation, and the cycle repeats up to maxSteps.
type Agent struct {
	complete    CompleteFunc
	tools       []Tool
	toolsByName map[string]Tool
	maxSteps    int
}

func New(complete CompleteFunc, tools []Tool, maxSteps int) *Agent {
	if maxSteps <= 0 {
		maxSteps = 5
	}
	byName := make(map[string]Tool, len(tools))
	for _, t := range tools {
		byName[t.Name] = t
	}
	return &Agent{
		complete:    complete,
		tools:       tools,
		toolsByName: byName,
		maxSteps:    maxSteps,
	}
}

// action is the tagged decision decoded from one model step.
type action struct {
	Thought     string `json:"thought"`
	Action      string `json:"action"`
	ActionInput string `json:"action_input"`
	FinalAnswer string `json:"final_answer"`
}

// Run executes the loop for one question and returns the final answer.
func (a *Agent) Run(ctx context.Context, question string) (string, error) {
	messages := []ai.ChatMessage{
		{Role: "system", Content: a.systemPrompt()},
		{Role: "user", Content: question},
	}

	for step := 0; step < a.maxSteps; step++ {
		raw, err := a.complete(ctx, messages)
		if err != nil {
			return "", err
		}

		act, err := parseAction(raw)
		if err != nil {
			// The model ignored the protocol; treat its free text as the
			// final answer rather than failing the whole question.
			return strings.TrimSpace(raw), nil
		}
		if act.FinalAnswer != "" {
			return strings.TrimSpace(act.FinalAnswer), nil
		}

		observation := a.dispatch(ctx, act)
		messages = append(messages,
			ai.ChatMessage{Role: "assistant", Content: raw},
			ai.ChatMessage{Role: "user", Content: "Observation: " + observation},
		)
	}
	return "", ErrStepLimit
}

func (a *Agent) dispatch(ctx context.Context, act action) string {
	tool, ok := a.toolsByName[act.Action]
	if !ok {
		names := make([]string, len(a.tools))
		for i, t := range a.tools {
			names[i] = t.Name
		}
		return fmt.Sprintf("unknown tool %q; available tools: %s", act.Action, strings.Join(names, ", "))
	}
	return tool.Run(ctx, act.ActionInput)
}

func (a *Agent) systemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an assistant that answers questions about uploaded PDF documents. ")
	b.WriteString("You can use the following tools:\n\n")
	for _, t := range a.tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}
	b.WriteString("\nRespond with exactly one JSON object per turn, no other text.\n")
	b.WriteString("To use a tool:\n")
	b.WriteString(`{"thought": "<your reasoning>", "action": "<tool name>", "action_input": "<tool input>"}`)
	b.WriteString("\nTo finish:\n")
	b.WriteString(`{"thought": "<your reasoning>", "final_answer": "<answer for the user>"}`)
	return b.String()
}

// parseAction decodes the first JSON object found in the model output.
func parseAction(raw string) (action, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return action{}, fmt.Errorf("no json object in model output")
	}

	var act action
	if err := json.Unmarshal([]byte(raw[start:end+1]), &act); err != nil {
		return action{}, fmt.Errorf("decode action failed: %w", err)
	}
	if act.Action == "" && act.FinalAnswer == "" {
		return action{}, fmt.Errorf("action names no tool and no final answer")
	}
	return act, nil
}
