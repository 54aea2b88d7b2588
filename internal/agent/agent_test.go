package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfqa/internal/ai"
)

// scriptedComplete returns canned responses in order and records the
// transcript it saw on each call.
func scriptedComplete(responses []string, transcripts *[][]ai.ChatMessage) CompleteFunc {
	i := 0
	return func(ctx context.Context, messages []ai.ChatMessage) (string, error) {
		if transcripts != nil {
			copied := make([]ai.ChatMessage, len(messages))
			copy(copied, messages)
			*transcripts = append(*transcripts, copied)
		}
		resp := responses[i]
		if i < len(responses)-1 {
			i++
		}
		return resp, nil
	}
}

func echoTool(name string, calls *[]string) Tool {
	return Tool{
		Name:        name,
		Description: "test tool",
		Run: func(ctx context.Context, input string) string {
			if calls != nil {
				*calls = append(*calls, input)
			}
			return "result for " + input
		},
	}
}

func TestRunImmediateFinalAnswer(t *testing.T) {
	complete := scriptedComplete([]string{
		`{"thought": "easy", "final_answer": "42"}`,
	}, nil)
	a := New(complete, nil, 5)

	answer, err := a.Run(context.Background(), "what is the answer?")
	require.NoError(t, err)
	assert.Equal(t, "42", answer)
}

func TestRunDispatchesToolThenFinishes(t *testing.T) {
	var calls []string
	var transcripts [][]ai.ChatMessage
	complete := scriptedComplete([]string{
		`{"thought": "look it up", "action": "Echo", "action_input": "golang"}`,
		`{"thought": "done", "final_answer": "found it"}`,
	}, &transcripts)
	a := New(complete, []Tool{echoTool("Echo", &calls)}, 5)

	answer, err := a.Run(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "found it", answer)
	require.Equal(t, []string{"golang"}, calls)

	// The second completion must see the observation from the first step.
	require.Len(t, transcripts, 2)
	last := transcripts[1][len(transcripts[1])-1]
	assert.Equal(t, "user", last.Role)
	assert.Contains(t, last.Content, "Observation: result for golang")
}

func TestRunUnknownToolProducesObservation(t *testing.T) {
	var transcripts [][]ai.ChatMessage
	complete := scriptedComplete([]string{
		`{"thought": "try", "action": "Nope", "action_input": "x"}`,
		`{"thought": "ok", "final_answer": "recovered"}`,
	}, &transcripts)
	a := New(complete, []Tool{echoTool("Echo", nil)}, 5)

	answer, err := a.Run(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)

	last := transcripts[1][len(transcripts[1])-1]
	assert.Contains(t, last.Content, `unknown tool "Nope"`)
	assert.Contains(t, last.Content, "Echo")
}

func TestRunStepLimit(t *testing.T) {
	complete := scriptedComplete([]string{
		`{"thought": "loop", "action": "Echo", "action_input": "again"}`,
	}, nil)
	a := New(complete, []Tool{echoTool("Echo", nil)}, 3)

	_, err := a.Run(context.Background(), "question")
	assert.ErrorIs(t, err, ErrStepLimit)
}

func TestRunNonJSONOutputIsFinalAnswer(t *testing.T) {
	complete := scriptedComplete([]string{
		"  The answer is plainly this sentence.  ",
	}, nil)
	a := New(complete, []Tool{echoTool("Echo", nil)}, 5)

	answer, err := a.Run(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "The answer is plainly this sentence.", answer)
}

func TestRunExtractsJSONFromSurroundingText(t *testing.T) {
	complete := scriptedComplete([]string{
		"Sure, here is my decision:\n" + `{"thought": "t", "final_answer": "wrapped"}` + "\nthanks",
	}, nil)
	a := New(complete, nil, 5)

	answer, err := a.Run(context.Background(), "question")
	require.NoError(t, err)
	assert.Equal(t, "wrapped", answer)
}

func TestParseActionRejectsEmptyDecision(t *testing.T) {
	_, err := parseAction(`{"thought": "only thinking"}`)
	assert.Error(t, err)
}
