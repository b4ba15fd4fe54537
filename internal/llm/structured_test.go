package llm

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testIntent struct {
	Task       string  `json:"task"`
	Confidence float64 `json:"confidence"`
}

func TestExtractJSON_Plain(t *testing.T) {
	result, err := ExtractJSON[testIntent](`{"task":"scheduling","confidence":0.9}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "scheduling", result.Task)
	assert.InDelta(t, 0.9, result.Confidence, 0.001)
}

func TestExtractJSON_CodeFence(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"task\":\"rsvp\",\"confidence\":0.75}\n```\nDone."
	result, err := ExtractJSON[testIntent](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "rsvp", result.Task)
}

func TestExtractJSON_LeadingDecimal(t *testing.T) {
	result, err := ExtractJSON[testIntent](`{"task":"task","confidence":.8}`, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, result.Confidence, 0.001)
}

func TestExtractJSON_Comments(t *testing.T) {
	raw := `{
		"task": "deadline", // extracted from keywords
		"confidence": 0.7
	}`
	result, err := ExtractJSON[testIntent](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "deadline", result.Task)
}

func TestExtractJSON_NoJSON(t *testing.T) {
	_, err := ExtractJSON[testIntent]("no structured output here", nil)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_ValidatorRejects(t *testing.T) {
	validator := func(i testIntent) error {
		if i.Confidence < 0 || i.Confidence > 1 {
			return fmt.Errorf("confidence out of range: %f", i.Confidence)
		}
		return nil
	}
	_, err := ExtractJSON[testIntent](`{"task":"none","confidence":1.5}`, validator)
	assert.ErrorIs(t, err, ErrInvalidOutput)
}

func TestExtractJSON_BlockComment(t *testing.T) {
	raw := `{"task": /* rubric tier 2 */ "urgent", "confidence": 0.85}`
	result, err := ExtractJSON[testIntent](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "urgent", result.Task)
}

func TestExtractJSON_ToolCallTurn(t *testing.T) {
	type toolCall struct {
		Name   string         `json:"name"`
		Params map[string]any `json:"params"`
	}
	type turn struct {
		ToolCalls []toolCall `json:"tool_calls"`
		Done      bool       `json:"done"`
	}
	raw := "```json\n" +
		`{"tool_calls":[{"name":"time_parse","params":{"text":"dinner {tomorrow}"}}],"done":true}` +
		"\n```"
	result, err := ExtractJSON[turn](raw, nil)
	require.NoError(t, err)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "time_parse", result.ToolCalls[0].Name)
	assert.Equal(t, "dinner {tomorrow}", result.ToolCalls[0].Params["text"])
	assert.True(t, result.Done)
}

func TestExtractJSON_NestedBraces(t *testing.T) {
	type wrapper struct {
		Data map[string]string `json:"data"`
	}
	raw := `prefix {"data":{"key":"va{lu}e"}} suffix`
	result, err := ExtractJSON[wrapper](raw, nil)
	require.NoError(t, err)
	assert.Equal(t, "va{lu}e", result.Data["key"])
}
