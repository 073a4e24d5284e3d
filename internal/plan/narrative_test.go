package plan

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverNarrative(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
		want  string
	}{
		{
			name:  "well formed",
			raw:   `{"feedback_text": "Solid week.", "plan_v2": null}`,
			field: FieldFeedbackText,
			want:  "Solid week.",
		},
		{
			name:  "escapes decoded",
			raw:   `{"feedback_text": "Line one\nLine \"two\" \u00e9"}`,
			field: FieldFeedbackText,
			want:  "Line one\nLine \"two\" é",
		},
		{
			name:  "raw quotes before next key",
			raw:   `{"feedback_text": "He said "go hard" today", "change_summary": "none"}`,
			field: FieldFeedbackText,
			want:  `He said "go hard" today`,
		},
		{
			name:  "raw quotes at end of object",
			raw:   `{"plan_v2": null, "feedback_text": "Ends with "quoted" word"  }`,
			field: FieldFeedbackText,
			want:  `Ends with "quoted" word`,
		},
		{
			name:  "unterminated keeps remainder",
			raw:   `{"feedback_text": "Truncated output with "quotes" and no end`,
			field: FieldFeedbackText,
			want:  `Truncated output with "quotes" and no end`,
		},
		{
			name:  "response_text alias",
			raw:   "```json\n{\"response_text\": \"Chat reply\"}\n```",
			field: FieldResponseText,
			want:  "Chat reply",
		},
		{
			name:  "surrogate pair joined",
			raw:   `{"feedback_text": "Nice "tempo" work \ud83d\ude00 keep going", "change_summary": "x"}`,
			field: FieldFeedbackText,
			want:  "Nice \"tempo\" work \U0001F600 keep going",
		},
		{
			name:  "lone surrogate replaced",
			raw:   `{"feedback_text": "odd \ud83d end"}`,
			field: FieldFeedbackText,
			want:  "odd \uFFFD end",
		},
		{
			name:  "unknown escape kept",
			raw:   `{"feedback_text": "C:\path"}`,
			field: FieldFeedbackText,
			want:  `C:\path`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			field, text, ok := RecoverNarrative(tt.raw)
			require.True(t, ok)
			assert.Equal(t, tt.field, field)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestRecoverNarrative_Missing(t *testing.T) {
	_, _, ok := RecoverNarrative(`{"plan_v2": {"weeks": []}}`)
	assert.False(t, ok)
}

func TestNarrativeRepair(t *testing.T) {
	raw := `{"feedback_text": "Say "hi" to the coach", "change_summary": "x"}`
	span, ok := locateNarrative(raw)
	require.True(t, ok)
	require.True(t, span.terminated)

	var out map[string]string
	require.NoError(t, json.Unmarshal([]byte(span.repair(raw)), &out))
	assert.Equal(t, `Say "hi" to the coach`, out["feedback_text"])
	assert.Equal(t, "x", out["change_summary"])
}
