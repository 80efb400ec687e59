package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vetclinic/aiadmin/internal/domain"
)

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     string
		wantDesc string
		wantErr  error
	}{
		{
			name:     "labelled json block",
			text:     "Thinking...\n```json\n{\"decision\":\"proceed\",\"reasoning\":\"r\",\"task_description\":\"List services over 1000\"}\n```\nDone.",
			want:     DecisionProceed,
			wantDesc: "List services over 1000",
		},
		{
			name: "json label wins over earlier block",
			text: "```text\nnot json\n```\n```JSON\n{\"decision\":\"clarify\",\"user_response\":\"Which pet?\"}\n```",
			want: DecisionClarify,
		},
		{
			name: "falls back to first unlabelled block",
			text: "```\n{\"decision\":\"dialog_only\",\"user_response\":\"Hi\"}\n```",
			want: DecisionDialogOnly,
		},
		{
			name:     "inline fence mention before the real block",
			text:     "I will answer in a ```json``` block:\n```json\n{\"decision\":\"proceed\",\"task_description\":\"Hide old news\"}\n```",
			want:     DecisionProceed,
			wantDesc: "Hide old news",
		},
		{
			name: "bare object without fence",
			text: "  {\"decision\":\"proceed\",\"task_description\":\"x\"}  ",
			want: DecisionProceed,
		},
		{
			name:    "prose without any block",
			text:    "I think we should proceed.",
			wantErr: domain.ErrValidation,
		},
		{
			name:    "malformed json",
			text:    "```json\n{\"decision\": proceed}\n```",
			wantErr: domain.ErrValidation,
		},
		{
			name:    "missing decision key",
			text:    "```json\n{\"reasoning\":\"no idea\"}\n```",
			wantErr: domain.ErrUnknownDecision,
		},
		{
			name:    "decision outside the allowed set",
			text:    "```json\n{\"decision\":\"delete_everything\"}\n```",
			wantErr: domain.ErrUnknownDecision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDecision(tt.text)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, d)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Decision)
			if tt.wantDesc != "" {
				assert.Equal(t, tt.wantDesc, d.TaskDescription)
			}
		})
	}
}

func TestParseDecision_UnknownMessage(t *testing.T) {
	_, err := ParseDecision("```json\n{}\n```")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown decision")
	assert.Equal(t, domain.KindUnknownDecision, domain.KindOf(err))
}

func TestParseVerdict_FirstMarkerWins(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Verdict
	}{
		{"verified only", "All good.\nVERDICT: VERIFIED", VerdictVerified},
		{"retry only", "Price not updated. VERDICT: RETRY", VerdictRetry},
		{"verified before retry", "VERDICT: VERIFIED (earlier I considered VERDICT: RETRY)", VerdictVerified},
		{"retry before verified", "VERDICT: RETRY because it is not yet VERDICT: VERIFIED", VerdictRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseVerdict(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseVerdict_NoMarker(t *testing.T) {
	_, err := ParseVerdict("verdict: verified")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownVerdict)
	assert.Contains(t, err.Error(), "no clear verdict")
}

func TestFencedBlock(t *testing.T) {
	body, ok := fencedBlock("```html\n<h1>Report</h1>\n```", "html")
	require.True(t, ok)
	assert.Equal(t, "<h1>Report</h1>", body)

	_, ok = fencedBlock("plain text", "json")
	assert.False(t, ok)
}
