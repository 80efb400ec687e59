package agents

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/vetclinic/aiadmin/internal/domain"
)

var fencePattern = regexp.MustCompile("(?s)```([A-Za-z0-9_+-]*)[ \t]*\r?\n?(.*?)```")

// fencedBlock returns the body of the first non-empty fenced block labelled
// lang, or failing that the first non-empty fenced block of any kind. Empty
// bodies come from inline mentions such as "```json```" and are skipped.
func fencedBlock(text, lang string) (string, bool) {
	matches := fencePattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return "", false
	}
	fallback := ""
	for _, m := range matches {
		body := strings.TrimSpace(m[2])
		if body == "" {
			continue
		}
		if strings.EqualFold(m[1], lang) {
			return body, true
		}
		if fallback == "" {
			fallback = body
		}
	}
	return fallback, true
}

// Decision values accepted from the Analysis stage.
const (
	DecisionProceed    = "proceed"
	DecisionClarify    = "clarify"
	DecisionDialogOnly = "dialog_only"
)

type Decision struct {
	Decision        string `json:"decision"`
	Reasoning       string `json:"reasoning"`
	TaskDescription string `json:"task_description,omitempty"`
	UserResponse    string `json:"user_response,omitempty"`
}

// ParseDecision extracts the Analysis decision from model text. A response
// with no fenced block is accepted only when it is a bare JSON object.
func ParseDecision(text string) (*Decision, error) {
	body, found := fencedBlock(text, "json")
	if !found {
		trimmed := strings.TrimSpace(text)
		if !strings.HasPrefix(trimmed, "{") || !strings.HasSuffix(trimmed, "}") {
			return nil, domain.NewStageError(domain.AgentAnalysis, domain.KindValidation, "no fenced JSON block in model response", nil)
		}
		body = trimmed
	}

	var d Decision
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return nil, domain.NewStageError(domain.AgentAnalysis, domain.KindValidation, "malformed decision JSON", err)
	}

	switch d.Decision {
	case DecisionProceed, DecisionClarify, DecisionDialogOnly:
		return &d, nil
	case "":
		return nil, domain.NewStageError(domain.AgentAnalysis, domain.KindUnknownDecision, "unknown decision: decision is missing", nil)
	default:
		return nil, domain.NewStageError(domain.AgentAnalysis, domain.KindUnknownDecision, fmt.Sprintf("unknown decision %q", d.Decision), nil)
	}
}

// Verdict markers the Control stage must emit.
const (
	MarkerVerified = "VERDICT: VERIFIED"
	MarkerRetry    = "VERDICT: RETRY"
)

type Verdict string

const (
	VerdictVerified Verdict = "verified"
	VerdictRetry    Verdict = "retry"
)

// ParseVerdict returns the verdict whose marker occurs first in text.
func ParseVerdict(text string) (Verdict, error) {
	verified := strings.Index(text, MarkerVerified)
	retry := strings.Index(text, MarkerRetry)

	switch {
	case verified < 0 && retry < 0:
		return "", domain.NewStageError(domain.AgentControl, domain.KindUnknownVerdict, "no clear verdict in model response", nil)
	case retry < 0:
		return VerdictVerified, nil
	case verified < 0:
		return VerdictRetry, nil
	case verified < retry:
		return VerdictVerified, nil
	default:
		return VerdictRetry, nil
	}
}
