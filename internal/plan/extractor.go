package plan

import (
	"encoding/json"
	"errors"
	"kaizencoach/plan-service/internal/domain"
	"regexp"
	"sort"
	"strings"
)

// Tier identifies which extraction strategy produced (or rejected) a plan.
type Tier int

const (
	TierNone Tier = iota
	TierStructured
	TierContent
)

func (t Tier) String() string {
	switch t {
	case TierStructured:
		return "structured"
	case TierContent:
		return "content"
	}
	return "none"
}

// Envelope field names used by the generator's output convention.
const (
	FieldPlan          = "plan_v2"
	FieldWeeks         = "weeks"
	FieldChangeSummary = "change_summary"
	FieldFeedbackText  = "feedback_text"
	FieldResponseText  = "response_text"
)

// envelopeMarkers are the keys that make a JSON object a generator payload rather than stray JSON.
var envelopeMarkers = []string{FieldPlan, FieldWeeks, FieldFeedbackText, FieldResponseText, FieldChangeSummary}

// Extraction is everything recovered from one raw generator output.
// It is returned even when extraction fails so the narrative survives.
type Extraction struct {
	Plan          *domain.TrainingPlan
	Tier          Tier
	ChangeSummary string

	Narrative          string
	NarrativeField     string
	NarrativeRecovered bool // true when the narrative came from a structural scan instead of a parse

	// StructuredErr keeps the diagnostic of a structured payload that was skipped in favour of a later tier.
	StructuredErr error
}

// HasNarrative reports whether any narrative text was recovered.
func (e *Extraction) HasNarrative() bool {
	return e != nil && strings.TrimSpace(e.Narrative) != ""
}

// strategy is one tier of the chain. ok=false means "nothing here, try the next tier".
type strategy func(raw string, opts ValidateOptions, ext *Extraction) (ok bool, err error)

// Extract pulls a validated plan out of raw generator output.
// Tiers run in order of reliability: structured payload, then loose content scan.
// If neither yields a plan the error is an *ExtractionError.
func Extract(raw string, opts ValidateOptions) (*Extraction, error) {
	ext := &Extraction{}
	for _, s := range []strategy{extractStructured, extractContent} {
		ok, err := s(raw, opts, ext)
		if err != nil {
			return ext, err
		}
		if ok {
			return ext, nil
		}
	}
	if ext.StructuredErr != nil {
		return ext, &ExtractionError{Kind: ExtractionPayloadInvalid, Tier: TierStructured, Err: ext.StructuredErr}
	}
	return ext, &ExtractionError{Kind: ExtractionNoPayload, Detail: "no structured payload and no session-like lines"}
}

func extractStructured(raw string, opts ValidateOptions, ext *Extraction) (bool, error) {
	obj, repaired := findEnvelope(raw)
	if obj == nil {
		if field, text, found := RecoverNarrative(raw); found {
			ext.Narrative, ext.NarrativeField, ext.NarrativeRecovered = text, field, true
		}
		return false, nil
	}

	readEnvelopeText(obj, ext)
	if repaired {
		// The strict parse only succeeded after re-escaping; the scanned text is the authoritative copy.
		if field, text, found := RecoverNarrative(raw); found {
			ext.Narrative, ext.NarrativeField = text, field
		}
		ext.NarrativeRecovered = true
	}

	payload, hasPlan := planPayload(obj)
	if !hasPlan {
		// Feedback-only response; the generator chose not to change the plan.
		return false, &ExtractionError{Kind: ExtractionNoPayload, Detail: "envelope carries no plan"}
	}

	plan, err := Validate(payload, opts)
	if err != nil {
		var vErr *ValidationError
		if errors.As(err, &vErr) && vErr.StructuralOnly() {
			ext.StructuredErr = err
			return false, nil
		}
		return false, &ExtractionError{Kind: ExtractionPayloadInvalid, Tier: TierStructured, Err: err}
	}
	ext.Plan, ext.Tier = plan, TierStructured
	return true, nil
}

func extractContent(raw string, opts ValidateOptions, ext *Extraction) (bool, error) {
	parsed := ParseContent(raw)
	if parsed == nil {
		return false, nil
	}
	plan, err := Validate(parsed, opts)
	if err != nil {
		return false, &ExtractionError{Kind: ExtractionPayloadInvalid, Tier: TierContent, Err: err}
	}
	ext.Plan, ext.Tier = plan, TierContent
	return true, nil
}

// findEnvelope returns the first generator payload object found in raw. When strict parsing
// only worked after repairing a narrative field, repaired is true.
func findEnvelope(raw string) (obj map[string]any, repaired bool) {
	if obj := firstEnvelope(raw); obj != nil {
		return obj, false
	}
	span, ok := locateNarrative(raw)
	if !ok || !span.terminated {
		return nil, false
	}
	if obj := firstEnvelope(span.repair(raw)); obj != nil {
		return obj, true
	}
	return nil, false
}

func firstEnvelope(raw string) map[string]any {
	for _, c := range jsonCandidates(raw) {
		v, err := decodeJSON([]byte(c))
		if err != nil {
			continue
		}
		if obj, ok := v.(map[string]any); ok && isEnvelope(obj) {
			return obj
		}
	}
	return nil
}

func isEnvelope(obj map[string]any) bool {
	for _, k := range envelopeMarkers {
		if _, ok := obj[k]; ok {
			return true
		}
	}
	return false
}

// planPayload returns the plan object inside an envelope, or the envelope itself when it is a bare plan.
func planPayload(obj map[string]any) (any, bool) {
	if p, ok := obj[FieldPlan]; ok && p != nil {
		return p, true
	}
	if _, ok := obj[FieldWeeks]; ok {
		return obj, true
	}
	return nil, false
}

func readEnvelopeText(obj map[string]any, ext *Extraction) {
	if s, ok := obj[FieldChangeSummary].(string); ok {
		ext.ChangeSummary = s
	}
	for _, f := range narrativeFields {
		if s, ok := obj[f].(string); ok {
			ext.Narrative, ext.NarrativeField = s, f
			return
		}
	}
}

var fencePattern = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")

// jsonCandidates lists substrings worth a strict parse, most reliable first:
// the whole text, fenced blocks, then balanced objects from a string-aware scan (largest first).
func jsonCandidates(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] || !strings.HasPrefix(s, "{") {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	add(raw)
	for _, m := range fencePattern.FindAllStringSubmatch(raw, -1) {
		add(m[1])
	}
	objects := balancedObjects(raw)
	sort.SliceStable(objects, func(i, j int) bool { return len(objects[i]) > len(objects[j]) })
	for _, o := range objects {
		add(o)
	}
	return out
}

// balancedObjects returns every top-level {...} span, ignoring braces inside JSON strings.
func balancedObjects(raw string) []string {
	var out []string
	depth, start := 0, -1
	inString, escaped := false, false
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				out = append(out, raw[start:i+1])
				start = -1
			}
		}
	}
	return out
}

// ExtractJSON returns the first generator payload object in raw re-encoded as JSON, or nil.
func ExtractJSON(raw string) json.RawMessage {
	obj, _ := findEnvelope(raw)
	if obj == nil {
		return nil
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return nil
	}
	return b
}
