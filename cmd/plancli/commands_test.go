package main

import (
	"bytes"
	"encoding/json"
	"kaizencoach/plan-service/internal/domain"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const previousPlan = `{"version":2,"version_tag":"prev","weeks":[
 {"week_number":1,"start_date":"2025-03-03","end_date":"2025-03-09","sessions":[{"id":"w1-s1","type":"RUN","priority":"KEY","day_assignment":"Anytime"}]},
 {"week_number":2,"start_date":"2025-03-10","end_date":"2025-03-16","sessions":[{"id":"w2-s1","type":"RUN","priority":"KEY","day_assignment":"Anytime"}]},
 {"week_number":3,"start_date":"2025-03-17","end_date":"2025-03-23","sessions":[{"id":"w3-s1","type":"RUN","priority":"KEY","day_assignment":"Anytime"}]}
]}`

const incomingPlan = `{"version":2,"version_tag":"next","weeks":[
 {"week_number":1,"sessions":[{"id":"w1-tempo","type":"RUN","priority":"KEY","day_assignment":"Anytime"}]},
 {"week_number":2,"sessions":[{"id":"w2-long","type":"RUN","priority":"IMPORTANT","day_assignment":"Anytime"}]}
]}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	path := writeFile(t, "plan.json", `{"weeks":[{"week_number":1,"sessions":[{"id":"a","type":"RUN","priority":"KEY","day_assignment":"Tuesday"}]}]}`)

	out, err := execute(t, "validate", path, "-o", "json")
	require.ErrorIs(t, err, errInvalid)
	var report struct {
		Valid      bool `json:"valid"`
		Violations []struct {
			Rule string `json:"rule"`
		} `json:"violations"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	require.Len(t, report.Violations, 1)
	assert.Equal(t, "day_assignment_schedule", report.Violations[0].Rule)

	out, err = execute(t, "validate", path, "--schedule-disciplined")
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Contains(t, doc, "weeks")
}

func TestValidateCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "validate", filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errInvalid)
}

func TestExtractCommand(t *testing.T) {
	raw := "Nice work this week.\n```json\n" + `{"plan_v2":` + incomingPlan + `,"change_summary":"added tempo"}` + "\n```\n"
	path := writeFile(t, "output.txt", raw)

	out, err := execute(t, "extract", path, "-o", "json")
	require.NoError(t, err)
	var report extractReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "structured", report.Tier)
	assert.Equal(t, "added tempo", report.ChangeSummary)
	require.NotNil(t, report.Plan)
	assert.Len(t, report.Plan.Weeks, 2)

	out, err = execute(t, "extract", path, "--payload", "-o", "json")
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload))
	assert.Equal(t, "added tempo", payload["change_summary"])
	assert.Contains(t, payload, "plan_v2")

	path = writeFile(t, "chat.txt", "Thanks for the update, talk soon.")
	_, err = execute(t, "extract", path, "--payload")
	assert.Error(t, err)

	out, err = execute(t, "extract", path, "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, "none", report.Tier)
	assert.NotEmpty(t, report.Error)
}

func TestMergeCommand(t *testing.T) {
	prev := writeFile(t, "prev.json", previousPlan)
	next := writeFile(t, "next.json", incomingPlan)

	out, err := execute(t, "merge", prev, next, "--as-of", "2025-03-18", "-o", "json")
	require.NoError(t, err)
	var merged domain.TrainingPlan
	require.NoError(t, json.Unmarshal([]byte(out), &merged))
	require.Len(t, merged.Weeks, 4)
	assert.Equal(t, "w2-s1", merged.Weeks[1].Sessions[0].ID)
	assert.Equal(t, 3, merged.Weeks[2].WeekNumber)
	assert.Equal(t, "w3-tempo", merged.Weeks[2].Sessions[0].ID)

	out, err = execute(t, "merge", prev, next, "--completed", "0", "-o", "json")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &merged))
	assert.Equal(t, "next", merged.VersionTag)
	assert.Len(t, merged.Weeks, 2)

	_, err = execute(t, "merge", prev, next, "--as-of", "March")
	assert.Error(t, err)
}

func TestTokenCommand(t *testing.T) {
	out, err := execute(t, "token", "--uid", "a1", "--role", "admin", "--secret", "s3cret", "--ttl", "5m")
	require.NoError(t, err)

	tok, err := jwt.Parse(strings.TrimSpace(out), func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	claims := tok.Claims.(jwt.MapClaims)
	assert.Equal(t, "a1", claims["uid"])
	assert.Equal(t, "admin", claims["role"])

	_, err = execute(t, "token", "--uid", "a1", "--role", "owner", "--secret", "s3cret")
	assert.Error(t, err)
}

func TestOutputFlagRejected(t *testing.T) {
	_, err := execute(t, "validate", "x.json", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output")
}

func TestEncodeYAMLUsesJSONFieldNames(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, encode(&buf, formatYAML, &domain.TrainingPlan{Version: 2, VersionTag: "t"}))
	assert.Contains(t, buf.String(), "version_tag: t")
}
