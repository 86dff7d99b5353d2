package agents

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/fumiya-kume/repaircoord/pkg/errors"
)

func TestAnalysisContextAccessors(t *testing.T) {
	actx := AnalysisContext{
		"contract":       "I will call every Friday",
		"emergency":      "yes",
		"escalation":     true,
		"milestones":     4.0,
		"parties":        []any{"alex", map[string]any{"name": "sam"}},
		"communications": []any{map[string]any{"speaker": "alex", "text": "I'm sorry"}, "thank you"},
		"empty":          "  ",
	}

	assert.True(t, actx.Has("contract"))
	assert.False(t, actx.Has("empty"))
	assert.False(t, actx.Has("missing"))
	assert.True(t, actx.Bool("emergency"))
	assert.True(t, actx.Bool("escalation"))
	assert.False(t, actx.Bool("missing"))
	assert.Equal(t, 4, actx.Int("milestones", 0))
	assert.Equal(t, 7, actx.Int("missing", 7))
	assert.Equal(t, []string{"alex", "sam"}, actx.Parties())

	comms := actx.Communications()
	require.Len(t, comms, 2)
	assert.Equal(t, Communication{Speaker: "alex", Text: "I'm sorry"}, comms[0])
	assert.Equal(t, "thank you", comms[1].Text)
	assert.Equal(t, []string{"I'm sorry", "thank you"}, actx.Texts())
}

func TestAnalysisContextFromYAML(t *testing.T) {
	input := `
process_id: p-1
parties:
  - name: alex
  - name: sam
communications:
  - speaker: alex
    text: "I'm sorry I missed the call."
  - speaker: alex
    message: "It won't happen again."
  - speaker: sam
    text: "Okay."
meta:
  source:
    channel: email
`
	var actx AnalysisContext
	require.NoError(t, yaml.Unmarshal([]byte(input), &actx))

	assert.Equal(t, []string{"alex", "sam"}, actx.Parties())
	assert.Equal(t, []Communication{
		{Speaker: "alex", Text: "I'm sorry I missed the call."},
		{Speaker: "alex", Text: "It won't happen again."},
		{Speaker: "sam", Text: "Okay."},
	}, actx.Communications())
	assert.True(t, actx.Has("meta"))
	require.NoError(t, actx.Validate())

	meta, ok := actx["meta"].(map[string]any)
	require.True(t, ok, "nested mappings decode as map[string]any, got %T", actx["meta"])
	_, ok = meta["source"].(map[string]any)
	assert.True(t, ok, "deeper mappings decode as map[string]any, got %T", meta["source"])

	items, ok := actx["communications"].([]any)
	require.True(t, ok)
	_, ok = items[0].(map[string]any)
	assert.True(t, ok, "list items decode as map[string]any, got %T", items[0])
}

func TestAnalysisContextAcceptsNestedContexts(t *testing.T) {
	actx := AnalysisContext{
		"parties":        []any{AnalysisContext{"name": "alex"}, AnalysisContext{"name": "sam"}},
		"communications": []any{AnalysisContext{"speaker": "sam", "text": "hi"}},
		"meta":           AnalysisContext{"k": "v"},
	}

	assert.Equal(t, []string{"alex", "sam"}, actx.Parties())
	assert.Equal(t, []Communication{{Speaker: "sam", Text: "hi"}}, actx.Communications())
	assert.True(t, actx.Has("meta"))
	assert.False(t, AnalysisContext{"meta": AnalysisContext{}}.Has("meta"))

	clone := actx.Clone()
	clone["meta"].(map[string]any)["k"] = "changed"
	assert.Equal(t, "v", actx["meta"].(AnalysisContext)["k"])
}

func TestAnalysisContextFromJSON(t *testing.T) {
	var actx AnalysisContext
	require.NoError(t, json.Unmarshal([]byte(`{"parties":[{"name":"alex"},"sam"],"communications":[{"speaker":"alex","text":"sorry"}]}`), &actx))

	assert.Equal(t, []string{"alex", "sam"}, actx.Parties())
	assert.Equal(t, []Communication{{Speaker: "alex", Text: "sorry"}}, actx.Communications())
}

func TestAnalysisContextClone(t *testing.T) {
	actx := AnalysisContext{"parties": []any{"a", "b"}}
	clone := actx.Clone()
	clone["parties"].([]any)[0] = "z"
	clone["new"] = 1

	assert.Equal(t, "a", actx["parties"].([]any)[0])
	assert.NotContains(t, actx, "new")
}

func TestAnalysisContextValidate(t *testing.T) {
	tests := []struct {
		name    string
		actx    AnalysisContext
		wantErr bool
	}{
		{"empty", AnalysisContext{}, false},
		{"nil", nil, false},
		{"contract not string", AnalysisContext{"contract": 42}, true},
		{"communications map", AnalysisContext{"communications": map[string]any{"a": 1}}, true},
		{"parties string", AnalysisContext{"parties": "alex"}, true},
		{"valid", AnalysisContext{"contract": "x", "parties": []string{"a", "b"}, "communications": "hi"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.actx.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
		})
	}
}

func TestEventContext(t *testing.T) {
	actx := EventContext(Event{Type: "progress_update", Category: "progress", Payload: map[string]any{"process_id": "p-1"}})

	assert.Equal(t, "p-1", actx.String("process_id"))
	assert.Equal(t, "progress_update", actx.String("event_type"))
	assert.Equal(t, "progress", actx.String("event_category"))
}
