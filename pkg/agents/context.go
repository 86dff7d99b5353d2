package agents

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/fumiya-kume/repaircoord/pkg/errors"
)

// Well-known context fields
const (
	FieldContract       = "contract"
	FieldCommunications = "communications"
	FieldStatement      = "statement"
	FieldParties        = "parties"
	FieldProcessID      = "process_id"
	FieldSpeaker        = "speaker"
	FieldStatus         = "status"
	FieldMilestones     = "milestones"
	FieldCompleted      = "completed_milestones"
	FieldDaysSince      = "days_since_update"
)

// AnalysisContext is the free-form input handed to every applicable agent.
// Agents must treat it as read-only.
type AnalysisContext map[string]any

// Communication is one utterance in a communications list
type Communication struct {
	Speaker string `json:"speaker" yaml:"speaker"`
	Text    string `json:"text" yaml:"text"`
}

// UnmarshalYAML decodes a mapping and stores nested mappings as plain
// map[string]any values, the same shape JSON decoding produces.
func (c *AnalysisContext) UnmarshalYAML(value *yaml.Node) error {
	var raw map[string]any
	if err := value.Decode(&raw); err != nil {
		return err
	}
	out := make(AnalysisContext, len(raw))
	for k, v := range raw {
		out[k] = plainValue(v)
	}
	*c = out
	return nil
}

func plainValue(v any) any {
	switch t := v.(type) {
	case AnalysisContext:
		return plainMap(t)
	case map[string]any:
		return plainMap(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, mv := range t {
			m[fmt.Sprint(k)] = plainValue(mv)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = plainValue(item)
		}
		return out
	}
	return v
}

func plainMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

// asMap accepts nested mappings built either as plain maps or as AnalysisContext values
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case AnalysisContext:
		return m, true
	}
	return nil, false
}

// Has reports whether key is present with a non-empty value
func (c AnalysisContext) Has(key string) bool {
	v, ok := c[key]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t) != ""
	case []any:
		return len(t) > 0
	case []string:
		return len(t) > 0
	}
	if m, ok := asMap(v); ok {
		return len(m) > 0
	}
	return true
}

// String returns the value for key as a string
func (c AnalysisContext) String(key string) string {
	switch v := c[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Bool interprets flags such as emergency: true or safety_concern: "yes"
func (c AnalysisContext) Bool(key string) bool {
	switch v := c[key].(type) {
	case bool:
		return v
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err == nil {
			return b
		}
		return strings.EqualFold(strings.TrimSpace(v), "yes")
	case int:
		return v != 0
	case float64:
		return v != 0
	}
	return false
}

// Int returns a numeric field, or def when absent or not numeric
func (c AnalysisContext) Int(key string, def int) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// Strings returns a list-valued field as strings. Map entries contribute their
// "name" or "text" field.
func (c AnalysisContext) Strings(key string) []string {
	switch v := c[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
				continue
			}
			if m, ok := asMap(item); ok {
				if name, ok := m["name"].(string); ok {
					out = append(out, name)
				} else if text, ok := m["text"].(string); ok {
					out = append(out, text)
				}
				continue
			}
			out = append(out, fmt.Sprint(item))
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []string{v}
	}
	return nil
}

// Parties returns the party names involved in the process
func (c AnalysisContext) Parties() []string {
	return c.Strings(FieldParties)
}

// Communications returns the communications list. A bare string is treated as
// a single unattributed message.
func (c AnalysisContext) Communications() []Communication {
	switch v := c[FieldCommunications].(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return []Communication{{Text: v}}
	case []string:
		out := make([]Communication, 0, len(v))
		for _, text := range v {
			out = append(out, Communication{Text: text})
		}
		return out
	case []any:
		out := make([]Communication, 0, len(v))
		for _, item := range v {
			if text, ok := item.(string); ok {
				out = append(out, Communication{Text: text})
				continue
			}
			if m, ok := asMap(item); ok {
				comm := Communication{}
				comm.Speaker, _ = m["speaker"].(string)
				comm.Text, _ = m["text"].(string)
				if comm.Text == "" {
					comm.Text, _ = m["message"].(string)
				}
				out = append(out, comm)
			}
		}
		return out
	}
	return nil
}

// Texts gathers every free-text field an emotional or mediation reading cares about
func (c AnalysisContext) Texts() []string {
	var texts []string
	if s := c.String(FieldStatement); strings.TrimSpace(s) != "" {
		texts = append(texts, s)
	}
	for _, comm := range c.Communications() {
		if strings.TrimSpace(comm.Text) != "" {
			texts = append(texts, comm.Text)
		}
	}
	return texts
}

// Clone returns a shallow copy with list and map values copied one level deep
func (c AnalysisContext) Clone() AnalysisContext {
	if c == nil {
		return nil
	}
	out := make(AnalysisContext, len(c))
	for k, v := range c {
		switch t := v.(type) {
		case []any:
			out[k] = append([]any(nil), t...)
		case []string:
			out[k] = append([]string(nil), t...)
		default:
			if src, ok := asMap(v); ok {
				m := make(map[string]any, len(src))
				for mk, mv := range src {
					m[mk] = mv
				}
				out[k] = m
			} else {
				out[k] = v
			}
		}
	}
	return out
}

// Validate rejects malformed well-known fields. An empty context is valid; no
// agent applies to it.
func (c AnalysisContext) Validate() error {
	if v, ok := c[FieldContract]; ok && v != nil {
		if _, isString := v.(string); !isString {
			return fieldError(FieldContract, "must be a string")
		}
	}

	if v, ok := c[FieldCommunications]; ok && v != nil {
		switch v.(type) {
		case string, []any, []string:
		default:
			return fieldError(FieldCommunications, "must be a list or a string")
		}
	}

	if v, ok := c[FieldParties]; ok && v != nil {
		switch v.(type) {
		case []any, []string:
		default:
			return fieldError(FieldParties, "must be a list")
		}
	}

	return nil
}

func fieldError(field, problem string) error {
	return errors.NewError(errors.ErrorTypeValidation).
		WithMessagef("context field %s %s", field, problem).
		WithSeverity(errors.SeverityLow).
		WithContext("field", field).
		WithSuggestion(fmt.Sprintf("Fix the %q field in the analysis context", field)).
		Build()
}
