// Package export writes diagnostic rules to interchange formats: JSON for
// round-trips between installations, CSV for spreadsheets, a plain-text
// report for printing, and a ZIP archive bundling one JSON file per rule.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/elicitlabs/elicit/pkg/errors"
	"github.com/elicitlabs/elicit/pkg/rule"
)

// Format identifies an export output format.
type Format string

// Supported export formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "text"
	FormatZip  Format = "zip"
)

// Formats lists the supported export formats.
var Formats = []Format{FormatJSON, FormatCSV, FormatText, FormatZip}

// Template selects which rule fields an export carries.
type Template string

// Export templates.
const (
	TemplateStandard Template = "standard" // rule data without metadata or snapshots
	TemplateMinimal  Template = "minimal"  // ID, text, and creation date only
	TemplateUsage    Template = "usage"    // usage statistics focus
	TemplateFull     Template = "full"     // everything, including pathway snapshots
)

// templateFields maps each template to the fields it exports. A nil entry
// means all fields.
var templateFields = map[Template][]string{
	TemplateStandard: {"rule_id", "text", "conditions", "actions", "created_date", "last_used", "use_count"},
	TemplateMinimal:  {"rule_id", "text", "created_date"},
	TemplateUsage:    {"rule_id", "text", "last_used", "use_count", "metadata"},
	TemplateFull:     nil,
}

// Info is the header block written at the top of structured exports.
type Info struct {
	Timestamp time.Time `json:"timestamp"`
	Format    Format    `json:"format"`
	Template  Template  `json:"template"`
	RuleCount int       `json:"rule_count"`
}

// Request describes one export: what to write, in which format and shape.
type Request struct {
	Rules    []*rule.Rule
	Format   Format
	Template Template
}

// Write performs the export to w.
func Write(w io.Writer, req Request) error {
	if req.Template == "" {
		req.Template = TemplateStandard
	}
	if _, ok := templateFields[req.Template]; !ok {
		return errors.New(errors.ErrCodeInvalidFormat, "unknown export template: %s", req.Template)
	}

	switch req.Format {
	case FormatJSON:
		return writeJSON(w, req)
	case FormatCSV:
		return writeCSV(w, req)
	case FormatText:
		return writeText(w, req)
	case FormatZip:
		return writeZip(w, req)
	default:
		return errors.New(errors.ErrCodeInvalidFormat, "unsupported export format: %s", req.Format)
	}
}

// jsonPayload is the envelope for JSON exports.
type jsonPayload struct {
	Info  Info                       `json:"export_info"`
	Rules map[string]json.RawMessage `json:"rules"`
}

func writeJSON(w io.Writer, req Request) error {
	rules := make(map[string]json.RawMessage, len(req.Rules))
	for _, r := range req.Rules {
		data, err := ruleJSON(r, req.Template)
		if err != nil {
			return err
		}
		rules[r.ID] = data
	}

	payload := jsonPayload{
		Info: Info{
			Timestamp: time.Now(),
			Format:    FormatJSON,
			Template:  req.Template,
			RuleCount: len(req.Rules),
		},
		Rules: rules,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(payload); err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	return nil
}

// ruleJSON serializes one rule, dropping the fields the template excludes.
func ruleJSON(r *rule.Rule, template Template) (json.RawMessage, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal rule %s: %w", r.ID, err)
	}

	fields := templateFields[template]
	if fields == nil {
		return data, nil
	}

	var full map[string]json.RawMessage
	if err := json.Unmarshal(data, &full); err != nil {
		return nil, fmt.Errorf("filter rule %s: %w", r.ID, err)
	}
	filtered := make(map[string]json.RawMessage, len(fields))
	for _, f := range fields {
		if v, ok := full[f]; ok {
			filtered[f] = v
		}
	}
	return json.Marshal(filtered)
}

// ReadJSON parses a JSON export payload back into rules, for imports.
func ReadJSON(r io.Reader) ([]*rule.Rule, Info, error) {
	var payload jsonPayload
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return nil, Info{}, fmt.Errorf("decode export: %w", err)
	}

	rules := make([]*rule.Rule, 0, len(payload.Rules))
	for id, raw := range payload.Rules {
		parsed, err := rule.Unmarshal(raw)
		if err != nil {
			return nil, Info{}, fmt.Errorf("rule %s: %w", id, err)
		}
		if parsed.ID == "" {
			parsed.ID = id
		}
		rules = append(rules, parsed)
	}
	return rules, payload.Info, nil
}
