package export

import (
	"archive/zip"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/elicitlabs/elicit/pkg/rule"
)

// csvColumns are the flat columns a CSV export can carry, in output order.
// Structured fields (conditions, actions, metadata) are embedded as JSON
// strings, matching what the desktop tooling wrote.
var csvColumns = []string{
	"rule_id", "name", "text", "conditions", "actions",
	"created_date", "last_modified_date", "last_used", "use_count", "metadata",
}

func writeCSV(w io.Writer, req Request) error {
	fields := templateFields[req.Template]
	columns := csvColumns
	if fields != nil {
		columns = nil
		for _, col := range csvColumns {
			for _, f := range fields {
				if col == f {
					columns = append(columns, col)
				}
			}
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(columns); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, r := range req.Rules {
		row := make([]string, len(columns))
		for i, col := range columns {
			row[i] = csvValue(r, col)
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", r.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvValue renders one rule field as a CSV cell.
func csvValue(r *rule.Rule, column string) string {
	switch column {
	case "rule_id":
		return r.ID
	case "name":
		return r.Name
	case "text":
		return r.Text
	case "conditions":
		return jsonCell(r.Conditions)
	case "actions":
		return jsonCell(r.Actions)
	case "created_date":
		return r.CreatedDate.Format("2006-01-02T15:04:05Z07:00")
	case "last_modified_date":
		return r.LastModifiedDate.Format("2006-01-02T15:04:05Z07:00")
	case "last_used":
		if r.LastUsed == nil {
			return ""
		}
		return r.LastUsed.Format("2006-01-02T15:04:05Z07:00")
	case "use_count":
		return fmt.Sprintf("%d", r.UseCount)
	case "metadata":
		return jsonCell(r.Metadata)
	default:
		return ""
	}
}

func jsonCell(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// writeZip bundles one pretty-printed JSON file per rule plus an
// export_info.json header into a ZIP archive.
func writeZip(w io.Writer, req Request) error {
	zw := zip.NewWriter(w)

	info := Info{
		Format:    FormatZip,
		Template:  req.Template,
		RuleCount: len(req.Rules),
	}
	infoFile, err := zw.Create("export_info.json")
	if err != nil {
		return fmt.Errorf("create export_info.json: %w", err)
	}
	infoData, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal export info: %w", err)
	}
	if _, err := infoFile.Write(infoData); err != nil {
		return fmt.Errorf("write export_info.json: %w", err)
	}

	sorted := append([]*rule.Rule(nil), req.Rules...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	for _, r := range sorted {
		f, err := zw.Create(fmt.Sprintf("rules/%s.json", r.ID))
		if err != nil {
			return fmt.Errorf("create entry for %s: %w", r.ID, err)
		}
		data, err := ruleJSON(r, req.Template)
		if err != nil {
			return err
		}
		var pretty []byte
		if pretty, err = json.MarshalIndent(json.RawMessage(data), "", "  "); err != nil {
			return fmt.Errorf("format rule %s: %w", r.ID, err)
		}
		if _, err := f.Write(pretty); err != nil {
			return fmt.Errorf("write entry for %s: %w", r.ID, err)
		}
	}

	return zw.Close()
}
