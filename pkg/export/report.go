package export

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// writeText renders a plain-text report suitable for printing or pasting
// into a work order: one block per rule with its text and usage history.
func writeText(w io.Writer, req Request) error {
	var b strings.Builder

	b.WriteString("DIAGNOSTIC RULES REPORT\n")
	b.WriteString("=======================\n")
	fmt.Fprintf(&b, "Generated: %s\n", time.Now().Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Rules: %d\n\n", len(req.Rules))

	for i, r := range req.Rules {
		fmt.Fprintf(&b, "--- Rule %d of %d ---\n", i+1, len(req.Rules))
		if r.Name != "" {
			fmt.Fprintf(&b, "Name: %s\n", r.Name)
		}
		fmt.Fprintf(&b, "ID: %s\n", r.ID)
		fmt.Fprintf(&b, "Kind: %s\n", r.Kind())
		if r.Description != "" {
			fmt.Fprintf(&b, "Description: %s\n", r.Description)
		}
		b.WriteString("\n")
		b.WriteString(r.Text)
		b.WriteString("\n\n")
		fmt.Fprintf(&b, "Used %d time(s), last used %s\n", r.UseCount, r.FormattedLastUsed())
		fmt.Fprintf(&b, "Created %s\n\n", r.CreatedDate.Format("2006-01-02"))
	}

	_, err := io.WriteString(w, b.String())
	return err
}
