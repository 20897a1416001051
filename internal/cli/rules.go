package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/elicitlabs/elicit/pkg/collection"
	"github.com/elicitlabs/elicit/pkg/export"
	"github.com/elicitlabs/elicit/pkg/rule"
)

// rulesCommand creates the rule collection command group.
func (c *CLI) rulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Manage the rule collection",
	}

	cmd.AddCommand(c.rulesListCommand())
	cmd.AddCommand(c.rulesShowCommand())
	cmd.AddCommand(c.rulesUseCommand())
	cmd.AddCommand(c.rulesDuplicateCommand())
	cmd.AddCommand(c.rulesRemoveCommand())
	cmd.AddCommand(c.rulesStatsCommand())
	cmd.AddCommand(c.rulesValidateCommand())
	cmd.AddCommand(c.rulesExportCommand())
	cmd.AddCommand(c.rulesImportCommand())

	return cmd
}

// rulesListCommand creates the "rules list" subcommand.
func (c *CLI) rulesListCommand() *cobra.Command {
	var (
		query         string
		kind          string
		fields        string
		usage         string
		caseSensitive bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"search"},
		Short:   "List rules, optionally filtered",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				query = args[0]
			}

			coll, st, err := c.loadCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			rules := coll.Search(collection.SearchOptions{
				Query:         query,
				CaseSensitive: caseSensitive,
				Kind:          rule.Kind(kind),
				Fields:        collection.SearchFields(fields),
				Usage:         collection.UsageFilter(usage),
			})

			if len(rules) == 0 {
				printInfo("No rules match")
				return nil
			}
			for _, r := range rules {
				kindLabel := StyleDim.Render(fmt.Sprintf("[%s]", r.Kind()))
				fmt.Printf("%s %s %s\n", StyleHighlight.Render(shortRuleID(r.ID)), kindLabel, r.Summary(70))
			}
			printNewline()
			printDetail("%d of %d rules", len(rules), coll.Len())
			return nil
		},
	}

	cmd.Flags().StringVarP(&query, "query", "q", "", "text to search for")
	cmd.Flags().StringVar(&kind, "kind", "", "filter by kind: Pathway, Capture, Rule")
	cmd.Flags().StringVar(&fields, "fields", "", "search scope: text, conditions, actions")
	cmd.Flags().StringVar(&usage, "usage", "", "usage filter: never, at_least_one, frequent, recent")
	cmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "match case exactly")
	return cmd
}

// shortRuleID abbreviates a rule UUID for listing output.
func shortRuleID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// resolveRule finds a rule by full ID or unique prefix.
func resolveRule(coll *collection.Collection, ref string) (*rule.Rule, error) {
	if r, ok := coll.Get(ref); ok {
		return r, nil
	}
	var match *rule.Rule
	for _, r := range coll.Rules() {
		if strings.HasPrefix(r.ID, ref) {
			if match != nil {
				return nil, fmt.Errorf("%q is ambiguous", ref)
			}
			match = r
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no rule matches %q", ref)
	}
	return match, nil
}

// rulesShowCommand creates the "rules show" subcommand.
func (c *CLI) rulesShowCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <rule>",
		Short: "Print one rule in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, st, err := c.loadCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := resolveRule(coll, args[0])
			if err != nil {
				return err
			}

			if asJSON {
				data, err := rule.Marshal(r)
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			title := r.Name
			if title == "" {
				title = r.Summary(70)
			}
			fmt.Println(StyleTitle.Render(title))
			printKeyValue("ID", r.ID)
			printKeyValue("Kind", string(r.Kind()))
			if r.Description != "" {
				printKeyValue("Description", r.Description)
			}
			printKeyValue("Created", r.CreatedDate.Format("2006-01-02 15:04"))
			printKeyValue("Last used", r.FormattedLastUsed())
			printKeyValue("Use count", fmt.Sprintf("%d", r.UseCount))
			printNewline()
			fmt.Println(r.Text)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the rule as JSON")
	return cmd
}

// rulesUseCommand creates the "rules use" subcommand.
func (c *CLI) rulesUseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "use <rule>",
		Short: "Record that a rule was applied",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coll, st, err := c.loadCollection(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := resolveRule(coll, args[0])
			if err != nil {
				return err
			}
			coll.RecordUsage(r.ID)
			if err := st.Save(ctx, coll); err != nil {
				return err
			}
			printSuccess("Recorded usage (%d total)", r.UseCount)
			return nil
		},
	}
}

// rulesDuplicateCommand creates the "rules duplicate" subcommand.
func (c *CLI) rulesDuplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <rule>",
		Short: "Copy a rule with a fresh ID and reset usage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coll, st, err := c.loadCollection(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := resolveRule(coll, args[0])
			if err != nil {
				return err
			}
			copyID, _ := coll.DuplicateRule(r.ID)
			if err := st.Save(ctx, coll); err != nil {
				return err
			}
			printSuccess("Duplicated as %s", StyleHighlight.Render(copyID))
			return nil
		},
	}
}

// rulesRemoveCommand creates the "rules remove" subcommand.
func (c *CLI) rulesRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <rule>",
		Short: "Delete a rule from the collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			coll, st, err := c.loadCollection(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			r, err := resolveRule(coll, args[0])
			if err != nil {
				return err
			}
			coll.Remove(r.ID)
			if err := st.Save(ctx, coll); err != nil {
				return err
			}
			printSuccess("Removed rule %s", shortRuleID(r.ID))
			return nil
		},
	}
}

// rulesStatsCommand creates the "rules stats" subcommand.
func (c *CLI) rulesStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print collection statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, st, err := c.loadCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			stats := coll.Stats()
			fmt.Println(StyleTitle.Render(coll.Name))
			printKeyValue("Rules", fmt.Sprintf("%d", stats.TotalRules))
			for kind, count := range stats.RuleCountsByKind {
				printKeyValue("  "+string(kind), fmt.Sprintf("%d", count))
			}
			printKeyValue("Never used", fmt.Sprintf("%d", stats.Usage.NeverUsed))
			printKeyValue("Used once", fmt.Sprintf("%d", stats.Usage.UsedOnce))
			printKeyValue("Used often", fmt.Sprintf("%d", stats.Usage.UsedMultiple))
			if stats.LatestUsage != nil {
				printKeyValue("Last activity", stats.LatestUsage.Format("2006-01-02 15:04"))
			}

			recent := coll.RecentlyUsed(3)
			if len(recent) > 0 {
				printNewline()
				fmt.Println(StyleDim.Render("Recently used"))
				for _, r := range recent {
					fmt.Printf("  %s %s\n", StyleHighlight.Render(shortRuleID(r.ID)), r.Summary(60))
				}
			}
			return nil
		},
	}
}

// rulesValidateCommand creates the "rules validate" subcommand.
func (c *CLI) rulesValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate every rule in the collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, st, err := c.loadCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			issues := 0
			for id, report := range coll.ValidateAll() {
				for _, group := range [][]string{report.Conditions, report.Actions, report.General} {
					for _, msg := range group {
						printWarning("%s: %s", shortRuleID(id), msg)
						issues++
					}
				}
			}
			if issues == 0 {
				printSuccess("All %d rules are valid", coll.Len())
				return nil
			}
			return fmt.Errorf("%d validation issues", issues)
		},
	}
}

// rulesExportCommand creates the "rules export" subcommand.
func (c *CLI) rulesExportCommand() *cobra.Command {
	var (
		format   string
		template string
		out      string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export rules to JSON, CSV, text, or a ZIP archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			coll, st, err := c.loadCollection(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			w := os.Stdout
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			req := export.Request{
				Rules:    coll.Rules(),
				Format:   export.Format(format),
				Template: export.Template(template),
			}
			if err := export.Write(w, req); err != nil {
				return err
			}
			if out != "" {
				printSuccess("Exported %d rules", len(req.Rules))
				printFile(out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json, csv, text, zip")
	cmd.Flags().StringVarP(&template, "template", "t", "standard", "field template: standard, minimal, usage, full")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

// rulesImportCommand creates the "rules import" subcommand. It accepts both
// collection interchange payloads and JSON exports.
func (c *CLI) rulesImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import rules from a JSON export or interchange payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			coll, st, err := c.loadCollection(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			payload, err := parseImport(data)
			if err != nil {
				return err
			}
			added, updated := coll.Import(payload)
			if err := st.Save(ctx, coll); err != nil {
				return err
			}
			printSuccess("Imported %d new, updated %d", added, updated)
			return nil
		},
	}
}

// parseImport decodes an import file. Collection interchange payloads and
// export payloads share the rules-by-ID shape, so one decode covers both.
func parseImport(data []byte) (collection.ExportPayload, error) {
	var payload collection.ExportPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return payload, fmt.Errorf("parse import file: %w", err)
	}
	if len(payload.Rules) == 0 {
		return payload, fmt.Errorf("import file contains no rules")
	}
	if payload.ExportDate.IsZero() {
		payload.ExportDate = time.Now()
	}
	return payload, nil
}
