package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/elicitlabs/elicit/pkg/pathway"
	"github.com/elicitlabs/elicit/pkg/rule"
)

// pathwayCommand creates the pathway authoring command group. Pathways are
// edited as JSON snapshot files on disk; the collection only sees them once
// they are converted to rules.
func (c *CLI) pathwayCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pathway",
		Short: "Create and edit diagnostic pathways",
	}

	cmd.AddCommand(c.pathwayNewCommand())
	cmd.AddCommand(c.pathwayShowCommand())
	cmd.AddCommand(c.pathwayAddNodeCommand())
	cmd.AddCommand(c.pathwayConnectCommand())
	cmd.AddCommand(c.pathwayDisconnectCommand())
	cmd.AddCommand(c.pathwayRemoveNodeCommand())
	cmd.AddCommand(c.pathwayLayoutCommand())
	cmd.AddCommand(c.pathwayClearCommand())
	cmd.AddCommand(c.pathwayDuplicateCommand())
	cmd.AddCommand(c.pathwayValidateCommand())
	cmd.AddCommand(c.pathwayRuleCommand())

	return cmd
}

// pathwayNewCommand creates the "pathway new" subcommand.
func (c *CLI) pathwayNewCommand() *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "new <file>",
		Short: "Create an empty pathway file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := pathway.New(name)
			p.Description = description
			p.Layout = c.Config.Layout

			if err := pathway.WriteFile(p, args[0]); err != nil {
				return err
			}
			printSuccess("Created pathway %q", p.Name)
			printFile(args[0])
			printNextStep("Add a problem node", fmt.Sprintf("%s pathway add-node %s --type problem --content '...'", appName, args[0]))
			return nil
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "New Pathway", "pathway name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "pathway description")
	return cmd
}

// pathwayShowCommand creates the "pathway show" subcommand.
func (c *CLI) pathwayShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <file>",
		Short: "Print a pathway's nodes and connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pathway.ReadFile(args[0])
			if err != nil {
				return err
			}

			fmt.Println(StyleTitle.Render(p.Name))
			if p.Description != "" {
				printDetail("%s", p.Description)
			}
			printNewline()

			for _, t := range []pathway.NodeType{pathway.TypeProblem, pathway.TypeCheck, pathway.TypeCondition, pathway.TypeAction} {
				nodes := p.NodesByType(t)
				if len(nodes) == 0 {
					continue
				}
				fmt.Printf("%s (%d)\n", styleNodeType(t), len(nodes))
				ids := make([]string, 0, len(nodes))
				for id := range nodes {
					ids = append(ids, id)
				}
				sort.Strings(ids)
				for _, id := range ids {
					n := nodes[id]
					content := n.Content
					if content == "" {
						content = StyleDim.Render("(empty)")
					}
					fmt.Printf("  %s %s\n", StyleDim.Render(n.ShortID()), content)
					for _, target := range n.Connections {
						if tn, ok := p.Node(target); ok {
							printDetail("%s %s", iconArrow, tn.ShortID())
						}
					}
				}
			}

			printNewline()
			printStats(p.NodeCount(), p.ConnectionCount(), false)
			return nil
		},
	}
}

// pathwayAddNodeCommand creates the "pathway add-node" subcommand.
func (c *CLI) pathwayAddNodeCommand() *cobra.Command {
	var (
		nodeType      string
		content       string
		checkType     string
		severity      string
		impact        string
		effectiveness int
	)

	cmd := &cobra.Command{
		Use:   "add-node <file>",
		Short: "Add a node to a pathway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pathway.ReadFile(args[0])
			if err != nil {
				return err
			}

			n, err := p.AddNode(pathway.NodeType(nodeType), nil)
			if err != nil {
				return err
			}
			n.Content = content
			if checkType != "" {
				n.SetCheckType(checkType)
			}
			if severity != "" {
				n.SetSeverity(severity)
			}
			if impact != "" {
				n.SetImpact(impact)
			}
			if effectiveness != 0 {
				n.SetEffectiveness(effectiveness)
			}

			if err := pathway.WriteFile(p, args[0]); err != nil {
				return err
			}
			printSuccess("Added %s node %s", nodeType, StyleHighlight.Render(n.ShortID()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&nodeType, "type", "t", "problem", "node type: problem, check, condition, action")
	cmd.Flags().StringVar(&content, "content", "", "node content text")
	cmd.Flags().StringVar(&checkType, "check", "", "check type (check nodes)")
	cmd.Flags().StringVar(&severity, "severity", "", "severity (condition nodes)")
	cmd.Flags().StringVar(&impact, "impact", "", "impact (action nodes)")
	cmd.Flags().IntVar(&effectiveness, "effectiveness", 0, "effectiveness 1-5 (action nodes)")
	return cmd
}

// resolveNode finds a node by full or short ID prefix.
func resolveNode(p *pathway.Pathway, ref string) (string, error) {
	if _, ok := p.Node(ref); ok {
		return ref, nil
	}
	var matches []string
	for _, id := range p.NodeIDs() {
		if strings.HasPrefix(id, ref) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return "", fmt.Errorf("no node matches %q", ref)
	default:
		return "", fmt.Errorf("%q is ambiguous (%d matches)", ref, len(matches))
	}
}

// pathwayConnectCommand creates the "pathway connect" subcommand.
func (c *CLI) pathwayConnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "connect <file> <source> <target>",
		Short: "Connect two nodes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editConnection(args, true)
		},
	}
}

// pathwayDisconnectCommand creates the "pathway disconnect" subcommand.
func (c *CLI) pathwayDisconnectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "disconnect <file> <source> <target>",
		Short: "Remove the connection between two nodes",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.editConnection(args, false)
		},
	}
}

func (c *CLI) editConnection(args []string, connect bool) error {
	p, err := pathway.ReadFile(args[0])
	if err != nil {
		return err
	}
	source, err := resolveNode(p, args[1])
	if err != nil {
		return err
	}
	target, err := resolveNode(p, args[2])
	if err != nil {
		return err
	}

	var ok bool
	var verb string
	if connect {
		ok = p.Connect(source, target)
		verb = "Connected"
	} else {
		ok = p.Disconnect(source, target)
		verb = "Disconnected"
	}
	if !ok {
		printWarning("No change: connection state already as requested")
		return nil
	}

	if err := pathway.WriteFile(p, args[0]); err != nil {
		return err
	}
	printSuccess("%s %s %s %s", verb, args[1], iconArrow, args[2])
	return nil
}

// pathwayRemoveNodeCommand creates the "pathway remove-node" subcommand.
func (c *CLI) pathwayRemoveNodeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "remove-node <file> <node>",
		Short: "Remove a node and its connections",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pathway.ReadFile(args[0])
			if err != nil {
				return err
			}
			id, err := resolveNode(p, args[1])
			if err != nil {
				return err
			}
			p.RemoveNode(id)
			if err := pathway.WriteFile(p, args[0]); err != nil {
				return err
			}
			printSuccess("Removed node %s", args[1])
			return nil
		},
	}
}

// pathwayLayoutCommand creates the "pathway layout" subcommand.
func (c *CLI) pathwayLayoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "layout <file>",
		Short: "Reposition every node into its type column",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pathway.ReadFile(args[0])
			if err != nil {
				return err
			}
			p.Layout = c.Config.Layout
			p.AutoLayout()
			if err := pathway.WriteFile(p, args[0]); err != nil {
				return err
			}
			printSuccess("Laid out %d nodes", p.NodeCount())
			return nil
		},
	}
}

// pathwayClearCommand creates the "pathway clear" subcommand.
func (c *CLI) pathwayClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <file>",
		Short: "Remove all nodes from a pathway",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pathway.ReadFile(args[0])
			if err != nil {
				return err
			}
			count := p.NodeCount()
			p.Clear()
			if err := pathway.WriteFile(p, args[0]); err != nil {
				return err
			}
			printSuccess("Removed %d nodes", count)
			return nil
		},
	}
}

// pathwayDuplicateCommand creates the "pathway duplicate" subcommand.
func (c *CLI) pathwayDuplicateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "duplicate <file> <out>",
		Short: "Copy a pathway to a new file with fresh IDs",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pathway.ReadFile(args[0])
			if err != nil {
				return err
			}
			copied := p.Duplicate()
			if err := pathway.WriteFile(copied, args[1]); err != nil {
				return err
			}
			printSuccess("Duplicated %q", p.Name)
			printFile(args[1])
			return nil
		},
	}
}

// pathwayValidateCommand creates the "pathway validate" subcommand.
func (c *CLI) pathwayValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a pathway for structural problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pathway.ReadFile(args[0])
			if err != nil {
				return err
			}

			report := p.Validate()
			cycles := p.DetectCycles()

			issues := 0
			for _, group := range []struct {
				category string
				messages []string
			}{
				{"nodes", report.Nodes},
				{"connections", report.Connections},
				{"structure", report.Structure},
			} {
				for _, msg := range group.messages {
					printWarning("%s: %s", group.category, msg)
					issues++
				}
			}
			for _, cycle := range cycles {
				shorts := make([]string, len(cycle))
				for i, id := range cycle {
					if n, ok := p.Node(id); ok {
						shorts[i] = n.ShortID()
					} else {
						shorts[i] = id
					}
				}
				printWarning("cycle: %s", strings.Join(shorts, " "+iconArrow+" "))
				issues++
			}

			if issues == 0 {
				printSuccess("Pathway is valid")
				return nil
			}
			return fmt.Errorf("%d validation issues", issues)
		},
	}
}

// pathwayRuleCommand creates the "pathway rule" subcommand, which converts a
// pathway into an IF/THEN rule and optionally saves it to the collection.
func (c *CLI) pathwayRuleCommand() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "rule <file>",
		Short: "Convert a pathway into an IF/THEN rule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pathway.ReadFile(args[0])
			if err != nil {
				return err
			}

			r := rule.FromPathway(p)
			fmt.Println(r.Text)

			if !save {
				return nil
			}

			ctx := cmd.Context()
			coll, st, err := c.loadCollection(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			coll.Add(r)
			if err := st.Save(ctx, coll); err != nil {
				return err
			}
			printNewline()
			printSuccess("Saved rule %s", StyleHighlight.Render(r.ID))
			printNextStep("Inspect it", fmt.Sprintf("%s rules show %s", appName, r.ID))
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", false, "add the rule to the collection")
	return cmd
}
