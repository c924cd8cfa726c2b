package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/rendis/nodeforge/internal/expressions"
	"github.com/rendis/nodeforge/internal/logging"
	"github.com/rendis/nodeforge/internal/search"
	"github.com/rendis/nodeforge/pkg/schema"
)

var actionsCmd = &cobra.Command{
	Use:   "actions [query]",
	Short: "Discover actions from the terminal",
	Long: `Lists actions by pin type (--pin), by class (--class, with --hierarchy for the
whole ancestor chain) or by keyword. Output is rendered markdown unless --json
is given.`,
	Example: `  nodeforge actions --pin real --filter add
  nodeforge actions --class Character --hierarchy --max 20
  nodeforge actions "print string" --where 'is_pure == false'`,
	RunE: runActions,
}

func init() {
	rootCmd.AddCommand(actionsCmd)
	f := actionsCmd.Flags()
	f.String("pin", "", "pin type to list compatible actions for")
	f.String("sub", "", "pin subcategory (class or struct name)")
	f.String("class", "", "class to list actions for")
	f.Bool("hierarchy", false, "include the ancestors of --class")
	f.String("filter", "", "text filter for --pin and --class")
	f.String("category", "", "category filter for keyword search")
	f.String("blueprint", "", "also offer this Blueprint's variables and functions")
	f.Int("max", 0, "maximum number of actions (default from config)")
	f.String("where", "", "predicate over action fields")
	f.Bool("json", false, "print the raw JSON result")
}

func runActions(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))

	a, err := newApp(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	flags := cmd.Flags()
	pin, _ := flags.GetString("pin")
	sub, _ := flags.GetString("sub")
	class, _ := flags.GetString("class")
	hierarchy, _ := flags.GetBool("hierarchy")
	filter, _ := flags.GetString("filter")
	category, _ := flags.GetString("category")
	blueprint, _ := flags.GetString("blueprint")
	limit, _ := flags.GetInt("max")
	where, _ := flags.GetString("where")
	asJSON, _ := flags.GetBool("json")

	q := search.Query{Search: filter, Category: category, MaxResults: limit}
	if where != "" {
		q.Where = expressions.NewPredicate(a.predicates, where, nil)
	}

	ctx := cmd.Context()
	var (
		heading string
		result  any
		res     schema.DiscoveryResult
	)
	switch {
	case class != "" && hierarchy:
		h := a.search.ActionsForClassHierarchy(ctx, class, q)
		heading, result, res = "Actions for "+class+" and its ancestors", h, h.DiscoveryResult
	case class != "":
		res = a.search.ActionsForClass(ctx, class, q)
		heading, result = "Actions for "+class, res
	case pin != "":
		res = a.search.ActionsForPin(ctx, pin, sub, q)
		heading, result = "Actions for "+pin+" pins", res
	default:
		if len(args) > 0 {
			q.Search = strings.Join(args, " ")
		}
		res = a.search.Search(ctx, q, blueprint)
		heading, result = "Search: "+q.Search, res
	}

	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return err
	}
	rendered, err := r.Render(actionsMarkdown(heading, res))
	if err != nil {
		return err
	}
	fmt.Fprint(out, rendered)
	return nil
}

// actionsMarkdown renders a discovery result as a markdown table.
func actionsMarkdown(heading string, res schema.DiscoveryResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", heading)
	switch {
	case res.Error != "":
		fmt.Fprintf(&b, "**Error:** %s\n", res.Error)
		return b.String()
	case res.Message != "":
		fmt.Fprintf(&b, "%s\n\n", res.Message)
	}
	if len(res.Actions) == 0 {
		return b.String()
	}

	b.WriteString("| Title | Category | Kind | Owner |\n|---|---|---|---|\n")
	for _, d := range res.Actions {
		fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
			escapeCell(d.Title), escapeCell(d.Category), d.NodeType, escapeCell(d.ClassName))
	}
	return b.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
