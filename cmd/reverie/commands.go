package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cognicore/reverie/pkg/reverie"
	"github.com/cognicore/reverie/pkg/reverie/search"
	"github.com/cognicore/reverie/pkg/reverie/thought"
)

// withApp opens the app around fn and closes it afterwards.
func withApp(flags *rootFlags, fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := flags.open(cmd)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(cmd, a, args)
	}
}

func newAddCmd(flags *rootFlags) *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "add <text>",
		Short: "Record a thought",
		Long: `Record a thought. Without --category the thought is categorised
automatically.

Examples:
  reverie add "What if we moved the standup to Tuesdays?"
  reverie add --category task "Renew the passport"`,
		Args: cobra.MinimumNArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			var cat thought.Category
			if category != "" {
				parsed, err := thought.ParseCategory(category)
				if err != nil {
					return err
				}
				cat = parsed
			}
			t, err := a.engine.AddThought(cmd.Context(), strings.Join(args, " "), cat)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), t)
		}),
	}
	cmd.Flags().StringVar(&category, "category", "", "idea, feeling, memory, task, question, observation or reflection")
	return cmd
}

func newListCmd(flags *rootFlags) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List thoughts, newest first",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			ts, err := a.engine.ListThoughts(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), ts)
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tCATEGORY\tCONTENT")
			for _, t := range ts {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.CreatedAt.Format("2006-01-02 15:04"), t.Category, preview(t.Content, 60))
			}
			return w.Flush()
		}),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output results as JSON")
	return cmd
}

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a thought",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.engine.DeleteThought(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", args[0])
			return nil
		}),
	}
}

func newAnalyzeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <text>",
		Short: "Score the sentiment and emotions of text",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			content, err := thought.ValidateContent(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.engine.AnalyzeSentiment(content))
		}),
	}
}

func newCategorizeCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "categorize <text>",
		Short: "Suggest a category for text",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			content, err := thought.ValidateContent(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), a.engine.Categorize(cmd.Context(), content))
		}),
	}
}

func newClusterCmd(flags *rootFlags) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Show the cluster hierarchy",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			if refresh {
				h, err := a.engine.RefreshClusters(cmd.Context())
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), h)
			}
			h, err := a.engine.Hierarchy(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), h)
		}),
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Recompute clusters before printing")
	return cmd
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Find thoughts similar to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			results, err := a.engine.Search(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results)
		}),
	}
}

func newRelatedCmd(flags *rootFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "related <id>",
		Short: "Find thoughts related to a thought",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			results, err := a.engine.Related(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			return printResults(cmd.OutOrStdout(), results)
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of results (0 uses the configured limit)")
	return cmd
}

func newRecapCmd(flags *rootFlags) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "recap",
		Short: "Summarise recent thoughts",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			rc, err := a.engine.Recap(cmd.Context(), days)
			if err != nil {
				return err
			}
			if rc == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no thoughts in the recap window")
				return nil
			}
			return printJSON(cmd.OutOrStdout(), rc)
		}),
	}
	cmd.Flags().IntVar(&days, "days", 0, "Window size in days (0 uses the configured window)")
	return cmd
}

func newExportCmd(flags *rootFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole journal as JSON",
		Args:  cobra.NoArgs,
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, _ []string) error {
			dump, err := a.engine.Export(cmd.Context())
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				return printJSON(cmd.OutOrStdout(), dump)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			if err := printJSON(f, dump); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		}),
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Output file (stdout when empty)")
	return cmd
}

func newImportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the journal with an export file",
		Long: `Replace the journal with an export file. Use - to read stdin.
Nothing is written when any thought in the file is invalid.`,
		Args: cobra.ExactArgs(1),
		RunE: withApp(flags, func(cmd *cobra.Command, a *app, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open %s: %w", args[0], err)
				}
				defer f.Close()
				r = f
			}
			var dump reverie.Export
			if err := json.NewDecoder(r).Decode(&dump); err != nil {
				return fmt.Errorf("decode export: %w", err)
			}
			if err := a.engine.Import(cmd.Context(), dump); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d thoughts, %d clusters\n", len(dump.Thoughts), len(dump.Clusters))
			return nil
		}),
	}
}

func printResults(w io.Writer, results []search.Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCORE\tID\tCONTENT")
	for _, r := range results {
		fmt.Fprintf(tw, "%.3f\t%s\t%s\n", r.Score, r.Thought.ID, preview(r.Thought.Content, 60))
	}
	return tw.Flush()
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}
