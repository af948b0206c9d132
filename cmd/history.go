package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect and manage the lead history",
	Long:  "Commands for listing, searching, deleting, and summarizing companies recorded by previous runs.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := rootCmd.PersistentPreRunE(cmd, args); err != nil {
			return err
		}
		return cfg.Validate("history")
	},
}

// -- history list --

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded companies, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		records, err := st.List(ctx, limit, offset)
		if err != nil {
			return eris.Wrap(err, "history list")
		}
		total, err := st.Count(ctx)
		if err != nil {
			return eris.Wrap(err, "history count")
		}

		if len(records) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "No history found.")
			return nil
		}
		formatHistoryList(cmd.OutOrStdout(), records)
		fmt.Fprintf(cmd.ErrOrStderr(), "\nShowing %d of %d companies.\n", len(records), total)
		return nil
	},
}

// -- history search --

var historySearchCmd = &cobra.Command{
	Use:   "search <term>",
	Short: "Search recorded companies by name, URL, industry, or location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		records, err := st.Search(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "history search")
		}
		if len(records) == 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "No companies match %q.\n", args[0])
			return nil
		}
		formatHistoryList(cmd.OutOrStdout(), records)
		return nil
	},
}

// -- history delete --

var historyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete a company by URL, or every company on a domain",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		url, _ := cmd.Flags().GetString("url")
		domain, _ := cmd.Flags().GetString("domain")

		if url != "" {
			ok, err := st.DeleteByURL(ctx, url)
			if err != nil {
				return eris.Wrap(err, "history delete")
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "No record for %s.\n", url)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", url)
			return nil
		}

		n, err := st.DeleteByDomain(ctx, domain)
		if err != nil {
			return eris.Wrap(err, "history delete")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d record(s) for %s.\n", n, domain)
		return nil
	},
}

// -- history clear --

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every recorded company",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return eris.New("refusing to clear history without --yes")
		}
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.ClearAll(ctx)
		if err != nil {
			return eris.Wrap(err, "history clear")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d record(s).\n", n)
		return nil
	},
}

// -- history stats --

var historyStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show history totals and top industries and locations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := st.Stats(ctx)
		if err != nil {
			return eris.Wrap(err, "history stats")
		}

		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(stats)
		}
		formatHistoryStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

// formatHistoryList writes a tabular list of history records to out.
func formatHistoryList(out io.Writer, records []model.HistoryRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCOMPANY\tDOMAIN\tINDUSTRY\tLOCATION\tEMAIL\tADDED")
	_, _ = fmt.Fprintln(w, "--\t-------\t------\t--------\t--------\t-----\t-----")

	for _, r := range records {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID,
			truncate(r.CompanyName, 30),
			r.Domain,
			truncate(r.Industry, 20),
			truncate(r.Location, 20),
			r.Email,
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// formatHistoryStats writes the history summary to out.
func formatHistoryStats(out io.Writer, s *model.HistoryStats) {
	_, _ = fmt.Fprintf(out, "Total companies: %d\n", s.TotalCompanies)
	if s.LastAdded != nil {
		_, _ = fmt.Fprintf(out, "Last added:      %s\n", s.LastAdded.Format("2006-01-02 15:04"))
	}

	writeCounts := func(title string, counts []model.NamedCount) {
		if len(counts) == 0 {
			return
		}
		_, _ = fmt.Fprintf(out, "\n%s:\n", title)
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		for _, c := range counts {
			_, _ = fmt.Fprintf(w, "  %s\t%d\n", c.Name, c.Count)
		}
		_ = w.Flush()
	}
	writeCounts("Top industries", s.TopIndustries)
	writeCounts("Top locations", s.TopLocations)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func init() {
	historyListCmd.Flags().Int("limit", store.DefaultListLimit, "max records to show")
	historyListCmd.Flags().Int("offset", 0, "records to skip")

	historyDeleteCmd.Flags().String("url", "", "delete the record with this URL")
	historyDeleteCmd.Flags().String("domain", "", "delete every record on this domain")
	historyDeleteCmd.MarkFlagsOneRequired("url", "domain")
	historyDeleteCmd.MarkFlagsMutuallyExclusive("url", "domain")

	historyClearCmd.Flags().Bool("yes", false, "confirm deleting all history")

	historyStatsCmd.Flags().Bool("json", false, "print stats as JSON")

	historyCmd.AddCommand(historyListCmd, historySearchCmd, historyDeleteCmd, historyClearCmd, historyStatsCmd)
	rootCmd.AddCommand(historyCmd)
}
