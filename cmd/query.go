package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-generator/internal/model"
	"github.com/sells-group/lead-generator/internal/query"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the search queries a run would use",
	RunE: func(cmd *cobra.Command, _ []string) error {
		req, err := requestFromFlags(cmd)
		if err != nil {
			return err
		}
		queries, err := query.NewBuilder(nil).Build(req)
		if err != nil {
			return err
		}
		formatQueries(cmd.OutOrStdout(), queries)
		return nil
	},
}

func formatQueries(out io.Writer, queries []model.SearchQuery) {
	for i, q := range queries {
		_, _ = fmt.Fprintf(out, "%d. %s\n", i+1, q.ProviderString())
	}
}

func init() {
	addRequestFlags(queryCmd)
	rootCmd.AddCommand(queryCmd)
}
