package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gsclens/gsclens/internal/format"
	"github.com/gsclens/gsclens/internal/gsc"
	"github.com/gsclens/gsclens/internal/models"
	"github.com/spf13/cobra"
)

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:     "query",
	Aliases: []string{"q", "report"},
	Short:   "Run a search-analytics report from the command line",
	Long: `Run a search-analytics query against the configured property and print
the resulting rows.

Examples:
  # Top queries for the last 28 days
  gsclens query

  # Top pages for a fixed range
  gsclens query --dimensions page --start 2026-07-01 --end 2026-07-31

  # Queries and pages together, as JSON
  gsclens query --dimensions query,page --json`,
	RunE: runQuery,
}

var queryFlags struct {
	Start      string
	End        string
	Dimensions string
	SearchType string
	RowLimit   int
	Days       int
}

func init() {
	queryCmd.Flags().StringVar(&queryFlags.Start, "start", "", "Start date (YYYY-MM-DD)")
	queryCmd.Flags().StringVar(&queryFlags.End, "end", "", "End date (YYYY-MM-DD)")
	queryCmd.Flags().StringVar(&queryFlags.Dimensions, "dimensions", "query", "Comma-separated dimensions (date,query,page,country,device)")
	queryCmd.Flags().StringVar(&queryFlags.SearchType, "search-type", "", "Search type (overrides config)")
	queryCmd.Flags().IntVar(&queryFlags.RowLimit, "rows", 20, "Maximum rows to print")
	queryCmd.Flags().IntVar(&queryFlags.Days, "days", 28, "Period length when no dates are given")

	RootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	client, _, cache, err := buildClient(cfg, quietLogger())
	if err != nil {
		return err
	}
	if cache != nil {
		defer cache.Close()
	}

	start, end := queryFlags.Start, queryFlags.End
	if start == "" || end == "" {
		start, end = defaultDateRange(queryFlags.Days)
	}

	searchType := queryFlags.SearchType
	if searchType == "" {
		searchType = cfg.Property.SearchType
	}

	dims := strings.Split(queryFlags.Dimensions, ",")
	for i := range dims {
		dims[i] = strings.TrimSpace(dims[i])
	}

	rows, err := client.Query(context.Background(), gsc.QueryRequest{
		StartDate:  start,
		EndDate:    end,
		Dimensions: dims,
		SearchType: searchType,
		RowLimit:   queryFlags.RowLimit,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if globalFlags.JSON {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	printReportTable(dims, rows, start, end)
	return nil
}

func printReportTable(dims []string, rows []models.ReportRow, start, end string) {
	totals := models.Summarize(rows)
	fmt.Printf("Report %s .. %s (%d rows)\n", start, end, len(rows))
	fmt.Printf("Totals: %s clicks, %s impressions, CTR %s, position %s\n\n",
		format.Number(float64(totals.Clicks)),
		format.Number(float64(totals.Impressions)),
		format.CTR(totals.CTR),
		format.Position(totals.Position),
	)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	header := append(append([]string{}, dims...), "clicks", "impressions", "ctr", "position")
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, row := range rows {
		cols := make([]string, 0, len(dims)+4)
		for _, d := range dims {
			cols = append(cols, row.Key(d))
		}
		cols = append(cols,
			fmt.Sprintf("%d", row.Clicks),
			fmt.Sprintf("%d", row.Impressions),
			format.CTR(row.CTR),
			format.Position(row.Position),
		)
		fmt.Fprintln(w, strings.Join(cols, "\t"))
	}
	w.Flush()
}
