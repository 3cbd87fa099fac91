package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/operasoftware/revenueapi-go/internal/service"
)

var (
	fetchStartDate  string
	fetchEndDate    string
	fetchSource     string
	fetchOutputFile string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch revenue data for a date range and render it as CSV",
	Long: `Fetch revenue records for a date range and data source and render
them as CSV, either to a file or to standard output.

Examples:
  opera-revenue fetch --user me --token secret \
      --start-date 2026-08-01 --end-date 2026-08-24 --source my_source
  opera-revenue fetch --user me --token secret \
      --start-date 2026-08-01 --end-date 2026-08-24 --source my_source \
      --csv-output-file revenue.csv`,
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVar(&fetchStartDate, "start-date", "", "start date in YYYY-MM-DD format")
	fetchCmd.Flags().StringVar(&fetchEndDate, "end-date", "", "end date in YYYY-MM-DD format")
	fetchCmd.Flags().StringVar(&fetchSource, "source", "", "data source name provided by Opera")
	fetchCmd.Flags().StringVar(&fetchOutputFile, "csv-output-file", "", "path to save the csv file, printed to stdout if unset")
	fetchCmd.MarkFlagRequired("start-date")
	fetchCmd.MarkFlagRequired("end-date")
	fetchCmd.MarkFlagRequired("source")
}

func runFetch(cmd *cobra.Command, args []string) error {
	start, err := parseDate(fetchStartDate)
	if err != nil {
		return fmt.Errorf("invalid --start-date: %w", err)
	}
	end, err := parseDate(fetchEndDate)
	if err != nil {
		return fmt.Errorf("invalid --end-date: %w", err)
	}

	svc := service.NewFetchService(apiClient)
	return svc.Run(cmd.Context(), service.FetchParams{
		Start:      start,
		End:        end,
		Source:     fetchSource,
		OutputPath: fetchOutputFile,
	})
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
