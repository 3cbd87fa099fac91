package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/operasoftware/revenueapi-go/internal/client"
	"github.com/operasoftware/revenueapi-go/internal/service"
)

var (
	uploadCSVPath    string
	uploadCSVContent string
	uploadReportDate string
	uploadJobID      string
	uploadOnly       bool
	jobStatusOnly    bool
	uploadProgress   bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload",
	Short: "Upload daily CSV revenue data",
	Long: `Upload locally produced CSV revenue data. The API processes uploads
asynchronously; by default this command submits the data and polls the
resulting job until it succeeds, fails, or the wait budget runs out.

To upload without waiting (check the job in a separate invocation):
  opera-revenue upload --upload-only --user me --token secret --csv-path revenue.csv
To check the status of a previously started upload:
  opera-revenue upload --job-status --user me --token secret --job-id job_id_from_previous_step
To upload synchronously and wait for the job to finish:
  opera-revenue upload --user me --token secret --csv-path revenue.csv`,
	RunE: runUpload,
}

func init() {
	f := uploadCmd.Flags()
	f.StringVar(&uploadCSVPath, "csv-path", "", "full path to the CSV file; cannot be combined with --csv-content")
	f.StringVar(&uploadCSVContent, "csv-content", "", "CSV file content; cannot be combined with --csv-path")
	f.StringVar(&uploadReportDate, "report-date", "", "report date in YYYY-MM-DD format (default today)")
	f.StringVar(&uploadJobID, "job-id", "", "id of a previously started upload, only with --job-status")
	f.BoolVar(&uploadOnly, "upload-only", false, "submit the upload without waiting for the job")
	f.BoolVar(&jobStatusOnly, "job-status", false, "check the status of a previously started upload")
	f.BoolVar(&uploadProgress, "progress", false, "render an interactive progress display while waiting")
	f.Duration("poll-interval", 5*time.Second, "interval between job status checks")
	f.Duration("max-wait", 15*time.Minute, "overall wait budget for the job")
	f.Int("max-attempts", 180, "maximum number of job status checks")
}

func runUpload(cmd *cobra.Command, args []string) error {
	if uploadOnly && jobStatusOnly {
		return errors.New("--upload-only and --job-status are mutually exclusive")
	}

	svc := service.NewUploadService(apiClient, service.WaitConfig{
		PollInterval: cfg.Upload.PollInterval,
		MaxWait:      cfg.Upload.MaxWait,
		MaxAttempts:  cfg.Upload.MaxAttempts,
	})
	ctx := cmd.Context()

	if jobStatusOnly {
		if uploadJobID == "" {
			return errors.New("--job-id is required with --job-status")
		}
		status, err := svc.Status(ctx, uploadJobID)
		if err != nil {
			return err
		}
		fmt.Printf("job %s: %s\n", uploadJobID, status)
		if status != client.StatusSucceeded {
			return fmt.Errorf("job %s has not succeeded (status %s)", uploadJobID, status)
		}
		return nil
	}

	payload, err := uploadPayload()
	if err != nil {
		return err
	}
	reportDate := time.Now()
	if uploadReportDate != "" {
		if reportDate, err = parseDate(uploadReportDate); err != nil {
			return fmt.Errorf("invalid --report-date: %w", err)
		}
	}

	if uploadOnly {
		jobID, err := svc.Submit(ctx, payload, reportDate)
		if err != nil {
			return err
		}
		fmt.Printf("upload started with job id %s\n", jobID)
		fmt.Printf("check it with: opera-revenue upload --job-status --job-id %s\n", jobID)
		return nil
	}

	if uploadProgress || term.IsTerminal(int(os.Stdout.Fd())) {
		return runUploadWithProgress(ctx, svc, payload, reportDate)
	}

	out, err := svc.SubmitAndWait(ctx, payload, reportDate)
	if err != nil {
		return err
	}
	fmt.Printf("job %s succeeded after %d status checks in %s\n",
		out.JobID, out.Attempts, out.Elapsed.Round(time.Second))
	return nil
}

// uploadPayload resolves the CSV payload from exactly one of the two
// payload flags.
func uploadPayload() (string, error) {
	switch {
	case uploadCSVPath != "" && uploadCSVContent != "":
		return "", errors.New("--csv-path and --csv-content are mutually exclusive")
	case uploadCSVContent != "":
		return uploadCSVContent, nil
	case uploadCSVPath != "":
		return client.ReadCSVFile(uploadCSVPath)
	default:
		return "", errors.New("one of --csv-path or --csv-content is required")
	}
}
