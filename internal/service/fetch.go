package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/operasoftware/revenueapi-go/internal/models"
)

// DataFetcher is the single capability the fetch workflow needs from
// the API client.
type DataFetcher interface {
	FetchData(ctx context.Context, start, end time.Time, source string) (*models.Dataset, error)
}

// FetchParams describes one fetch invocation. An empty OutputPath
// sends the CSV to standard output.
type FetchParams struct {
	Start      time.Time
	End        time.Time
	Source     string
	OutputPath string
}

// FetchService fetches revenue data once and renders it as CSV. There
// is no retry logic; client errors propagate unchanged.
type FetchService struct {
	api DataFetcher
	out io.Writer
}

// NewFetchService creates a fetch workflow writing to standard output
// by default.
func NewFetchService(api DataFetcher) *FetchService {
	return &FetchService{api: api, out: os.Stdout}
}

// SetOutput redirects the default CSV destination, mainly for tests.
func (s *FetchService) SetOutput(w io.Writer) {
	s.out = w
}

// Run performs one fetch and writes the resulting CSV. An existing
// output file is overwritten.
func (s *FetchService) Run(ctx context.Context, p FetchParams) error {
	ds, err := s.api.FetchData(ctx, p.Start, p.End, p.Source)
	if err != nil {
		return err
	}
	slog.Info("fetched revenue data", "source", p.Source, "rows", len(ds.Rows))

	if p.OutputPath == "" {
		return ds.WriteCSV(s.out)
	}

	f, err := os.Create(p.OutputPath)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	if err := ds.WriteCSV(f); err != nil {
		f.Close()
		return fmt.Errorf("write output file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close output file: %w", err)
	}
	slog.Info("wrote csv output", "path", p.OutputPath, "rows", len(ds.Rows))
	return nil
}
