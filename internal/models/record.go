// Package models defines the tabular revenue data structures shared by
// the API client and the workflows.
package models

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// RevenueRecord is one reported row, keyed by column name.
type RevenueRecord map[string]string

// Dataset is an ordered collection of revenue records. Columns keeps
// the first-seen column order so that rendering is deterministic.
type Dataset struct {
	Columns []string
	Rows    []RevenueRecord
}

// ParseCSV reads comma-separated data with a header row into a Dataset.
func ParseCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return &Dataset{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	ds := &Dataset{Columns: header}
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		record := make(RevenueRecord, len(header))
		for i, col := range header {
			if i < len(row) {
				record[col] = row[i]
			}
		}
		ds.Rows = append(ds.Rows, record)
	}
	return ds, nil
}

// WriteCSV renders the dataset with the header row first and one data
// row per record, in column order.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if len(d.Columns) > 0 {
		if err := cw.Write(d.Columns); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	row := make([]string, len(d.Columns))
	for i, record := range d.Rows {
		for j, col := range d.Columns {
			row[j] = record[col]
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalCSV renders the dataset as a CSV string.
func (d *Dataset) MarshalCSV() (string, error) {
	var sb strings.Builder
	if err := d.WriteCSV(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}
