package audit

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/thoas/go-funk"
	"github.com/xuri/excelize/v2"

	"github.com/wipeguard/wipeguard/internal/store"
	"github.com/wipeguard/wipeguard/internal/store/model"
)

const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
	FormatXLSX = "xlsx"

	exportBatchSize = 500
)

var legalExportFormats = []string{FormatJSON, FormatCSV, FormatText, FormatXLSX}

var exportContentTypes = map[string]string{
	FormatJSON: "application/json",
	FormatCSV:  "text/csv",
	FormatText: "text/plain",
	FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

var exportHeader = []string{"id", "timestamp", "action", "category", "severity", "job_id", "customer", "target", "details", "checksum"}

// ExportContentType returns the media type served for a given export format.
func ExportContentType(format string) string {
	return exportContentTypes[format]
}

// LegalExportFormat reports whether the format is one of json, csv, text, xlsx.
func LegalExportFormat(format string) bool {
	return funk.Contains(legalExportFormats, format)
}

// Export renders every entry matching the filter in the requested format.
// All fields of each entry are included, the checksum too.
func (t *Trail) Export(ctx context.Context, format string, filter Filter) ([]byte, error) {
	if !LegalExportFormat(format) {
		return nil, fmt.Errorf("unsupported export format %q, must be one of %v", format, legalExportFormats)
	}

	var all model.AuditEntryList
	for page := 1; ; page++ {
		opts := store.NewAuditQueryOptions().WithNewestFirst().WithPagination(page, exportBatchSize)
		entries, err := t.store.Audit().List(ctx, filterToQuery(filter), opts)
		if err != nil {
			return nil, err
		}
		all = append(all, entries...)
		if len(entries) < exportBatchSize {
			break
		}
	}

	switch format {
	case FormatJSON:
		return exportJSON(all)
	case FormatCSV:
		return exportCSV(all)
	case FormatText:
		return exportText(all)
	case FormatXLSX:
		return exportXLSX(all)
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

type exportedEntry struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	Action    string         `json:"action"`
	Category  string         `json:"category"`
	Severity  string         `json:"severity"`
	JobID     string         `json:"jobId,omitempty"`
	Customer  string         `json:"customer,omitempty"`
	Target    string         `json:"target,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	Checksum  string         `json:"checksum"`
}

func exportJSON(entries model.AuditEntryList) ([]byte, error) {
	out := make([]exportedEntry, 0, len(entries))
	for _, e := range entries {
		row := entryRow(e)
		exported := exportedEntry{
			ID:        row[0],
			Timestamp: row[1],
			Action:    row[2],
			Category:  row[3],
			Severity:  row[4],
			JobID:     row[5],
			Customer:  row[6],
			Target:    row[7],
			Checksum:  row[9],
		}
		if e.Details != nil {
			exported.Details = e.Details.Data
		}
		out = append(out, exported)
	}
	return json.MarshalIndent(out, "", "  ")
}

func exportCSV(entries model.AuditEntryList) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(exportHeader); err != nil {
		return nil, errors.Wrap(err, "writing csv header")
	}
	for _, e := range entries {
		if err := w.Write(entryRow(e)); err != nil {
			return nil, errors.Wrap(err, "writing csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportText(entries model.AuditEntryList) ([]byte, error) {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, "TIMESTAMP\tSEVERITY\tCATEGORY\tACTION\tJOB\tCUSTOMER\tTARGET\tDETAILS\tCHECKSUM")
	for _, e := range entries {
		row := entryRow(e)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			row[1], row[4], row[3], row[2], row[5], row[6], row[7], row[8], row[9])
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exportXLSX(entries model.AuditEntryList) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	const sheet = "Audit Trail"
	idx, err := f.NewSheet(sheet)
	if err != nil {
		return nil, errors.Wrap(err, "creating audit sheet")
	}
	f.SetActiveSheet(idx)
	_ = f.DeleteSheet("Sheet1")

	for col, name := range exportHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return nil, err
		}
	}
	for i, e := range entries {
		for col, val := range entryRow(e) {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "serializing workbook")
	}
	return buf.Bytes(), nil
}

func entryRow(e model.AuditEntry) []string {
	jobID := ""
	if e.JobID != nil {
		jobID = e.JobID.String()
	}
	details := ""
	if e.Details != nil {
		if b, err := json.Marshal(e.Details.Data); err == nil {
			details = string(b)
		}
	}
	return []string{
		e.ID.String(),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
		e.Action,
		e.Category,
		e.Severity,
		jobID,
		e.Customer,
		e.Target,
		details,
		e.Checksum,
	}
}
