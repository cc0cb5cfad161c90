package export

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/careform/medextract/internal/api"
)

// SheetSummary describes one sheet of a verification workbook.
type SheetSummary struct {
	Name    string
	Rows    int
	Columns int
}

// Summary is a quick structural digest of a downloaded workbook, enough
// for an operator to confirm the export is present and non-empty before
// sharing it.
type Summary struct {
	Sheets []SheetSummary
}

// Empty reports whether no sheet carries any data rows (a header-only
// workbook counts as empty).
func (s *Summary) Empty() bool {
	for _, sheet := range s.Sheets {
		if sheet.Rows > 1 {
			return false
		}
	}
	return true
}

// Service downloads and inspects verification workbooks.
type Service struct {
	client *api.Client
	logger *zap.SugaredLogger
}

// NewService builds the workbook service. A nil logger is replaced with
// a no-op logger.
func NewService(client *api.Client, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{client: client, logger: logger}
}

// Fetch downloads the verification workbook for a job. ErrNotReady
// passes through untouched when the export has not been produced yet.
func (s *Service) Fetch(ctx context.Context, jobID string) ([]byte, error) {
	start := time.Now()
	data, err := s.client.DownloadExcel(ctx, jobID)
	if err != nil {
		return nil, err
	}
	s.logger.Infow("export.xlsx.fetched",
		"job_id", jobID,
		"bytes", len(data),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return data, nil
}

// Inspect opens workbook bytes and summarizes every sheet.
func Inspect(data []byte) (*Summary, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	summary := &Summary{}
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}
		cols := 0
		for _, row := range rows {
			if len(row) > cols {
				cols = len(row)
			}
		}
		summary.Sheets = append(summary.Sheets, SheetSummary{
			Name:    name,
			Rows:    len(rows),
			Columns: cols,
		})
	}
	return summary, nil
}

// Save writes workbook bytes to disk.
func Save(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
