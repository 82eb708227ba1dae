// internal/ingest/download.go
package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// DownloadOptions controls how exports are pulled to local disk.
type DownloadOptions struct {
	FolderID    string
	DownloadDir string
}

// Downloader mirrors a remote folder's exports to local disk so they can be
// re-ingested without another network round trip.
type Downloader struct {
	source FileSource
}

func NewDownloader(source FileSource) *Downloader {
	return &Downloader{source: source}
}

// DownloadFolderCSV downloads every CSV and XLSX export from the folder into
// DownloadDir and returns local CSV paths.
//
//   - CSV files are downloaded directly.
//   - XLSX files are downloaded to a temporary .xlsx, then the first sheet is
//     converted to CSV in DownloadDir and the temporary .xlsx is removed.
func (d *Downloader) DownloadFolderCSV(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	files, err := d.source.ListFiles(opts.FolderID)
	if err != nil {
		return nil, err
	}

	var localPaths []string
	for _, f := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		ext := strings.ToLower(filepath.Ext(f.Name))
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}

		localPath := filepath.Join(opts.DownloadDir, f.Name)
		if err := d.downloadTo(f.ID, localPath); err != nil {
			return nil, fmt.Errorf("failed to download %s: %w", f.Name, err)
		}

		if ext == ".csv" {
			localPaths = append(localPaths, localPath)
			continue
		}

		csvName := strings.TrimSuffix(f.Name, filepath.Ext(f.Name)) + ".csv"
		csvPath := filepath.Join(opts.DownloadDir, csvName)
		if err := convertXLSXToCSV(localPath, csvPath); err != nil {
			return nil, fmt.Errorf("failed to convert %s to csv: %w", f.Name, err)
		}
		_ = os.Remove(localPath)
		localPaths = append(localPaths, csvPath)
	}

	return localPaths, nil
}

func (d *Downloader) downloadTo(fileID, localPath string) error {
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer out.Close()

	return d.source.Download(fileID, out)
}

// convertXLSXToCSV converts the first sheet of an XLSX file to a CSV file.
// The sheet's first row is expected to be the transaction header.
func convertXLSXToCSV(xlsxPath, csvPath string) error {
	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		return fmt.Errorf("failed to open xlsx file %s: %w", xlsxPath, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("xlsx file %s has no sheets", xlsxPath)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	out, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create csv file %s: %w", csvPath, err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	defer w.Flush()

	for rows.Next() {
		record, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("failed to read row from %s: %w", xlsxPath, err)
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row to %s: %w", csvPath, err)
		}
	}

	if err := rows.Error(); err != nil {
		return fmt.Errorf("error iterating rows in %s: %w", xlsxPath, err)
	}

	return nil
}
