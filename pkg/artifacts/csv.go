package artifacts

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/dukex/datapilot/pkg/models"
)

// WriteCSV writes rows to data-<ts>.csv. The header is the sorted union of
// the row keys; an empty result produces an empty file.
func (w *Writer) WriteCSV(rows []models.Row) (string, error) {
	path, err := w.nextPath("data", ".csv")
	if err != nil {
		return "", err
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create csv: %w", err)
	}

	header := columnNames(rows)
	writer := csv.NewWriter(f)

	if len(header) > 0 {
		if err := writer.Write(header); err != nil {
			_ = f.Close()

			return "", fmt.Errorf("failed to write csv header: %w", err)
		}
	}

	record := make([]string, len(header))

	for _, row := range rows {
		for i, name := range header {
			record[i] = cellText(row[name])
		}

		if err := writer.Write(record); err != nil {
			_ = f.Close()

			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()

	if err := writer.Error(); err != nil {
		_ = f.Close()

		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close csv: %w", err)
	}

	return path, nil
}
