package artifacts

import (
	"fmt"

	"github.com/dukex/datapilot/pkg/models"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Data"

// WriteXLSX writes rows to data-<ts>.xlsx with the same columns as WriteCSV.
func (w *Writer) WriteXLSX(rows []models.Row) (string, error) {
	path, err := w.nextPath("data", ".xlsx")
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}

	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	header := columnNames(rows)

	for col, name := range header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return "", err
		}

		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return "", fmt.Errorf("failed to write header: %w", err)
		}
	}

	for r, row := range rows {
		for col, name := range header {
			cell, err := excelize.CoordinatesToCellName(col+1, r+2)
			if err != nil {
				return "", err
			}

			if err := f.SetCellValue(sheetName, cell, xlsxValue(row[name])); err != nil {
				return "", fmt.Errorf("failed to write cell %s: %w", cell, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save xlsx: %w", err)
	}

	return path, nil
}

// xlsxValue keeps numbers and booleans typed and stringifies everything else.
func xlsxValue(value any) any {
	switch v := value.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, bool:
		return v
	default:
		return cellText(v)
	}
}
