package excel

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ValueReader loads a column of numbers (e.g. trial estimates) from an xlsx or CSV file
type ValueReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	column   int    // zero-based
}

// NewValueReader reads the given zero-based column. The file type follows the extension.
func NewValueReader(filePath string, column int) *ValueReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" || ext == ".txt" {
		fileType = "csv"
	}
	return &ValueReader{filePath: filePath, fileType: fileType, column: column}
}

// ReadValues returns every numeric cell of the column. Non-numeric cells (headers,
// blanks) are skipped; short rows are skipped.
func (r *ValueReader) ReadValues() ([]float64, error) {
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}

	values := make([]float64, 0, len(rows))
	for _, row := range rows {
		if r.column >= len(row) {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(row[r.column]), 64)
		if err != nil {
			continue
		}
		values = append(values, v)
	}
	return values, nil
}

// readExcelRows reads the first sheet, which is "Trials" in exported reports
func (r *ValueReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", r.filePath)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func (r *ValueReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, record)
	}
	return rows, nil
}
