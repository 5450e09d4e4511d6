package excel

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"goais/domain/sampling"

	"github.com/xuri/excelize/v2"
)

// SeedBatch is a seed batch read from a spreadsheet: the first Dimension
// columns hold the u-space sample, the remaining columns its responses.
type SeedBatch struct {
	Headers   []string
	Samples   []sampling.Sample
	Responses [][]float64
}

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, sheet: "Sheet1"}
}

// WithSheet selects the worksheet read from xlsx files
func (r *DataReader) WithSheet(sheet string) *DataReader {
	r.sheet = sheet
	return r
}

// ReadSeedBatch reads a seed batch with dim sample columns
func (r *DataReader) ReadSeedBatch(dim int) (*SeedBatch, error) {
	log.Printf("[DataReader] Starting to read %s file: %s", r.fileType, r.filePath)

	// Check if file exists
	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	var rows [][]string
	var err error
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	case "xlsx":
		rows, err = r.readExcelRows()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
	if err != nil {
		return nil, err
	}
	return processRows(rows, dim)
}

// readExcelRows reads every row of the configured sheet
func (r *DataReader) readExcelRows() ([][]string, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.sheet, err)
	}
	log.Printf("[DataReader] %s read in %.2fms (%d rows)", r.sheet, float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))
	return rows, nil
}

// readCSVRows reads every CSV record
func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into a seed batch
func processRows(rows [][]string, dim int) (*SeedBatch, error) {
	if len(rows) < 2 {
		return nil, fmt.Errorf("seed file must have at least a header row and one data row")
	}
	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}
	if dim < 1 || len(headers) <= dim {
		return nil, fmt.Errorf("seed file needs %d sample columns and at least one response column, found %d columns", dim, len(headers))
	}

	batch := &SeedBatch{Headers: headers}
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		if isBlank(row) {
			continue
		}
		if len(row) < len(headers) {
			return nil, fmt.Errorf("row %d has %d cells, expected %d", i+1, len(row), len(headers))
		}
		values := make([]float64, len(headers))
		for j := range headers {
			v, err := strconv.ParseFloat(strings.TrimSpace(row[j]), 64)
			if err != nil {
				return nil, fmt.Errorf("row %d column %q: %w", i+1, headers[j], err)
			}
			values[j] = v
		}
		batch.Samples = append(batch.Samples, sampling.Sample(values[:dim:dim]))
		batch.Responses = append(batch.Responses, values[dim:])
	}

	log.Printf("[DataReader] seed batch processed (%d samples, %d responses each)", len(batch.Samples), len(headers)-dim)
	return batch, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
