package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/selivandex/supplier-risk/pkg/logger"
	"github.com/selivandex/supplier-risk/pkg/models"
)

// ErrMissingColumn is returned when the header lacks the supplier or country column
var ErrMissingColumn = errors.New("roster header must contain supplier and country columns")

// LoadFile reads a roster CSV from path
func LoadFile(path string) ([]models.SupplierRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	records, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("roster %s: %w", path, err)
	}
	return records, nil
}

// Parse reads supplier,country rows. Header names are matched case-insensitively
// and extra columns are ignored. Blank names are skipped and a repeated supplier
// keeps its first entry.
func Parse(r io.Reader) ([]models.SupplierRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return []models.SupplierRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	supplierCol, countryCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "supplier":
			supplierCol = i
		case "country":
			countryCol = i
		}
	}
	if supplierCol < 0 || countryCol < 0 {
		return nil, fmt.Errorf("%w: got %v", ErrMissingColumn, header)
	}

	records := make([]models.SupplierRecord, 0)
	seen := make(map[string]bool)
	line := 1

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rec := models.SupplierRecord{
			Supplier: field(row, supplierCol),
			Country:  field(row, countryCol),
		}.Normalized()

		if rec.Supplier == "" {
			continue
		}
		if seen[rec.Supplier] {
			logger.Warn("duplicate roster entry ignored",
				zap.String("supplier", rec.Supplier),
				zap.Int("line", line),
			)
			continue
		}
		seen[rec.Supplier] = true
		records = append(records, rec)
	}

	return records, nil
}

func field(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
