package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/segmentio/parquet-go"
)

// LoadFile loads a tabular file, choosing the format from the extension.
// Supported: .csv, .parquet, .json (array of flat records).
func LoadFile(path string) (*Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open CSV file: %w", err)
		}
		defer f.Close()
		return FromCSV(f)
	case ".parquet":
		return FromParquetFile(path)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open JSON file: %w", err)
		}
		defer f.Close()
		return FromJSON(f)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", filepath.Ext(path))
	}
}

// FromCSV reads a header row plus records. Values that parse as numbers
// become float64; empty cells become missing.
func FromCSV(r io.Reader) (*Dataset, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	columns := make([][]interface{}, len(header))
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}
		for i := range header {
			var cell string
			if i < len(record) {
				cell = strings.TrimSpace(record[i])
			}
			columns[i] = append(columns[i], parseCell(cell))
		}
	}

	ds := New()
	for i, name := range header {
		ds.AddColumn(strings.TrimSpace(name), columns[i])
	}
	return ds, nil
}

// FromJSON reads an array of flat objects. Columns are sorted by name;
// records missing a key get a missing value.
func FromJSON(r io.Reader) (*Dataset, error) {
	var records []map[string]interface{}
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode JSON records: %w", err)
	}

	// JSON objects carry no key order; sort for a deterministic layout.
	seen := make(map[string]struct{})
	var order []string
	for _, rec := range records {
		for key := range rec {
			if _, ok := seen[key]; !ok {
				seen[key] = struct{}{}
				order = append(order, key)
			}
		}
	}
	sort.Strings(order)

	ds := New()
	for _, key := range order {
		values := make([]interface{}, len(records))
		for i, rec := range records {
			v, ok := rec[key]
			if !ok || v == nil {
				continue
			}
			switch val := v.(type) {
			case string:
				values[i] = parseCell(val)
			case float64:
				values[i] = val
			case bool:
				values[i] = strconv.FormatBool(val)
			default:
				values[i] = fmt.Sprintf("%v", val)
			}
		}
		ds.AddColumn(key, values)
	}
	return ds, nil
}

// FromParquetFile reads a flat parquet schema into a dataset.
func FromParquetFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat Parquet file: %w", err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet schema: %w", err)
	}

	fields := pf.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}
	columns := make([][]interface{}, len(fields))

	for _, rowGroup := range pf.RowGroups() {
		rows := rowGroup.Rows()
		buf := make([]parquet.Row, 128)
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				appendParquetRow(columns, row)
			}
			if err == io.EOF {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to read Parquet rows: %w", err)
			}
		}
		rows.Close()
	}

	ds := New()
	for i, name := range names {
		ds.AddColumn(name, columns[i])
	}
	return ds, nil
}

func appendParquetRow(columns [][]interface{}, row parquet.Row) {
	for _, value := range row {
		idx := value.Column()
		if idx < 0 || idx >= len(columns) {
			continue
		}
		switch {
		case value.IsNull():
			columns[idx] = append(columns[idx], nil)
		case value.Kind() == parquet.ByteArray:
			columns[idx] = append(columns[idx], value.String())
		case value.Kind() == parquet.Double || value.Kind() == parquet.Float:
			columns[idx] = append(columns[idx], value.Double())
		case value.Kind() == parquet.Int32 || value.Kind() == parquet.Int64:
			columns[idx] = append(columns[idx], float64(value.Int64()))
		case value.Kind() == parquet.Boolean:
			columns[idx] = append(columns[idx], strconv.FormatBool(value.Boolean()))
		default:
			columns[idx] = append(columns[idx], value.String())
		}
	}
}

func parseCell(cell string) interface{} {
	if cell == "" {
		return nil
	}
	if f, err := strconv.ParseFloat(cell, 64); err == nil {
		return f
	}
	return cell
}
