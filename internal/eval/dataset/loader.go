package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// Loader handles loading of evaluation manifests
type Loader struct {
	datasetPath string
}

// NewLoader creates a new dataset loader
func NewLoader(datasetPath string) *Loader {
	return &Loader{
		datasetPath: datasetPath,
	}
}

// Dir is the directory relative manifest paths are resolved against
func (l *Loader) Dir() string {
	return filepath.Dir(l.datasetPath)
}

// Load loads rows from a manifest file (JSONL, JSON or Parquet). Relative
// paths in the returned rows are already resolved.
func (l *Loader) Load() ([]ManifestRow, error) {
	return l.LoadSample(0)
}

// LoadSample loads at most limit rows; limit <= 0 loads everything
func (l *Loader) LoadSample(limit int) ([]ManifestRow, error) {
	ext := strings.ToLower(filepath.Ext(l.datasetPath))

	var rows []ManifestRow
	var err error
	switch ext {
	case ".parquet":
		rows, err = l.loadParquet(limit)
	case ".jsonl", ".json":
		rows, err = l.loadJSON(limit)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl, .json)", ext)
	}
	if err != nil {
		return nil, err
	}

	dir := l.Dir()
	for i := range rows {
		rows[i] = rows[i].Resolve(dir)
	}

	return rows, nil
}

// loadJSON accepts either a JSON array of rows or one row per line
func (l *Loader) loadJSON(limit int) ([]ManifestRow, error) {
	slog.Debug("Opening manifest", "path", l.datasetPath)

	data, err := os.ReadFile(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset file: %w", err)
	}

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var rows []ManifestRow
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("failed to parse JSON manifest: %w", err)
		}
		if limit > 0 && len(rows) > limit {
			rows = rows[:limit]
		}
		return rows, nil
	}

	return l.loadJSONL(bytes.NewReader(data), limit)
}

// loadJSONL loads rows from a JSONL stream
func (l *Loader) loadJSONL(r io.Reader, limit int) ([]ManifestRow, error) {
	var rows []ManifestRow
	scanner := bufio.NewScanner(r)

	const maxCapacity = 1024 * 1024 // 1MB per line
	buf := make([]byte, maxCapacity)
	scanner.Buffer(buf, maxCapacity)

	lineNum := 0
	for scanner.Scan() {
		if limit > 0 && len(rows) >= limit {
			break
		}
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())

		if len(line) == 0 {
			continue
		}

		var row ManifestRow
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}

		rows = append(rows, row)

		if lineNum%1000 == 0 {
			slog.Debug("Reading JSONL", "lines_read", lineNum)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading dataset: %w", err)
	}

	slog.Debug("Finished reading JSONL manifest", "total_rows", len(rows), "total_lines", lineNum)

	return rows, nil
}

// loadParquet loads rows from a Parquet file
func (l *Loader) loadParquet(limit int) ([]ManifestRow, error) {
	slog.Debug("Opening Parquet file", "path", l.datasetPath)

	file, err := os.Open(l.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[ManifestRow](pf)
	defer reader.Close()

	var rows []ManifestRow
	batch := make([]ManifestRow, 128)

	for limit <= 0 || len(rows) < limit {
		n, err := reader.Read(batch)
		if n > 0 {
			if limit > 0 && n > limit-len(rows) {
				n = limit - len(rows)
			}
			rows = append(rows, batch[:n]...)
		}
		if err != nil {
			if err != io.EOF {
				return nil, fmt.Errorf("failed to read parquet rows: %w", err)
			}
			break
		}
	}

	slog.Debug("Finished reading Parquet manifest", "total_rows", len(rows))

	return rows, nil
}
