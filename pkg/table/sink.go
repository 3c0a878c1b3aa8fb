package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Supported sink extensions.
const (
	ExtCSV      = "csv"
	ExtColumnar = "columnar"
)

// Sink writes materialized tables to files in a target directory.
type Sink struct {
	// Dir is the output directory. Empty means the working directory.
	Dir string

	logger zerolog.Logger
}

// NewSink creates a sink for the given directory.
func NewSink(dir string) *Sink {
	return &Sink{
		Dir:    dir,
		logger: log.With().Str("component", "table-sink").Logger(),
	}
}

// Write stores the table as <name>.<extension> in the sink directory.
// An unsupported extension logs a warning and writes nothing: the extraction
// work behind the table is already done and must not be discarded for a
// naming mistake.
func (s *Sink) Write(t *Table, name, extension string) error {
	path := filepath.Join(s.Dir, name+"."+extension)

	switch extension {
	case ExtCSV:
		if err := s.writeCSV(t, path); err != nil {
			return err
		}
	case ExtColumnar:
		if err := s.writeColumnar(t, path); err != nil {
			return err
		}
	default:
		s.logger.Warn().
			Str("extension", extension).
			Str("name", name).
			Msg("Unsupported file extension, choose 'csv' or 'columnar'; nothing written")
		return nil
	}

	s.logger.Info().
		Str("path", path).
		Int("rows", t.Len()).
		Int("columns", len(t.Columns)).
		Msg("Output file written")
	return nil
}

// writeCSV renders the table row-major with a header line.
func (s *Sink) writeCSV(t *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	line := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i, cell := range row {
			line[i] = formatCell(cell)
		}
		if err := w.Write(line); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// columnarFile is the on-disk shape of the columnar format: column order
// plus one value array per column.
type columnarFile struct {
	Columns []string         `json:"columns"`
	Data    map[string][]any `json:"data"`
}

// writeColumnar renders the table column-major as JSON.
func (s *Sink) writeColumnar(t *Table, path string) error {
	out := columnarFile{
		Columns: t.Columns,
		Data:    make(map[string][]any, len(t.Columns)),
	}
	for i, col := range t.Columns {
		values := make([]any, len(t.Rows))
		for j, row := range t.Rows {
			values[j] = row[i]
		}
		out.Data[col] = values
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal columnar data: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// formatCell renders a cell value for CSV output. Missing cells are empty;
// composite values fall back to their JSON encoding.
func formatCell(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(value, 10)
	case int:
		return strconv.Itoa(value)
	default:
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Sprintf("%v", value)
		}
		return string(data)
	}
}
