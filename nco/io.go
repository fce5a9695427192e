package nco

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// fallbackEncodings are tried in order when a file is not valid UTF-8.
var fallbackEncodings = []encoding.Encoding{charmap.ISO8859_1}

// LookupOptions selects the lookup columns. Empty names are auto-detected.
type LookupOptions struct {
	TitleColumn string
	CodeColumn  string
	Delimiter   rune
	// Logger receives a warning when rows without a code are skipped.
	Logger *slog.Logger
}

// ReadDataset reads a delimited text file. A zero delimiter selects ',' for
// most files and '\t' for .tsv files.
func ReadDataset(path string, delimiter rune) (*Dataset, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DataNotFoundError{Path: path, Err: err}
	}
	text, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if delimiter == 0 {
		delimiter = ','
		if strings.EqualFold(filepath.Ext(path), ".tsv") {
			delimiter = '\t'
		}
	}
	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
	}
	if len(rows) == 0 {
		return nil, &DataNotFoundError{Path: path, Err: errors.New("file is empty")}
	}
	header := make([]string, len(rows[0]))
	for i, cell := range rows[0] {
		header[i] = cleanCell(cell)
	}
	ds := &Dataset{Columns: header, Source: path, Rows: make([][]string, 0, len(rows)-1)}
	for _, row := range rows[1:] {
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" && len(header) > 1 {
			continue
		}
		ds.Rows = append(ds.Rows, fitRow(row, len(header)))
	}
	return ds, nil
}

// decodeText returns raw as UTF-8, retrying with the fallback encodings when
// it is not valid UTF-8. Binary content is rejected.
func decodeText(raw []byte) (string, error) {
	if bytes.IndexByte(raw, 0) >= 0 {
		return "", fmt.Errorf("%w: file contains NUL bytes", ErrEncodingMismatch)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	for _, enc := range fallbackEncodings {
		out, err := enc.NewDecoder().Bytes(raw)
		if err == nil && utf8.Valid(out) {
			return string(out), nil
		}
	}
	return "", ErrEncodingMismatch
}

func fitRow(row []string, width int) []string {
	out := make([]string, width)
	copy(out, row)
	return out
}

// LoadLookupTable reads (code, label) pairs from a reference file.
// Rows with an empty code are skipped; empty labels are kept as "".
func LoadLookupTable(path string, opts LookupOptions) ([]LookupEntry, error) {
	ds, err := ReadDataset(path, opts.Delimiter)
	if err != nil {
		return nil, err
	}
	return LookupFromDataset(ds, opts)
}

// LookupFromDataset extracts lookup entries from an already loaded dataset.
func LookupFromDataset(ds *Dataset, opts LookupOptions) ([]LookupEntry, error) {
	candidates := getColumnCandidates()
	titleCol, err := pickColumn(ds.Columns, opts.TitleColumn, candidates.Title)
	if err != nil {
		return nil, err
	}
	codeCol, err := pickColumn(ds.Columns, opts.CodeColumn, candidates.Code)
	if err != nil {
		return nil, err
	}
	if titleCol < 0 {
		return nil, &ColumnNotFoundError{Column: "occupation_title"}
	}
	if codeCol < 0 {
		return nil, &ColumnNotFoundError{Column: "nco_code"}
	}
	entries := make([]LookupEntry, 0, ds.Len())
	skipped := 0
	for i := range ds.Rows {
		code := cleanCell(ds.Value(i, codeCol))
		if code == "" {
			skipped++
			continue
		}
		entries = append(entries, LookupEntry{Code: code, Label: CoerceLabel(ds.Value(i, titleCol))})
	}
	if skipped > 0 {
		logger := opts.Logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Warn("lookup rows without code skipped", "source", ds.Source, "skipped", skipped, "kept", len(entries))
	}
	return entries, nil
}

// TitleRows extracts batch matcher input from a survey dataset. The row ID is
// taken from idColumn (auto-detected when empty) or falls back to the 1-based
// row number.
func TitleRows(ds *Dataset, titleColumn, idColumn string) ([]TitleRow, error) {
	candidates := getColumnCandidates()
	titleCol, err := pickColumn(ds.Columns, titleColumn, candidates.Title)
	if err != nil {
		return nil, err
	}
	if titleCol < 0 {
		return nil, &ColumnNotFoundError{Column: "occupation_title"}
	}
	idCol, err := pickColumn(ds.Columns, idColumn, candidates.ID)
	if err != nil {
		return nil, err
	}
	rows := make([]TitleRow, ds.Len())
	for i := range ds.Rows {
		id := ""
		if idCol >= 0 {
			id = cleanCell(ds.Value(i, idCol))
		}
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		rows[i] = TitleRow{ID: id, Title: ds.Value(i, titleCol)}
	}
	return rows, nil
}

func cleanCell(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "\ufeff")
	return v
}

func findColumn(header []string, candidates []string) int {
	for _, cand := range candidates {
		for i, col := range header {
			if strings.EqualFold(col, cand) {
				return i
			}
		}
	}
	return -1
}

func pickColumn(header []string, explicit string, candidates []string) (int, error) {
	if strings.TrimSpace(explicit) != "" {
		idx, _, err := matchExplicitColumn(header, explicit)
		return idx, err
	}
	return findColumn(header, candidates), nil
}

func matchExplicitColumn(header []string, explicit string) (int, bool, error) {
	trimmed := strings.TrimSpace(explicit)
	if trimmed == "" {
		return -1, false, nil
	}
	for i, col := range header {
		if strings.EqualFold(col, trimmed) {
			return i, true, nil
		}
	}
	if strings.HasPrefix(trimmed, "#") {
		idx, err := parseColumnIndex(trimmed)
		if err != nil {
			return -1, false, err
		}
		if idx >= len(header) {
			return -1, false, fmt.Errorf("column index %s is out of range: %w", trimmed, ErrColumnNotFound)
		}
		return idx, false, nil
	}
	return -1, false, &ColumnNotFoundError{Column: explicit}
}

func parseColumnIndex(token string) (int, error) {
	trimmed := strings.TrimSpace(strings.TrimPrefix(token, "#"))
	idx, err := strconv.Atoi(trimmed)
	if err != nil {
		return -1, fmt.Errorf("invalid column index %q", token)
	}
	if idx <= 0 {
		return -1, fmt.Errorf("column indices are 1-based: %q", token)
	}
	return idx - 1, nil
}
