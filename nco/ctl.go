package nco

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	infileRe    = regexp.MustCompile(`(?i)INFILE\s+'([^']+)'`)
	delimiterRe = regexp.MustCompile(`(?i)FIELDS\s+TERMINATED\s+BY\s+(X?)'([^']+)'`)
)

// ControlFile holds the directives read from an SQL*Loader style descriptor.
type ControlFile struct {
	Path      string
	InFile    string
	Delimiter rune
}

// ParseControlFile reads the INFILE path and field delimiter from a .ctl file.
// INFILE is resolved relative to the descriptor's directory.
func ParseControlFile(path string) (ControlFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ControlFile{}, &DataNotFoundError{Path: path, Err: err}
	}
	return parseControl(path, string(data))
}

func parseControl(path, content string) (ControlFile, error) {
	ctl := ControlFile{Path: path, Delimiter: ','}
	m := infileRe.FindStringSubmatch(content)
	if m == nil || strings.TrimSpace(m[1]) == "" {
		return ctl, &MalformedConfigError{Path: path, Directive: "INFILE", Reason: "no INFILE path found"}
	}
	infile := strings.TrimSpace(m[1])
	if !filepath.IsAbs(infile) {
		infile = filepath.Join(filepath.Dir(path), infile)
	}
	ctl.InFile = infile

	if dm := delimiterRe.FindStringSubmatch(content); dm != nil {
		delim, err := parseDelimiter(dm[1] != "", dm[2])
		if err != nil {
			return ctl, &MalformedConfigError{Path: path, Directive: "FIELDS TERMINATED BY", Reason: err.Error()}
		}
		ctl.Delimiter = delim
	}
	return ctl, nil
}

func parseDelimiter(hex bool, raw string) (rune, error) {
	if hex {
		v, err := strconv.ParseUint(raw, 16, 8)
		if err != nil {
			return 0, fmt.Errorf("invalid hex delimiter %q", raw)
		}
		return validDelimiter(rune(v))
	}
	switch strings.ToLower(raw) {
	case `\t`, "tab":
		return '\t', nil
	case "whitespace":
		return ' ', nil
	}
	if utf8.RuneCountInString(raw) != 1 {
		return 0, fmt.Errorf("delimiter %q must be a single character", raw)
	}
	r, _ := utf8.DecodeRuneInString(raw)
	return validDelimiter(r)
}

func validDelimiter(r rune) (rune, error) {
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError || r == 0 {
		return 0, errors.New("delimiter cannot be a quote, newline or NUL")
	}
	return r, nil
}

// LoadSurvey loads the dataset described by a .ctl file. On failure it returns
// an empty dataset together with the error so callers can keep rendering.
func LoadSurvey(ctlPath string) (*Dataset, error) {
	ctl, err := ParseControlFile(ctlPath)
	if err != nil {
		return &Dataset{}, err
	}
	ds, err := ReadDataset(ctl.InFile, ctl.Delimiter)
	if err != nil {
		return &Dataset{}, err
	}
	return ds, nil
}

// LoadSurveyPath loads a survey from either a .ctl descriptor or the data
// file itself. Failures degrade to an empty dataset like LoadSurvey.
func LoadSurveyPath(path string) (*Dataset, error) {
	if strings.EqualFold(filepath.Ext(path), ".ctl") {
		return LoadSurvey(path)
	}
	ds, err := ReadDataset(path, 0)
	if err != nil {
		return &Dataset{}, err
	}
	return ds, nil
}
