package nco

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDataset_UTF8WithBOM(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "survey.csv", []byte("\xef\xbb\xbfid,name,city\n1,Asha,Pune\n2,Ravi\n"))

	ds, err := ReadDataset(path, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "city"}, ds.Columns)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, []string{"2", "Ravi", ""}, ds.Rows[1], "short rows are padded")
	assert.Equal(t, path, ds.Source)
}

func TestReadDataset_Latin1Fallback(t *testing.T) {
	dir := t.TempDir()
	// "José" and "Müller" encoded as ISO-8859-1.
	path := writeFile(t, dir, "latin.csv", []byte("name\nJos\xe9\nM\xfcller\n"))

	ds, err := ReadDataset(path, ',')
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "José", ds.Rows[0][0])
	assert.Equal(t, "Müller", ds.Rows[1][0])
}

func TestReadDataset_BinaryIsEncodingMismatch(t *testing.T) {
	dir := t.TempDir()
	// UTF-16LE "id" contains NUL bytes.
	path := writeFile(t, dir, "utf16.csv", []byte{0xff, 0xfe, 'i', 0, 'd', 0})

	_, err := ReadDataset(path, ',')
	assert.ErrorIs(t, err, ErrEncodingMismatch)
}

func TestReadDataset_Missing(t *testing.T) {
	_, err := ReadDataset(filepath.Join(t.TempDir(), "nope.csv"), ',')
	require.ErrorIs(t, err, ErrDataNotFound)
	var dnf *DataNotFoundError
	require.ErrorAs(t, err, &dnf)
	assert.Contains(t, dnf.Path, "nope.csv")
}

func TestReadDataset_Empty(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.csv", nil)
	_, err := ReadDataset(path, ',')
	assert.ErrorIs(t, err, ErrDataNotFound)
}

func TestReadDataset_TSVByExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "data.tsv", []byte("a\tb\n1\t2\n"))
	ds, err := ReadDataset(path, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ds.Columns)
	assert.Equal(t, []string{"1", "2"}, ds.Rows[0])
}

func TestLoadLookupTable_AutoDetectsColumns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "NCO_reference.csv", []byte(
		"NCO_Code,Occupation_title,notes\n"+
			"2512.01,Software Engineer,x\n"+
			",Orphan Title,\n"+
			"2142.01,,missing title\n"))

	var logs bytes.Buffer
	entries, err := LoadLookupTable(path, LookupOptions{Logger: slog.New(slog.NewTextHandler(&logs, nil))})
	require.NoError(t, err)
	assert.Equal(t, []LookupEntry{
		{Code: "2512.01", Label: "Software Engineer"},
		{Code: "2142.01", Label: ""},
	}, entries)
	assert.Contains(t, logs.String(), "lookup rows without code skipped")
	assert.Contains(t, logs.String(), "skipped=1")
	assert.Contains(t, logs.String(), "kept=2")
}

func TestLoadLookupTable_ExplicitColumns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ref.csv", []byte("a,b\nTeacher,T1\n"))

	entries, err := LoadLookupTable(path, LookupOptions{TitleColumn: "#1", CodeColumn: "B"})
	require.NoError(t, err)
	assert.Equal(t, []LookupEntry{{Code: "T1", Label: "Teacher"}}, entries)

	_, err = LoadLookupTable(path, LookupOptions{TitleColumn: "missing"})
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestLoadLookupTable_NoTitleColumn(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ref.csv", []byte("nco_code,foo\n1,bar\n"))
	_, err := LoadLookupTable(path, LookupOptions{})
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestTitleRows(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"respondent_id", "job_title"},
		Rows:    [][]string{{"r1", "Teacher"}, {"", "Driver"}},
	}
	rows, err := TitleRows(ds, "", "")
	require.NoError(t, err)
	assert.Equal(t, []TitleRow{{ID: "r1", Title: "Teacher"}, {ID: "2", Title: "Driver"}}, rows)
}

func TestSetColumnCandidates(t *testing.T) {
	t.Cleanup(func() { SetColumnCandidates(ColumnCandidates{}) })
	SetColumnCandidates(ColumnCandidates{Title: []string{"beruf"}})

	ds := &Dataset{Columns: []string{"Beruf", "nco_code"}, Rows: [][]string{{"Lehrer", "T1"}}}
	entries, err := LookupFromDataset(ds, LookupOptions{})
	require.NoError(t, err)
	assert.Equal(t, []LookupEntry{{Code: "T1", Label: "Lehrer"}}, entries)
	assert.Equal(t, DefaultColumnCandidates().Code, getColumnCandidates().Code)
}
