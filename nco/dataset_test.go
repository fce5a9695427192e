package nco

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fruitDataset() *Dataset {
	return &Dataset{
		Columns: []string{"id", "fruit"},
		Rows: [][]string{
			{"1", "Apple"},
			{"2", "banana"},
			{"3", "Grape"},
			{"4", ""},
		},
	}
}

func TestFilterContains_CaseInsensitive(t *testing.T) {
	out, err := fruitDataset().FilterContains("fruit", "AN")
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, []string{"2", "banana"}, out.Rows[0])

	out, err = fruitDataset().FilterContains("FRUIT", "an")
	require.NoError(t, err)
	require.Equal(t, 1, out.Len())
	assert.Equal(t, "banana", out.Rows[0][1])
}

func TestFilterContains_MissingValuesNeverMatch(t *testing.T) {
	ds := fruitDataset()
	out, err := ds.FilterContains("fruit", "e")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len(), "Apple and Grape only")
	for _, row := range out.Rows {
		assert.NotEmpty(t, row[1])
	}
}

func TestFilterContains_Unicode(t *testing.T) {
	ds := &Dataset{Columns: []string{"name"}, Rows: [][]string{{"ÉCOLE NORMALE"}, {"petite école"}, {"lycée"}}}
	out, err := ds.FilterContains("name", "École")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Len())
}

func TestFilterContains_Errors(t *testing.T) {
	ds := fruitDataset()
	_, err := ds.FilterContains("colour", "red")
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = ds.FilterContains("fruit", "  ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestFilterContains_DoesNotAliasRows(t *testing.T) {
	ds := fruitDataset()
	out, err := ds.FilterContains("fruit", "apple")
	require.NoError(t, err)
	out.Rows[0][1] = "changed"
	assert.Equal(t, "Apple", ds.Rows[0][1])
}

func TestColumnIndex_PositionalSelector(t *testing.T) {
	ds := fruitDataset()
	idx, err := ds.ColumnIndex("#2")
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	_, err = ds.ColumnIndex("#3")
	assert.ErrorIs(t, err, ErrColumnNotFound)
	_, err = ds.ColumnIndex("#0")
	assert.Error(t, err)
}

func TestWithColumn(t *testing.T) {
	ds := fruitDataset()
	out, err := ds.WithColumn(CodeColumn, []string{"a", "", "c", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "fruit", CodeColumn}, out.Columns)
	assert.Equal(t, "c", out.Rows[2][2])
	assert.Len(t, ds.Columns, 2, "original is untouched")

	again, err := out.WithColumn("NCO_CODE", []string{"x", "y", "z", "w"})
	require.NoError(t, err)
	assert.Len(t, again.Columns, 3, "existing column is replaced")
	assert.Equal(t, "z", again.Rows[2][2])

	_, err = ds.WithColumn(CodeColumn, []string{"only one"})
	assert.Error(t, err)
}

func TestHead(t *testing.T) {
	ds := fruitDataset()
	assert.Equal(t, 2, ds.Head(2).Len())
	assert.Equal(t, 4, ds.Head(10).Len())
	assert.Equal(t, 4, ds.Clone().Len())
}

func TestWriteCSV(t *testing.T) {
	ds := &Dataset{
		Columns: []string{"id", "title"},
		Rows:    [][]string{{"1", "Teacher, primary"}, {"2", ""}},
	}
	var buf bytes.Buffer
	require.NoError(t, ds.WriteCSV(&buf))
	assert.Equal(t, "id,title\n1,\"Teacher, primary\"\n2,\n", buf.String())
}
