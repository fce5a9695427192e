package nco

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func sampleEntries() []LookupEntry {
	return []LookupEntry{
		{Code: "C001", Label: "Software Engineer"},
		{Code: "C002", Label: "Civil Engineer"},
		{Code: "C003", Label: "Primary School Teacher"},
		{Code: "C004", Label: "Agricultural Labourer"},
		{Code: "C005", Label: "Taxi Driver"},
	}
}
