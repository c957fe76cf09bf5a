package datafile_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argodesk/argodesk/internal/datafile"
)

func TestStore_SaveAndRemove(t *testing.T) {
	store, err := datafile.NewStore(t.TempDir(), 0)
	require.NoError(t, err)

	name, err := store.Save("R2902746_012.nc", strings.NewReader("CDF\x01"))
	require.NoError(t, err)
	assert.Equal(t, "R2902746_012.nc", name)

	b, err := os.ReadFile(store.Path(name))
	require.NoError(t, err)
	assert.Equal(t, "CDF\x01", string(b))

	require.NoError(t, store.Remove(name))
	err = store.Remove(name)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestStore_SaveStripsDirectories(t *testing.T) {
	dir := t.TempDir()
	store, err := datafile.NewStore(dir, 0)
	require.NoError(t, err)

	tests := []struct {
		input string
		want  string
	}{
		{"../../etc/passwd", "passwd"},
		{"uploads/R1.nc", "R1.nc"},
		{`C:\data\R2.nc`, "R2.nc"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			name, err := store.Save(tt.input, strings.NewReader("x"))
			require.NoError(t, err)
			assert.Equal(t, tt.want, name)
			assert.FileExists(t, filepath.Join(dir, tt.want))
		})
	}
}

func TestStore_SaveOverwrites(t *testing.T) {
	store, err := datafile.NewStore(t.TempDir(), 0)
	require.NoError(t, err)

	_, err = store.Save("R1.nc", strings.NewReader("first"))
	require.NoError(t, err)
	_, err = store.Save("R1.nc", strings.NewReader("second"))
	require.NoError(t, err)

	b, err := os.ReadFile(store.Path("R1.nc"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(b))
}

func TestStore_SaveRejects(t *testing.T) {
	dir := t.TempDir()
	store, err := datafile.NewStore(dir, 4)
	require.NoError(t, err)

	_, err = store.Save("..", strings.NewReader("x"))
	assert.ErrorIs(t, err, datafile.ErrInvalidName)

	_, err = store.Save("big.nc", strings.NewReader("12345"))
	assert.ErrorIs(t, err, datafile.ErrTooLarge)
	assert.NoFileExists(t, filepath.Join(dir, "big.nc"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
