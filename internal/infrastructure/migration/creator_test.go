package migration

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexthecreator0001/woowms-sub001/migrations"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add stores table", "add_stores_table"},
		{"Add-Stores-Table", "add_stores_table"},
		{"ADD_STORES_TABLE", "add_stores_table"},
		{"add__stores__table", "add_stores_table"},
		{"Add Index 123", "add_index_123"},
		{"   spaces   ", "spaces"},
		{"special!@#$chars", "specialchars"},
		{"trailing_", "trailing"},
		{"_leading", "leading"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeName(tt.input))
		})
	}
}

func TestCreateMigration_Sequential(t *testing.T) {
	dir := t.TempDir()

	first, err := CreateMigration(dir, "init schema", "Initial tables")
	require.NoError(t, err)
	assert.Equal(t, "000001", first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_init_schema.up.sql"), first.UpPath)
	assert.Equal(t, filepath.Join(dir, "000001_init_schema.down.sql"), first.DownPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Migration: init schema")
	assert.Contains(t, string(up), "-- Description: Initial tables")

	_, err = CreateMigration(dir, "init schema", "")
	require.NoError(t, err, "a repeated name still gets the next version")

	second, err := CreateMigration(dir, "add webhook index", "")
	require.NoError(t, err)
	assert.Equal(t, "000003", second.Version)
}

func TestCreateMigration_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "migrations")

	mf, err := CreateMigration(dir, "init", "")
	require.NoError(t, err)
	assert.FileExists(t, mf.UpPath)
	assert.FileExists(t, mf.DownPath)
}

func TestListMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"000010_later.up.sql":          {Data: []byte("--")},
		"000010_later.down.sql":        {Data: []byte("--")},
		"000002_second.up.sql":         {Data: []byte("--")},
		"000002_second.down.sql":       {Data: []byte("--")},
		"9_unpadded.up.sql":            {Data: []byte("--")},
		"README.md":                    {Data: []byte("docs")},
		"notes_without_version.up.sql": {Data: []byte("--")},
		"subdir/000003_x.up.sql":       {Data: []byte("--")},
	}

	got, err := ListMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"000002_second", "9_unpadded", "000010_later"}, got)
}

func TestListMigrations_NonexistentDirectory(t *testing.T) {
	got, err := ListMigrations(os.DirFS(filepath.Join(t.TempDir(), "missing")))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	names, err := ListMigrations(migrations.FS)
	require.NoError(t, err)
	require.NotEmpty(t, names)

	for _, name := range names {
		_, err := migrations.FS.Open(name + ".down.sql")
		assert.NoError(t, err, "missing down migration for %s", name)
	}
}
