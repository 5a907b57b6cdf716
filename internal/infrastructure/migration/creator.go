package migration

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4/source"
)

// versionWidth is the zero padding of sequential versions, e.g. 000007
const versionWidth = 6

var (
	separators = regexp.MustCompile(`[\s_-]+`)
	unsafeName = regexp.MustCompile(`[^a-z0-9_]`)
)

// MigrationFile is a freshly written up/down pair
type MigrationFile struct {
	Version  string
	Name     string
	UpPath   string
	DownPath string
}

// CreateMigration writes an empty up/down pair numbered one past the highest
// version in migrationsDir. Existing files are never overwritten.
func CreateMigration(migrationsDir, name, description string) (*MigrationFile, error) {
	if err := os.MkdirAll(migrationsDir, 0o755); err != nil {
		return nil, fmt.Errorf("create migrations directory: %w", err)
	}
	found, err := scan(os.DirFS(migrationsDir))
	if err != nil {
		return nil, err
	}
	var next uint = 1
	if len(found) > 0 {
		next = found[len(found)-1].Version + 1
	}

	version := fmt.Sprintf("%0*d", versionWidth, next)
	base := filepath.Join(migrationsDir, version+"_"+sanitizeName(name))
	mf := &MigrationFile{Version: version, Name: name, UpPath: base + ".up.sql", DownPath: base + ".down.sql"}

	header := fmt.Sprintf("-- Migration: %s\n-- Created: %s\n", name, time.Now().UTC().Format(time.RFC3339))
	if description != "" {
		header += "-- Description: " + description + "\n"
	}
	if err := writeNew(mf.UpPath, header+"\n"); err != nil {
		return nil, err
	}
	if err := writeNew(mf.DownPath, fmt.Sprintf("-- Rollback: %s\n\n", name)); err != nil {
		_ = os.Remove(mf.UpPath)
		return nil, err
	}
	return mf, nil
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	_, werr := f.WriteString(content)
	return errors.Join(werr, f.Close())
}

// sanitizeName lowercases name and joins its words with underscores,
// dropping anything outside [a-z0-9].
func sanitizeName(name string) string {
	s := separators.ReplaceAllString(strings.ToLower(name), "_")
	return strings.Trim(unsafeName.ReplaceAllString(s, ""), "_")
}

// ListMigrations returns the base names of every up migration in fsys,
// ordered by version. A missing directory yields an empty list.
func ListMigrations(fsys fs.FS) ([]string, error) {
	found, err := scan(fsys)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(found))
	for _, m := range found {
		names = append(names, strings.TrimSuffix(m.Raw, ".up.sql"))
	}
	return names, nil
}

// scan parses the up migrations at the root of fsys with golang-migrate's
// own file name rules
func scan(fsys fs.FS) ([]*source.Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read migrations directory: %w", err)
	}

	var ups []*source.Migration
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m, err := source.Parse(e.Name())
		if err != nil || m.Direction != source.Up {
			continue
		}
		ups = append(ups, m)
	}
	slices.SortFunc(ups, func(a, b *source.Migration) int { return cmp.Compare(a.Version, b.Version) })
	return ups, nil
}
