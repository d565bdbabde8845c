package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestFindSources(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "b.xlsx"))
	touch(t, filepath.Join(dir, "a.csv"))
	touch(t, filepath.Join(dir, "a.df-template.json"))
	touch(t, filepath.Join(dir, "notes.txt"))
	touch(t, filepath.Join(dir, ".hidden.xlsx"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))

	got, err := FindSources(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.csv"),
		filepath.Join(dir, "b.xlsx"),
	}, got)
}

func TestSubdirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "beta"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "alpha"), 0o755))
	touch(t, filepath.Join(dir, "file.xlsx"))

	got, err := Subdirs(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "alpha"),
		filepath.Join(dir, "beta"),
	}, got)
}

func TestCopyAndMove(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.csv")
	touch(t, src)

	dst := filepath.Join(dir, "nested", "copy.csv")
	require.NoError(t, Copy(src, dst))
	assert.FileExists(t, dst)
	assert.FileExists(t, src)

	moved := filepath.Join(dir, "archive", "src.csv")
	require.NoError(t, Move(src, moved))
	assert.FileExists(t, moved)
	assert.NoFileExists(t, src)
}

func TestArchiveDestCollision(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "input", "report.xlsx")
	touch(t, src)
	archive := filepath.Join(dir, "archive")
	require.NoError(t, os.MkdirAll(archive, 0o755))

	now := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	// No collision: plain name.
	dest := ArchiveDest(src, archive, now)
	assert.Equal(t, filepath.Join(archive, "report.xlsx"), dest)

	// Collision: timestamp suffix.
	touch(t, filepath.Join(archive, "report.xlsx"))
	dest = ArchiveDest(src, archive, now)
	assert.Equal(t, filepath.Join(archive, "report_20260825103000.xlsx"), dest)
}
