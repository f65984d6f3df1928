package archive

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/heyleao/mp-mods-ets2/common"
	"github.com/heyleao/mp-mods-ets2/patcher"
	"github.com/heyleao/mp-mods-ets2/utils/files"
)

const (
	plainManifest = "SiiNunit\r\n{\r\nmod_package : .trailers\r\n{\r\n\tdisplay_name: \"Trailers\"\r\n}\r\n}\r\n"
	fixedManifest = "SiiNunit\r\n{\r\nmod_package : .trailers\r\n{\r\n\tdisplay_name: \"Trailers\"\r\n    mp_mod_optional: true\r\n}\r\n}\r\n"
)

var modEntries = []testEntry{
	{name: "def/"},
	{name: "def/vehicle/trailer.sii", content: "trailer data trailer data trailer data"},
	{name: "manifest.sii", content: plainManifest},
	{name: "mod_icon.jpg", content: "\xff\xd8\xff\xe0 not really a jpeg", method: zip.Store},
	{name: "description.txt", content: "Adds trailers"},
}

func newTestRewriter(t *testing.T) *Rewriter {
	p := patcher.New("", "")
	return NewRewriter("", p.PatchBytes, zaptest.NewLogger(t))
}

type rawEntry struct {
	header zip.FileHeader
	raw    []byte
}

// readRaw returns entries with their compressed data as stored in archive.
func readRaw(t *testing.T, path string) []rawEntry {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer r.Close()

	var out []rawEntry
	for _, f := range r.File {
		rc, err := f.OpenRaw()
		if err != nil {
			t.Fatalf("open raw %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("read raw %s: %v", f.Name, err)
		}
		out = append(out, rawEntry{header: f.FileHeader, raw: data})
	}
	return out
}

func readContent(t *testing.T, path, name string) string {
	t.Helper()
	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer r.Close()

	rc, err := r.Open(name)
	if err != nil {
		t.Fatalf("open %s: %v", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

func fingerprint(t *testing.T, path string) ([32]byte, time.Time) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	return sha256.Sum256(data), fi.ModTime()
}

// ageFile moves modification time to the past, so any rewrite is visible.
func ageFile(t *testing.T, path string) {
	t.Helper()
	old := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := os.Chtimes(path, old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}
}

func assertNoLeftovers(t *testing.T, dir string, want int) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != want {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory content %v, want %d files", names, want)
	}
}

func TestRewrite_Modified(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trailers.zip")
	makeArchive(t, path, modEntries)
	if err := os.Chmod(path, 0600); err != nil {
		t.Fatalf("chmod: %v", err)
	}
	before := readRaw(t, path)

	status, err := newTestRewriter(t).Rewrite(path)
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if status != common.StatusModified {
		t.Fatalf("Rewrite() status = %s, want %s", status, common.StatusModified)
	}

	after := readRaw(t, path)
	if len(after) != len(before) {
		t.Fatalf("entry count = %d, want %d", len(after), len(before))
	}
	for i := range before {
		b, a := before[i], after[i]
		if a.header.Name != b.header.Name {
			t.Errorf("entry %d name = %s, want %s", i, a.header.Name, b.header.Name)
		}
		if a.header.Method != b.header.Method {
			t.Errorf("entry %s method = %d, want %d", a.header.Name, a.header.Method, b.header.Method)
		}
		if b.header.Name == DefaultTarget {
			continue
		}
		if a.header.CRC32 != b.header.CRC32 || !bytes.Equal(a.raw, b.raw) {
			t.Errorf("entry %s changed", a.header.Name)
		}
	}

	if got := readContent(t, path, DefaultTarget); got != fixedManifest {
		t.Errorf("manifest = %q, want %q", got, fixedManifest)
	}
	fi, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Mode().Perm() != 0600 {
		t.Errorf("mode = %v, want 0600", fi.Mode().Perm())
	}
	assertNoLeftovers(t, dir, 1)

	// second run has nothing to do
	status, err = newTestRewriter(t).Rewrite(path)
	if err != nil || status != common.StatusAlreadyCorrect {
		t.Errorf("second Rewrite() = %s, %v; want %s", status, err, common.StatusAlreadyCorrect)
	}
}

func TestRewrite_NoTargetEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "no_manifest.zip")
	makeArchive(t, path, []testEntry{
		{name: "def/vehicle/trailer.sii", content: "x"},
		// manifest not in the root is not the target
		{name: "sub/manifest.sii", content: plainManifest},
	})
	ageFile(t, path)
	sum, mtime := fingerprint(t, path)

	status, err := newTestRewriter(t).Rewrite(path)
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if status != common.StatusNoTargetEntry {
		t.Errorf("Rewrite() status = %s, want %s", status, common.StatusNoTargetEntry)
	}
	if s, m := fingerprint(t, path); s != sum || !m.Equal(mtime) {
		t.Error("archive was touched")
	}
	assertNoLeftovers(t, dir, 1)
}

func TestRewrite_AlreadyCorrect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fixed.zip")
	makeArchive(t, path, []testEntry{
		{name: "manifest.sii", content: fixedManifest},
		{name: "description.txt", content: "x"},
	})
	ageFile(t, path)
	sum, mtime := fingerprint(t, path)

	status, err := newTestRewriter(t).Rewrite(path)
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if status != common.StatusAlreadyCorrect {
		t.Errorf("Rewrite() status = %s, want %s", status, common.StatusAlreadyCorrect)
	}
	if s, m := fingerprint(t, path); s != sum || !m.Equal(mtime) {
		t.Error("archive was touched")
	}
}

func TestRewrite_DryRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trailers.zip")
	makeArchive(t, path, modEntries)
	ageFile(t, path)
	sum, mtime := fingerprint(t, path)

	rw := newTestRewriter(t)
	rw.DryRun = true
	status, err := rw.Rewrite(path)
	if err != nil {
		t.Fatalf("Rewrite() error = %v", err)
	}
	if status != common.StatusModified {
		t.Errorf("Rewrite() status = %s, want %s", status, common.StatusModified)
	}
	if s, m := fingerprint(t, path); s != sum || !m.Equal(mtime) {
		t.Error("archive was touched in dry run")
	}
	assertNoLeftovers(t, dir, 1)
}

func TestRewrite_ReadErrors(t *testing.T) {
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.zip")
	if err := os.WriteFile(corrupt, []byte("PK\x03\x04 definitely not a zip"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	binary := filepath.Join(dir, "binary.zip")
	makeArchive(t, binary, []testEntry{{name: "manifest.sii", content: "BSII\x01\x02\x03\x04\x05\x06"}})

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"missing", filepath.Join(dir, "absent.zip"), common.ErrIO},
		{"corrupt", corrupt, common.ErrArchiveFormat},
		{"binary manifest", binary, common.ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := newTestRewriter(t).Rewrite(tt.path)
			if status != common.StatusReadError {
				t.Errorf("Rewrite() status = %s, want %s", status, common.StatusReadError)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Rewrite() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRewrite_UnsafeEntryRejected(t *testing.T) {
	tests := []struct {
		name    string
		entries []testEntry
	}{
		{"before target", []testEntry{
			{name: "../evil.sii", content: "y"},
			{name: "manifest.sii", content: plainManifest},
		}},
		{"after target", []testEntry{
			{name: "manifest.sii", content: plainManifest},
			{name: "../evil.sii", content: "y"},
		}},
		{"absolute after target", []testEntry{
			{name: "manifest.sii", content: plainManifest},
			{name: "/etc/evil.sii", content: "y"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "slip.zip")
			makeArchive(t, path, tt.entries)
			ageFile(t, path)
			sum, mtime := fingerprint(t, path)

			status, err := newTestRewriter(t).Rewrite(path)
			if status != common.StatusReadError {
				t.Errorf("Rewrite() status = %s, want %s", status, common.StatusReadError)
			}
			if !errors.Is(err, common.ErrArchiveFormat) {
				t.Errorf("Rewrite() error = %v, want ErrArchiveFormat", err)
			}
			if s, m := fingerprint(t, path); s != sum || !m.Equal(mtime) {
				t.Error("archive with unsafe entry was touched")
			}
			assertNoLeftovers(t, dir, 1)
		})
	}
}

func TestRewrite_WriteFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trailers.zip")
	makeArchive(t, path, modEntries)
	ageFile(t, path)
	sum, mtime := fingerprint(t, path)

	old := stageFile
	defer func() { stageFile = old }()
	stageFile = func(target string) (*files.Staged, error) {
		s, err := files.Stage(target)
		if err != nil {
			return nil, err
		}
		// every write to staging file fails
		s.File.Close()
		return s, nil
	}

	status, err := newTestRewriter(t).Rewrite(path)
	if status != common.StatusWriteError {
		t.Errorf("Rewrite() status = %s, want %s", status, common.StatusWriteError)
	}
	if !errors.Is(err, common.ErrIO) {
		t.Errorf("Rewrite() error = %v, want ErrIO", err)
	}
	if s, m := fingerprint(t, path); s != sum || !m.Equal(mtime) {
		t.Error("original archive changed after failed rewrite")
	}
	assertNoLeftovers(t, dir, 1)
}
