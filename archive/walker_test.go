package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	fixzip "github.com/hidez8891/zip"

	"github.com/heyleao/mp-mods-ets2/common"
)

type testEntry struct {
	name    string
	content string
	method  uint16
}

// makeArchive creates zip file with given entries using standard library
// writer, so archives under test are not produced by the code under test.
func makeArchive(t *testing.T, path string, entries []testEntry) {
	t.Helper()

	zipFile, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		fh := &zip.FileHeader{Name: e.name, Method: e.method}
		if e.method == 0 && len(e.content) > 0 {
			fh.Method = zip.Deflate
		}
		if len(e.name) > 0 && e.name[len(e.name)-1] == '/' {
			fh.Method = zip.Store
			fh.SetMode(os.ModeDir | 0755)
		}
		fw, err := w.CreateHeader(fh)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finish zip: %v", err)
	}
}

func TestWalk(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	makeArchive(t, zipPath, []testEntry{
		{name: "def/mod.sii", content: "def content"},
		{name: "def/truck.sii", content: "truck content"},
		{name: "material/ui/icon.mat", content: "mat content"},
		{name: "material/ui/icon.tobj", content: "tobj content"},
		{name: "manifest.sii", content: "manifest content"},
	})

	tests := []struct {
		name    string
		pattern string
		want    int
	}{
		{"def prefix", "def/", 2},
		{"material prefix", "material/", 2},
		{"exact name", "manifest.sii", 1},
		{"no match", "nonexistent/", 0},
		{"empty prefix", "", 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var visited []string
			err := Walk(zipPath, tt.pattern, func(archive string, file *fixzip.File) error {
				if archive != zipPath {
					t.Errorf("archive = %s, want %s", archive, zipPath)
				}
				visited = append(visited, file.Name)
				return nil
			})
			if err != nil {
				t.Errorf("Walk() error = %v", err)
			}
			if len(visited) != tt.want {
				t.Errorf("visited %d files (%v), want %d", len(visited), visited, tt.want)
			}
		})
	}

	t.Run("walkFn returns error", func(t *testing.T) {
		expectedErr := errors.New("test error")
		err := Walk(zipPath, "def/", func(archive string, file *fixzip.File) error {
			return expectedErr
		})
		if err != expectedErr {
			t.Errorf("Walk() error = %v, want %v", err, expectedErr)
		}
	})

	t.Run("walkFn skips the rest", func(t *testing.T) {
		visited := 0
		err := Walk(zipPath, "", func(archive string, file *fixzip.File) error {
			visited++
			return fs.SkipAll
		})
		if err != nil {
			t.Errorf("Walk() error = %v, want nil", err)
		}
		if visited != 1 {
			t.Errorf("visited %d files, want 1", visited)
		}
	})
}

func TestWalk_InvalidArchive(t *testing.T) {
	t.Run("nonexistent file", func(t *testing.T) {
		err := Walk("/nonexistent/file.zip", "", func(archive string, file *fixzip.File) error {
			return nil
		})
		if !errors.Is(err, common.ErrIO) {
			t.Errorf("Walk() error = %v, want ErrIO", err)
		}
	})

	t.Run("invalid zip file", func(t *testing.T) {
		invalidZip := filepath.Join(t.TempDir(), "invalid.zip")
		if err := os.WriteFile(invalidZip, []byte("not a zip file"), 0644); err != nil {
			t.Fatalf("Failed to create invalid zip: %v", err)
		}
		err := Walk(invalidZip, "", func(archive string, file *fixzip.File) error {
			return nil
		})
		if !errors.Is(err, common.ErrArchiveFormat) {
			t.Errorf("Walk() error = %v, want ErrArchiveFormat", err)
		}
	})

	t.Run("path traversal after matching entry", func(t *testing.T) {
		zipPath := filepath.Join(t.TempDir(), "slip.zip")
		makeArchive(t, zipPath, []testEntry{
			{name: "manifest.sii", content: "x"},
			{name: "../../evil.sii", content: "y"},
		})
		visited := 0
		err := Walk(zipPath, "manifest.sii", func(archive string, file *fixzip.File) error {
			visited++
			return fs.SkipAll
		})
		if !errors.Is(err, common.ErrArchiveFormat) {
			t.Errorf("Walk() error = %v, want ErrArchiveFormat", err)
		}
		if visited != 0 {
			t.Errorf("visited %d files of unsafe archive, want 0", visited)
		}
	})

	t.Run("path traversal", func(t *testing.T) {
		zipPath := filepath.Join(t.TempDir(), "slip.zip")
		makeArchive(t, zipPath, []testEntry{
			{name: "manifest.sii", content: "x"},
			{name: "../../evil.sii", content: "y"},
		})
		err := Walk(zipPath, "", func(archive string, file *fixzip.File) error {
			return nil
		})
		if !errors.Is(err, common.ErrArchiveFormat) {
			t.Errorf("Walk() error = %v, want ErrArchiveFormat", err)
		}
	})
}

func TestWalk_WithDirectories(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	makeArchive(t, zipPath, []testEntry{
		{name: "def/"},
		{name: "def/file.sii", content: "content"},
	})

	// Walk should not call walkFn for directories
	var visited []string
	err := Walk(zipPath, "def/", func(archive string, file *fixzip.File) error {
		visited = append(visited, file.Name)
		return nil
	})
	if err != nil {
		t.Errorf("Walk() error = %v", err)
	}
	if len(visited) != 1 || visited[0] != "def/file.sii" {
		t.Errorf("visited %v, want [def/file.sii]", visited)
	}
}

func TestWalk_FileContent(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	content := []byte("SiiNunit\n{\n}\n")
	makeArchive(t, zipPath, []testEntry{{name: "manifest.sii", content: string(content)}})

	err := Walk(zipPath, "", func(archive string, file *fixzip.File) error {
		data, err := readEntry(file)
		if err != nil {
			return err
		}
		if !bytes.Equal(data, content) {
			t.Errorf("content = %s, want %s", data, content)
		}
		return nil
	})
	if err != nil {
		t.Errorf("Walk() error = %v", err)
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"manifest.sii", true},
		{"def/world/truck.sii", true},
		{"..manifest.sii", true},
		{"/etc/passwd", false},
		{`\windows\system32`, false},
		{"def/../../x", false},
		{"..", false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
