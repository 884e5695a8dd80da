package archive

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

type entry struct {
	name    string
	content string
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func makeZip(t *testing.T, entries ...entry) string {
	t.Helper()
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	defer zipFile.Close()

	w := zip.NewWriter(zipFile)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		if err != nil {
			t.Fatalf("Failed to create file %s in zip: %v", e.name, err)
		}
		if _, err := fw.Write([]byte(e.content)); err != nil {
			t.Fatalf("Failed to write content for %s: %v", e.name, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to finalize zip: %v", err)
	}
	return zipPath
}

func isYAML(name string) bool {
	return strings.HasSuffix(name, ".yaml")
}

func TestWalk(t *testing.T) {
	zipPath := makeZip(t,
		entry{"themes/theme10.yaml", "ten"},
		entry{"themes/theme2.yaml", "two"},
		entry{"themes/", ""},
		entry{"readme.txt", "readme"},
		entry{"theme1.yaml", "one"},
	)

	t.Run("matching in natural order", func(t *testing.T) {
		var visited []string
		err := Walk(zipPath, isYAML, func(archive string, file *zip.File) error {
			if archive != zipPath {
				t.Errorf("archive = %s, want %s", archive, zipPath)
			}
			visited = append(visited, file.Name)
			return nil
		})
		if err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		want := []string{"theme1.yaml", "themes/theme2.yaml", "themes/theme10.yaml"}
		if diff := cmp.Diff(want, visited); diff != "" {
			t.Errorf("visited mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("nil match skips only directories", func(t *testing.T) {
		count := 0
		if err := Walk(zipPath, nil, func(string, *zip.File) error { count++; return nil }); err != nil {
			t.Fatalf("Walk() error = %v", err)
		}
		if count != 4 {
			t.Errorf("visited %d files, want 4", count)
		}
	})

	t.Run("walkFn error stops processing", func(t *testing.T) {
		stop := errors.New("stop")
		count := 0
		err := Walk(zipPath, nil, func(string, *zip.File) error {
			count++
			return stop
		})
		if !errors.Is(err, stop) {
			t.Errorf("Walk() error = %v, want %v", err, stop)
		}
		if count != 1 {
			t.Errorf("visited %d files after error, want 1", count)
		}
	})
}

func TestWalk_InvalidArchive(t *testing.T) {
	if err := Walk(filepath.Join(t.TempDir(), "missing.zip"), nil, func(string, *zip.File) error { return nil }); err == nil {
		t.Error("expected error for nonexistent file")
	}

	bad := filepath.Join(t.TempDir(), "bad.zip")
	if err := os.WriteFile(bad, []byte("not a zip"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Walk(bad, nil, func(string, *zip.File) error { return nil }); err == nil {
		t.Error("expected error for invalid zip file")
	}
}

func TestWalk_UnsafePath(t *testing.T) {
	zipPath := makeZip(t, entry{"ok.yaml", "a"}, entry{"../evil.yaml", "b"})
	called := false
	err := Walk(zipPath, nil, func(string, *zip.File) error { called = true; return nil })
	if err == nil {
		t.Error("expected error for unsafe entry")
	}
	if called {
		t.Error("walkFn should not be called for archive with unsafe entries")
	}
}

func TestReadFile(t *testing.T) {
	zipPath := makeZip(t, entry{"a.yaml", "name: a\n"})
	var got string
	err := Walk(zipPath, nil, func(_ string, file *zip.File) error {
		data, err := ReadFile(file)
		got = string(data)
		return err
	})
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if got != "name: a\n" {
		t.Errorf("ReadFile() = %q", got)
	}
}

func TestReadFile_TooLarge(t *testing.T) {
	zipPath := makeZip(t, entry{"big.yaml", strings.Repeat("a", MaxEntrySize+1)})
	err := Walk(zipPath, nil, func(_ string, file *zip.File) error {
		_, err := ReadFile(file)
		return err
	})
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a/b.yaml", true},
		{"a..b.yaml", true},
		{"/etc/passwd", false},
		{`\windows`, false},
		{"a/../../b", false},
		{"..", false},
	}
	for _, tt := range tests {
		if got := isSafePath(tt.name); got != tt.want {
			t.Errorf("isSafePath(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestIsArchive(t *testing.T) {
	for name, want := range map[string]bool{"a.zip": true, "A.ZIP": true, "a.yaml": false, "zip": false} {
		if got := IsArchive(name); got != want {
			t.Errorf("IsArchive(%q) = %v, want %v", name, got, want)
		}
	}
}
