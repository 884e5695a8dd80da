package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()
	arc, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer arc.Close()

	out := make(map[string]string)
	for _, f := range arc.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		out[f.Name] = string(data)
	}
	return out
}

func TestReport_Close(t *testing.T) {
	dir := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}
	r, err := conf.Prepare()
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}

	theme := filepath.Join(dir, "theme.yaml")
	if err := os.WriteFile(theme, []byte("name: dark"), 0644); err != nil {
		t.Fatal(err)
	}
	sources := filepath.Join(dir, "themes")
	if err := os.MkdirAll(filepath.Join(sources, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sources, "nested", "light.yaml"), []byte("name: light"), 0644); err != nil {
		t.Fatal(err)
	}

	r.StoreData("config/config.yaml", []byte("version: 1"))
	r.Store("output", theme)
	r.Store("missing", filepath.Join(dir, "absent.css"))
	if err := r.StoreCopy("source", theme); err != nil {
		t.Fatalf("StoreCopy() error: %v", err)
	}
	if err := r.StoreCopy("sources", sources); err != nil {
		t.Fatalf("StoreCopy() error: %v", err)
	}
	copies := append([]string(nil), r.copies...)

	// content changed after copy was taken
	if err := os.WriteFile(theme, []byte("name: changed"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Report.Close() error: %v", err)
	}

	files := readArchive(t, conf.Destination)
	want := map[string]string{
		"config/config.yaml":        "version: 1",
		"output":                    "name: changed",
		"source":                    "name: dark",
		"sources/nested/light.yaml": "name: light",
	}
	for name, content := range want {
		if files[name] != content {
			t.Errorf("%s = %q, want %q", name, files[name], content)
		}
	}
	if _, ok := files["missing"]; ok {
		t.Error("absent file must be skipped")
	}
	if !strings.Contains(files["MANIFEST"], "sources") {
		t.Errorf("MANIFEST incomplete:\n%s", files["MANIFEST"])
	}

	for _, c := range copies {
		if _, err := os.Stat(c); !os.IsNotExist(err) {
			t.Errorf("temporary copy %s was not removed", c)
		}
	}
}

func TestReport_StoreCopyRepeated(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.css")
	if err := os.WriteFile(src, []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}

	r := &Report{entries: make(map[string]entry)}
	defer r.Close()
	for range 2 {
		if err := r.StoreCopy("a", src); err != nil {
			t.Fatalf("StoreCopy() error: %v", err)
		}
	}
	if len(r.entries) != 2 {
		t.Errorf("expected versioned entry, got %d entries", len(r.entries))
	}
	if err := r.StoreCopy("b", filepath.Join(dir, "absent")); err == nil {
		t.Error("expected error for absent source")
	}
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("a", nil)
	if err := r.StoreCopy("a", "b"); err != nil {
		t.Errorf("StoreCopy on nil report should not error, got: %v", err)
	}
	if r.Name() != "" {
		t.Error("nil report has no name")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
}

func TestReport_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
