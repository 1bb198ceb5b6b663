package wheelmatrix

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writeWheel writes a minimal wheel archive with a WHEEL metadata file.
func writeWheel(t *testing.T, path, tag string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create wheel directory: %v", err)
	}

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create wheel: %v", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	files := map[string]string{
		"docrpy.pyd":                   "binary",
		"docrpy-0.1.0.dist-info/WHEEL": "Wheel-Version: 1.0\nGenerator: maturin (0.8.3)\nRoot-Is-Purelib: false\nTag: " + tag + "\n",
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("failed to add %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("failed to finish wheel: %v", err)
	}
}

func TestParseWheelFilename(t *testing.T) {
	testCases := []struct {
		name string
		want *WheelInfo
	}{
		{
			"docrpy-0.1.0-cp38-none-win_amd64.whl",
			&WheelInfo{Distribution: "docrpy", Version: "0.1.0", PythonTag: "cp38", ABITag: "none", PlatformTag: "win_amd64"},
		},
		{
			"dist/docrpy-0.1.0-1-cp37-cp37m-win32.whl",
			&WheelInfo{Distribution: "docrpy", Version: "0.1.0", Build: "1", PythonTag: "cp37", ABITag: "cp37m", PlatformTag: "win32"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseWheelFilename(tc.name)
			if err != nil {
				t.Fatalf("ParseWheelFilename returned error: %v", err)
			}
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}

	for _, bad := range []string{"docrpy.zip", "docrpy-0.1.0.whl", "docrpy--cp38-none-win32.whl"} {
		if _, err := ParseWheelFilename(bad); err == nil {
			t.Errorf("expected error for %s", bad)
		}
	}
}

func TestInspectWheel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docrpy-0.1.0-cp38-none-win_amd64.whl")
	writeWheel(t, path, "cp38-none-win_amd64")

	info, err := InspectWheel(context.Background(), path)
	if err != nil {
		t.Fatalf("InspectWheel returned error: %v", err)
	}
	if !info.HasMetadata {
		t.Fatal("expected WHEEL metadata to be found")
	}
	if diff := cmp.Diff([]string{"cp38-none-win_amd64"}, info.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if info.RootIsPure {
		t.Error("expected Root-Is-Purelib false")
	}
	if info.Generator != "maturin (0.8.3)" {
		t.Errorf("unexpected generator %q", info.Generator)
	}
}

func TestInspectWheelRejectsNonArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docrpy-0.1.0-cp38-none-win_amd64.whl")
	if err := os.WriteFile(path, []byte("not a zip file at all"), 0o644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	if _, err := InspectWheel(context.Background(), path); err == nil {
		t.Fatal("expected error for a non-zip wheel")
	}
}
