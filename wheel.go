package wheelmatrix

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/mholt/archives"
)

// WheelInfo describes a built wheel.
type WheelInfo struct {
	Distribution string
	Version      string
	Build        string // optional build tag
	PythonTag    string // e.g. cp38
	ABITag       string // e.g. cp38
	PlatformTag  string // e.g. win_amd64

	// From the archive's *.dist-info/WHEEL file
	Tags        []string
	RootIsPure  bool
	Generator   string
	HasMetadata bool
}

// ParseWheelFilename splits a wheel file name into its tags:
//
//	{distribution}-{version}(-{build})?-{python}-{abi}-{platform}.whl
func ParseWheelFilename(name string) (*WheelInfo, error) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, ".whl") {
		return nil, fmt.Errorf("not a wheel file name: %s", base)
	}

	parts := strings.Split(strings.TrimSuffix(base, ".whl"), "-")
	info := &WheelInfo{}

	switch len(parts) {
	case 5:
	case 6:
		info.Build = parts[2]
		parts = append(parts[:2], parts[3:]...)
	default:
		return nil, fmt.Errorf("malformed wheel file name: %s", base)
	}

	for _, part := range parts {
		if part == "" {
			return nil, fmt.Errorf("malformed wheel file name: %s", base)
		}
	}

	info.Distribution = parts[0]
	info.Version = parts[1]
	info.PythonTag = parts[2]
	info.ABITag = parts[3]
	info.PlatformTag = parts[4]
	return info, nil
}

// InspectWheel parses the file name of a wheel and reads its WHEEL metadata.
//
// The file must be a zip archive. A wheel without a *.dist-info/WHEEL entry
// is returned with HasMetadata=false.
func InspectWheel(ctx context.Context, wheelPath string) (*WheelInfo, error) {
	info, err := ParseWheelFilename(wheelPath)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(wheelPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, 262)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read %s: %w", wheelPath, err)
	}
	if !filetype.Is(head[:n], "zip") {
		return nil, fmt.Errorf("%s is not a zip archive", filepath.Base(wheelPath))
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	var zip archives.Zip
	err = zip.Extract(ctx, f, func(_ context.Context, file archives.FileInfo) error {
		if file.IsDir() || !isWheelMetadata(file.NameInArchive) {
			return nil
		}

		rc, err := file.Open()
		if err != nil {
			return err
		}
		defer rc.Close()

		info.HasMetadata = true
		return info.parseMetadata(rc)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read wheel %s: %w", filepath.Base(wheelPath), err)
	}

	return info, nil
}

func isWheelMetadata(name string) bool {
	name = strings.TrimPrefix(name, "/")
	return path.Base(name) == "WHEEL" && strings.HasSuffix(path.Dir(name), ".dist-info") &&
		!strings.Contains(path.Dir(name), "/")
}

// parseMetadata reads the RFC 822 style key/value lines of a WHEEL file.
func (w *WheelInfo) parseMetadata(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)

		switch strings.TrimSpace(key) {
		case "Tag":
			w.Tags = append(w.Tags, value)
		case "Root-Is-Purelib":
			w.RootIsPure = strings.EqualFold(value, "true")
		case "Generator":
			w.Generator = value
		}
	}
	return scanner.Err()
}
