package romloader

import (
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip"
	"github.com/nwaples/rardecode/v2"
)

// entry is one file of a random-access archive.
type entry struct {
	name string
	info fs.FileInfo
	open func() (io.ReadCloser, error)
}

// firstMatch reads the first regular entry accepted by m.
func firstMatch(entries []entry, m func(string) bool) ([]byte, string, error) {
	for _, e := range entries {
		if e.info.IsDir() || !m(e.name) {
			continue
		}
		rc, err := e.open()
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s in archive: %w", e.name, err)
		}
		data, err := readLimited(rc)
		rc.Close()
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", e.name, err)
		}
		return data, filepath.Base(e.name), nil
	}
	return nil, "", ErrNoMedia
}

func fromZIP(path string, m func(string) bool) ([]byte, string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open zip: %w", err)
	}
	defer r.Close()

	entries := make([]entry, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, entry{name: f.Name, info: f.FileInfo(), open: f.Open})
	}
	return firstMatch(entries, m)
}

func from7z(path string, m func(string) bool) ([]byte, string, error) {
	r, err := sevenzip.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open 7z: %w", err)
	}
	defer r.Close()

	entries := make([]entry, 0, len(r.File))
	for _, f := range r.File {
		entries = append(entries, entry{name: f.Name, info: f.FileInfo(), open: f.Open})
	}
	return firstMatch(entries, m)
}

// fromGzip handles both a bare .gz image and a tar.gz bundle.
func fromGzip(r io.ReadSeeker, path string, m func(string) bool) ([]byte, string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("failed to seek file: %w", err)
	}
	gr, err := gzip.NewReader(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer gr.Close()

	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".tar.gz") || strings.HasSuffix(lower, ".tgz") {
		return fromTar(gr, m)
	}

	data, err := readLimited(gr)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decompress gzip: %w", err)
	}
	name := filepath.Base(path)
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		name = name[:len(name)-3]
	}
	return data, name, nil
}

func fromTar(r io.Reader, m func(string) bool) ([]byte, string, error) {
	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if err == io.EOF {
			return nil, "", ErrNoMedia
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read tar entry: %w", err)
		}
		if h.Typeflag != tar.TypeReg || !m(h.Name) {
			continue
		}
		data, err := readLimited(tr)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s from tar: %w", h.Name, err)
		}
		return data, filepath.Base(h.Name), nil
	}
}

func fromRAR(path string, m func(string) bool) ([]byte, string, error) {
	r, err := rardecode.OpenReader(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open rar: %w", err)
	}
	defer r.Close()

	for {
		h, err := r.Next()
		if err == io.EOF {
			return nil, "", ErrNoMedia
		}
		if err != nil {
			return nil, "", fmt.Errorf("failed to read rar entry: %w", err)
		}
		if h.IsDir || !m(h.Name) {
			continue
		}
		data, err := readLimited(r)
		if err != nil {
			return nil, "", fmt.Errorf("failed to read %s: %w", h.Name, err)
		}
		return data, filepath.Base(h.Name), nil
	}
}
