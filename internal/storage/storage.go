package storage

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	ErrFileTooLarge    = errors.New("file exceeds size limit")
	ErrInvalidFilename = errors.New("invalid filename")
)

// Manager owns the upload and output directory trees. Uploads live under
// uploadRoot/<uploadID>/ and translated files under outputRoot/<jobID>/,
// so removing a batch is a single directory removal.
type Manager struct {
	uploadRoot  string
	outputRoot  string
	maxFileSize int64
}

func NewManager(uploadRoot, outputRoot string, maxFileSizeMB int) (*Manager, error) {
	if err := os.MkdirAll(uploadRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	if err := os.MkdirAll(outputRoot, 0o755); err != nil {
		return nil, fmt.Errorf("create output root: %w", err)
	}
	return &Manager{
		uploadRoot:  uploadRoot,
		outputRoot:  outputRoot,
		maxFileSize: int64(maxFileSizeMB) * 1024 * 1024,
	}, nil
}

type SavedFile struct {
	Name      string
	Path      string
	SizeBytes int64
}

// SaveUpload streams one uploaded file to disk under the upload's
// directory. The filename is sanitized first and the size limit is
// enforced while copying, so an oversized body never lands on disk.
func (m *Manager) SaveUpload(uploadID, filename string, r io.Reader) (SavedFile, error) {
	name, err := SanitizeFilename(filename)
	if err != nil {
		return SavedFile{}, err
	}
	dir := filepath.Join(m.uploadRoot, uploadID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return SavedFile{}, fmt.Errorf("create upload dir: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return SavedFile{}, fmt.Errorf("create upload file: %w", err)
	}

	written, err := io.Copy(f, io.LimitReader(r, m.maxFileSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return SavedFile{}, fmt.Errorf("write upload file: %w", err)
	}
	if written > m.maxFileSize {
		_ = os.Remove(path)
		return SavedFile{}, ErrFileTooLarge
	}

	return SavedFile{Name: name, Path: path, SizeBytes: written}, nil
}

// ListUpload returns the saved files of an upload in name order.
func (m *Manager) ListUpload(uploadID string) ([]SavedFile, error) {
	dir := filepath.Join(m.uploadRoot, uploadID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read upload dir: %w", err)
	}

	ret := make([]SavedFile, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat upload file %s: %w", entry.Name(), err)
		}
		ret = append(ret, SavedFile{
			Name:      entry.Name(),
			Path:      filepath.Join(dir, entry.Name()),
			SizeBytes: info.Size(),
		})
	}
	sort.Slice(ret, func(i, j int) bool { return ret[i].Name < ret[j].Name })
	return ret, nil
}

func (m *Manager) ReadUpload(uploadID, name string) ([]byte, error) {
	clean, err := SanitizeFilename(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(m.uploadRoot, uploadID, clean))
}

// WriteOutput stores one translated file under the job's output directory
// and returns its path.
func (m *Manager) WriteOutput(jobID, name string, data []byte) (string, error) {
	clean, err := SanitizeFilename(name)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(m.outputRoot, jobID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, clean)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write output file: %w", err)
	}
	return path, nil
}

func (m *Manager) ReadOutput(jobID, name string) ([]byte, error) {
	clean, err := SanitizeFilename(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(filepath.Join(m.outputRoot, jobID, clean))
}

// ZipOutputs writes a zip archive of every file in the job's output
// directory to w, in stable name order.
func (m *Manager) ZipOutputs(jobID string, w io.Writer) error {
	dir := filepath.Join(m.outputRoot, jobID)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read output dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, entry.Name())
	}
	if len(names) == 0 {
		return fmt.Errorf("no output files for job %s", jobID)
	}
	sort.Strings(names)

	zw := zip.NewWriter(w)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("read output file %s: %w", name, err)
		}
		entry, err := zw.Create(name)
		if err != nil {
			_ = zw.Close()
			return fmt.Errorf("add zip entry %s: %w", name, err)
		}
		if _, err := entry.Write(data); err != nil {
			_ = zw.Close()
			return fmt.Errorf("write zip entry %s: %w", name, err)
		}
	}
	return zw.Close()
}

func (m *Manager) RemoveUpload(uploadID string) error {
	if uploadID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(m.uploadRoot, uploadID))
}

func (m *Manager) RemoveOutput(jobID string) error {
	if jobID == "" {
		return nil
	}
	return os.RemoveAll(filepath.Join(m.outputRoot, jobID))
}

// SanitizeFilename reduces a client-supplied filename to its base name
// and rejects anything that could escape the target directory.
func SanitizeFilename(name string) (string, error) {
	name = strings.TrimSpace(name)
	// Clients on Windows may send backslash-separated paths.
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	if name == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return "", ErrInvalidFilename
	}
	if strings.ContainsAny(name, "\x00") {
		return "", ErrInvalidFilename
	}
	return name, nil
}

// FormatTag extracts the lowercase extension of a filename without the
// leading dot, e.g. "Movie.EN.SRT" yields "srt".
func FormatTag(name string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
}
