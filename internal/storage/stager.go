package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// Stager writes uploads into a shared directory under collision-free names.
type Stager struct {
	dir string
}

func NewStager(dir string) (*Stager, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &Stager{dir: dir}, nil
}

func (s *Stager) Dir() string {
	return s.dir
}

// Stage copies r into a new file named after filename. The caller owns the returned file and must Release it.
func (s *Stager) Stage(filename string, r io.Reader) (*StagedFile, error) {
	path := filepath.Join(s.dir, uuid.NewString()+"_"+SecureFilename(filename))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}
	staged := &StagedFile{path: path}
	_, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		staged.Release()
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}
	return staged, nil
}

type StagedFile struct {
	path string
}

func (f *StagedFile) Path() string {
	return f.path
}

func (f *StagedFile) ReadAll() ([]byte, error) {
	return os.ReadFile(f.path)
}

// Release deletes the file. Safe to call more than once.
func (f *StagedFile) Release() error {
	err := os.Remove(f.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SecureFilename reduces name to a flat ASCII file name that cannot escape the staging directory.
func SecureFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.ReplaceAll(name, "/", " ")
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "._")
	name = strings.TrimRight(name, "._")
	if name == "" {
		return "upload"
	}
	return name
}
