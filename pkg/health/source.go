package health

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// Source supplies the raw bytes of a health export
type Source interface {
	// Name identifies the source in logs and errors
	Name() string
	// ReadAll returns the complete export content
	ReadAll() ([]byte, error)
}

// FileSource reads an export from a local path
type FileSource struct {
	Path string
}

// NewFileSource creates a source for the given path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

func (s *FileSource) Name() string { return s.Path }

// ReadAll reads the file, returning a SourceNotFoundError when it does not exist
func (s *FileSource) ReadAll() ([]byte, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SourceNotFoundError{Path: s.Path, Err: err}
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.Path, err)
	}
	return data, nil
}

// UploadSource wraps content received in memory, e.g. an HTTP upload
type UploadSource struct {
	Filename string
	Data     []byte
}

// NewUploadSource reads r fully into an UploadSource
func NewUploadSource(filename string, r io.Reader) (*UploadSource, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return &UploadSource{Filename: filename, Data: data}, nil
}

func (s *UploadSource) Name() string {
	if s.Filename == "" {
		return "upload"
	}
	return "upload:" + s.Filename
}

func (s *UploadSource) ReadAll() ([]byte, error) {
	return s.Data, nil
}
