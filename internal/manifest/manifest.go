// Package manifest loads the JSON list of image records a run works from.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ytget/flowfetch/internal/model"
)

// ErrManifestNotFound is returned when the manifest path does not exist
var ErrManifestNotFound = errors.New("manifest file does not exist")

// ParseError reports a manifest that is not a JSON array of records. It aborts
// the whole run, unlike a record with a missing field which only fails itself.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse manifest %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Load reads and decodes the manifest at path
func Load(path string) ([]model.ImageRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return records, nil
}

// Decode parses a JSON array of {"key", "url"} objects, preserving order.
// Records lacking either field are kept; they are rejected when fetched.
func Decode(r io.Reader) ([]model.ImageRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, errors.New("expected a JSON array of image records")
	}

	var records []model.ImageRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, err
	}
	return records, nil
}
