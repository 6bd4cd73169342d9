package model

import (
	"errors"
	"strings"
)

// KeyLength is the length of a record key (a UUID in its canonical form)
const KeyLength = 36

// Validation errors for a single record. They fail only that record.
var (
	ErrMissingKey = errors.New("record has no key")
	ErrMissingURL = errors.New("record has no url")
	ErrInvalidKey = errors.New("record key is not a valid file name")
)

// ImageRecord is a single manifest entry
type ImageRecord struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Validate reports whether the record carries the fields needed to fetch it
func (r ImageRecord) Validate() error {
	if strings.TrimSpace(r.Key) == "" {
		return ErrMissingKey
	}
	if r.Key == "." || r.Key == ".." || strings.ContainsAny(r.Key, `/\`+"\x00") {
		return ErrInvalidKey
	}
	if strings.TrimSpace(r.URL) == "" {
		return ErrMissingURL
	}
	return nil
}

// FileName returns the output file name for the record, e.g. "<key>.jpg"
func (r ImageRecord) FileName(ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return r.Key + ext
}
