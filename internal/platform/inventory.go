package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ytget/flowfetch/internal/model"
)

// KeySeparator splits a decorated file name from the record key ("prefix_<key>.jpg")
const KeySeparator = "_"

// ImageExtensions are the file extensions the inventory recognises
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".webp", ".gif"}

// Inventory is the set of record keys already present in the output directory
type Inventory map[string]struct{}

// NewInventory builds an inventory from the given keys
func NewInventory(keys ...string) Inventory {
	inv := make(Inventory, len(keys))
	for _, key := range keys {
		inv.Add(key)
	}
	return inv
}

// Add records key as downloaded
func (inv Inventory) Add(key string) {
	inv[key] = struct{}{}
}

// Has reports whether key is already downloaded
func (inv Inventory) Has(key string) bool {
	_, ok := inv[key]
	return ok
}

// Len returns the number of known keys
func (inv Inventory) Len() int {
	return len(inv)
}

// ScanDownloadedKeys lists dir and returns the keys derivable from its image
// file names. A missing directory yields an empty inventory.
func ScanDownloadedKeys(dir string) (Inventory, error) {
	inv := NewInventory()

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return inv, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if key, ok := ExtractKey(entry.Name()); ok {
			inv.Add(key)
		}
	}

	return inv, nil
}

// ExtractKey derives a record key from a file name: the extension must be a
// recognised image extension, the key is the part of the stem after the last
// separator (the whole stem if there is none) and must be model.KeyLength long.
func ExtractKey(fileName string) (string, bool) {
	ext := filepath.Ext(fileName)
	if !IsImageExtension(ext) {
		return "", false
	}

	stem := strings.TrimSuffix(fileName, ext)
	if idx := strings.LastIndex(stem, KeySeparator); idx >= 0 {
		stem = stem[idx+len(KeySeparator):]
	}

	if utf8.RuneCountInString(stem) != model.KeyLength {
		return "", false
	}
	return stem, true
}

// IsImageExtension reports whether ext (with leading dot) is a recognised image extension
func IsImageExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, known := range ImageExtensions {
		if ext == known {
			return true
		}
	}
	return false
}
