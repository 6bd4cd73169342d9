package download

import (
	"context"

	"github.com/ytget/flowfetch/internal/model"
	"github.com/ytget/flowfetch/internal/platform"
)

// Downloader defines the interface for the download service.
type Downloader interface {
	SetUpdateCallback(func(*model.DownloadTask))

	// FilterPending returns the records whose key is not in the inventory, in manifest order
	FilterPending(records []model.ImageRecord, downloaded platform.Inventory) []model.ImageRecord

	// Fetch downloads a single record into the download directory
	Fetch(ctx context.Context, record model.ImageRecord) (*model.DownloadTask, error)

	// Download fetches already filtered records sequentially
	Download(ctx context.Context, pending []model.ImageRecord) model.Summary

	// Run filters records and fetches the remaining ones sequentially
	Run(ctx context.Context, records []model.ImageRecord, downloaded platform.Inventory) model.Summary
}

var _ Downloader = (*Service)(nil)
