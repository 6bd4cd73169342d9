package model

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// DownloadTask represents one attempt to fetch an eligible record
type DownloadTask struct {
	Record       ImageRecord
	Index        int // 1-based position among eligible records
	Total        int // number of eligible records in this run
	Status       TaskStatus
	BytesWritten int64
	OutputPath   string // final path, set on success
	LastError    string // last error message if any
	StartedAt    time.Time
	FinishedAt   time.Time
}

// NewDownloadTask creates a pending task for the record at position index of total
func NewDownloadTask(record ImageRecord, index, total int) *DownloadTask {
	return &DownloadTask{
		Record: record,
		Index:  index,
		Total:  total,
		Status: TaskStatusPending,
	}
}

// IsLast reports whether this is the final eligible record
func (dt *DownloadTask) IsLast() bool {
	return dt.Index == dt.Total
}

// GetPositionString returns the position formatted as "[i/n]"
func (dt *DownloadTask) GetPositionString() string {
	return fmt.Sprintf("[%d/%d]", dt.Index, dt.Total)
}

// GetShortError returns LastError cut to at most limit characters
func (dt *DownloadTask) GetShortError(limit int) string {
	if limit <= 0 || utf8.RuneCountInString(dt.LastError) <= limit {
		return dt.LastError
	}
	runes := []rune(dt.LastError)
	return string(runes[:limit])
}

// Elapsed returns how long the task ran, or zero if it has not finished
func (dt *DownloadTask) Elapsed() time.Duration {
	if dt.StartedAt.IsZero() || dt.FinishedAt.IsZero() {
		return 0
	}
	return dt.FinishedAt.Sub(dt.StartedAt)
}
