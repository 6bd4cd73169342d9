package model

// TaskStatus represents the status of a single record download
type TaskStatus string

const (
	// TaskStatusPending means the record is eligible but not attempted yet
	TaskStatusPending TaskStatus = "Pending"

	// TaskStatusDownloading means the fetch is in progress
	TaskStatusDownloading TaskStatus = "Downloading"

	// TaskStatusCompleted means the image was written to the output directory
	TaskStatusCompleted TaskStatus = "Completed"

	// TaskStatusError means the fetch or the write failed
	TaskStatusError TaskStatus = "Error"
)

// String returns the string representation of TaskStatus
func (ts TaskStatus) String() string {
	return string(ts)
}

// IsActive returns true if the task is in an active state
func (ts TaskStatus) IsActive() bool {
	return ts == TaskStatusDownloading
}

// IsFinished returns true if the task is in a finished state (completed or error)
func (ts TaskStatus) IsFinished() bool {
	return ts == TaskStatusCompleted || ts == TaskStatusError
}
