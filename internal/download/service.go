package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ytget/flowfetch/internal/model"
	"github.com/ytget/flowfetch/internal/platform"
)

// Defaults used when Options leaves a field empty
const (
	DefaultTimeout   = 30 * time.Second
	DefaultChunkSize = 8192
	DefaultExtension = ".jpg"
	PartialSuffix    = ".part-"
)

// Options configures a Service
type Options struct {
	Timeout   time.Duration
	ChunkSize int
	Extension string
	UserAgent string
	Client    *http.Client // replaces the default transport; Timeout still bounds idle reads
	Logger    *zap.Logger
}

// Service handles download operations
type Service struct {
	client      *http.Client
	timeout     time.Duration
	downloadDir string
	extension   string
	chunkSize   int
	userAgent   string
	logger      *zap.Logger
	onUpdate    func(*model.DownloadTask) // callback for progress reporting
}

// NewService creates a new download service writing into downloadDir
func NewService(downloadDir string, opts Options) *Service {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := opts.Client
	if client == nil {
		client = newHTTPClient(timeout)
	}

	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	extension := opts.Extension
	if extension == "" {
		extension = DefaultExtension
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		client:      client,
		timeout:     timeout,
		downloadDir: downloadDir,
		extension:   extension,
		chunkSize:   chunkSize,
		userAgent:   opts.UserAgent,
		logger:      logger,
	}
}

// SetUpdateCallback sets the callback function for task updates
func (s *Service) SetUpdateCallback(callback func(*model.DownloadTask)) {
	s.onUpdate = callback
}

// FilterPending returns the records not yet in downloaded, preserving order
func (s *Service) FilterPending(records []model.ImageRecord, downloaded platform.Inventory) []model.ImageRecord {
	pending := make([]model.ImageRecord, 0, len(records))
	for _, record := range records {
		if downloaded.Has(record.Key) {
			continue
		}
		pending = append(pending, record)
	}
	return pending
}

// Run filters records against downloaded and downloads the rest
func (s *Service) Run(ctx context.Context, records []model.ImageRecord, downloaded platform.Inventory) model.Summary {
	summary := s.Download(ctx, s.FilterPending(records, downloaded))
	summary.Total = len(records)
	summary.AlreadyDownloaded = downloaded.Len()
	return summary
}

// Download fetches pending one record after another. A failed record is
// counted and skipped; it is never retried within the run. Total and
// AlreadyDownloaded are left for the caller, which knows the manifest.
func (s *Service) Download(ctx context.Context, pending []model.ImageRecord) model.Summary {
	summary := model.Summary{
		Pending:   len(pending),
		OutputDir: s.absDownloadDir(),
	}

	for i, record := range pending {
		task := model.NewDownloadTask(record, i+1, len(pending))
		s.runTask(ctx, task)

		if task.Status == model.TaskStatusCompleted {
			summary.Succeeded++
			summary.Bytes += task.BytesWritten
		} else {
			summary.Failed++
		}
	}

	s.logger.Info("run finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.String("dir", summary.OutputDir))

	return summary
}

// Fetch downloads a single record and returns its finished task
func (s *Service) Fetch(ctx context.Context, record model.ImageRecord) (*model.DownloadTask, error) {
	task := model.NewDownloadTask(record, 1, 1)
	err := s.runTask(ctx, task)
	return task, err
}

// runTask drives one task through Downloading to Completed or Error
func (s *Service) runTask(ctx context.Context, task *model.DownloadTask) error {
	task.Status = model.TaskStatusDownloading
	task.StartedAt = time.Now()
	s.notifyUpdate(task)

	written, path, err := s.fetchRecord(ctx, task.Record)

	task.FinishedAt = time.Now()
	if err != nil {
		task.Status = model.TaskStatusError
		task.LastError = err.Error()
		err = &RecordError{Key: task.Record.Key, Err: err}
		s.logger.Warn("download failed",
			zap.String("key", task.Record.Key),
			zap.String("url", task.Record.URL),
			zap.Error(err))
	} else {
		task.Status = model.TaskStatusCompleted
		task.BytesWritten = written
		task.OutputPath = path
		s.logger.Debug("download completed",
			zap.String("key", task.Record.Key),
			zap.String("path", path),
			zap.Int64("bytes", written),
			zap.Duration("elapsed", task.Elapsed()))
	}

	s.notifyUpdate(task)
	return err
}

// fetchRecord validates the record and streams its URL to <dir>/<key><ext>
func (s *Service) fetchRecord(ctx context.Context, record model.ImageRecord) (int64, string, error) {
	if err := record.Validate(); err != nil {
		return 0, "", err
	}

	target := filepath.Join(s.downloadDir, record.FileName(s.extension))
	written, err := s.downloadImage(ctx, record.URL, target)
	if err != nil {
		return 0, "", err
	}
	return written, target, nil
}

// downloadImage issues a GET for url and writes the body to target. The body
// goes to a temporary file next to target first, so a failure never leaves a
// file the inventory would count as downloaded. The request is cancelled once
// no data has arrived for s.timeout; a slow but steady body may take longer.
func (s *Service) downloadImage(ctx context.Context, url, target string) (int64, error) {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	idle := time.AfterFunc(s.timeout, func() { cancel(ErrIdleTimeout) })
	defer idle.Stop()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	s.logger.Debug("fetching image", zap.String("url", url), zap.String("target", target))

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, s.idleError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	partial := partialPath(target)
	f, err := os.OpenFile(partial, os.O_CREATE|os.O_EXCL|os.O_WRONLY, platform.DefaultFilePermissions)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}

	written, err := s.copyChunks(f, resp.Body, idle)
	if err != nil {
		err = s.idleError(ctx, err)
	}
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close file: %w", closeErr)
	}
	if err == nil {
		if renameErr := os.Rename(partial, target); renameErr != nil {
			err = fmt.Errorf("finalize file: %w", renameErr)
		}
	}
	if err != nil {
		if removeErr := os.Remove(partial); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
			s.logger.Warn("failed to remove partial file", zap.String("path", partial), zap.Error(removeErr))
		}
		return 0, err
	}

	return written, nil
}

// copyChunks writes src to dst in chunkSize pieces, pushing idle back after
// every read that returns data
func (s *Service) copyChunks(dst io.Writer, src io.Reader, idle *time.Timer) (int64, error) {
	buf := make([]byte, s.chunkSize)
	var written int64

	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			idle.Reset(s.timeout)
			m, writeErr := dst.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				return written, fmt.Errorf("write file: %w", writeErr)
			}
			if m != n {
				return written, fmt.Errorf("write file: %w", io.ErrShortWrite)
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, fmt.Errorf("read body: %w", readErr)
		}
	}
}

// idleError reports err as ErrIdleTimeout when the idle timer cancelled ctx
func (s *Service) idleError(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), ErrIdleTimeout) {
		return fmt.Errorf("%w (%s)", ErrIdleTimeout, s.timeout)
	}
	return err
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate(task *model.DownloadTask) {
	if s.onUpdate != nil {
		s.onUpdate(task)
	}
}

func (s *Service) absDownloadDir() string {
	abs, err := filepath.Abs(s.downloadDir)
	if err != nil {
		return s.downloadDir
	}
	return abs
}

// newHTTPClient bounds connecting, the TLS handshake and waiting for response
// headers by timeout. The body has no overall deadline; downloadImage watches
// for idle reads instead.
func newHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = timeout
	transport.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: transport}
}

// partialPath returns a unique temporary name for target, e.g. "<key>.jpg.part-<uuid>"
func partialPath(target string) string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to timestamp if UUID generation fails
		return fmt.Sprintf("%s%s%d", target, PartialSuffix, time.Now().UnixNano())
	}
	return target + PartialSuffix + id.String()
}
