package download

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ytget/flowfetch/internal/model"
	"github.com/ytget/flowfetch/internal/platform"
)

// newImageServer serves /img/<name> with a body derived from name, /fail with
// a 500, /short with a body cut before its declared length, /slow after a
// delay, /drip as eight 5-byte writes 100ms apart and /stall as 5 bytes
// followed by silence.
func newImageServer(t *testing.T) (*httptest.Server, *int32) {
	t.Helper()
	var requests int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)

		switch {
		case strings.HasPrefix(r.URL.Path, "/img/"):
			w.Header().Set("Content-Type", "image/jpeg")
			w.Write(imageBody(strings.TrimPrefix(r.URL.Path, "/img/")))
		case r.URL.Path == "/fail":
			http.Error(w, "boom", http.StatusInternalServerError)
		case r.URL.Path == "/short":
			w.Header().Set("Content-Length", "4096")
			w.Write([]byte("truncated"))
		case r.URL.Path == "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		case r.URL.Path == "/drip":
			for i := 0; i < 8; i++ {
				w.Write([]byte("drip;"))
				w.(http.Flusher).Flush()
				time.Sleep(100 * time.Millisecond)
			}
		case r.URL.Path == "/stall":
			w.Write([]byte("stall"))
			w.(http.Flusher).Flush()
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)

	return server, &requests
}

func imageBody(name string) []byte {
	return bytes.Repeat([]byte("jpeg:"+name+";"), 3000)
}

func newTestService(dir string) *Service {
	return NewService(dir, Options{Timeout: 5 * time.Second, ChunkSize: 512})
}

func listFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Failed to read dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestNewService(t *testing.T) {
	service := NewService("/tmp", Options{})

	if service.downloadDir != "/tmp" {
		t.Errorf("Expected downloadDir to be '/tmp', got '%s'", service.downloadDir)
	}
	if service.chunkSize != DefaultChunkSize {
		t.Errorf("Expected chunkSize to be %d, got %d", DefaultChunkSize, service.chunkSize)
	}
	if service.timeout != DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", DefaultTimeout, service.timeout)
	}
	if service.client.Timeout != 0 {
		t.Errorf("Expected no overall client deadline, got %v", service.client.Timeout)
	}
	transport, ok := service.client.Transport.(*http.Transport)
	if !ok {
		t.Fatalf("Expected *http.Transport, got %T", service.client.Transport)
	}
	if transport.ResponseHeaderTimeout != DefaultTimeout {
		t.Errorf("Expected response header timeout %v, got %v", DefaultTimeout, transport.ResponseHeaderTimeout)
	}
	if service.extension != ".jpg" {
		t.Errorf("Expected extension '.jpg', got '%s'", service.extension)
	}
}

func TestFilterPending(t *testing.T) {
	service := NewService(t.TempDir(), Options{})
	records := []model.ImageRecord{
		{Key: "a", URL: "u1"},
		{Key: "b", URL: "u2"},
		{Key: "c", URL: "u3"},
		{Key: "d", URL: "u4"},
	}

	pending := service.FilterPending(records, platform.NewInventory("b", "d", "zzz"))

	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending records, got %d", len(pending))
	}
	if pending[0].Key != "a" || pending[1].Key != "c" {
		t.Errorf("Expected manifest order [a c], got [%s %s]", pending[0].Key, pending[1].Key)
	}
}

func TestFetch_WritesExactBody(t *testing.T) {
	server, _ := newImageServer(t)
	dir := t.TempDir()
	service := newTestService(dir)
	key := uuid.NewString()

	task, err := service.Fetch(context.Background(), model.ImageRecord{Key: key, URL: server.URL + "/img/one"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	expectedPath := filepath.Join(dir, key+".jpg")
	if task.OutputPath != expectedPath {
		t.Errorf("Expected output path %s, got %s", expectedPath, task.OutputPath)
	}
	if task.Status != model.TaskStatusCompleted {
		t.Errorf("Expected status Completed, got %s", task.Status)
	}

	data, err := os.ReadFile(expectedPath)
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if !bytes.Equal(data, imageBody("one")) {
		t.Errorf("Output file does not match response body (%d bytes vs %d)", len(data), len(imageBody("one")))
	}
	if task.BytesWritten != int64(len(data)) {
		t.Errorf("Expected %d bytes written, got %d", len(data), task.BytesWritten)
	}

	// Only the final file remains
	if files := listFiles(t, dir); len(files) != 1 {
		t.Errorf("Expected exactly one file, got %v", files)
	}
}

func TestFetch_StatusError(t *testing.T) {
	server, _ := newImageServer(t)
	dir := t.TempDir()
	service := newTestService(dir)

	task, err := service.Fetch(context.Background(), model.ImageRecord{Key: uuid.NewString(), URL: server.URL + "/fail"})

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("Expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", statusErr.StatusCode)
	}
	var recordErr *RecordError
	if !errors.As(err, &recordErr) || recordErr.Key != task.Record.Key {
		t.Errorf("Expected *RecordError for key %s, got %v", task.Record.Key, err)
	}
	if task.Status != model.TaskStatusError {
		t.Errorf("Expected status Error, got %s", task.Status)
	}
	// The short form must lead with the cause, not the key
	if short := task.GetShortError(50); !strings.HasPrefix(short, "500 Internal Server Error") {
		t.Errorf("Expected short error to start with the status, got '%s'", short)
	}
	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("Expected no files after failed fetch, got %v", files)
	}
}

func TestFetch_TruncatedBodyRemovesPartialFile(t *testing.T) {
	server, _ := newImageServer(t)
	dir := t.TempDir()
	service := newTestService(dir)
	key := uuid.NewString()

	_, err := service.Fetch(context.Background(), model.ImageRecord{Key: key, URL: server.URL + "/short"})
	if err == nil {
		t.Fatal("Expected error for truncated body, got nil")
	}

	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("Expected partial file to be removed, got %v", files)
	}

	inv, err := platform.ScanDownloadedKeys(dir)
	if err != nil {
		t.Fatalf("Failed to scan: %v", err)
	}
	if inv.Has(key) {
		t.Error("Failed download must not appear in the inventory")
	}
}

func TestFetch_Timeout(t *testing.T) {
	server, _ := newImageServer(t)
	dir := t.TempDir()
	service := NewService(dir, Options{Timeout: 100 * time.Millisecond})

	start := time.Now()
	_, err := service.Fetch(context.Background(), model.ImageRecord{Key: uuid.NewString(), URL: server.URL + "/slow"})
	if err == nil {
		t.Fatal("Expected timeout error, got nil")
	}
	if time.Since(start) > time.Second {
		t.Errorf("Fetch should give up after the configured timeout, took %v", time.Since(start))
	}
}

func TestFetch_SteadyBodyOutlastsTimeout(t *testing.T) {
	server, _ := newImageServer(t)
	dir := t.TempDir()
	service := NewService(dir, Options{Timeout: 300 * time.Millisecond})

	task, err := service.Fetch(context.Background(), model.ImageRecord{Key: uuid.NewString(), URL: server.URL + "/drip"})
	if err != nil {
		t.Fatalf("Expected a steady body to succeed, got %v", err)
	}
	if task.BytesWritten != 40 {
		t.Errorf("Expected 40 bytes written, got %d", task.BytesWritten)
	}
	if task.Elapsed() < 300*time.Millisecond {
		t.Errorf("Expected the transfer to outlast the timeout, took %v", task.Elapsed())
	}
}

func TestFetch_StalledBodyTimesOut(t *testing.T) {
	server, _ := newImageServer(t)
	dir := t.TempDir()
	service := NewService(dir, Options{Timeout: 200 * time.Millisecond})

	start := time.Now()
	_, err := service.Fetch(context.Background(), model.ImageRecord{Key: uuid.NewString(), URL: server.URL + "/stall"})
	if !errors.Is(err, ErrIdleTimeout) {
		t.Fatalf("Expected ErrIdleTimeout, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Fetch should give up once the body stalls, took %v", time.Since(start))
	}
	if files := listFiles(t, dir); len(files) != 0 {
		t.Errorf("Expected partial file to be removed, got %v", files)
	}
}

func TestFetch_MissingFields(t *testing.T) {
	_, requests := newImageServer(t)
	service := newTestService(t.TempDir())

	_, err := service.Fetch(context.Background(), model.ImageRecord{URL: "http://example.invalid/a.jpg"})
	if !errors.Is(err, model.ErrMissingKey) {
		t.Errorf("Expected ErrMissingKey, got %v", err)
	}

	_, err = service.Fetch(context.Background(), model.ImageRecord{Key: uuid.NewString()})
	if !errors.Is(err, model.ErrMissingURL) {
		t.Errorf("Expected ErrMissingURL, got %v", err)
	}

	if atomic.LoadInt32(requests) != 0 {
		t.Errorf("Invalid records must not issue requests, got %d", atomic.LoadInt32(requests))
	}
}

func TestFetch_SendsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.Write([]byte("img"))
	}))
	defer server.Close()

	service := NewService(t.TempDir(), Options{UserAgent: "flowfetch-test"})
	if _, err := service.Fetch(context.Background(), model.ImageRecord{Key: uuid.NewString(), URL: server.URL}); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "flowfetch-test" {
		t.Errorf("Expected User-Agent 'flowfetch-test', got '%s'", got)
	}
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	server, requests := newImageServer(t)
	dir := t.TempDir()
	service := newTestService(dir)

	records := []model.ImageRecord{
		{Key: uuid.NewString(), URL: server.URL + "/img/first"},
		{Key: uuid.NewString(), URL: server.URL + "/fail"},
		{Key: uuid.NewString(), URL: server.URL + "/img/third"},
	}

	var updates []model.DownloadTask
	service.SetUpdateCallback(func(task *model.DownloadTask) {
		if task.Status.IsFinished() {
			updates = append(updates, *task)
		}
	})

	summary := service.Run(context.Background(), records, platform.NewInventory())

	if summary.Succeeded != 2 || summary.Failed != 1 {
		t.Errorf("Expected success=2 failed=1, got success=%d failed=%d", summary.Succeeded, summary.Failed)
	}
	if atomic.LoadInt32(requests) != 3 {
		t.Errorf("Expected 3 requests, got %d", atomic.LoadInt32(requests))
	}
	if summary.Total != 3 || summary.Pending != 3 {
		t.Errorf("Expected total=3 pending=3, got total=%d pending=%d", summary.Total, summary.Pending)
	}

	if len(updates) != 3 {
		t.Fatalf("Expected 3 finished updates, got %d", len(updates))
	}
	expectedStatus := []model.TaskStatus{model.TaskStatusCompleted, model.TaskStatusError, model.TaskStatusCompleted}
	for i, u := range updates {
		if u.Index != i+1 || u.Total != 3 {
			t.Errorf("Update %d: expected position %d/3, got %d/%d", i, i+1, u.Index, u.Total)
		}
		if u.Status != expectedStatus[i] {
			t.Errorf("Update %d: expected status %s, got %s", i, expectedStatus[i], u.Status)
		}
	}
	if !updates[2].IsLast() {
		t.Error("Expected the third update to be the last item")
	}

	expectedBytes := int64(len(imageBody("first")) + len(imageBody("third")))
	if summary.Bytes != expectedBytes {
		t.Errorf("Expected %d bytes, got %d", expectedBytes, summary.Bytes)
	}
}

func TestRun_DuplicateKeyOverwrites(t *testing.T) {
	server, _ := newImageServer(t)
	dir := t.TempDir()
	service := newTestService(dir)
	key := uuid.NewString()

	records := []model.ImageRecord{
		{Key: key, URL: server.URL + "/img/first"},
		{Key: key, URL: server.URL + "/img/second"},
	}

	summary := service.Run(context.Background(), records, platform.NewInventory())
	if summary.Succeeded != 2 || summary.Failed != 0 {
		t.Errorf("Expected success=2 failed=0, got success=%d failed=%d", summary.Succeeded, summary.Failed)
	}

	files := listFiles(t, dir)
	if len(files) != 1 || files[0] != key+".jpg" {
		t.Fatalf("Expected only %s.jpg, got %v", key, files)
	}
	data, err := os.ReadFile(filepath.Join(dir, key+".jpg"))
	if err != nil {
		t.Fatalf("Failed to read output: %v", err)
	}
	if !bytes.Equal(data, imageBody("second")) {
		t.Error("Expected the later record to overwrite the earlier one")
	}
}

func TestDownload_LeavesManifestCountsToCaller(t *testing.T) {
	server, _ := newImageServer(t)
	service := newTestService(t.TempDir())

	pending := []model.ImageRecord{{Key: uuid.NewString(), URL: server.URL + "/img/a"}}
	summary := service.Download(context.Background(), pending)

	if summary.Pending != 1 || summary.Succeeded != 1 {
		t.Errorf("Expected pending=1 success=1, got pending=%d success=%d", summary.Pending, summary.Succeeded)
	}
	if summary.Total != 0 || summary.AlreadyDownloaded != 0 {
		t.Errorf("Expected manifest counts unset, got total=%d already=%d", summary.Total, summary.AlreadyDownloaded)
	}
}

func TestRun_Idempotent(t *testing.T) {
	server, requests := newImageServer(t)
	dir := t.TempDir()
	service := newTestService(dir)

	records := []model.ImageRecord{
		{Key: uuid.NewString(), URL: server.URL + "/img/a"},
		{Key: uuid.NewString(), URL: server.URL + "/img/b"},
	}

	first := service.Run(context.Background(), records, platform.NewInventory())
	if first.Succeeded != 2 {
		t.Fatalf("Expected 2 downloads on first run, got %d", first.Succeeded)
	}

	inv, err := platform.ScanDownloadedKeys(dir)
	if err != nil {
		t.Fatalf("Failed to scan: %v", err)
	}

	second := service.Run(context.Background(), records, inv)
	if !second.UpToDate() || second.Attempted() != 0 {
		t.Errorf("Expected nothing to do on second run, got %+v", second)
	}
	if second.Library() != 2 {
		t.Errorf("Expected library of 2, got %d", second.Library())
	}
	if atomic.LoadInt32(requests) != 2 {
		t.Errorf("Expected no new requests on second run, got %d total", atomic.LoadInt32(requests))
	}
}

func TestRun_EmptyDeltaIssuesNoRequests(t *testing.T) {
	server, requests := newImageServer(t)
	service := newTestService(t.TempDir())

	keyA, keyB := uuid.NewString(), uuid.NewString()
	records := []model.ImageRecord{
		{Key: keyA, URL: server.URL + "/img/a"},
		{Key: keyB, URL: server.URL + "/img/b"},
	}

	summary := service.Run(context.Background(), records, platform.NewInventory(keyA, keyB))

	if !summary.UpToDate() {
		t.Errorf("Expected summary to be up to date, got %+v", summary)
	}
	if atomic.LoadInt32(requests) != 0 {
		t.Errorf("Expected zero requests, got %d", atomic.LoadInt32(requests))
	}
}
