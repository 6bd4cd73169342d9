// Package report prints human-readable progress and summary lines for a run.
package report

import (
	"fmt"
	"io"

	"github.com/dustin/go-humanize"

	"github.com/ytget/flowfetch/internal/model"
)

// ErrorMessageLimit caps the length of a failure message on the console
const ErrorMessageLimit = 50

// Reporter writes localized console output
type Reporter struct {
	out           io.Writer
	loc           *Localization
	progressEvery int
	succeeded     int
}

// NewReporter creates a reporter printing a progress line every progressEvery successes
func NewReporter(out io.Writer, lang string, progressEvery int) *Reporter {
	loc := NewLocalization()
	loc.SetLanguage(lang)
	if progressEvery < 1 {
		progressEvery = 1
	}
	return &Reporter{out: out, loc: loc, progressEvery: progressEvery}
}

func (r *Reporter) printf(key string, args ...any) {
	fmt.Fprintf(r.out, r.loc.GetText(key)+"\n", args...)
}

// Usage prints the command line guidance
func (r *Reporter) Usage(program string) {
	r.printf(KeyUsage, program)
}

// ManifestNotFound reports a manifest path that does not exist
func (r *Reporter) ManifestNotFound(path string) {
	r.printf(KeyManifestNotFound, path)
}

// ManifestInvalid reports a manifest that could not be parsed
func (r *Reporter) ManifestInvalid(err error) {
	r.printf(KeyManifestInvalid, err)
}

// ManifestLoaded prints the number of records in the manifest
func (r *Reporter) ManifestLoaded(count int) {
	r.printf(KeyManifestSize, count)
}

// InventoryScanned prints the number of images already on disk
func (r *Reporter) InventoryScanned(count int) {
	r.printf(KeyAlreadyHave, count)
}

// PendingComputed prints how many records will be fetched, or that none are left
func (r *Reporter) PendingComputed(count int) {
	if count == 0 {
		r.printf(KeyAllDownloaded)
		return
	}
	r.printf(KeyToDownload, count)
}

// HandleUpdate is the download service update callback. Successes are printed
// every progressEvery items and on the last one, failures always.
func (r *Reporter) HandleUpdate(task *model.DownloadTask) {
	switch task.Status {
	case model.TaskStatusCompleted:
		r.succeeded++
		if task.Index%r.progressEvery == 0 || task.IsLast() {
			r.printf(KeyProgress, task.GetPositionString(), r.succeeded)
		}
	case model.TaskStatusError:
		r.printf(KeyFailed, task.GetPositionString(), task.GetShortError(ErrorMessageLimit))
	}
}

// Summary prints the final counters of a run that had something to download
func (r *Reporter) Summary(summary model.Summary) {
	r.printf(KeyFinished, summary.Succeeded, summary.Failed)
	r.printf(KeyOutputDir, summary.OutputDir)
	r.printf(KeyLibraryTotal, summary.Library())
	if summary.Bytes > 0 {
		r.printf(KeyBytesWritten, humanize.Bytes(uint64(summary.Bytes)))
	}
}
