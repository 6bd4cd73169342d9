package model

// Summary holds the counters of one run
type Summary struct {
	Total             int    // records in the manifest
	AlreadyDownloaded int    // identifiers found in the output directory
	Pending           int    // eligible records
	Succeeded         int    // records written to disk in this run
	Failed            int    // records that failed in this run
	Bytes             int64  // bytes written by successful downloads
	OutputDir         string // absolute output directory
}

// Library returns the number of images present after the run
func (s Summary) Library() int {
	return s.AlreadyDownloaded + s.Succeeded
}

// Attempted returns the number of records the loop tried to fetch
func (s Summary) Attempted() int {
	return s.Succeeded + s.Failed
}

// UpToDate reports whether there was nothing left to download
func (s Summary) UpToDate() bool {
	return s.Pending == 0
}
