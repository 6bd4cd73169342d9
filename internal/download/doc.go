package download

// Package download implements the download loop: it filters manifest records
// against the inventory of already saved images and fetches the rest one at a
// time over HTTP, streaming each body to disk and reporting per-record
// progress through an update callback.
