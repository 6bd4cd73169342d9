package model

// Package model defines domain data structures shared across the tool: image
// records read from the manifest, per-record download tasks with their status
// enum, and the run summary produced by the download loop.
