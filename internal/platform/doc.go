package platform

// Package platform contains OS and filesystem integration: output directory
// defaults and creation, the inventory scan of already downloaded images, and
// revealing the output directory in the system file manager.
