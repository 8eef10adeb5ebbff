package config

import (
	"os"
	"path/filepath"
)

// getDataDir determines the data directory path from environment or default.
// Priority: FILECONV_DATA_DIR environment variable > "./data" default
func getDataDir() string {
	if dir := os.Getenv("FILECONV_DATA_DIR"); dir != "" {
		return dir
	}
	return "./data"
}

// GetDataDir returns the current data directory path.
// The environment is consulted on every call so tests can point it elsewhere.
func GetDataDir() string {
	return getDataDir()
}

// GetPebbleStorePath returns the path of the embedded object store.
// Path: {DATA_DIR}/objects.db
func GetPebbleStorePath() string {
	return filepath.Join(GetDataDir(), "objects.db")
}

// GetFilesystemStoreDir returns the base directory for the filesystem backend.
// Configurable via FILECONV_FS_DIR, defaults to {DATA_DIR}/objects
func GetFilesystemStoreDir() string {
	if dir := os.Getenv("FILECONV_FS_DIR"); dir != "" {
		return dir
	}
	return filepath.Join(GetDataDir(), "objects")
}
