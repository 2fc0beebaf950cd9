package fsys

import (
	"io/fs"
	"iter"
	"time"
)

// FileSystem abstracts filesystem operations so descriptor discovery and
// validation can run against a real source tree or an in-memory fixture.
type FileSystem interface {
	// ReadFile reads the named file and returns its contents
	ReadFile(name string) ([]byte, error)

	// ReadDir reads the named directory and returns an iterator over directory entries
	ReadDir(name string) iter.Seq2[DirEntry, error]

	// Stat returns file info for the named file or directory
	Stat(name string) (FileInfo, error)

	// Join joins path elements into a single path
	Join(elem ...string) string

	// Base returns the last element of path
	Base(path string) string

	// Dir returns all but the last element of path
	Dir(path string) string
}

// DirEntry provides information about a directory entry
type DirEntry interface {
	Name() string
	IsDir() bool
	Type() fs.FileMode
	Info() (FileInfo, error)
}

// FileInfo provides information about a file
type FileInfo interface {
	Name() string
	Size() int64
	Mode() fs.FileMode
	ModTime() time.Time
	IsDir() bool
	Sys() interface{}
}
