package fsys

import (
	"fmt"
	"io/fs"
	"iter"
	"path"
	"sort"
	"strings"
	"time"
)

// MemoryFS implements FileSystem over an in-memory file map. Tests use it to
// lay out descriptor fixtures without touching disk.
type MemoryFS struct {
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemoryFS creates a new MemoryFS instance
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

// AddFile adds a file to the memory filesystem, creating parent directories
func (mfs *MemoryFS) AddFile(name string, content []byte) {
	mfs.files[path.Clean(name)] = content
	dir := path.Dir(name)
	for dir != "." && dir != "/" {
		mfs.dirs[dir] = true
		dir = path.Dir(dir)
	}
}

// AddDir adds a directory to the memory filesystem
func (mfs *MemoryFS) AddDir(name string) {
	mfs.dirs[path.Clean(name)] = true
	dir := path.Dir(name)
	for dir != "." && dir != "/" {
		mfs.dirs[dir] = true
		dir = path.Dir(dir)
	}
}

func (mfs *MemoryFS) ReadFile(name string) ([]byte, error) {
	cleanName := path.Clean(name)
	content, exists := mfs.files[cleanName]
	if !exists {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	return content, nil
}

func (mfs *MemoryFS) Stat(name string) (FileInfo, error) {
	cleanName := path.Clean(name)
	if content, exists := mfs.files[cleanName]; exists {
		return &memoryFileInfo{
			name:    path.Base(cleanName),
			size:    int64(len(content)),
			mode:    0644,
			modTime: time.Now(),
		}, nil
	}
	if mfs.dirs[cleanName] || cleanName == "." {
		return &memoryFileInfo{
			name:    path.Base(cleanName),
			mode:    fs.ModeDir | 0755,
			modTime: time.Now(),
			isDir:   true,
		}, nil
	}
	return nil, fmt.Errorf("file not found: %s", name)
}

func (mfs *MemoryFS) ReadDir(name string) iter.Seq2[DirEntry, error] {
	return func(yield func(DirEntry, error) bool) {
		cleanName := path.Clean(name)

		if cleanName != "." && !mfs.dirs[cleanName] {
			yield(nil, fmt.Errorf("directory not found: %s", name))
			return
		}

		prefix := cleanName
		if prefix != "." {
			prefix += "/"
		}

		// Collect direct children of this directory
		entries := make([]string, 0)
		seen := make(map[string]bool)

		collect := func(p string) {
			if strings.HasPrefix(p, prefix) || (cleanName == "." && !strings.Contains(p, "/")) {
				remainder := p
				if cleanName != "." {
					remainder = strings.TrimPrefix(p, prefix)
				}
				if remainder != "" {
					childName := strings.Split(remainder, "/")[0]
					if !seen[childName] {
						entries = append(entries, childName)
						seen[childName] = true
					}
				}
			}
		}

		for filePath := range mfs.files {
			collect(filePath)
		}
		for dirPath := range mfs.dirs {
			collect(dirPath)
		}

		sort.Strings(entries)

		for _, entry := range entries {
			fullPath := entry
			if cleanName != "." {
				fullPath = path.Join(cleanName, entry)
			}

			_, isFile := mfs.files[fullPath]

			dirEntry := &memoryDirEntry{
				name:     entry,
				isDir:    !isFile,
				mfs:      mfs,
				fullPath: fullPath,
			}

			if !yield(dirEntry, nil) {
				return
			}
		}
	}
}

func (mfs *MemoryFS) Join(elem ...string) string {
	return path.Join(elem...)
}

func (mfs *MemoryFS) Base(p string) string {
	return path.Base(p)
}

func (mfs *MemoryFS) Dir(p string) string {
	return path.Dir(p)
}

// memoryDirEntry implements DirEntry for memory filesystem
type memoryDirEntry struct {
	name     string
	isDir    bool
	mfs      *MemoryFS
	fullPath string
}

func (e *memoryDirEntry) Name() string {
	return e.name
}

func (e *memoryDirEntry) IsDir() bool {
	return e.isDir
}

func (e *memoryDirEntry) Type() fs.FileMode {
	if e.isDir {
		return fs.ModeDir
	}
	return 0
}

func (e *memoryDirEntry) Info() (FileInfo, error) {
	return e.mfs.Stat(e.fullPath)
}

// memoryFileInfo implements FileInfo for memory filesystem
type memoryFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (fi *memoryFileInfo) Name() string       { return fi.name }
func (fi *memoryFileInfo) Size() int64        { return fi.size }
func (fi *memoryFileInfo) Mode() fs.FileMode  { return fi.mode }
func (fi *memoryFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *memoryFileInfo) IsDir() bool        { return fi.isDir }
func (fi *memoryFileInfo) Sys() interface{}   { return nil }
