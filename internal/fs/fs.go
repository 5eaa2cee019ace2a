// Package fs provides the small filesystem surface the store needs, so tests
// can inject failures.
//
// The main types are:
//   - [FS]: interface for filesystem operations
//   - [Real]: production implementation using [os] and atomic rewrites
//   - [Faulty]: testing implementation that fails selected operations
//   - [Locker]: flock based advisory locks on top of an [FS]
package fs

import (
	"io"
	"os"
)

// File represents an open file descriptor. Satisfied by [os.File].
type File interface {
	io.ReadWriteCloser

	// Fd returns the file descriptor. Used for flock.
	Fd() uintptr

	// Stat returns the [os.FileInfo] for this file.
	Stat() (os.FileInfo, error)
}

// FS defines the filesystem operations used by the store.
type FS interface {
	// Open opens a file for reading. See [os.Open].
	Open(path string) (File, error)

	// OpenFile opens a file with specified flags and permissions. See [os.OpenFile].
	OpenFile(path string, flag int, perm os.FileMode) (File, error)

	// WriteFileAtomic replaces path with the contents of r.
	// Readers see either the old or the new content, never a mix.
	WriteFileAtomic(path string, r io.Reader) error

	// MkdirAll creates a directory and all parents. See [os.MkdirAll].
	MkdirAll(path string, perm os.FileMode) error

	// Stat returns file info. See [os.Stat].
	Stat(path string) (os.FileInfo, error)
}

// Compile-time interface checks.
var _ File = (*os.File)(nil)
