package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

var (
	// ErrWouldBlock is returned when a lock could not be acquired before the
	// timeout expired.
	ErrWouldBlock = errors.New("lock would block")

	// ErrInvalidTimeout is returned when a timeout is <= 0.
	ErrInvalidTimeout = errors.New("invalid lock timeout")

	// errReplaced means the lock file at path is no longer the one we
	// flocked. The caller starts over.
	errReplaced = errors.New("lock file replaced")
)

const (
	lockFilePerm = 0o600
	lockDirPerm  = 0o750

	maxBackoff = 25 * time.Millisecond
)

// lockMode selects a shared or exclusive flock.
type lockMode int

const (
	shared lockMode = iota
	exclusive
)

func (m lockMode) how() int {
	if m == shared {
		return unix.LOCK_SH
	}

	return unix.LOCK_EX
}

func (m lockMode) openFlag() int {
	if m == shared {
		return os.O_RDONLY | os.O_CREATE
	}

	return os.O_RDWR | os.O_CREATE
}

// Locker hands out flock(2) based advisory locks on lock files.
//
// A flock belongs to an inode, so the lock file must never be replaced by
// rename. Store data lives next to a dedicated lock file such as
// ".locks/timelog.txt.lock". After each flock the Locker checks that path
// still names the locked inode and starts over if it does not.
//
// Two locks taken through one Locker use separate descriptors and exclude
// each other the same way two processes do. Unix only.
type Locker struct {
	fs    FS
	flock func(fd int, how int) error
}

// NewLocker returns a Locker operating on fsys.
func NewLocker(fsys FS) *Locker {
	return &Locker{fs: fsys, flock: unix.Flock}
}

// Lock is a held lock. Release it with [Lock.Close].
type Lock struct {
	mu    sync.Mutex
	file  File
	flock func(fd int, how int) error
}

// Close unlocks and closes the lock file. Calling it again is a no-op.
func (lk *Lock) Close() error {
	lk.mu.Lock()
	defer lk.mu.Unlock()

	if lk.file == nil {
		return nil
	}

	file := lk.file
	lk.file = nil

	var errs []error

	err := retryEINTR(lk.flock, int(file.Fd()), unix.LOCK_UN)
	if err != nil {
		errs = append(errs, fmt.Errorf("unlocking: %w", err))
	}

	err = file.Close()
	if err != nil {
		errs = append(errs, fmt.Errorf("closing lock file: %w", err))
	}

	return errors.Join(errs...)
}

// LockWithTimeout takes an exclusive lock on path, retrying with backoff for
// up to timeout. Missing parent directories are created.
//
// Fails with [ErrWouldBlock] once the timeout has passed and with
// [ErrInvalidTimeout] when timeout <= 0.
func (l *Locker) LockWithTimeout(path string, timeout time.Duration) (*Lock, error) {
	return l.lock(path, exclusive, timeout)
}

// RLockWithTimeout takes a shared lock on path. Shared locks coexist with
// each other and exclude exclusive ones.
func (l *Locker) RLockWithTimeout(path string, timeout time.Duration) (*Lock, error) {
	return l.lock(path, shared, timeout)
}

func (l *Locker) lock(path string, mode lockMode, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimeout, timeout)
	}

	deadline := time.Now().Add(timeout)

	for backoff := time.Millisecond; ; backoff = min(2*backoff, maxBackoff) {
		lk, err := l.tryLock(path, mode)
		if err == nil {
			return lk, nil
		}

		if !errors.Is(err, ErrWouldBlock) && !errors.Is(err, errReplaced) {
			return nil, err
		}

		wait := time.Until(deadline)
		if wait <= 0 {
			return nil, fmt.Errorf("%w: timed out on %s after %s", ErrWouldBlock, path, timeout)
		}

		time.Sleep(min(backoff, wait))
	}
}

// tryLock makes one non-blocking attempt.
func (l *Locker) tryLock(path string, mode lockMode) (*Lock, error) {
	file, err := l.open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	fd := int(file.Fd())

	err = retryEINTR(l.flock, fd, mode.how()|unix.LOCK_NB)
	if err != nil {
		_ = file.Close()

		if errors.Is(err, unix.EWOULDBLOCK) || errors.Is(err, unix.EAGAIN) {
			return nil, ErrWouldBlock
		}

		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	same, err := l.stillAt(path, file)
	if err == nil && same {
		return &Lock{file: file, flock: l.flock}, nil
	}

	_ = retryEINTR(l.flock, fd, unix.LOCK_UN)
	_ = file.Close()

	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking lock file: %w", err)
	}

	return nil, errReplaced
}

func (l *Locker) open(path string, mode lockMode) (File, error) {
	f, err := l.fs.OpenFile(path, mode.openFlag(), lockFilePerm)
	if !errors.Is(err, os.ErrNotExist) {
		return f, err
	}

	err = l.fs.MkdirAll(filepath.Dir(path), lockDirPerm)
	if err != nil {
		return nil, err
	}

	return l.fs.OpenFile(path, mode.openFlag(), lockFilePerm)
}

// stillAt reports whether path names the same device and inode as f.
func (l *Locker) stillAt(path string, f File) (bool, error) {
	held, err := f.Stat()
	if err != nil {
		return false, err
	}

	current, err := l.fs.Stat(path)
	if err != nil {
		return false, err
	}

	a, okA := held.Sys().(*syscall.Stat_t)
	b, okB := current.Sys().(*syscall.Stat_t)

	if !okA || !okB || a == nil || b == nil {
		return false, fmt.Errorf("unexpected stat type %T", held.Sys())
	}

	return a.Dev == b.Dev && a.Ino == b.Ino, nil
}

// retryEINTR repeats flock while a signal interrupts it, up to a fixed cap.
func retryEINTR(flock func(fd int, how int) error, fd int, how int) error {
	const attempts = 10000

	var err error

	for range attempts {
		err = flock(fd, how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}

	return err
}
