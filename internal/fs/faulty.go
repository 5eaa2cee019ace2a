package fs

import (
	"errors"
	"io"
	"os"
	"strings"
	"sync"
)

// Op names an [FS] operation that [Faulty] can fail.
type Op string

// Operations understood by [Faulty].
const (
	OpOpen        Op = "open"
	OpOpenFile    Op = "openfile"
	OpRead        Op = "read"
	OpWriteAtomic Op = "writeatomic"
	OpMkdirAll    Op = "mkdirall"
	OpStat        Op = "stat"
)

// InjectedError marks an error as intentionally injected by [Faulty].
// It wraps the underlying error so errors.Is/As keep working.
type InjectedError struct {
	Op  Op
	Err error
}

func (e *InjectedError) Error() string {
	return "injected " + string(e.Op) + ": " + e.Err.Error()
}

func (e *InjectedError) Unwrap() error {
	return e.Err
}

// IsInjected reports whether err (or any wrapped error) was injected by [Faulty].
func IsInjected(err error) bool {
	var injected *InjectedError

	return errors.As(err, &injected)
}

// Faulty wraps an [FS] and fails operations on paths matching a rule.
// Unlike random chaos testing it is deterministic: a rule fires on every
// matching call until it is cleared.
//
// Reads and atomic writes can be failed after a byte budget, so callers can
// observe a failure in the middle of a stream.
type Faulty struct {
	fs FS

	mu    sync.Mutex
	rules []faultRule
	hits  map[Op]int
}

type faultRule struct {
	op     Op
	suffix string
	after  int64
	err    error
}

// NewFaulty wraps fs. With no rules it behaves exactly like fs.
func NewFaulty(fs FS) *Faulty {
	return &Faulty{fs: fs, hits: make(map[Op]int)}
}

// Fail makes op fail with err for every path ending in suffix.
func (f *Faulty) Fail(op Op, suffix string, err error) {
	f.FailAfter(op, suffix, 0, err)
}

// FailAfter is like [Faulty.Fail] but for [OpRead] and [OpWriteAtomic] lets
// the first n bytes through before failing.
func (f *Faulty) FailAfter(op Op, suffix string, n int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rules = append(f.rules, faultRule{op: op, suffix: suffix, after: n, err: err})
}

// Clear removes all rules.
func (f *Faulty) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rules = nil
}

// Hits returns how many times op was failed.
func (f *Faulty) Hits(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.hits[op]
}

func (f *Faulty) match(op Op, path string) (faultRule, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, r := range f.rules {
		if r.op == op && strings.HasSuffix(path, r.suffix) {
			return r, true
		}
	}

	return faultRule{}, false
}

func (f *Faulty) fail(r faultRule, path string) error {
	f.mu.Lock()
	f.hits[r.op]++
	f.mu.Unlock()

	return &InjectedError{Op: r.op, Err: &os.PathError{Op: string(r.op), Path: path, Err: r.err}}
}

func (f *Faulty) Open(path string) (File, error) {
	if r, ok := f.match(OpOpen, path); ok {
		return nil, f.fail(r, path)
	}

	file, err := f.fs.Open(path)
	if err != nil {
		return nil, err
	}

	if r, ok := f.match(OpRead, path); ok {
		return &faultyFile{File: file, budget: r.after, onExhausted: func() error { return f.fail(r, path) }}, nil
	}

	return file, nil
}

func (f *Faulty) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if r, ok := f.match(OpOpenFile, path); ok {
		return nil, f.fail(r, path)
	}

	return f.fs.OpenFile(path, flag, perm)
}

func (f *Faulty) WriteFileAtomic(path string, r io.Reader) error {
	rule, ok := f.match(OpWriteAtomic, path)
	if !ok {
		return f.fs.WriteFileAtomic(path, r)
	}

	if rule.after == 0 {
		return f.fail(rule, path)
	}

	br := &budgetReader{r: r, budget: rule.after, onExhausted: func() error { return f.fail(rule, path) }}

	err := f.fs.WriteFileAtomic(path, br)
	if err != nil && br.injected != nil {
		// atomic.WriteFile flattens the reader error with %v.
		return errors.Join(br.injected, err)
	}

	return err
}

func (f *Faulty) MkdirAll(path string, perm os.FileMode) error {
	if r, ok := f.match(OpMkdirAll, path); ok {
		return f.fail(r, path)
	}

	return f.fs.MkdirAll(path, perm)
}

func (f *Faulty) Stat(path string) (os.FileInfo, error) {
	if r, ok := f.match(OpStat, path); ok {
		return nil, f.fail(r, path)
	}

	return f.fs.Stat(path)
}

// faultyFile fails reads once budget bytes were returned.
type faultyFile struct {
	File

	budget      int64
	onExhausted func() error
}

func (ff *faultyFile) Read(p []byte) (int, error) {
	if ff.budget <= 0 {
		return 0, ff.onExhausted()
	}

	if int64(len(p)) > ff.budget {
		p = p[:ff.budget]
	}

	n, err := ff.File.Read(p)
	ff.budget -= int64(n)

	return n, err
}

type budgetReader struct {
	r           io.Reader
	budget      int64
	onExhausted func() error
	injected    error
}

func (br *budgetReader) Read(p []byte) (int, error) {
	if br.budget <= 0 {
		if br.injected == nil {
			br.injected = br.onExhausted()
		}

		return 0, br.injected
	}

	if int64(len(p)) > br.budget {
		p = p[:br.budget]
	}

	n, err := br.r.Read(p)
	br.budget -= int64(n)

	return n, err
}

// Compile-time interface check.
var _ FS = (*Faulty)(nil)
