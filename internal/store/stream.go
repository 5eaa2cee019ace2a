package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/calvinalkan/timelog/internal/fs"
	"github.com/calvinalkan/timelog/internal/item"
)

// maxLineSize caps a single stored line. Activities are short; anything
// bigger than this is not a store file.
const maxLineSize = 1024 * 1024

// Source yields items in stored order. ok is false once exhausted.
type Source interface {
	Next() (it item.Item, ok bool, err error)
}

// Sink consumes items in the order they should be stored.
type Sink interface {
	Write(it item.Item) error
}

// Reader streams items from a store file. It is single pass and skips blank
// lines.
type Reader struct {
	scanner *bufio.Scanner
	closer  io.Closer
	line    int
	closed  bool
}

// NewReader reads items from r. If r is an [io.Closer], [Reader.Close]
// closes it.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	closer, _ := r.(io.Closer)

	return &Reader{scanner: scanner, closer: closer}
}

// OpenReader opens the store file at path. A missing file reads as an empty
// sequence.
func OpenReader(fsys fs.FS, path string) (*Reader, error) {
	f, err := fsys.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return NewReader(strings.NewReader("")), nil
	}

	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	return NewReader(f), nil
}

// Next returns the next item. Malformed lines return an error wrapping
// [item.ErrMalformedLine] with the line number.
func (r *Reader) Next() (item.Item, bool, error) {
	for r.scanner.Scan() {
		r.line++

		line := r.scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		it, err := item.Decode(line)
		if err != nil {
			return item.Item{}, false, fmt.Errorf("line %d: %w", r.line, err)
		}

		return it, true, nil
	}

	err := r.scanner.Err()
	if err != nil {
		return item.Item{}, false, fmt.Errorf("reading store: %w", err)
	}

	return item.Item{}, false, nil
}

// Close releases the underlying reader once. Further calls return nil.
func (r *Reader) Close() error {
	if r.closed || r.closer == nil {
		r.closed = true

		return nil
	}

	r.closed = true

	return r.closer.Close()
}

// Writer streams items as store lines.
type Writer struct {
	w      *bufio.Writer
	closer io.Closer
	line   []byte
	closed bool
}

// NewWriter writes items to w. If w is an [io.Closer], [Writer.Close]
// closes it after flushing.
func NewWriter(w io.Writer) *Writer {
	closer, _ := w.(io.Closer)

	return &Writer{w: bufio.NewWriter(w), closer: closer}
}

// Write appends one item line. Items that would not read back unchanged
// are rejected with [item.ErrAmbiguousActivity] or [ErrLineTooLong].
func (w *Writer) Write(it item.Item) error {
	if w.closed {
		return errWriterClosed
	}

	err := item.CheckEncodable(it)
	if err != nil {
		return err
	}

	w.line = item.AppendEncode(w.line[:0], it)
	w.line = append(w.line, '\n')

	if len(w.line) > maxLineSize {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrLineTooLong, len(w.line), maxLineSize)
	}

	_, err = w.w.Write(w.line)
	if err != nil {
		return fmt.Errorf("writing store: %w", err)
	}

	return nil
}

// Close flushes buffered lines and releases the underlying writer once.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true

	flushErr := w.w.Flush()
	if flushErr != nil {
		flushErr = fmt.Errorf("flushing store: %w", flushErr)
	}

	var closeErr error
	if w.closer != nil {
		closeErr = w.closer.Close()
	}

	return errors.Join(flushErr, closeErr)
}

// SliceSource yields items from a slice.
type SliceSource struct {
	items []item.Item
	pos   int
}

// NewSliceSource returns a source over items. The slice is not copied.
func NewSliceSource(items []item.Item) *SliceSource {
	return &SliceSource{items: items}
}

func (s *SliceSource) Next() (item.Item, bool, error) {
	if s.pos >= len(s.items) {
		return item.Item{}, false, nil
	}

	s.pos++

	return s.items[s.pos-1], true, nil
}

// SliceSink collects written items.
type SliceSink struct {
	Items []item.Item
}

func (s *SliceSink) Write(it item.Item) error {
	s.Items = append(s.Items, it)

	return nil
}

// Drain reads src until exhausted.
func Drain(src Source) ([]item.Item, error) {
	var items []item.Item

	for {
		it, ok, err := src.Next()
		if err != nil {
			return nil, err
		}

		if !ok {
			return items, nil
		}

		items = append(items, it)
	}
}

// excluding drops items whose encoded line is in lines and records which
// lines were seen.
type excluding struct {
	src   Source
	lines map[string]bool
	found int
}

func newExcluding(src Source, items ...item.Item) *excluding {
	lines := make(map[string]bool, len(items))
	for _, it := range items {
		lines[item.Encode(it)] = false
	}

	return &excluding{src: src, lines: lines}
}

func (e *excluding) Next() (item.Item, bool, error) {
	for {
		it, ok, err := e.src.Next()
		if err != nil || !ok {
			return it, ok, err
		}

		line := item.Encode(it)

		seen, drop := e.lines[line]
		if !drop {
			return it, true, nil
		}

		if !seen {
			e.lines[line] = true
			e.found++
		}
	}
}
