package store

import "errors"

// ErrInvalidSequence reports items that break the ordering invariant.
var ErrInvalidSequence = errors.New("invalid sequence")

// ErrLineTooLong reports an item whose line exceeds what the reader accepts.
var ErrLineTooLong = errors.New("line too long")

var errWriterClosed = errors.New("writer is closed")
