package item

import (
	"fmt"
	"strings"
	"time"
)

// Line layout. Timestamps are fixed width (YYYY-MM-DD_HH:MM:SS) so the decoder
// can work by position:
//
//	2024-05-01_09:00:00 2024-05-01_10:30:00 finished activity
//	2024-05-01_10:30:00 ongoing activity
const (
	TimestampLen = 19

	endOffset      = TimestampLen + 1
	finishedPrefix = endOffset + TimestampLen + 1
)

// Encode renders it as a single store line (without line terminator).
func Encode(it Item) string {
	return string(AppendEncode(make([]byte, 0, finishedPrefix+len(it.activity)), it))
}

// AppendEncode appends the encoded line for it to dst.
func AppendEncode(dst []byte, it Item) []byte {
	dst = AppendTimestamp(dst, it.start)
	dst = append(dst, ' ')

	if it.hasEnd {
		dst = AppendTimestamp(dst, it.end)
		dst = append(dst, ' ')
	}

	return appendEscaped(dst, it.activity)
}

// Decode parses a line produced by [Encode].
//
// Lines are expected to come from this codec. Only the first timestamp is
// validated; anything else malformed returns [ErrMalformedLine].
func Decode(line string) (Item, error) {
	start, ok := ParseTimestamp(line)
	if !ok {
		return Item{}, fmt.Errorf("%w: bad start timestamp in %q", ErrMalformedLine, line)
	}

	hasEndToken := len(line) == finishedPrefix-1 || (len(line) >= finishedPrefix && line[finishedPrefix-1] == ' ')

	if hasEndToken && line[TimestampLen] == ' ' {
		if end, ok := ParseTimestamp(line[endOffset:]); ok {
			activity := ""
			if len(line) > finishedPrefix {
				activity = unescape(line[finishedPrefix:])
			}

			it, err := New(activity, start, end)
			if err != nil {
				return Item{}, fmt.Errorf("%w: %w", ErrMalformedLine, err)
			}

			return it, nil
		}
	}

	activity := ""
	if len(line) > endOffset {
		activity = unescape(line[endOffset:])
	}

	return NewOngoing(activity, start), nil
}

// CheckEncodable returns [ErrAmbiguousActivity] when the line for it would
// decode as a different item. That happens for an ongoing item whose
// activity starts with a timestamp followed by a space or the line end.
func CheckEncodable(it Item) error {
	if it.hasEnd {
		return nil
	}

	a := it.activity
	if _, ok := ParseTimestamp(a); ok && (len(a) == TimestampLen || a[TimestampLen] == ' ') {
		return fmt.Errorf("%w: %q", ErrAmbiguousActivity, a)
	}

	return nil
}

// FormatTimestamp renders t as YYYY-MM-DD_HH:MM:SS in local time.
func FormatTimestamp(t time.Time) string {
	return string(AppendTimestamp(make([]byte, 0, TimestampLen), t))
}

// AppendTimestamp appends t (local wall clock) digit by digit.
// This runs for every item on every read/write, so it avoids time.Format.
func AppendTimestamp(dst []byte, t time.Time) []byte {
	t = t.In(time.Local)
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	dst = append(dst,
		byte('0'+year/1000%10), byte('0'+year/100%10), byte('0'+year/10%10), byte('0'+year%10),
		'-')
	dst = appendTwo(dst, int(month))
	dst = append(dst, '-')
	dst = appendTwo(dst, day)
	dst = append(dst, '_')
	dst = appendTwo(dst, hour)
	dst = append(dst, ':')
	dst = appendTwo(dst, minute)
	dst = append(dst, ':')

	return appendTwo(dst, sec)
}

func appendTwo(dst []byte, n int) []byte {
	return append(dst, byte('0'+n/10), byte('0'+n%10))
}

// ParseTimestamp parses the fixed-width timestamp at the start of s.
// Returns false if s does not start with one.
func ParseTimestamp(s string) (time.Time, bool) {
	if len(s) < TimestampLen {
		return time.Time{}, false
	}

	if s[4] != '-' || s[7] != '-' || s[10] != '_' || s[13] != ':' || s[16] != ':' {
		return time.Time{}, false
	}

	year, ok1 := digits(s, 0, 4)
	month, ok2 := digits(s, 5, 2)
	day, ok3 := digits(s, 8, 2)
	hour, ok4 := digits(s, 11, 2)
	minute, ok5 := digits(s, 14, 2)
	sec, ok6 := digits(s, 17, 2)

	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return time.Time{}, false
	}

	return time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.Local), true
}

func digits(s string, from, n int) (int, bool) {
	v := 0

	for i := from; i < from+n; i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}

		v = v*10 + int(c-'0')
	}

	return v, true
}

// appendEscaped escapes backslash and line breaks. CR and CRLF both become \n.
func appendEscaped(dst []byte, s string) []byte {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '\\':
			dst = append(dst, '\\', '\\')
		case '\n':
			dst = append(dst, '\\', 'n')
		case '\r':
			dst = append(dst, '\\', 'n')

			if i+1 < len(s) && s[i+1] == '\n' {
				i++
			}
		default:
			dst = append(dst, c)
		}
	}

	return dst
}

func unescape(s string) string {
	if strings.IndexByte(s, '\\') < 0 {
		return s
	}

	var b strings.Builder

	b.Grow(len(s))

	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)

			continue
		}

		i++

		if s[i] == 'n' {
			b.WriteByte('\n')
		} else {
			b.WriteByte(s[i])
		}
	}

	return b.String()
}
