package store_test

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/calvinalkan/timelog/internal/fs"
	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/store"
)

func Test_Reader_Skips_Blank_Lines(t *testing.T) {
	t.Parallel()

	a := finished(t, "a", at(9, 0), at(10, 0))
	b := ongoing("b", at(10, 0))

	input := "\n" + item.Encode(a) + "\n   \n" + item.Encode(b) + "\n\n"

	got, err := store.Drain(store.NewReader(strings.NewReader(input)))
	if err != nil {
		t.Fatalf("drain: %v", err)
	}

	assertItems(t, got, a, b)
}

func Test_Reader_Reports_Line_Number_When_Line_Is_Malformed(t *testing.T) {
	t.Parallel()

	a := finished(t, "a", at(9, 0), at(10, 0))
	input := item.Encode(a) + "\n\nnot a line\n"

	_, err := store.Drain(store.NewReader(strings.NewReader(input)))
	if !errors.Is(err, item.ErrMalformedLine) {
		t.Fatalf("err = %v, want ErrMalformedLine", err)
	}

	if !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("err = %q, want line number 3", err)
	}
}

func Test_OpenReader_Returns_Empty_Sequence_When_File_Missing(t *testing.T) {
	t.Parallel()

	r, err := store.OpenReader(fs.NewReal(), filepath.Join(t.TempDir(), "missing.txt"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	defer func() { _ = r.Close() }()

	got, err := store.Drain(r)
	if err != nil {
		t.Fatalf("drain: %v", err)
	}

	if len(got) != 0 {
		t.Fatalf("got %d items, want 0", len(got))
	}
}

func Test_Writer_Writes_One_Line_Per_Item(t *testing.T) {
	t.Parallel()

	a := finished(t, "a\nb", at(9, 0), at(10, 0))
	b := ongoing("c", at(10, 0))

	var buf bytes.Buffer

	w := store.NewWriter(&buf)

	for _, it := range []item.Item{a, b} {
		err := w.Write(it)
		if err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	err := w.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	want := "2024-05-01_09:00:00 2024-05-01_10:00:00 a\\nb\n2024-05-01_10:00:00 c\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func Test_Writer_Rejects_Writes_After_Close(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	w := store.NewWriter(&buf)

	err := w.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	err = w.Close()
	if err != nil {
		t.Fatalf("second close: %v", err)
	}

	err = w.Write(ongoing("a", at(9, 0)))
	if err == nil {
		t.Fatal("expected error writing to closed writer")
	}
}

func Test_Reader_And_Writer_Preserve_Sequence(t *testing.T) {
	t.Parallel()

	items := []item.Item{
		finished(t, `back\slash`, at(8, 0), at(9, 0)),
		finished(t, "", at(9, 0), at(9, 0)),
		ongoing("2024-05-01_09:00:00x", at(9, 0)),
	}

	var buf bytes.Buffer

	w := store.NewWriter(&buf)
	for _, it := range items {
		err := w.Write(it)
		if err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	err := w.Close()
	if err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := store.Drain(store.NewReader(&buf))
	if err != nil {
		t.Fatalf("drain: %v", err)
	}

	assertItems(t, got, items...)
}
