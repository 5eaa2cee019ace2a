package item_test

import (
	"errors"
	"testing"
	"time"

	"github.com/calvinalkan/timelog/internal/item"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.May, 1, hour, minute, 0, 0, time.Local)
}

func Test_New_Rejects_End_Before_Start(t *testing.T) {
	t.Parallel()

	_, err := item.New("coding", at(11, 0), at(10, 0))
	if !errors.Is(err, item.ErrEndBeforeStart) {
		t.Fatalf("err = %v, want ErrEndBeforeStart", err)
	}
}

func Test_New_Accepts_Zero_Duration(t *testing.T) {
	t.Parallel()

	it, err := item.New("coding", at(10, 0), at(10, 0))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if it.Duration(time.Now()) != 0 {
		t.Fatalf("duration = %v, want 0", it.Duration(time.Now()))
	}
}

func Test_New_Truncates_Sub_Second_Precision(t *testing.T) {
	t.Parallel()

	start := at(10, 0).Add(750 * time.Millisecond)

	it := item.NewOngoing("coding", start)
	if !it.Start().Equal(at(10, 0)) {
		t.Fatalf("start = %v, want %v", it.Start(), at(10, 0))
	}

	// End truncation can make end == start legal even if end < start before truncation.
	finished, err := item.New("coding", at(10, 0).Add(900*time.Millisecond), at(10, 0).Add(100*time.Millisecond))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	end, _ := finished.End()
	if !end.Equal(finished.Start()) {
		t.Fatalf("end = %v, want %v", end, finished.Start())
	}
}

func Test_With_Methods_Return_Copies(t *testing.T) {
	t.Parallel()

	orig, err := item.New("coding", at(10, 0), at(11, 0))
	if err != nil {
		t.Fatal(err)
	}

	trimmed, err := orig.WithEnd(at(10, 30))
	if err != nil {
		t.Fatal(err)
	}

	renamed := orig.WithActivity("review")
	ongoing := orig.WithPendingEnd()

	later, err := orig.WithStart(at(10, 45))
	if err != nil {
		t.Fatal(err)
	}

	if got := item.Encode(orig); got != "2024-05-01_10:00:00 2024-05-01_11:00:00 coding" {
		t.Fatalf("orig mutated: %q", got)
	}

	if got := item.Encode(trimmed); got != "2024-05-01_10:00:00 2024-05-01_10:30:00 coding" {
		t.Fatalf("trimmed = %q", got)
	}

	if got := item.Encode(renamed); got != "2024-05-01_10:00:00 2024-05-01_11:00:00 review" {
		t.Fatalf("renamed = %q", got)
	}

	if !ongoing.Ongoing() || !ongoing.Start().Equal(orig.Start()) {
		t.Fatalf("ongoing = %q", item.Encode(ongoing))
	}

	if got := item.Encode(later); got != "2024-05-01_10:45:00 2024-05-01_11:00:00 coding" {
		t.Fatalf("later = %q", got)
	}

	_, err = orig.WithStart(at(12, 0))
	if !errors.Is(err, item.ErrEndBeforeStart) {
		t.Fatalf("WithStart past end: err = %v", err)
	}
}

func Test_WithStart_Keeps_Ongoing_When_Item_Has_No_End(t *testing.T) {
	t.Parallel()

	moved, err := item.NewOngoing("coding", at(10, 0)).WithStart(at(12, 0))
	if err != nil {
		t.Fatal(err)
	}

	if !moved.Ongoing() || !moved.Start().Equal(at(12, 0)) {
		t.Fatalf("moved = %q", item.Encode(moved))
	}
}

func Test_Equal_Is_Structural(t *testing.T) {
	t.Parallel()

	a, _ := item.New("coding", at(10, 0), at(11, 0))
	b, _ := item.New("coding", at(10, 0).In(time.UTC), at(11, 0))
	c, _ := item.New("coding", at(10, 0), at(11, 1))
	d := item.NewOngoing("coding", at(10, 0))

	tests := []struct {
		name  string
		left  item.Item
		right item.Item
		want  bool
	}{
		{name: "same fields", left: a, right: b, want: true},
		{name: "different end", left: a, right: c, want: false},
		{name: "ongoing vs finished", left: a, right: d, want: false},
		{name: "different activity", left: a, right: a.WithActivity("x"), want: false},
		{name: "both ongoing", left: d, right: item.NewOngoing("coding", at(10, 0)), want: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := tc.left.Equal(tc.right); got != tc.want {
				t.Fatalf("Equal = %v, want %v", got, tc.want)
			}
		})
	}
}
