package query_test

import (
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/timelog/internal/item"
	"github.com/calvinalkan/timelog/internal/query"
	"github.com/calvinalkan/timelog/internal/store"
)

// fakeLoader serves a mutable sequence and counts loads.
type fakeLoader struct {
	mu    sync.Mutex
	items []item.Item
	err   error
	loads atomic.Int64
}

func (f *fakeLoader) set(items ...item.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items = items
}

func (f *fakeLoader) load() ([]item.Item, error) {
	f.loads.Add(1)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	return slices.Clone(f.items), nil
}

func encoded(items []item.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, item.Encode(it))
	}

	return out
}

func Test_Cache_Loads_Lazily_And_Once_When_Fresh(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	loader.set(finished(t, "a", at(9, 0), at(10, 0)))

	cache := query.NewCache(loader.load, nil)
	assert.False(t, cache.Fresh())
	assert.Equal(t, int64(0), loader.loads.Load())

	_, err := cache.All()
	require.NoError(t, err)

	_, _, err = cache.LastItem()
	require.NoError(t, err)

	assert.True(t, cache.Fresh())
	assert.Equal(t, int64(1), loader.loads.Load())
}

func Test_Cache_Reflects_Backing_Sequence_After_Invalidate(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	a := finished(t, "a", at(9, 0), at(10, 0))
	b := item.NewOngoing("b", at(10, 0))
	loader.set(a)

	cache := query.NewCache(loader.load, nil)

	_, err := cache.All()
	require.NoError(t, err)

	loader.set(a, b)

	got, err := cache.All()
	require.NoError(t, err)
	assert.Equal(t, encoded([]item.Item{a}), encoded(got), "fresh cache must not reload")

	cache.Invalidate()
	cache.Invalidate()
	assert.False(t, cache.Fresh())

	got, err = cache.All()
	require.NoError(t, err)
	assert.Equal(t, encoded([]item.Item{a, b}), encoded(got))
}

func Test_Cache_Stays_Stale_When_Load_Fails(t *testing.T) {
	t.Parallel()

	errBoom := errors.New("boom")
	loader := &fakeLoader{err: errBoom}

	cache := query.NewCache(loader.load, nil)

	_, err := cache.All()
	require.ErrorIs(t, err, errBoom)
	assert.False(t, cache.Fresh())

	loader.mu.Lock()
	loader.err = nil
	loader.mu.Unlock()

	_, err = cache.All()
	require.NoError(t, err)
	assert.True(t, cache.Fresh())
}

func Test_Cache_Shares_One_Rebuild_When_Queried_Concurrently(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})

	var loads atomic.Int64

	cache := query.NewCache(func() ([]item.Item, error) {
		loads.Add(1)
		<-release

		return []item.Item{item.NewOngoing("a", at(9, 0))}, nil
	}, nil)

	const n = 16

	var wg sync.WaitGroup

	results := make([]int, n)

	for i := range n {
		wg.Go(func() {
			items, err := cache.All()
			if err == nil {
				results[i] = len(items)
			}
		})
	}

	// Give the goroutines time to pile up on the in-flight rebuild.
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, loads.Load(), int64(n))
	assert.GreaterOrEqual(t, loads.Load(), int64(1))

	for i, got := range results {
		assert.Equal(t, 1, got, "result %d", i)
	}
}

// Contract: a rebuild that started before an invalidation must not publish
// its now outdated snapshot.
func Test_Cache_Does_Not_Publish_Rebuild_Started_Before_Invalidate(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})

	var calls atomic.Int64

	cache := query.NewCache(func() ([]item.Item, error) {
		if calls.Add(1) == 1 {
			close(started)
			<-release

			return []item.Item{item.NewOngoing("old", at(9, 0))}, nil
		}

		return []item.Item{item.NewOngoing("new", at(9, 0))}, nil
	}, nil)

	done := make(chan struct{})

	go func() {
		defer close(done)

		_, _ = cache.All()
	}()

	<-started
	cache.Invalidate()
	close(release)
	<-done

	assert.False(t, cache.Fresh())

	last, ok, err := cache.LastItem()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "new", last.Activity())
}

func Test_OngoingItem_Returns_Last_Only_When_It_Has_No_End(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	a := finished(t, "a", at(9, 0), at(10, 0))
	loader.set(a)

	cache := query.NewCache(loader.load, nil)

	_, ok, err := cache.OngoingItem()
	require.NoError(t, err)
	assert.False(t, ok)

	last, ok, err := cache.LastItem()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, last.Equal(a))

	b := item.NewOngoing("b", at(10, 0))
	loader.set(a, b)
	cache.Invalidate()

	got, ok, err := cache.OngoingItem()
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.Equal(b))
}

func Test_LastItem_Returns_False_When_Empty(t *testing.T) {
	t.Parallel()

	cache := query.NewCache((&fakeLoader{}).load, nil)

	_, ok, err := cache.LastItem()
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = cache.OngoingItem()
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_AdjacentItems_Returns_Only_Zero_Gap_Neighbours(t *testing.T) {
	t.Parallel()

	a := finished(t, "a", at(9, 0), at(10, 0))
	b := finished(t, "b", at(10, 0), at(11, 0))
	c := finished(t, "c", at(11, 30), at(12, 0))
	d := item.NewOngoing("d", at(12, 0))

	loader := &fakeLoader{}
	loader.set(a, b, c, d)

	cache := query.NewCache(loader.load, nil)

	adj, err := cache.AdjacentItems(b)
	require.NoError(t, err)
	require.NotNil(t, adj.Prev)
	assert.True(t, adj.Prev.Equal(a))
	assert.Nil(t, adj.Next, "c starts 30 minutes after b ends")

	adj, err = cache.AdjacentItems(c)
	require.NoError(t, err)
	assert.Nil(t, adj.Prev)
	require.NotNil(t, adj.Next)
	assert.True(t, adj.Next.Equal(d))

	adj, err = cache.AdjacentItems(d)
	require.NoError(t, err)
	require.NotNil(t, adj.Prev)
	assert.True(t, adj.Prev.Equal(c))
	assert.Nil(t, adj.Next)

	adj, err = cache.AdjacentItems(finished(t, "b", at(10, 0), at(11, 1)))
	require.NoError(t, err)
	assert.Nil(t, adj.Prev)
	assert.Nil(t, adj.Next)
}

func Test_Items_Filters_In_Chronological_Order(t *testing.T) {
	t.Parallel()

	a := finished(t, "review pr", at(9, 0), at(10, 0))
	b := finished(t, "coding", at(10, 0), at(11, 0))
	c := finished(t, "review docs", at(11, 0), at(12, 0))
	d := item.NewOngoing("review again", at(12, 0))

	loader := &fakeLoader{}
	loader.set(a, b, c, d)

	cache := query.NewCache(loader.load, nil)

	seq, err := cache.Items(query.Where().ActivityContains("review").EndNotAfter(at(23, 0)))
	require.NoError(t, err)

	assert.Equal(t, encoded([]item.Item{a, c}), encoded(slices.Collect(seq)))

	found, ok, err := cache.Find(query.Where().ActivityContains("review").StartNotBefore(at(10, 0)))
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, found.Equal(c))

	_, ok, err = cache.Find(query.Where().ActivityIs("nothing"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_Items_Stops_When_Consumer_Breaks(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{}
	loader.set(
		finished(t, "a", at(9, 0), at(10, 0)),
		finished(t, "b", at(10, 0), at(11, 0)),
		finished(t, "c", at(11, 0), at(12, 0)),
	)

	cache := query.NewCache(loader.load, nil)

	seq, err := cache.Items(query.Where())
	require.NoError(t, err)

	var seen []string

	for it := range seq {
		seen = append(seen, it.Activity())
		if len(seen) == 2 {
			break
		}
	}

	assert.Equal(t, []string{"a", "b"}, seen)
}

func Test_TrackedDays_Returns_Distinct_Days_In_First_Seen_Order(t *testing.T) {
	t.Parallel()

	day1 := at(9, 0)
	day2 := day1.AddDate(0, 0, 1)
	day4 := day1.AddDate(0, 0, 3)

	loader := &fakeLoader{}
	loader.set(
		finished(t, "a", day1, day1.Add(time.Hour)),
		finished(t, "b", day1.Add(2*time.Hour), day1.Add(3*time.Hour)),
		finished(t, "c", day2, day2.Add(time.Hour)),
		item.NewOngoing("d", day4),
	)

	cache := query.NewCache(loader.load, nil)

	days, err := cache.TrackedDays()
	require.NoError(t, err)

	want := []time.Time{query.StartOfDay(day1), query.StartOfDay(day2), query.StartOfDay(day4)}
	require.Len(t, days, len(want))

	for i := range want {
		assert.True(t, want[i].Equal(days[i]), "day %d = %v, want %v", i, days[i], want[i])
		assert.Equal(t, 0, days[i].Hour())
	}
}

func Test_ForStore_Invalidates_On_Every_Mutation(t *testing.T) {
	t.Parallel()

	s := store.New(filepath.Join(t.TempDir(), "timelog.txt"), store.Options{})
	cache := query.ForStore(s, nil)

	a := finished(t, "a", at(9, 0), at(10, 0))
	require.NoError(t, s.Persist(a))

	got, err := cache.All()
	require.NoError(t, err)
	assert.Equal(t, encoded([]item.Item{a}), encoded(got))

	b := item.NewOngoing("b", at(10, 0))
	require.NoError(t, s.Persist(b))
	assert.False(t, cache.Fresh())

	got, err = cache.All()
	require.NoError(t, err)
	assert.Equal(t, encoded([]item.Item{a, b}), encoded(got))

	require.NoError(t, s.Delete(a))

	got, err = cache.All()
	require.NoError(t, err)
	assert.Equal(t, encoded([]item.Item{b}), encoded(got))
}
