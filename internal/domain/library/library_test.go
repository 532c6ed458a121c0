package library

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknest/internal/domain/book"
)

type fakeSearcher struct {
	name    book.Source
	entries []book.Entry
	err     error
	delay   time.Duration
	started chan struct{}

	mu      sync.Mutex
	queries []string
	limits  []int
}

func (f *fakeSearcher) Name() book.Source { return f.name }

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]book.Entry, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.limits = append(f.limits, limit)
	f.mu.Unlock()
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.entries, nil
}

func entry(id, title string, src book.Source) book.Entry {
	return book.Entry{ID: id, Title: title, Source: src, Genre: book.ClassifyGenre(nil, title, "")}
}

func TestSearchAll_MergeOrderAndDedupe(t *testing.T) {
	google := &fakeSearcher{name: book.SourceGoogle, entries: []book.Entry{
		entry("gb-1", "Dracula", book.SourceGoogle),
		entry("gb-2", "The Adventures of Sherlock Holmes, Illustrated Edition", book.SourceGoogle),
	}}
	ol := &fakeSearcher{name: book.SourceOpenLibrary, entries: []book.Entry{
		entry("ol-1", "DRACULA", book.SourceOpenLibrary),
		entry("ol-2", "Carmilla", book.SourceOpenLibrary),
	}}
	gd := &fakeSearcher{name: book.SourceGutendex, entries: []book.Entry{
		entry("gd-1", "The Adventures of Sherlock Holmes", book.SourceGutendex),
		entry("gd-2", "Carmilla", book.SourceGutendex),
		entry("gd-3", "Dracula's Guest", book.SourceGutendex),
	}}

	l := New(google, ol, gd)
	got := l.SearchAll(context.Background(), "dracula")

	ids := make([]string, len(got))
	for i, e := range got {
		ids[i] = e.ID
	}
	// Both Holmes titles share the prefix "the adventures of sherlock hol".
	assert.Equal(t, []string{"gb-1", "gb-2", "ol-2", "gd-3"}, ids)

	for _, s := range []*fakeSearcher{google, ol, gd} {
		assert.Equal(t, []int{SearchLimit}, s.limits)
	}
}

func TestSearchAll_AllServicesFail(t *testing.T) {
	boom := errors.New("connection refused")
	l := New(
		&fakeSearcher{name: book.SourceGoogle, err: boom},
		&fakeSearcher{name: book.SourceOpenLibrary, err: boom},
		&fakeSearcher{name: book.SourceGutendex, err: boom},
	)

	got := l.SearchAll(context.Background(), "anything")
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSearchAll_OneFailureDoesNotBlockOthers(t *testing.T) {
	l := New(
		&fakeSearcher{name: book.SourceGoogle, err: errors.New("503")},
		&fakeSearcher{name: book.SourceOpenLibrary, entries: []book.Entry{entry("ol-1", "Emma", book.SourceOpenLibrary)}},
		&fakeSearcher{name: book.SourceGutendex, entries: []book.Entry{entry("gd-1", "Persuasion", book.SourceGutendex)}},
	)

	got := l.SearchAll(context.Background(), "austen")
	require.Len(t, got, 2)
	assert.Equal(t, "ol-1", got[0].ID)
	assert.Equal(t, "gd-1", got[1].ID)
}

func TestSearchAll_Concurrent(t *testing.T) {
	started := make(chan struct{}, 3)
	mk := func(src book.Source) *fakeSearcher {
		return &fakeSearcher{name: src, delay: 200 * time.Millisecond, started: started}
	}
	l := New(mk(book.SourceGoogle), mk(book.SourceOpenLibrary), mk(book.SourceGutendex))

	done := make(chan struct{})
	go func() {
		l.SearchAll(context.Background(), "q")
		close(done)
	}()

	// All three requests must be in flight before any of them returns.
	for i := 0; i < 3; i++ {
		select {
		case <-started:
		case <-time.After(150 * time.Millisecond):
			t.Fatalf("search %d did not start concurrently", i+1)
		}
	}
	<-done
}

func TestSearchAll_DraculaIsHorror(t *testing.T) {
	l := New(
		&fakeSearcher{name: book.SourceGoogle, entries: []book.Entry{
			{ID: "gb-1", Title: "Dracula", Genre: book.ClassifyGenre([]string{"Fiction"}, "Dracula", "")},
		}},
		&fakeSearcher{name: book.SourceOpenLibrary},
		&fakeSearcher{name: book.SourceGutendex},
	)
	got := l.SearchAll(context.Background(), "dracula")
	require.NotEmpty(t, got)
	assert.Equal(t, book.Genre("terror"), got[0].Genre)
}

func TestFeatured(t *testing.T) {
	google := &fakeSearcher{name: book.SourceGoogle, entries: []book.Entry{
		entry("gb-1", "Same Title", book.SourceGoogle),
		entry("gb-2", "Other Title", book.SourceGoogle),
	}}
	l := New(google, &fakeSearcher{name: book.SourceOpenLibrary}, &fakeSearcher{name: book.SourceGutendex},
		WithRand(rand.New(rand.NewSource(7))))

	got := l.Featured(context.Background())

	// Every query returns the same two titles, so dedupe leaves two.
	assert.Len(t, got, 2)
	require.Len(t, google.queries, FeaturedQueries)
	seen := map[string]bool{}
	for _, q := range google.queries {
		assert.Contains(t, featuredQueries, q)
		assert.False(t, seen[q], "query %q sampled twice", q)
		seen[q] = true
	}
	assert.Equal(t, []int{FeaturedLimit, FeaturedLimit, FeaturedLimit}, google.limits)
}

func TestTopByGenre(t *testing.T) {
	google := &fakeSearcher{name: book.SourceGoogle}
	ol := &fakeSearcher{name: book.SourceOpenLibrary}
	l := New(google, ol, &fakeSearcher{name: book.SourceGutendex})

	l.TopByGenre(context.Background(), book.GenrePoetry, 100)
	l.TopByGenre(context.Background(), book.GenreHorror, 10)

	assert.Equal(t, []string{"poetry", "horror"}, google.queries)
	assert.Equal(t, []int{TopLimit, 10}, google.limits)
	assert.Empty(t, ol.queries)
}

func TestDedupeKey(t *testing.T) {
	assert.Equal(t, "dracula", DedupeKey("Dracula"))
	assert.Equal(t, "the adventures of sherlock hol", DedupeKey("The Adventures of Sherlock Holmes"))
	assert.Equal(t, "ação", DedupeKey("AÇÃO"))
}

func TestResult_Declined(t *testing.T) {
	assert.True(t, Result{Err: errors.New("x")}.Declined())
	assert.False(t, Result{}.Declined())
}
