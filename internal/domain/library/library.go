// Package library aggregates the catalog services into one deduplicated
// list of book entries.
package library

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"booknest/internal/domain/book"
	"booknest/internal/domain/library/source"
)

const (
	// SearchLimit is the per-service result count for SearchAll.
	SearchLimit = 8
	// FeaturedLimit is the per-query result count for Featured.
	FeaturedLimit = 6
	// FeaturedQueries is how many preset queries Featured samples.
	FeaturedQueries = 3
	// TopLimit caps TopByGenre, matching the Google Books page size limit.
	TopLimit = source.GoogleMaxResults

	dedupeKeyLength = 30
)

// featuredQueries are the topical presets sampled for homepage discovery.
var featuredQueries = []string{
	"bestseller fiction",
	"classic literature",
	"bible",
	"romance novel",
	"horror thriller",
	"fantasy adventure",
	"poetry",
	"science fiction",
}

// genreQueries maps each genre to the query used by TopByGenre.
var genreQueries = map[book.Genre]string{
	book.GenreHorror:    "horror",
	book.GenreSuspense:  "thriller mystery",
	book.GenreRomance:   "romance novel",
	book.GenreFantasy:   "fantasy",
	book.GenreAdventure: "adventure",
	book.GenreSciFi:     "science fiction",
	book.GenreReligious: "bible christianity",
	book.GenrePoetry:    "poetry",
	book.GenreSelfHelp:  "self-help",
	book.GenreClassic:   "classic literature",
}

// Result is the outcome of querying one service. A declined service carries
// its error and no entries; callers only ever see the empty contribution.
type Result struct {
	Source  book.Source
	Entries []book.Entry
	Err     error
}

// Declined reports whether the service failed and contributed nothing.
func (r Result) Declined() bool { return r.Err != nil }

// Library fans searches out to the catalog services.
type Library struct {
	// searchers in merge priority order; earlier services win duplicates.
	searchers []source.Searcher
	rich      source.Searcher

	mu  sync.Mutex
	rnd *rand.Rand
}

// Option configures a Library.
type Option func(*Library)

// WithRand replaces the random source used to sample featured queries.
func WithRand(r *rand.Rand) Option {
	return func(l *Library) { l.rnd = r }
}

// New creates a Library. The searchers are merged in the given order:
// Google Books, Open Library, then Gutendex. rich is the catalog used for
// featured and per-genre listings.
func New(google, openLibrary, gutendex source.Searcher, opts ...Option) *Library {
	l := &Library{
		searchers: []source.Searcher{google, openLibrary, gutendex},
		rich:      google,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(l)
	}
	return l
}

// searchOne queries a single service. It never fails; a service error is
// logged and reported as a declined Result.
func searchOne(ctx context.Context, s source.Searcher, query string, limit int) Result {
	entries, err := s.Search(ctx, query, limit)
	if err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"source": s.Name(),
			"query":  query,
		}).Warn("Catalog search declined")
		return Result{Source: s.Name(), Err: err}
	}
	return Result{Source: s.Name(), Entries: entries}
}

// SearchAll queries every service concurrently and returns the merged,
// deduplicated entries. It returns an empty list when every service fails.
func (l *Library) SearchAll(ctx context.Context, query string) []book.Entry {
	results := l.fanOut(ctx, len(l.searchers), func(i int) (source.Searcher, string, int) {
		return l.searchers[i], query, SearchLimit
	})

	logrus.WithFields(logrus.Fields{
		"query":    query,
		"declined": countDeclined(results),
	}).Debug("Catalog search finished")

	return Merge(results...)
}

// Featured samples a few preset queries against the rich catalog. Results
// differ between calls.
func (l *Library) Featured(ctx context.Context) []book.Entry {
	queries := l.sampleQueries(FeaturedQueries)
	results := l.fanOut(ctx, len(queries), func(i int) (source.Searcher, string, int) {
		return l.rich, queries[i], FeaturedLimit
	})
	return Merge(results...)
}

// TopByGenre runs one bounded search for the genre's preset query.
func (l *Library) TopByGenre(ctx context.Context, genre book.Genre, limit int) []book.Entry {
	if limit <= 0 || limit > TopLimit {
		limit = TopLimit
	}
	query, ok := genreQueries[genre]
	if !ok {
		query = genreQueries[book.GenreClassic]
	}
	return Merge(searchOne(ctx, l.rich, query, limit))
}

// fanOut runs n searches concurrently and returns their results in index
// order.
func (l *Library) fanOut(ctx context.Context, n int, job func(i int) (source.Searcher, string, int)) []Result {
	results := make([]Result, n)

	var g errgroup.Group
	for i := 0; i < n; i++ {
		s, query, limit := job(i)
		g.Go(func() error {
			results[i] = searchOne(ctx, s, query, limit)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (l *Library) sampleQueries(n int) []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	shuffled := make([]string, len(featuredQueries))
	copy(shuffled, featuredQueries)
	l.rnd.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}

// Merge concatenates results in order and keeps the first entry for each
// dedupe key.
func Merge(results ...Result) []book.Entry {
	var all []book.Entry
	for _, r := range results {
		all = append(all, r.Entries...)
	}
	return Dedupe(all)
}

// Dedupe keeps the first entry of every title key, preserving order.
func Dedupe(entries []book.Entry) []book.Entry {
	seen := make(map[string]bool, len(entries))
	out := make([]book.Entry, 0, len(entries))
	for _, e := range entries {
		key := DedupeKey(e.Title)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	return out
}

// DedupeKey is the lowercase first 30 characters of a title.
func DedupeKey(title string) string {
	r := []rune(strings.ToLower(title))
	if len(r) > dedupeKeyLength {
		r = r[:dedupeKeyLength]
	}
	return string(r)
}

func countDeclined(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Declined() {
			n++
		}
	}
	return n
}
