// Package reader turns a catalog entry into pages of readable text.
package reader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"booknest/internal/domain/book"
	"booknest/internal/domain/library/source"
)

// User-facing notices used in place of real text.
const (
	FetchFailed        = "Could not load the text of this book."
	ContentUnavailable = "Content not available for reading."
	NoSynopsis         = "No synopsis available."
	NoFullTextNotice   = "Full text is not available for direct reading."
)

const (
	// DefaultTimeout bounds a full-text download.
	DefaultTimeout = 15 * time.Second
	// ResolveLimit is the number of Gutendex results inspected for a title.
	ResolveLimit = 3

	titleMatchLength = 15
	maxTextBytes     = 16 << 20
)

// Reader downloads, caches and paginates book texts.
type Reader struct {
	gutendex   source.Searcher
	httpClient *http.Client
	userAgent  string
	cache      *TextCache
}

// Option configures a Reader.
type Option func(*Reader)

// WithHTTPClient replaces the HTTP client used for text downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(r *Reader) { r.httpClient = hc }
}

// WithTimeout sets the download timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(r *Reader) {
		if d > 0 {
			r.httpClient = &http.Client{Timeout: d}
		}
	}
}

// WithUserAgent sets the User-Agent sent with downloads.
func WithUserAgent(ua string) Option {
	return func(r *Reader) { r.userAgent = ua }
}

// WithCache stores downloaded texts in c.
func WithCache(c *TextCache) Option {
	return func(r *Reader) { r.cache = c }
}

// New creates a Reader. gutendex is used to find plain text for entries
// from catalogs that have none.
func New(gutendex source.Searcher, opts ...Option) *Reader {
	r := &Reader{
		gutendex:   gutendex,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// FetchFullText downloads the text at url and paginates it. It never fails:
// a download error yields a stale cached copy when there is one, and a
// single page carrying FetchFailed otherwise.
func (r *Reader) FetchFullText(ctx context.Context, url string) []Page {
	if r.cache != nil {
		if text, ok := r.cache.Get(url); ok {
			logrus.WithField("url", url).Debug("Loading book text from cache")
			return Paginate(text)
		}
	}

	text, err := r.download(ctx, url)
	if err != nil {
		logger := logrus.WithError(err).WithField("url", url)
		if r.cache != nil {
			if stale, ok := r.cache.Stale(url); ok {
				logger.Warn("Text download failed, using stale cache")
				return Paginate(stale)
			}
		}
		logger.Warn("Text download failed")
		return placeholder(FetchFailed)
	}

	if r.cache != nil {
		if err := r.cache.Put(url, text); err != nil {
			logrus.WithError(err).Warn("Failed to save book text to cache")
		}
	}
	return Paginate(text)
}

func (r *Reader) download(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTextBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	return strings.ToValidUTF8(string(body), "�"), nil
}

// Resolve returns the pages for entry. Gutendex entries are fetched
// directly; other entries are looked up on Gutendex by title. When no text
// can be found the result is the entry description followed by a notice.
func (r *Reader) Resolve(ctx context.Context, entry book.Entry) []Page {
	if entry.Source == book.SourceGutendex && entry.TextURL != "" {
		return r.FetchFullText(ctx, entry.TextURL)
	}

	if entry.Source != book.SourceGutendex && r.gutendex != nil {
		if match, ok := r.findOnGutendex(ctx, entry.Title); ok {
			logrus.WithFields(logrus.Fields{
				"id":    entry.ID,
				"match": match.ID,
			}).Debug("Found plain text on Gutendex")
			return r.FetchFullText(ctx, match.TextURL)
		}
	}

	return synopsisPages(entry)
}

func (r *Reader) findOnGutendex(ctx context.Context, title string) (book.Entry, bool) {
	results, err := r.gutendex.Search(ctx, title, ResolveLimit)
	if err != nil {
		logrus.WithError(err).WithField("title", title).Debug("Gutendex lookup failed")
		return book.Entry{}, false
	}

	prefix := titlePrefix(title)
	for _, e := range results {
		if e.TextURL != "" && strings.Contains(strings.ToLower(e.Title), prefix) {
			return e, true
		}
	}
	return book.Entry{}, false
}

func titlePrefix(title string) string {
	r := []rune(strings.ToLower(title))
	if len(r) > titleMatchLength {
		r = r[:titleMatchLength]
	}
	return string(r)
}

func synopsisPages(entry book.Entry) []Page {
	desc := entry.Description
	if strings.TrimSpace(desc) == "" {
		desc = NoSynopsis
	}

	notice := NoFullTextNotice + "\n\nThis book is available on its original platform. "
	if entry.PreviewLink != "" {
		notice += "Open the preview at " + entry.PreviewLink + "."
	} else {
		notice += "Search the web for the title to find the full text."
	}

	return []Page{
		{Index: 0, Text: desc},
		{Index: 1, Text: notice},
	}
}

// HasFullText reports whether pages hold real book text rather than a
// notice or synopsis produced in its place.
func HasFullText(pages []Page) bool {
	switch len(pages) {
	case 0:
		return false
	case 1:
		t := pages[0].Text
		return t != FetchFailed && t != ContentUnavailable
	case 2:
		return !strings.HasPrefix(pages[1].Text, NoFullTextNotice)
	default:
		return true
	}
}

// Characters returns the number of characters in a page.
func (p Page) Characters() int { return utf8.RuneCountInString(p.Text) }
