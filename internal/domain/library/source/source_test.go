package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"booknest/internal/domain/book"
)

func serveJSON(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

const googleBody = `{"items":[{"id":"abc123","volumeInfo":{
	"title":"Dracula","authors":["Bram Stoker"],"description":"A gothic tale of the count.",
	"categories":["Fiction"],"language":"en","pageCount":418,"publishedDate":"1897-05-26",
	"previewLink":"https://books.google.com/books?id=abc123",
	"imageLinks":{"thumbnail":"http://books.google.com/thumb.jpg"}}},
	{"id":"empty","volumeInfo":{"pageCount":0}}]}`

func TestGoogleBooks_Search(t *testing.T) {
	srv := serveJSON(t, googleBody, func(r *http.Request) {
		assert.Equal(t, "/volumes", r.URL.Path)
		assert.Equal(t, "dracula", r.URL.Query().Get("q"))
		assert.Equal(t, "8", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "books", r.URL.Query().Get("printType"))
	})

	g := NewGoogleBooks("", WithBaseURL(srv.URL))
	entries, err := g.Search(context.Background(), "dracula", 8)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	e := entries[0]
	assert.Equal(t, "gb-abc123", e.ID)
	assert.Equal(t, "Bram Stoker", e.Author)
	assert.Equal(t, "https://books.google.com/thumb.jpg", e.Cover)
	assert.Equal(t, book.GenreHorror, e.Genre)
	assert.Equal(t, book.LanguageEnglish, e.Language)
	assert.Equal(t, 1897, e.PublishYear)
	assert.Equal(t, 418, e.PageCount)
	assert.Equal(t, book.SourceGoogle, e.Source)
	assert.Empty(t, e.TextURL)

	empty := entries[1]
	assert.Equal(t, book.UnknownTitle, empty.Title)
	assert.Equal(t, book.UnknownAuthor, empty.Author)
	assert.Equal(t, "? pages", empty.Description)
	assert.Empty(t, empty.Cover)
}

func TestGoogleBooks_LimitCapped(t *testing.T) {
	srv := serveJSON(t, `{}`, func(r *http.Request) {
		assert.Equal(t, "40", r.URL.Query().Get("maxResults"))
		assert.Equal(t, "secret", r.URL.Query().Get("key"))
	})

	entries, err := NewGoogleBooks("secret", WithBaseURL(srv.URL)).Search(context.Background(), "x", 500)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGoogleBooks_TruncatesDescription(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'a'
	}
	var item googleVolume
	item.ID = "x"
	item.VolumeInfo.Description = string(long)
	e := convertGoogleVolume(item)
	assert.Len(t, e.Description, 200)
}

func TestOpenLibrary_Search(t *testing.T) {
	body := `{"numFound":1,"docs":[{"key":"/works/OL45883W","title":"Frankenstein",
		"author_name":["Mary Shelley"],"cover_i":12345,"subject":["Monsters","Science","Horror tales","Gothic","Fiction","Extra"],
		"first_publish_year":1818,"language":["por","eng"],"number_of_pages_median":280}]}`
	srv := serveJSON(t, body, func(r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "booknest-test (ops@example.org)", r.Header.Get("User-Agent"))
		assert.Equal(t, "frankenstein", r.URL.Query().Get("q"))
		assert.Equal(t, openLibraryFields, r.URL.Query().Get("fields"))
	})

	ol := NewOpenLibrary(0, WithBaseURL(srv.URL), WithUserAgent("booknest-test (ops@example.org)"))
	entries, err := ol.Search(context.Background(), "frankenstein", 8)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "ol-OL45883W", e.ID)
	assert.Equal(t, "https://covers.openlibrary.org/b/id/12345-M.jpg", e.Cover)
	assert.Equal(t, book.GenreHorror, e.Genre)
	assert.Equal(t, book.LanguagePortuguese, e.Language)
	assert.Equal(t, "Published in 1818. 280 pages.", e.Description)
	assert.Len(t, e.Subjects, 5)
	assert.Equal(t, 1818, e.PublishYear)
}

func TestOpenLibrary_UnknownYear(t *testing.T) {
	e := convertOpenLibraryDoc(openLibraryDoc{Key: "/works/OL1W"})
	assert.Equal(t, "Published in ?.", e.Description)
	assert.Equal(t, book.LanguageEnglish, e.Language)
}

func TestGutendex_Search(t *testing.T) {
	body := `{"count":4,"results":[
		{"id":345,"title":"Dracula","authors":[{"name":"Stoker, Bram","birth_year":1847}],
		 "subjects":["Horror tales","Vampires -- Fiction","Epistolary fiction","Transylvania"],"languages":["en"],
		 "formats":{"text/plain; charset=utf-8":"https://www.gutenberg.org/ebooks/345.txt.utf-8","image/jpeg":"https://www.gutenberg.org/cover.jpg"}},
		{"id":2,"title":"Plain","authors":[],"subjects":[],"languages":["es"],"formats":{"text/plain":"https://example.org/2.txt"}},
		{"id":3,"title":"Three","authors":[],"subjects":[],"languages":[],"formats":{}},
		{"id":4,"title":"Four","authors":[],"subjects":[],"languages":[],"formats":{}}]}`
	srv := serveJSON(t, body, func(r *http.Request) {
		assert.Equal(t, "/books", r.URL.Path)
		assert.Equal(t, "dracula", r.URL.Query().Get("search"))
	})

	entries, err := NewGutendex(WithBaseURL(srv.URL)).Search(context.Background(), "dracula", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "gd-345", entries[0].ID)
	assert.Equal(t, "Stoker, Bram", entries[0].Author)
	assert.Equal(t, "Horror tales, Vampires -- Fiction, Epistolary fiction", entries[0].Description)
	assert.Equal(t, "https://www.gutenberg.org/ebooks/345.txt.utf-8", entries[0].TextURL)
	assert.Equal(t, book.GenreHorror, entries[0].Genre)
	assert.Zero(t, entries[0].PublishYear)

	assert.Equal(t, "https://example.org/2.txt", entries[1].TextURL)
	assert.Equal(t, book.LanguageSpanish, entries[1].Language)
	assert.Equal(t, book.UnknownAuthor, entries[1].Author)
	assert.Equal(t, "Classic book from Project Gutenberg", entries[1].Description)
}

func TestSearch_Failures(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer failing.Close()
	garbled := serveJSON(t, `{"items": [`, nil)

	for _, base := range []string{failing.URL, garbled.URL} {
		searchers := []Searcher{
			NewGoogleBooks("", WithBaseURL(base)),
			NewOpenLibrary(0, WithBaseURL(base)),
			NewGutendex(WithBaseURL(base)),
		}
		for _, s := range searchers {
			entries, err := s.Search(context.Background(), "anything", 5)
			assert.Error(t, err, s.Name())
			assert.Nil(t, entries, s.Name())
		}
	}
}

func TestLeadingYear(t *testing.T) {
	assert.Equal(t, 2004, leadingYear("2004"))
	assert.Equal(t, 1999, leadingYear("1999-12"))
	assert.Equal(t, 0, leadingYear(""))
	assert.Equal(t, 0, leadingYear("circa"))
}
