package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"booknest/internal/domain/book"
)

const gutendexBaseURL = "https://gutendex.com"

// Gutendex searches Project Gutenberg through the Gutendex API. It is the
// only service exposing machine-readable plain text.
type Gutendex struct {
	client
}

func NewGutendex(opts ...Option) *Gutendex {
	return &Gutendex{client: newClient(gutendexBaseURL, opts)}
}

// gutendexResponse represents the API response structure
type gutendexResponse struct {
	Count    int            `json:"count"`
	Next     *string        `json:"next"`
	Previous *string        `json:"previous"`
	Results  []gutendexBook `json:"results"`
}

type gutendexBook struct {
	ID            int               `json:"id"`
	Title         string            `json:"title"`
	Authors       []gutendexAuthor  `json:"authors"`
	Subjects      []string          `json:"subjects"`
	Languages     []string          `json:"languages"`
	Formats       map[string]string `json:"formats"`
	DownloadCount int               `json:"download_count"`
}

type gutendexAuthor struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year"`
	DeathYear *int   `json:"death_year"`
}

func (g *Gutendex) Name() book.Source { return book.SourceGutendex }

// Search returns at most limit books from the first result page.
func (g *Gutendex) Search(ctx context.Context, query string, limit int) ([]book.Entry, error) {
	params := url.Values{}
	params.Set("search", query)
	params.Set("page", "1")

	var resp gutendexResponse
	if err := g.getJSON(ctx, g.baseURL+"/books?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("gutendex: %w", err)
	}

	books := resp.Results
	if limit > 0 && len(books) > limit {
		books = books[:limit]
	}

	entries := make([]book.Entry, 0, len(books))
	for _, b := range books {
		entries = append(entries, convertGutendexBook(b))
	}
	return entries, nil
}

func convertGutendexBook(b gutendexBook) book.Entry {
	author := book.UnknownAuthor
	if len(b.Authors) > 0 && b.Authors[0].Name != "" {
		author = b.Authors[0].Name
	}

	description := strings.Join(headN(b.Subjects, 3), ", ")
	if description == "" {
		description = "Classic book from Project Gutenberg"
	}

	return book.Entry{
		ID:          "gd-" + strconv.Itoa(b.ID),
		Title:       orDefault(b.Title, book.UnknownTitle),
		Author:      author,
		Cover:       b.Formats["image/jpeg"],
		Genre:       book.ClassifyGenre(b.Subjects, b.Title, ""),
		Language:    book.LanguageLabel(firstOr(b.Languages, "en")),
		Description: description,
		Source:      book.SourceGutendex,
		Subjects:    headN(b.Subjects, 5),
		TextURL:     bestTextFormat(b.Formats),
	}
}

// bestTextFormat picks the plain-text download, preferring explicit UTF-8.
func bestTextFormat(formats map[string]string) string {
	for _, format := range []string{"text/plain; charset=utf-8", "text/plain", "text/plain; charset=us-ascii"} {
		if u, ok := formats[format]; ok {
			return u
		}
	}
	return ""
}
