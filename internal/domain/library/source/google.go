package source

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"booknest/internal/domain/book"
)

const (
	googleBooksBaseURL = "https://www.googleapis.com/books/v1"

	// GoogleMaxResults is the largest page size the volumes endpoint accepts.
	GoogleMaxResults = 40

	googleDescriptionLimit = 200
)

// GoogleBooks searches the Google Books volumes API.
type GoogleBooks struct {
	client
	apiKey string
}

// NewGoogleBooks creates a Google Books client. apiKey may be empty; the
// public quota is used then.
func NewGoogleBooks(apiKey string, opts ...Option) *GoogleBooks {
	return &GoogleBooks{
		client: newClient(googleBooksBaseURL, opts),
		apiKey: apiKey,
	}
}

type googleVolumes struct {
	Items []googleVolume `json:"items"`
}

type googleVolume struct {
	ID         string `json:"id"`
	VolumeInfo struct {
		Title         string   `json:"title"`
		Authors       []string `json:"authors"`
		Description   string   `json:"description"`
		Categories    []string `json:"categories"`
		Language      string   `json:"language"`
		PageCount     int      `json:"pageCount"`
		PublishedDate string   `json:"publishedDate"`
		PreviewLink   string   `json:"previewLink"`
		ImageLinks    struct {
			Thumbnail string `json:"thumbnail"`
		} `json:"imageLinks"`
	} `json:"volumeInfo"`
}

func (g *GoogleBooks) Name() book.Source { return book.SourceGoogle }

// Search queries /volumes for printed books.
func (g *GoogleBooks) Search(ctx context.Context, query string, limit int) ([]book.Entry, error) {
	if limit <= 0 || limit > GoogleMaxResults {
		limit = GoogleMaxResults
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(limit))
	params.Set("printType", "books")
	if g.apiKey != "" {
		params.Set("key", g.apiKey)
	}

	var resp googleVolumes
	if err := g.getJSON(ctx, g.baseURL+"/volumes?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("google books: %w", err)
	}

	entries := make([]book.Entry, 0, len(resp.Items))
	for _, item := range resp.Items {
		entries = append(entries, convertGoogleVolume(item))
	}
	return entries, nil
}

func convertGoogleVolume(item googleVolume) book.Entry {
	v := item.VolumeInfo

	description := v.Description
	if r := []rune(description); len(r) > googleDescriptionLimit {
		description = string(r[:googleDescriptionLimit])
	}
	if description == "" {
		pages := "?"
		if v.PageCount > 0 {
			pages = strconv.Itoa(v.PageCount)
		}
		description = pages + " pages"
	}

	return book.Entry{
		ID:          "gb-" + item.ID,
		Title:       orDefault(v.Title, book.UnknownTitle),
		Author:      firstOr(v.Authors, book.UnknownAuthor),
		Cover:       strings.Replace(v.ImageLinks.Thumbnail, "http:", "https:", 1),
		Genre:       book.ClassifyGenre(v.Categories, v.Title, v.Description),
		Language:    book.LanguageLabel(v.Language),
		Description: description,
		Source:      book.SourceGoogle,
		PreviewLink: v.PreviewLink,
		Subjects:    v.Categories,
		PageCount:   v.PageCount,
		PublishYear: leadingYear(v.PublishedDate),
	}
}

// leadingYear parses the year out of dates like "1897", "1897-05" or
// "1897-05-26".
func leadingYear(date string) int {
	end := 0
	for end < len(date) && date[end] >= '0' && date[end] <= '9' {
		end++
	}
	year, err := strconv.Atoi(date[:end])
	if err != nil {
		return 0
	}
	return year
}
