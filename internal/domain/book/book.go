package book

// Source identifies the catalog service an Entry came from.
type Source string

const (
	SourceGoogle      Source = "google"
	SourceOpenLibrary Source = "openlibrary"
	SourceGutendex    Source = "gutendex"
)

// Label returns the human-readable service name.
func (s Source) Label() string {
	switch s {
	case SourceGoogle:
		return "Google Books"
	case SourceOpenLibrary:
		return "Open Library"
	case SourceGutendex:
		return "Project Gutenberg"
	default:
		return string(s)
	}
}

// Entry is a book record normalised from one of the catalog services.
// ID carries a per-service prefix (gb-, ol-, gd-) so entries from different
// services never collide.
type Entry struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Author      string   `json:"author"`
	Cover       string   `json:"cover,omitempty"`
	Genre       Genre    `json:"genre"`
	Language    string   `json:"language"`
	Description string   `json:"description"`
	Source      Source   `json:"source"`
	PreviewLink string   `json:"preview_link,omitempty"`
	Subjects    []string `json:"subjects,omitempty"`
	PageCount   int      `json:"page_count,omitempty"`
	PublishYear int      `json:"publish_year,omitempty"`
	TextURL     string   `json:"text_url,omitempty"`
}

// Placeholders used when a service omits a field.
const (
	UnknownTitle  = "Untitled"
	UnknownAuthor = "Unknown author"
)

// Language labels.
const (
	LanguagePortuguese = "Português"
	LanguageSpanish    = "Español"
	LanguageEnglish    = "English"
)

// LanguageLabel maps an ISO 639-1 or 639-2 code to the label shown to readers.
// Anything unrecognised is reported as English.
func LanguageLabel(code string) string {
	switch code {
	case "pt", "por":
		return LanguagePortuguese
	case "es", "spa":
		return LanguageSpanish
	default:
		return LanguageEnglish
	}
}
