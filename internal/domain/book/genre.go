package book

import (
	"fmt"
	"regexp"
	"strings"
)

// Genre is one of the ten reading categories. The string values double as
// the tone keys understood by the narration relay.
type Genre string

const (
	GenreHorror    Genre = "terror"
	GenreSuspense  Genre = "suspense"
	GenreRomance   Genre = "romance"
	GenreFantasy   Genre = "fantasia"
	GenreAdventure Genre = "aventura"
	GenreSciFi     Genre = "ficção"
	GenreReligious Genre = "religioso"
	GenrePoetry    Genre = "poesia"
	GenreSelfHelp  Genre = "autoajuda"
	GenreClassic   Genre = "clássico"
)

// Genres lists every genre in classification priority order.
var Genres = []Genre{
	GenreHorror,
	GenreSuspense,
	GenreRomance,
	GenreFantasy,
	GenreAdventure,
	GenreSciFi,
	GenreReligious,
	GenrePoetry,
	GenreSelfHelp,
	GenreClassic,
}

var genreLabels = map[Genre]string{
	GenreHorror:    "Horror",
	GenreSuspense:  "Suspense",
	GenreRomance:   "Romance",
	GenreFantasy:   "Fantasy",
	GenreAdventure: "Adventure",
	GenreSciFi:     "Science fiction",
	GenreReligious: "Religious",
	GenrePoetry:    "Poetry",
	GenreSelfHelp:  "Self-help",
	GenreClassic:   "Classic",
}

// Label returns the English display name of g.
func (g Genre) Label() string {
	if l, ok := genreLabels[g]; ok {
		return l
	}
	return string(g)
}

// ParseGenre accepts either the wire key ("terror") or the English label
// ("horror", "Science fiction").
func ParseGenre(s string) (Genre, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, g := range Genres {
		if s == string(g) || s == strings.ToLower(g.Label()) {
			return g, nil
		}
	}
	if g, ok := genreAliases[s]; ok {
		return g, nil
	}
	return "", fmt.Errorf("unknown genre %q", s)
}

var genreAliases = map[string]Genre{
	"sci-fi":   GenreSciFi,
	"scifi":    GenreSciFi,
	"ficcao":   GenreSciFi,
	"classico": GenreClassic,
	"horror":   GenreHorror,
}

type genreRule struct {
	genre   Genre
	pattern *regexp.Regexp
}

// Rules are evaluated in order; the first match wins.
var genreRules = []genreRule{
	{GenreHorror, regexp.MustCompile(`horror|terror|scary|gothic|dracula|frankenstein`)},
	{GenreSuspense, regexp.MustCompile(`suspense|thriller|mystery|detective|crime`)},
	{GenreRomance, regexp.MustCompile(`romance|love|passion|heart`)},
	{GenreFantasy, regexp.MustCompile(`fantasy|magic|wizard|dragon|fairy`)},
	{GenreAdventure, regexp.MustCompile(`adventure|journey|expedition|quest`)},
	{GenreSciFi, regexp.MustCompile(`science fiction|sci-fi|space|future|robot`)},
	{GenreReligious, regexp.MustCompile(`bible|religion|spiritual|church|god|jesus|prayer`)},
	{GenrePoetry, regexp.MustCompile(`poem|poetry|verse|sonnet`)},
	{GenreSelfHelp, regexp.MustCompile(`self-help|motivation|mindfulness|happiness`)},
	{GenreClassic, regexp.MustCompile(`classic|literature|19th century|18th century`)},
}

// ClassifyGenre assigns a genre from keyword matches over the subjects, title
// and description. It is a heuristic, not a taxonomy, and defaults to classic.
func ClassifyGenre(subjects []string, title, description string) Genre {
	parts := make([]string, 0, len(subjects)+2)
	parts = append(parts, subjects...)
	parts = append(parts, title, description)
	all := strings.ToLower(strings.Join(parts, " "))

	for _, r := range genreRules {
		if r.pattern.MatchString(all) {
			return r.genre
		}
	}
	return GenreClassic
}
