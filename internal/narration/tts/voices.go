package tts

import (
	"strings"

	"booknest/internal/domain/book"
)

// Prosody is the ElevenLabs voice_settings used for a tone.
type Prosody struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	Speed           float64 `json:"speed"`
}

var (
	toneHorror    = ToneOf(book.GenreHorror)
	toneSuspense  = ToneOf(book.GenreSuspense)
	toneRomance   = ToneOf(book.GenreRomance)
	toneFantasy   = ToneOf(book.GenreFantasy)
	toneAdventure = ToneOf(book.GenreAdventure)
	toneSciFi     = ToneOf(book.GenreSciFi)
	toneReligious = ToneOf(book.GenreReligious)
	tonePoetry    = ToneOf(book.GenrePoetry)
	toneSelfHelp  = ToneOf(book.GenreSelfHelp)
	toneClassic   = ToneOf(book.GenreClassic)
)

// elevenLabsVoices maps persona and tone to an ElevenLabs voice id.
var elevenLabsVoices = map[Persona]map[Tone]string{
	PersonaMale: {
		ToneDefault:   "nPczCjzI2devNBz1zQrb",
		toneSuspense:  "onwK4e9ZLuTAKqWW03F9",
		toneHorror:    "N2lVS1w4EtoT3dr4eOWO",
		toneRomance:   "JBFqnCBsd6RMkjVDRZzb",
		toneAdventure: "IKne3meq5aSn9XLyUdCD",
		toneSciFi:     "CwhRBWXzGAHq8TQ4Fs17",
		toneFantasy:   "bIHbv24MWmeRgasZH58o",
		toneReligious: "pqHfZKP75CvOlQylNhV4",
		toneClassic:   "JBFqnCBsd6RMkjVDRZzb",
		tonePoetry:    "TX3LPaxmHKxFdv7VOQHJ",
		toneSelfHelp:  "nPczCjzI2devNBz1zQrb",
	},
	PersonaFemale: {
		ToneDefault:   "EXAVITQu4vr4xnSDxMaL",
		toneSuspense:  "cgSgspJ2msm6clMCkdW9",
		toneHorror:    "Xb7hH8MSUJpSbSDYk0k2",
		toneRomance:   "FGY2WhTYpPnrIDTdsKH5",
		toneAdventure: "pFZP5JQG7iQjIQuC4Bku",
		toneSciFi:     "EXAVITQu4vr4xnSDxMaL",
		toneFantasy:   "XrExE9yKIg1WjnnlVkGX",
		toneReligious: "FGY2WhTYpPnrIDTdsKH5",
		toneClassic:   "EXAVITQu4vr4xnSDxMaL",
		tonePoetry:    "XrExE9yKIg1WjnnlVkGX",
		toneSelfHelp:  "FGY2WhTYpPnrIDTdsKH5",
	},
}

// childVoice is used for every tone of the child persona.
const childVoice = "SAz9YHcvj6GT2YYXdXww"

var prosodies = map[Tone]Prosody{
	ToneDefault:   {0.55, 0.75, 0.30, 1.00},
	toneSuspense:  {0.40, 0.80, 0.65, 0.88},
	toneHorror:    {0.30, 0.85, 0.80, 0.82},
	toneRomance:   {0.60, 0.75, 0.50, 0.95},
	toneAdventure: {0.45, 0.78, 0.60, 1.05},
	toneSciFi:     {0.50, 0.75, 0.45, 1.00},
	toneFantasy:   {0.50, 0.80, 0.55, 0.95},
	toneReligious: {0.70, 0.72, 0.20, 0.90},
	toneClassic:   {0.65, 0.72, 0.30, 0.93},
	tonePoetry:    {0.58, 0.76, 0.55, 0.90},
	toneSelfHelp:  {0.65, 0.75, 0.35, 0.95},
}

// geminiVoices maps persona to a Gemini prebuilt voice.
var geminiVoices = map[Persona]string{
	PersonaMale:   "Puck",
	PersonaFemale: "Kore",
	PersonaChild:  "Aoede",
}

// ElevenLabsVoice returns the voice id for a profile. Unknown personas use
// the male table and unknown tones the persona default.
func ElevenLabsVoice(p VoiceProfile) string {
	if p.Persona == PersonaChild {
		return childVoice
	}
	table, ok := elevenLabsVoices[p.Persona]
	if !ok {
		table = elevenLabsVoices[PersonaMale]
	}
	if id, ok := table[p.Tone]; ok {
		return id
	}
	return table[ToneDefault]
}

// ProsodyFor returns the voice settings for a tone.
func ProsodyFor(t Tone) Prosody {
	if p, ok := prosodies[t]; ok {
		return p
	}
	return prosodies[ToneDefault]
}

// GeminiVoice returns the prebuilt Gemini voice for a persona.
func GeminiVoice(p Persona) string {
	if v, ok := geminiVoices[p]; ok {
		return v
	}
	return geminiVoices[PersonaFemale]
}

// LanguageCode maps a catalog language label or ISO code to a BCP-47
// language code. Unknown labels fall back to Brazilian Portuguese.
func LanguageCode(label string) string {
	l := strings.ToLower(strings.TrimSpace(label))
	switch {
	case strings.Contains(l, "português") || l == "pt":
		return "pt-BR"
	case strings.Contains(l, "español") || l == "es":
		return "es-ES"
	case strings.Contains(l, "hebraico") || l == "he":
		return "he-IL"
	case strings.Contains(l, "aramaico") || l == "ar":
		return "ar-XA"
	case strings.Contains(l, "english") || l == "en":
		return "en-US"
	default:
		return "pt-BR"
	}
}
