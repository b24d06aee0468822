package extract

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon holds the vocabulary the rule-based extractor understands.
type Lexicon struct {
	Cuisines        []string          `yaml:"cuisines"`
	CuisineSynonyms map[string]string `yaml:"cuisine_synonyms"`
	NumberWords     map[string]int    `yaml:"number_words"`
	Yes             []string          `yaml:"yes"`
	No              []string          `yaml:"no"`
	Neutral         []string          `yaml:"neutral"`
}

// DefaultLexicon returns the built-in English and German vocabulary.
func DefaultLexicon() Lexicon {
	return Lexicon{
		Cuisines: []string{
			"italian", "sushi", "indian", "mexican", "chinese", "greek", "french",
			"turkish", "vietnamese", "korean", "japanese", "spanish",
		},
		CuisineSynonyms: map[string]string{
			"italienisch":   "italian",
			"chinesisch":    "chinese",
			"mexikanisch":   "mexican",
			"griechisch":    "greek",
			"türkisch":      "turkish",
			"tuerkisch":     "turkish",
			"französisch":   "french",
			"franzoesisch":  "french",
			"spanisch":      "spanish",
			"indisch":       "indian",
			"vietnamesisch": "vietnamese",
			"koreanisch":    "korean",
			"japanisch":     "japanese",
		},
		NumberWords: map[string]int{
			"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
			"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
			"eins": 1, "zwei": 2, "drei": 3, "vier": 4, "fuenf": 5, "fünf": 5,
			"sechs": 6, "sieben": 7, "acht": 8, "neun": 9, "zehn": 10,
		},
		Yes: []string{"yes", "y", "yeah", "sure", "correct", "ja", "j", "genau", "stimmt"},
		No:  []string{"no", "n", "nein", "nope", "nicht", "kein"},
		Neutral: []string{
			"egal", "doesnt matter", "doesn't matter", "dont care", "don't care",
			"egal ist", "egal danke",
		},
	}
}

// ParseLexiconYAML decodes a lexicon and layers it over the defaults.
// Lists replace the default list when present, maps are merged.
func ParseLexiconYAML(data []byte) (Lexicon, error) {
	lex := DefaultLexicon()
	if len(bytes.TrimSpace(data)) == 0 {
		return lex, nil
	}

	var override Lexicon
	if err := yaml.Unmarshal(data, &override); err != nil {
		return Lexicon{}, fmt.Errorf("lexicon: decode: %w", err)
	}

	if len(override.Cuisines) > 0 {
		lex.Cuisines = lowerAll(override.Cuisines)
	}
	for k, v := range override.CuisineSynonyms {
		lex.CuisineSynonyms[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	for k, v := range override.NumberWords {
		if v <= 0 {
			return Lexicon{}, fmt.Errorf("lexicon: number word %q must be positive", k)
		}
		lex.NumberWords[strings.ToLower(strings.TrimSpace(k))] = v
	}
	if len(override.Yes) > 0 {
		lex.Yes = lowerAll(override.Yes)
	}
	if len(override.No) > 0 {
		lex.No = lowerAll(override.No)
	}
	if len(override.Neutral) > 0 {
		lex.Neutral = lowerAll(override.Neutral)
	}
	return lex, nil
}

// LoadLexicon reads a YAML lexicon from disk. An empty path or a missing file
// yields the defaults.
func LoadLexicon(path string) (Lexicon, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultLexicon(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultLexicon(), nil
		}
		return Lexicon{}, fmt.Errorf("lexicon: read %s: %w", path, err)
	}
	lex, err := ParseLexiconYAML(data)
	if err != nil {
		return Lexicon{}, fmt.Errorf("lexicon: %s: %w", path, err)
	}
	return lex, nil
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
