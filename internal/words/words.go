// internal/words/words.go
//
// Word catalog for the game engine.
//
// Responsibilities:
//   - Load the vocabulary from a local file, a remote JSON dictionary, or the
//     embedded default list.
//   - Keep a set for O(1) membership checks and a slice for random picks.
//   - Supply Contains, PickRandom and Len.
//
// Sources (Load):
//   1. If File is set, read one word per line from it.
//   2. Else if URL is set, fetch a JSON object whose keys are words
//      (the dwyl/english-words "words_dictionary.json" layout).
//   3. Else fall back to assets/words.txt.
//
// Constraints:
//   • Words must be exactly Length alphabetic letters (A–Z).
//   • Lists are normalized to uppercase and de-duplicated.
//   • A Catalog is immutable once built.

package words

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wordseek/assets"
)

// DefaultLength is the fixed word length of the game.
const DefaultLength = 5

// ErrEmpty is returned by PickRandom when the catalog holds no words.
var ErrEmpty = errors.New("words: catalog is empty")

// Source selects where Load reads the vocabulary from.
type Source struct {
	File   string // WORDS_FILE
	URL    string // WORDS_URL
	Length int    // defaults to DefaultLength
}

// Catalog is an immutable, uppercase vocabulary of fixed-length words.
type Catalog struct {
	length int
	list   []string
	set    map[string]struct{}
}

// New builds a Catalog from raw words, keeping only valid entries.
func New(raw []string, length int) *Catalog {
	if length <= 0 {
		length = DefaultLength
	}
	c := &Catalog{length: length, set: make(map[string]struct{}, len(raw))}
	for _, w := range raw {
		w = Normalize(w)
		if len(w) != length || !IsAlpha(w) {
			continue
		}
		if _, dup := c.set[w]; dup {
			continue
		}
		c.set[w] = struct{}{}
		c.list = append(c.list, w)
	}
	return c
}

// Load builds a Catalog from src. Returns an error if no words survive.
func Load(ctx context.Context, src Source) (*Catalog, error) {
	var (
		raw    []string
		err    error
		origin string
	)
	switch {
	case src.File != "":
		origin = src.File
		raw, err = readWordFile(src.File)
	case src.URL != "":
		origin = src.URL
		raw, err = fetchDictionary(ctx, src.URL)
	default:
		origin = "embedded"
		raw, err = assets.WordList()
	}
	if err != nil {
		return nil, fmt.Errorf("words: load %s: %w", origin, err)
	}

	c := New(raw, src.Length)
	if c.Len() == 0 {
		return nil, fmt.Errorf("words: load %s: %w", origin, ErrEmpty)
	}
	log.Info().Str("source", origin).Int("words", c.Len()).Int("length", c.length).Msg("word catalog loaded")
	return c, nil
}

// readWordFile loads one word per line from a file.
func readWordFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readLines(f)
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if w := strings.TrimSpace(sc.Text()); w != "" && !strings.HasPrefix(w, "#") {
			out = append(out, w)
		}
	}
	return out, sc.Err()
}

// fetchDictionary downloads a JSON object keyed by word.
func fetchDictionary(ctx context.Context, url string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("dictionary returned status code: %d", resp.StatusCode)
	}

	var dict map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&dict); err != nil {
		return nil, fmt.Errorf("decode dictionary: %w", err)
	}
	out := make([]string, 0, len(dict))
	for w := range dict {
		out = append(out, w)
	}
	return out, nil
}

// Normalize trims and uppercases a word.
func Normalize(w string) string {
	return strings.ToUpper(strings.TrimSpace(w))
}

// IsAlpha reports whether s is non-empty and all uppercase ASCII letters.
func IsAlpha(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	return true
}

// Contains reports whether w is in the catalog. Case-insensitive.
func (c *Catalog) Contains(w string) bool {
	_, ok := c.set[Normalize(w)]
	return ok
}

// PickRandom returns a cryptographically random word.
func (c *Catalog) PickRandom() (string, error) {
	if len(c.list) == 0 {
		return "", ErrEmpty
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(c.list))))
	if err != nil {
		return "", fmt.Errorf("words: pick: %w", err)
	}
	return c.list[n.Int64()], nil
}

// Len returns the number of words.
func (c *Catalog) Len() int { return len(c.list) }

// WordLength returns the fixed word length.
func (c *Catalog) WordLength() int { return c.length }
