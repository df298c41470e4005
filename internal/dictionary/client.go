// internal/dictionary/client.go
//
// Client for the public Free Dictionary API
// (https://api.dictionaryapi.dev/api/v2/entries/en/{word}).
//
// Used after a win to post the meaning of the solved word. Lookups are
// best effort: any failure is returned as an error and the caller drops it.

package dictionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultBaseURL is the public Free Dictionary API.
const DefaultBaseURL = "https://api.dictionaryapi.dev/api/v2/entries/en"

// ErrNotFound is returned when the API has no entry for a word.
var ErrNotFound = errors.New("dictionary: no definition found")

// Client looks up English definitions.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string
}

// NewClient creates a client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers: map[string]string{"Accept": "application/json"},
	}
}

// SetTimeout changes the per-request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

type entry struct {
	Word     string `json:"word"`
	Meanings []struct {
		PartOfSpeech string `json:"partOfSpeech"`
		Definitions  []struct {
			Definition string `json:"definition"`
			Example    string `json:"example"`
		} `json:"definitions"`
	} `json:"meanings"`
}

// Lookup returns an HTML snippet with the first meaning of word:
//
//	<b>WORD</b> 1/N
//	Meaning: ...
//	Example: ...
func (c *Client) Lookup(ctx context.Context, word string) (string, error) {
	body, err := c.get(ctx, "/"+url.PathEscape(strings.ToLower(word)))
	if err != nil {
		return "", err
	}

	var entries []entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return "", fmt.Errorf("dictionary: decode response: %w", err)
	}
	if len(entries) == 0 || len(entries[0].Meanings) == 0 {
		return "", ErrNotFound
	}

	meaning, example := "N/A", "N/A"
	if defs := entries[0].Meanings[0].Definitions; len(defs) > 0 {
		if defs[0].Definition != "" {
			meaning = defs[0].Definition
		}
		if defs[0].Example != "" {
			example = defs[0].Example
		}
	}
	return fmt.Sprintf("<b>%s</b> 1/%d\nMeaning: %s\nExample: %s",
		html.EscapeString(strings.ToUpper(word)), len(entries),
		html.EscapeString(meaning), html.EscapeString(example)), nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return responseBody, nil
}
