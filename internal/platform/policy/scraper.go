// Package policy fetches payer policy pages and extracts the text snippets
// used to pre-populate prior authorization checklists.
package policy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Snippet is one extracted passage of payer policy text.
type Snippet struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
}

// Scraper downloads a policy page and pulls out its headed text sections.
type Scraper struct {
	client *http.Client
}

func NewScraper() *Scraper {
	return &Scraper{
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Scrape fetches url and returns its policy snippets. Each h2/h3 heading
// starts a new snippet; the paragraphs that follow become its text. Prose
// before the first heading is collected under an empty heading.
func (s *Scraper) Scrape(ctx context.Context, url string) ([]Snippet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "priorauth-policy-ingest/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("policy page returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse policy page: %w", err)
	}

	return extractSnippets(doc), nil
}

func extractSnippets(doc *goquery.Document) []Snippet {
	var snippets []Snippet
	current := Snippet{}

	flush := func() {
		current.Text = strings.TrimSpace(current.Text)
		if current.Text != "" {
			snippets = append(snippets, current)
		}
	}

	doc.Find("h2, h3, p, li").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text == "" {
			return
		}

		switch goquery.NodeName(sel) {
		case "h2", "h3":
			flush()
			current = Snippet{Heading: text}
		default:
			if current.Text != "" {
				current.Text += "\n"
			}
			current.Text += text
		}
	})
	flush()

	return snippets
}
