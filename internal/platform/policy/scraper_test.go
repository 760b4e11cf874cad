package policy

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const policyPage = `<!DOCTYPE html>
<html><body>
<p>Effective January 2026.</p>
<h2>Medical Necessity Criteria</h2>
<p>Total knee arthroplasty requires documented failure of conservative therapy.</p>
<li>Minimum 6 weeks of physical therapy</li>
<h3>Required Documentation</h3>
<p>Imaging report within 12 months.</p>
<h2>Exclusions</h2>
<p></p>
</body></html>`

func TestScrape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(policyPage))
	}))
	defer srv.Close()

	snippets, err := NewScraper().Scrape(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(snippets) != 3 {
		t.Fatalf("expected 3 snippets, got %d: %+v", len(snippets), snippets)
	}

	if snippets[0].Heading != "" {
		t.Errorf("expected preamble snippet with empty heading, got %q", snippets[0].Heading)
	}
	if snippets[1].Heading != "Medical Necessity Criteria" {
		t.Errorf("unexpected heading %q", snippets[1].Heading)
	}
	if snippets[2].Heading != "Required Documentation" {
		t.Errorf("unexpected heading %q", snippets[2].Heading)
	}
	// "Exclusions" has no body text so it is dropped.
}

func TestScrape_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	if _, err := NewScraper().Scrape(context.Background(), srv.URL); err == nil {
		t.Fatal("expected error for non-200 response")
	}
}
