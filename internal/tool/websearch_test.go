package tool

import "testing"

func TestExtractDDGResults(t *testing.T) {
	html := `
	<a class="result__a" href="https://duckduckgo.com/l/?uddg=https%3A%2F%2Fexample.com%2Fpage&amp;rut=1">Example Title</a>
	<a class="result__snippet" href="#">Example snippet text</a>
	`
	results := extractDDGResults(html, 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d: %+v", len(results), results)
	}
	if results[0].Title != "Example Title" {
		t.Fatalf("Title = %q", results[0].Title)
	}
	if results[0].URL != "https://example.com/page" {
		t.Fatalf("URL = %q, want unwrapped uddg target", results[0].URL)
	}
	if results[0].Snippet != "Example snippet text" {
		t.Fatalf("Snippet = %q", results[0].Snippet)
	}
}

func TestExtractDDGResultsNoMatches(t *testing.T) {
	if got := extractDDGResults("<html>no results here</html>", 5); got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestWebSearchUnconfiguredProviderInBand(t *testing.T) {
	tool := NewWebSearchTool(WebSearchConfig{})
	out := tool.Execute(nil, map[string]interface{}{"query": "x", "provider": "brave"})
	if out == "" {
		t.Fatal("expected non-empty in-band result")
	}
}
