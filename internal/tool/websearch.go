package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const searchUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// searchResult is one entry of web_search's JSON array result, per spec
// §4.2: [{title,url,snippet}, ...].
type searchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// searchProvider abstracts a web-search backend. The concrete scraping
// logic of each provider is, per spec §1, an interface-only concern — only
// the provider-selection and rate-limiting contract is part of the core.
type searchProvider interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]searchResult, error)
}

// WebSearchConfig configures providers and their rate limits.
type WebSearchConfig struct {
	DDGRateLimitSecs   float64
	BraveAPIKey        string
	BraveRateLimitSecs float64
}

// WebSearchTool implements web_search (spec §4.2).
type WebSearchTool struct {
	providers map[string]searchProvider
	limiters  map[string]*rate.Limiter
	def       string
}

// NewWebSearchTool builds the DDG provider (always on) and, if an API key
// is configured, the Brave provider. Each provider gets its own
// rate.Limiter: internally it already implements the
// read-timestamp/release-lock/sleep-outside-lock discipline spec §4.2/§5
// describe, so this package does not hand-roll a second copy (DESIGN.md
// Open Question 2).
func NewWebSearchTool(cfg WebSearchConfig) *WebSearchTool {
	ddgInterval := cfg.DDGRateLimitSecs
	if ddgInterval <= 0 {
		ddgInterval = 2.0
	}
	braveInterval := cfg.BraveRateLimitSecs
	if braveInterval <= 0 {
		braveInterval = 1.0
	}

	providers := map[string]searchProvider{
		"duckduckgo": &duckDuckGoProvider{client: &http.Client{Timeout: 30 * time.Second}},
	}
	limiters := map[string]*rate.Limiter{
		"duckduckgo": rate.NewLimiter(rate.Every(time.Duration(ddgInterval*float64(time.Second))), 1),
	}

	if cfg.BraveAPIKey != "" {
		providers["brave"] = &braveProvider{apiKey: cfg.BraveAPIKey, client: &http.Client{Timeout: 30 * time.Second}}
		limiters["brave"] = rate.NewLimiter(rate.Every(time.Duration(braveInterval*float64(time.Second))), 1)
	}

	return &WebSearchTool{providers: providers, limiters: limiters, def: "duckduckgo"}
}

func (t *WebSearchTool) Name() string { return "web_search" }
func (t *WebSearchTool) Kind() Kind   { return KindNetwork }

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) string {
	query, _ := args["query"].(string)
	if query == "" {
		return errorEnvelope("query is required")
	}

	count := 5
	switch v := args["count"].(type) {
	case float64:
		count = int(v)
	case int:
		count = v
	}
	if count <= 0 {
		count = 5
	}

	provider := t.def
	if p, ok := args["provider"].(string); ok && p != "" {
		provider = p
	}

	p, ok := t.providers[provider]
	if !ok {
		return errorEnvelope(fmt.Sprintf("unknown or unconfigured provider: %s", provider))
	}

	if limiter, ok := t.limiters[provider]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return errorEnvelope(err.Error())
		}
	}

	results, err := p.Search(ctx, query, count)
	if err != nil {
		return errorEnvelope(err.Error())
	}

	b, err := json.Marshal(results)
	if err != nil {
		return errorEnvelope("failed to encode search results")
	}
	return string(b)
}

// --- DuckDuckGo provider ---

type duckDuckGoProvider struct {
	client *http.Client
}

func (p *duckDuckGoProvider) Name() string { return "duckduckgo" }

var (
	ddgLinkRe    = regexp.MustCompile(`<a[^>]*class="[^"]*result__a[^"]*"[^>]*href="([^"]+)"[^>]*>([\s\S]*?)</a>`)
	ddgSnippetRe = regexp.MustCompile(`<a class="result__snippet[^"]*".*?>([\s\S]*?)</a>`)
	htmlTagRe    = regexp.MustCompile(`<[^>]+>`)
)

func (p *duckDuckGoProvider) Search(ctx context.Context, query string, count int) ([]searchResult, error) {
	searchURL := fmt.Sprintf("https://html.duckduckgo.com/html/?q=%s", url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", searchUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return extractDDGResults(string(body), count), nil
}

func extractDDGResults(html string, count int) []searchResult {
	linkMatches := ddgLinkRe.FindAllStringSubmatch(html, count+5)
	if len(linkMatches) == 0 {
		return nil
	}
	snippetMatches := ddgSnippetRe.FindAllStringSubmatch(html, count+5)

	results := make([]searchResult, 0, count)
	for i := 0; i < len(linkMatches) && i < count; i++ {
		rawURL := linkMatches[i][1]
		title := strings.TrimSpace(htmlTagRe.ReplaceAllString(linkMatches[i][2], ""))

		if strings.Contains(rawURL, "uddg=") {
			if u, err := url.QueryUnescape(rawURL); err == nil {
				if idx := strings.Index(u, "uddg="); idx != -1 {
					extracted := u[idx+5:]
					if amp := strings.Index(extracted, "&"); amp != -1 {
						extracted = extracted[:amp]
					}
					rawURL = extracted
				}
			}
		}

		snippet := ""
		if i < len(snippetMatches) {
			snippet = strings.TrimSpace(htmlTagRe.ReplaceAllString(snippetMatches[i][1], ""))
		}

		results = append(results, searchResult{Title: title, URL: rawURL, Snippet: snippet})
	}
	return results
}

// --- Brave provider ---

type braveProvider struct {
	apiKey string
	client *http.Client
}

func (p *braveProvider) Name() string { return "brave" }

type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

func (p *braveProvider) Search(ctx context.Context, query string, count int) ([]searchResult, error) {
	endpoint := fmt.Sprintf("https://api.search.brave.com/res/v1/web/search?q=%s&count=%d", url.QueryEscape(query), count)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("brave search returned %d: %s", resp.StatusCode, string(body))
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	results := make([]searchResult, 0, len(parsed.Web.Results))
	for i, r := range parsed.Web.Results {
		if i >= count {
			break
		}
		results = append(results, searchResult{Title: r.Title, URL: r.URL, Snippet: r.Description})
	}
	return results, nil
}
