package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	fetchTimeout      = 30 * time.Second
	fetchMaxRedirects = 10
	fetchUserAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
)

// htmlToMarkdown is a small, swappable HTML→Markdown converter. Per
// spec §1's explicit non-goal ("the concrete web-fetch HTML-to-markdown
// conversion... specified only as an interface"), this is one concrete
// implementation behind a function value so a richer converter (e.g. a
// dedicated library) can replace it without touching WebFetchTool.
var htmlToMarkdown = defaultHTMLToMarkdown

var (
	scriptStyleRe = regexp.MustCompile(`(?is)<(script|style)[^>]*>.*?</(script|style)>`)
	tagToNewline  = regexp.MustCompile(`(?i)<(p|div|br|li|h[1-6]|tr)[^>]*>`)
	anyTagRe      = regexp.MustCompile(`<[^>]+>`)
	multiBlankRe  = regexp.MustCompile(`\n{3,}`)
)

// defaultHTMLToMarkdown strips scripts/styles, turns block tags into line
// breaks, and drops the remaining tags — a minimal but legible conversion,
// grounded on the structure of vanducng-goclaw's extractMode dispatch
// (strip→extract→truncate) without replicating its exact regex catalogue.
func defaultHTMLToMarkdown(html string) string {
	s := scriptStyleRe.ReplaceAllString(html, "")
	s = tagToNewline.ReplaceAllString(s, "\n")
	s = anyTagRe.ReplaceAllString(s, "")
	s = htmlUnescape(s)
	s = multiBlankRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func htmlUnescape(s string) string {
	replacer := strings.NewReplacer(
		"&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'", "&nbsp;", " ",
	)
	return replacer.Replace(s)
}

// WebFetchTool implements web_fetch (spec §4.2).
type WebFetchTool struct {
	client *http.Client
}

// NewWebFetchTool builds the HTTP client with the spec's timeout/redirect
// contract and an SSRF check re-applied on every redirect hop.
func NewWebFetchTool() *WebFetchTool {
	client := &http.Client{Timeout: fetchTimeout}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= fetchMaxRedirects {
			return fmt.Errorf("stopped after %d redirects", fetchMaxRedirects)
		}
		if err := checkSSRF(req.URL); err != nil {
			return err
		}
		return nil
	}
	return &WebFetchTool{client: client}
}

func (t *WebFetchTool) Name() string { return "web_fetch" }
func (t *WebFetchTool) Kind() Kind   { return KindNetwork }

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]interface{}) string {
	rawURL, _ := args["url"].(string)
	if rawURL == "" {
		return errorEnvelope("url is required")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errorEnvelope("invalid url: " + err.Error())
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errorEnvelope("only http and https urls are supported")
	}
	if err := checkSSRF(parsed); err != nil {
		return errorEnvelope(err.Error())
	}

	format, _ := args["format"].(string)
	if format == "" {
		format = "markdown"
	}

	maxLength := 0
	switch v := args["max_length"].(type) {
	case float64:
		maxLength = int(v)
	case int:
		maxLength = v
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errorEnvelope(err.Error())
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := t.client.Do(req)
	if err != nil {
		return errorEnvelope(err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errorEnvelope(err.Error())
	}

	contentType := resp.Header.Get("Content-Type")
	var text string
	switch {
	case strings.Contains(contentType, "application/json"):
		text = string(body)
	case strings.Contains(contentType, "text/html"):
		if format == "markdown" {
			text = htmlToMarkdown(string(body))
		} else {
			text = string(body)
		}
	default:
		text = string(body)
	}

	if maxLength > 0 && len(text) > maxLength {
		total := len(text)
		text = text[:maxLength] + fmt.Sprintf("...\n[truncated at %d chars, total %d]", maxLength, total)
	}

	return text
}

// checkSSRF rejects URLs pointed at loopback, link-local, and other
// internal-network hosts, grounded on vanducng-goclaw's web_fetch SSRF
// guard; re-invoked on every redirect hop via CheckRedirect above.
func checkSSRF(u *url.URL) error {
	host := u.Hostname()
	if host == "" {
		return fmt.Errorf("missing hostname in url")
	}
	lower := strings.ToLower(host)
	if lower == "localhost" || strings.HasSuffix(lower, ".localhost") ||
		lower == "metadata.google.internal" {
		return fmt.Errorf("refusing to fetch internal host %q", host)
	}
	if isPrivateOrLoopbackIP(host) {
		return fmt.Errorf("refusing to fetch internal address %q", host)
	}
	return nil
}
