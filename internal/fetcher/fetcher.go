package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/knowledge-engine/clusterer/internal/config"
)

// FetchResult contains the extracted data from a webpage
type FetchResult struct {
	URL        string   `json:"url"`
	Title      string   `json:"title"`
	Text       string   `json:"text"` // Abstract text, or the page body when no abstract is found
	Links      []string `json:"links"`
	StatusCode int      `json:"status_code"`
}

type Fetcher struct {
	client           *http.Client
	userAgent        string
	abstractSelector string
	titleSuffix      string
}

// NewFetcher builds a fetcher from the fetcher configuration
func NewFetcher(cfg config.FetcherConfig) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent:        cfg.UserAgent,
		abstractSelector: cfg.AbstractSelector,
		titleSuffix:      cfg.TitleSuffix,
	}
}

// Fetch downloads and parses a webpage
func (f *Fetcher) Fetch(ctx context.Context, url string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	result := &FetchResult{
		URL:        url,
		StatusCode: resp.StatusCode,
		Links:      make([]string, 0),
	}

	if resp.StatusCode != http.StatusOK {
		return result, fmt.Errorf("received non-200 status code: %d", resp.StatusCode)
	}

	if err := f.parseHTML(resp.Body, result); err != nil {
		return nil, fmt.Errorf("parsing error: %w", err)
	}

	return result, nil
}

// parseHTML extracts the title, abstract text and links
func (f *Fetcher) parseHTML(body io.Reader, result *FetchResult) error {
	root, err := html.Parse(body)
	if err != nil {
		return err
	}
	doc := goquery.NewDocumentFromNode(root)

	title := cleanText(doc.Find("title").First().Text())
	if f.titleSuffix != "" {
		title = strings.TrimSuffix(title, strings.TrimSpace(f.titleSuffix))
		title = strings.TrimSpace(title)
	}
	result.Title = title

	text := ""
	if f.abstractSelector != "" {
		text = selectionText(doc.Find(f.abstractSelector))
	}
	if text == "" {
		doc.Find("script, style, noscript").Remove()
		text = selectionText(doc.Find("body"))
	}
	result.Text = strings.TrimPrefix(text, "Abstract ")

	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		if link := cleanLink(s.AttrOr("href", ""), result.URL); link != "" {
			result.Links = append(result.Links, link)
		}
	})

	return nil
}

// selectionText joins the text nodes under every matched element with a
// space, so adjacent block elements do not run together
func selectionText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		collectText(n, &b)
	}
	return cleanText(b.String())
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(n.Data)
		b.WriteString(" ")
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

// cleanText removes excessive whitespace
func cleanText(input string) string {
	return strings.Join(strings.Fields(input), " ")
}

// cleanLink handles relative URLs
func cleanLink(href, baseURL string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}

	if strings.HasPrefix(href, "http") {
		return href
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}

	return base.ResolveReference(ref).String()
}
