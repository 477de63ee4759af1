package slashbot

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	newsDefaultBaseURL = "https://news.ycombinator.com"
	newsMaxHeadlines   = 10
)

// ErrNoHeadlines indicates the front page scrape found no stories,
// usually meaning the page markup changed.
var ErrNoHeadlines = errors.New("no headlines found")

// Headline is one scraped front-page story.
type Headline struct {
	Title string
	URL   string
}

// NewsClient scrapes the Hacker News front page for headlines.
type NewsClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewNewsClient(baseURL string, httpClient *http.Client) *NewsClient {
	if baseURL == "" {
		baseURL = newsDefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &NewsClient{baseURL: baseURL, httpClient: httpClient}
}

// FrontPage returns up to limit headlines from the front page.
func (c *NewsClient) FrontPage(ctx context.Context, limit int) ([]Headline, error) {
	if limit <= 0 || limit > newsMaxHeadlines {
		limit = newsMaxHeadlines
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("news site returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing news page: %w", err)
	}

	var headlines []Headline
	doc.Find(".titleline > a").EachWithBreak(
		func(_ int, sel *goquery.Selection) bool {
			title := strings.TrimSpace(sel.Text())
			href, _ := sel.Attr("href")
			if title == "" || href == "" {
				return true
			}
			if strings.HasPrefix(href, "item?id=") {
				href = fmt.Sprintf("%s/%s", c.baseURL, href)
			}
			headlines = append(headlines, Headline{Title: title, URL: href})
			return len(headlines) < limit
		},
	)

	if len(headlines) == 0 {
		return nil, ErrNoHeadlines
	}
	return headlines, nil
}
