package slashbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
)

const (
	booruDefaultBaseURL = "https://safebooru.org"
	booruPageLimit      = 100
)

// ErrNoImages indicates the image board returned no posts for the
// requested tags.
var ErrNoImages = errors.New("no images found")

// BooruClient searches the Safebooru image board via its JSON API.
type BooruClient struct {
	baseURL    string
	httpClient *http.Client

	// mu guards rng, which is shared across interaction handler
	// goroutines and is not concurrency-safe
	mu  sync.Mutex
	rng *rand.Rand
}

func NewBooruClient(baseURL string, httpClient *http.Client, rng *rand.Rand) *BooruClient {
	if baseURL == "" {
		baseURL = booruDefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &BooruClient{
		baseURL:    baseURL,
		httpClient: httpClient,
		rng:        rng,
	}
}

// BooruPost is one post from the board's JSON API.
type BooruPost struct {
	Image     string `json:"image"`
	Directory string `json:"directory"`
	Tags      string `json:"tags"`
	ID        int    `json:"id"`
}

// URL returns the full image URL for the post.
func (p BooruPost) URL(baseURL string) string {
	return fmt.Sprintf(
		"%s/images/%s/%s",
		baseURL,
		p.Directory,
		p.Image,
	)
}

// RandomImage returns the URL of a random post matching the given
// space-separated tags.
func (c *BooruClient) RandomImage(ctx context.Context, tags string) (string, error) {
	params := url.Values{}
	params.Set("page", "dapi")
	params.Set("s", "post")
	params.Set("q", "index")
	params.Set("json", "1")
	params.Set("limit", fmt.Sprintf("%d", booruPageLimit))
	params.Set("tags", strings.TrimSpace(tags))

	endpoint := fmt.Sprintf("%s/index.php?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("image board request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf(
			"image board returned %d: %s",
			resp.StatusCode,
			string(body),
		)
	}

	var posts []BooruPost
	if err = json.NewDecoder(resp.Body).Decode(&posts); err != nil {
		return "", fmt.Errorf("error decoding image board response: %w", err)
	}
	if len(posts) == 0 {
		return "", fmt.Errorf("%w: %q", ErrNoImages, tags)
	}

	c.mu.Lock()
	post := posts[c.rng.Intn(len(posts))]
	c.mu.Unlock()
	return post.URL(c.baseURL), nil
}
