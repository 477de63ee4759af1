package slashbot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testFrontPage = `
<html><body><table>
<tr><td><span class="titleline"><a href="https://example.com/story1">First story</a></span></td></tr>
<tr><td><span class="titleline"><a href="item?id=123">Ask HN: second story</a></span></td></tr>
<tr><td><span class="titleline"><a href="https://example.com/story3">Third story</a></span></td></tr>
</table></body></html>`

func TestNewsFrontPage(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = fmt.Fprint(w, testFrontPage)
			},
		),
	)
	t.Cleanup(server.Close)

	client := NewNewsClient(server.URL, http.DefaultClient)

	headlines, err := client.FrontPage(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, headlines, 3)

	assert.Equal(t, "First story", headlines[0].Title)
	assert.Equal(t, "https://example.com/story1", headlines[0].URL)

	// relative discussion links are resolved against the site
	assert.Equal(
		t,
		fmt.Sprintf("%s/item?id=123", server.URL),
		headlines[1].URL,
	)
}

func TestNewsFrontPageLimit(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = fmt.Fprint(w, testFrontPage)
			},
		),
	)
	t.Cleanup(server.Close)

	client := NewNewsClient(server.URL, http.DefaultClient)

	headlines, err := client.FrontPage(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, headlines, 2)
}

func TestNewsNoHeadlines(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = fmt.Fprint(w, "<html><body>nothing here</body></html>")
			},
		),
	)
	t.Cleanup(server.Close)

	client := NewNewsClient(server.URL, http.DefaultClient)

	_, err := client.FrontPage(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNoHeadlines)
}

func TestNewsServerError(t *testing.T) {
	server := httptest.NewServer(
		http.HandlerFunc(
			func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "down", http.StatusServiceUnavailable)
			},
		),
	)
	t.Cleanup(server.Close)

	client := NewNewsClient(server.URL, http.DefaultClient)

	_, err := client.FrontPage(context.Background(), 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}
