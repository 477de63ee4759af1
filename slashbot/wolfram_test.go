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

func newTestWolframClient(t testing.TB, handler http.HandlerFunc) *WolframClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewWolframClient(
		&WolframConfig{AppID: "test-app", BaseURL: server.URL},
		http.DefaultClient,
	)
}

func TestWolframQuery(t *testing.T) {
	client := newTestWolframClient(
		t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/result", r.URL.Path)
			assert.Equal(t, "test-app", r.URL.Query().Get("appid"))
			assert.Equal(t, "speed of light", r.URL.Query().Get("i"))
			assert.Equal(t, "metric", r.URL.Query().Get("units"))
			_, _ = fmt.Fprint(w, "about 300000 km/s")
		},
	)

	answer, err := client.Query(context.Background(), "speed of light")
	require.NoError(t, err)
	assert.Equal(t, "about 300000 km/s", answer)
}

func TestWolframCannotInterpret(t *testing.T) {
	client := newTestWolframClient(
		t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotImplemented)
			_, _ = fmt.Fprint(w, "Wolfram|Alpha did not understand your input")
		},
	)

	_, err := client.Query(context.Background(), "flurble")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "could not interpret")
}

func TestWolframServerError(t *testing.T) {
	client := newTestWolframClient(
		t, func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		},
	)

	_, err := client.Query(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWolframEnabled(t *testing.T) {
	assert.False(t, NewWolframClient(&WolframConfig{}, nil).Enabled())
	assert.True(
		t,
		NewWolframClient(&WolframConfig{AppID: "app"}, nil).Enabled(),
	)
}
