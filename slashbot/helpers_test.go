package slashbot

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "exact", truncate("exact", 5))
	assert.Equal(t, "trunc", truncate("truncated", 5))

	// multi-byte runes are not split
	assert.Equal(t, "héllo", truncate("héllo wörld", 5))
}

func TestShortenString(t *testing.T) {
	assert.Equal(t, "fits", shortenString("fits", 100))

	// collapsing blank lines can be enough on its own
	s := "one\n\ntwo\n\nthree"
	assert.Equal(t, "one\ntwo\nthree", shortenString(s, 14))

	long := strings.Repeat("a", 500)
	shortened := shortenString(long, 100)
	assert.LessOrEqual(t, utf8.RuneCountInString(shortened), 100)
	assert.True(t, strings.HasSuffix(shortened, "(output limit reached)**"))
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := verifyPassword(hash, "hunter2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = verifyPassword(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	// same password hashes differently each time
	hash2, err := HashPassword("hunter2")
	require.NoError(t, err)
	assert.NotEqual(t, hash, hash2)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, bad := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$bogus",
		"$argon2id$v=19$m=x,t=y,p=z$salt$hash",
	} {
		_, err := verifyPassword(bad, "whatever")
		assert.Error(t, err, "hash=%q", bad)
	}
}

func TestContextLogger(t *testing.T) {
	_, ok := ContextLogger(context.Background())
	assert.False(t, ok)

	logger := slog.Default().With("test", t.Name())
	ctx := WithLogger(context.Background(), logger)
	found, ok := ContextLogger(ctx)
	require.True(t, ok)
	assert.Equal(t, logger, found)

	// nil falls back to the default logger rather than storing nil
	ctx = WithLogger(context.Background(), nil)
	found, ok = ContextLogger(ctx)
	require.True(t, ok)
	assert.NotNil(t, found)
}

func TestStructToSlogValueRedactsTaggedFields(t *testing.T) {
	type sample struct {
		Name   string `json:"name"`
		Secret string `json:"secret" log:"[redacted]"`
		Empty  string `json:"empty"`
	}

	v := structToSlogValue(sample{Name: "bot", Secret: "token123"})
	require.Equal(t, slog.KindGroup, v.Kind())

	attrs := map[string]string{}
	for _, attr := range v.Group() {
		attrs[attr.Key] = attr.Value.String()
	}

	assert.Equal(t, "bot", attrs["name"])
	assert.Equal(t, "[redacted]", attrs["secret"])
	_, present := attrs["empty"]
	assert.False(t, present, "empty fields should be omitted")
}
