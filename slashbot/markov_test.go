package slashbot

import (
	"context"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChainGenerateUsesOnlyTrainedTokens(t *testing.T) {
	chain := NewChain()
	sentences := []string{
		"the quick brown fox",
		"the lazy dog sleeps",
		"a quick dog barks loudly",
	}
	trained := map[string]bool{}
	for _, s := range sentences {
		chain.Train(s)
		for _, w := range strings.Fields(s) {
			trained[w] = true
		}
	}

	rng := rand.New(rand.NewSource(1))
	for n := 0; n < 50; n++ {
		sentence, err := chain.Generate(rng, "")
		require.NoError(t, err)
		require.NotEmpty(t, sentence)
		for _, w := range strings.Fields(sentence) {
			assert.Truef(t, trained[w], "untrained token %q in %q", w, sentence)
		}
	}
}

func TestChainGenerateWithSeed(t *testing.T) {
	chain := NewChain()
	chain.Train("the quick brown fox jumps")

	rng := rand.New(rand.NewSource(1))

	sentence, err := chain.Generate(rng, "quick")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sentence, "quick"))

	_, err = chain.Generate(rng, "zebra")
	assert.ErrorIs(t, err, ErrChainNoSeed)
}

func TestChainGenerateEmpty(t *testing.T) {
	chain := NewChain()
	rng := rand.New(rand.NewSource(1))
	_, err := chain.Generate(rng, "")
	assert.ErrorIs(t, err, ErrChainEmpty)
}

func TestChainIgnoresShortSentences(t *testing.T) {
	chain := NewChain()
	chain.Train("too short")
	assert.Empty(t, chain.Transitions)
}

func TestChainCombineMergesFrequencies(t *testing.T) {
	a := NewChain()
	a.Train("one two three")
	a.Train("one two four")

	b := NewChain()
	b.Train("one two three")

	a.Combine(b)

	assert.Equal(t, 2, a.Transitions["two"]["three"])
	assert.Equal(t, 1, a.Transitions["two"]["four"])
	assert.Equal(t, 3, a.Transitions["one"]["two"])
	assert.Equal(t, 3, a.Transitions[chainStartToken]["one"])
}

func TestChainTokensExcludeMarkers(t *testing.T) {
	chain := NewChain()
	chain.Train("alpha bravo charlie")

	tokens := chain.Tokens()
	assert.NotContains(t, tokens, chainStartToken)
	assert.NotContains(t, tokens, chainEndToken)
	assert.Contains(t, tokens, "alpha")
}

func TestChainStorePersistAndLoad(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	guildID := t.Name()
	bot.chains.Train(guildID, "the quick brown fox jumps")
	require.NoError(t, bot.chains.Persist(ctx, bot.writeDB, guildID))

	// training more and persisting again upserts the same row
	bot.chains.Train(guildID, "the lazy dog sleeps all day")
	require.NoError(t, bot.chains.Persist(ctx, bot.writeDB, guildID))

	fresh := NewChainStore(nil)
	require.NoError(t, fresh.Load(bot.db))

	sentence, err := fresh.Generate(guildID, "quick")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(sentence, "quick"))
}

func TestRetrainChains(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	guildID := t.Name()
	messages := []GuildMessage{
		{GuildID: guildID, Content: "the quick brown fox"},
		{GuildID: guildID, Content: "the lazy dog sleeps"},
	}
	for ind := range messages {
		_, err := bot.writeDB.Create(ctx, &messages[ind])
		require.NoError(t, err)
	}

	require.NoError(t, bot.retrainChains(ctx))

	sentence, err := bot.chains.Generate(guildID, "quick")
	require.NoError(t, err)
	assert.NotEmpty(t, sentence)

	// trained messages are pruned
	var remaining []GuildMessage
	require.NoError(t, bot.db.Find(&remaining).Error)
	assert.Empty(t, remaining)

	// second run with nothing pending is a no-op
	require.NoError(t, bot.retrainChains(ctx))
}
