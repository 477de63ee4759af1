package slashbot

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleClap(t *testing.T) {
	resp, err := handleClap(
		context.Background(), nil, nil, OptionMap{
			clapOptionText: stringOptionValue(clapOptionText, "bread is good"),
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "bread 👏 is 👏 good 👏", resp.Content)
}

func TestHandleClapRejectsEmptyText(t *testing.T) {
	var optErr *OptionError

	_, err := handleClap(
		context.Background(), nil, nil, OptionMap{
			clapOptionText: stringOptionValue(clapOptionText, "   "),
		},
	)
	require.ErrorAs(t, err, &optErr)
}

func TestHandleEightBall(t *testing.T) {
	bot, _ := newTestBot(t)

	resp, err := handleEightBall(
		context.Background(), bot, nil, OptionMap{
			eightBallOptionQ: stringOptionValue(eightBallOptionQ, "will it rain?"),
		},
	)
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "will it rain?")
	assert.Contains(t, resp.Content, "🎱")

	found := false
	for _, answer := range oracleResponses {
		if strings.Contains(resp.Content, answer) {
			found = true
			break
		}
	}
	assert.True(t, found, "answer should come from the oracle responses")
}

func TestHandleRollSingleDie(t *testing.T) {
	bot, _ := newTestBot(t)

	resp, err := handleRoll(context.Background(), bot, nil, OptionMap{})
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "rolled a d6")

	_, after, ok := strings.Cut(resp.Content, "**")
	require.True(t, ok)
	value, err := strconv.Atoi(strings.TrimSuffix(after, "**"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, value, 1)
	assert.LessOrEqual(t, value, 6)
}

func TestHandleRollManyDice(t *testing.T) {
	bot, _ := newTestBot(t)

	resp, err := handleRoll(
		context.Background(), bot, nil, OptionMap{
			rollOptionSides: intOptionValue(rollOptionSides, 20),
			rollOptionCount: intOptionValue(rollOptionCount, 4),
		},
	)
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "rolled 4d20")
	assert.Contains(t, resp.Content, "total")
}

func TestHandleRollBounds(t *testing.T) {
	bot, _ := newTestBot(t)
	var optErr *OptionError

	_, err := handleRoll(
		context.Background(), bot, nil, OptionMap{
			rollOptionSides: intOptionValue(rollOptionSides, 1),
		},
	)
	require.ErrorAs(t, err, &optErr)

	_, err = handleRoll(
		context.Background(), bot, nil, OptionMap{
			rollOptionSides: intOptionValue(rollOptionSides, float64(rollMaxSides+1)),
		},
	)
	require.ErrorAs(t, err, &optErr)

	_, err = handleRoll(
		context.Background(), bot, nil, OptionMap{
			rollOptionCount: intOptionValue(rollOptionCount, 0),
		},
	)
	require.ErrorAs(t, err, &optErr)

	_, err = handleRoll(
		context.Background(), bot, nil, OptionMap{
			rollOptionCount: intOptionValue(rollOptionCount, float64(rollMaxDice+1)),
		},
	)
	require.ErrorAs(t, err, &optErr)
}
