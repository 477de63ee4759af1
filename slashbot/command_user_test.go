package slashbot

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleRemember(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	u := newDiscordUser(t)
	i := newDiscordInteraction(t, u, SlashCommandRemember, nil)

	resp, err := handleRemember(
		ctx, bot, i, OptionMap{
			rememberOptionWhat:  stringOptionValue(rememberOptionWhat, rememberWhatCity),
			rememberOptionValue: stringOptionValue(rememberOptionValue, "Exeter"),
		},
	)
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "Exeter")

	// country codes are upper-cased before saving
	resp, err = handleRemember(
		ctx, bot, i, OptionMap{
			rememberOptionWhat:  stringOptionValue(rememberOptionWhat, rememberWhatCountry),
			rememberOptionValue: stringOptionValue(rememberOptionValue, "gb"),
		},
	)
	require.NoError(t, err)
	assert.Contains(t, resp.Content, "GB")

	user := bot.writeDB.GetUser(u.ID)
	require.NotNil(t, user)
	assert.Equal(t, "Exeter", user.City)
	assert.Equal(t, "GB", user.Country)
	assert.Equal(t, "Exeter,GB", user.Location())

	// settings survive a cache reload
	reloaded := bot.writeDB.ReloadUser(u.ID)
	require.NotNil(t, reloaded)
	assert.Equal(t, "Exeter", reloaded.City)
	assert.Equal(t, "GB", reloaded.Country)
}

func TestHandleRememberRejectsBadInput(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	u := newDiscordUser(t)
	i := newDiscordInteraction(t, u, SlashCommandRemember, nil)
	var optErr *OptionError

	_, err := handleRemember(
		ctx, bot, i, OptionMap{
			rememberOptionWhat:  stringOptionValue(rememberOptionWhat, rememberWhatCity),
			rememberOptionValue: stringOptionValue(rememberOptionValue, "  "),
		},
	)
	require.ErrorAs(t, err, &optErr)

	_, err = handleRemember(
		ctx, bot, i, OptionMap{
			rememberOptionWhat:  stringOptionValue(rememberOptionWhat, rememberWhatCountry),
			rememberOptionValue: stringOptionValue(rememberOptionValue, "GBR"),
		},
	)
	require.ErrorAs(t, err, &optErr)

	_, err = handleRemember(
		ctx, bot, i, OptionMap{
			rememberOptionWhat:  stringOptionValue(rememberOptionWhat, "shoe_size"),
			rememberOptionValue: stringOptionValue(rememberOptionValue, "12"),
		},
	)
	require.ErrorAs(t, err, &optErr)

	long := strings.Repeat("a", 101)
	_, err = handleRemember(
		ctx, bot, i, OptionMap{
			rememberOptionWhat:  stringOptionValue(rememberOptionWhat, rememberWhatBadWord),
			rememberOptionValue: stringOptionValue(rememberOptionValue, long),
		},
	)
	require.ErrorAs(t, err, &optErr)
}
