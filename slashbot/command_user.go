package slashbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	rememberOptionWhat  = "what"
	rememberOptionValue = "value"

	rememberWhatCity    = "city"
	rememberWhatCountry = "country"
	rememberWhatBadWord = "bad_word"
)

func appCommandRemember() *Command {
	what := stringOption(
		rememberOptionWhat,
		"Which setting to save",
		true,
	)
	what.Choices = choices(
		rememberWhatCity,
		rememberWhatCountry,
		rememberWhatBadWord,
	)

	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandRemember,
			Description: "Save a personal setting, like your weather location",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				what,
				stringOption(rememberOptionValue, "The value to save", true),
			},
		},
		Handler: handleRemember,
	}
}

func handleRemember(
	ctx context.Context,
	b *Bot,
	i *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	discordUser := getDiscordUser(i)
	what := opts.String(rememberOptionWhat, "")
	value := strings.TrimSpace(opts.String(rememberOptionValue, ""))

	if value == "" {
		return nil, newOptionError("give me a value to remember!")
	}
	if len(value) > 100 {
		return nil, newOptionError("keep it under 100 characters!")
	}

	u, _, err := b.writeDB.GetOrCreateUser(ctx, *discordUser)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	var column string
	switch what {
	case rememberWhatCity:
		column = columnUserCity
		u.City = value
	case rememberWhatCountry:
		if len(value) != 2 {
			return nil, newOptionError(
				"country should be a 2-letter code, like GB or US",
			)
		}
		column = columnUserCountry
		u.Country = strings.ToUpper(value)
		value = u.Country
	case rememberWhatBadWord:
		column = columnUserBadWord
		u.BadWord = value
	default:
		return nil, newOptionError("I can't remember %q!", what)
	}

	if _, err = b.writeDB.Updates(ctx, u, map[string]any{column: value}); err != nil {
		return nil, fmt.Errorf("error saving user setting: %w", err)
	}

	return &Response{
		Content: fmt.Sprintf("Got it - your %s is now **%s**", what, value),
	}, nil
}
