package slashbot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const wolframOptionQuery = "query"

func appCommandWolfram() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandWolfram,
			Description: "Ask Wolfram Alpha a question",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(wolframOptionQuery, "What to ask", true),
			},
		},
		Handler: handleWolfram,
	}
}

func handleWolfram(
	ctx context.Context,
	b *Bot,
	_ *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	query := opts.String(wolframOptionQuery, "")

	adapterCtx, cancel := context.WithTimeout(ctx, b.config.AdapterTimeout)
	defer cancel()

	answer, err := b.wolfram.Query(adapterCtx, query)
	if err != nil {
		return nil, err
	}

	return &Response{
		Content: fmt.Sprintf("> %s\n%s", truncate(query, 200), answer),
	}, nil
}
