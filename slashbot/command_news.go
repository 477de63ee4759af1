package slashbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const newsOptionCount = "count"

func appCommandNews() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandNews,
			Description: "Show the current Hacker News front page",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				intOption(
					newsOptionCount,
					"How many headlines to show (default 5, max 10)",
					false,
				),
			},
		},
		Handler: handleNews,
	}
}

func handleNews(
	ctx context.Context,
	b *Bot,
	_ *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	count := opts.Int(newsOptionCount, 5)
	if count < 1 || count > newsMaxHeadlines {
		return nil, newOptionError(
			"count must be between 1 and %d", newsMaxHeadlines,
		)
	}

	adapterCtx, cancel := context.WithTimeout(ctx, b.config.AdapterTimeout)
	defer cancel()

	headlines, err := b.news.FrontPage(adapterCtx, int(count))
	if err != nil {
		return nil, err
	}

	var lines []string
	for n, h := range headlines {
		lines = append(lines, fmt.Sprintf("%d. [%s](%s)", n+1, h.Title, h.URL))
	}

	embed := &discordgo.MessageEmbed{
		Title:       "Hacker News front page",
		Description: strings.Join(lines, "\n"),
	}
	return &Response{
		Content: "Here's what's happening:",
		Embeds:  []*discordgo.MessageEmbed{embed},
	}, nil
}
