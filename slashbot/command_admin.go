package slashbot

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
)

func appCommandCurrentTime() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandCurrentTime,
			Description: "Show the bot's current time and uptime",
			Type:        discordgo.ChatApplicationCommand,
		},
		Handler:   handleCurrentTime,
		AdminOnly: true,
	}
}

func handleCurrentTime(
	_ context.Context,
	b *Bot,
	_ *discordgo.InteractionCreate,
	_ OptionMap,
) (*Response, error) {
	now := time.Now().UTC()
	return &Response{
		Content: fmt.Sprintf(
			"It's %s for me. I've been up since %s (%s).",
			now.Format(time.RFC1123),
			b.startedAt.UTC().Format(time.RFC1123),
			humanize.Time(b.startedAt),
		),
	}, nil
}
