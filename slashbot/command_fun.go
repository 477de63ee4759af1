package slashbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

const (
	clapOptionText   = "text"
	eightBallOptionQ = "question"
	rollOptionSides  = "sides"
	rollOptionCount  = "count"
	rollMaxDice      = 20
	rollMaxSides     = 1000
	rollDefaultSides = 6
	rollDefaultCount = 1
)

func appCommandClap() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandClap,
			Description: "Add 👏 clap 👏 emphasis 👏 to your message",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(clapOptionText, "The text to clap up", true),
			},
		},
		Handler: handleClap,
	}
}

func appCommandEightBall() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandEightBall,
			Description: "Shake the magic 8 ball",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(eightBallOptionQ, "Your yes/no question", true),
			},
		},
		Handler: handleEightBall,
	}
}

func appCommandRoll() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandRoll,
			Description: "Roll some dice",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				intOption(rollOptionSides, "Number of sides per die (default 6)", false),
				intOption(rollOptionCount, "Number of dice (default 1)", false),
			},
		},
		Handler: handleRoll,
	}
}

func handleClap(
	_ context.Context,
	_ *Bot,
	_ *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	text := opts.String(clapOptionText, "")
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, newOptionError("give me something to clap about!")
	}
	return &Response{
		Content: strings.Join(words, " 👏 ") + " 👏",
	}, nil
}

func handleEightBall(
	_ context.Context,
	b *Bot,
	_ *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	question := opts.String(eightBallOptionQ, "")
	answer := oracleResponses[b.chains.Intn(len(oracleResponses))]
	return &Response{
		Content: fmt.Sprintf("> %s\n🎱 %s", truncate(question, 200), answer),
	}, nil
}

func handleRoll(
	_ context.Context,
	b *Bot,
	_ *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	sides := opts.Int(rollOptionSides, rollDefaultSides)
	count := opts.Int(rollOptionCount, rollDefaultCount)

	if sides < 2 || sides > rollMaxSides {
		return nil, newOptionError("sides must be between 2 and %d", rollMaxSides)
	}
	if count < 1 || count > rollMaxDice {
		return nil, newOptionError("count must be between 1 and %d", rollMaxDice)
	}

	rolls := make([]string, 0, count)
	total := int64(0)
	for n := int64(0); n < count; n++ {
		roll := int64(b.chains.Intn(int(sides))) + 1
		total += roll
		rolls = append(rolls, fmt.Sprintf("%d", roll))
	}

	if count == 1 {
		return &Response{
			Content: fmt.Sprintf("🎲 rolled a d%d: **%s**", sides, rolls[0]),
		}, nil
	}
	return &Response{
		Content: fmt.Sprintf(
			"🎲 rolled %dd%d: %s (total **%d**)",
			count,
			sides,
			strings.Join(rolls, ", "),
			total,
		),
	}, nil
}
