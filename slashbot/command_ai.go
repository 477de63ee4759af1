package slashbot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

const generateTextOptionPrompt = "prompt"

func appCommandGenerateText() *Command {
	minLength := 1

	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandGenerateText,
			Description: "Generate text with an AI model",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        generateTextOptionPrompt,
					Description: "What would you like to say or ask?",
					Required:    true,
					MinLength:   &minLength,
					MaxLength:   500,
				},
			},
		},
		Handler: handleGenerateText,
	}
}

// handleGenerateText pushes the prompt through the generation queue
// and waits for the worker's result. A user with a request already in
// flight gets a busy message instead of a second slot.
func handleGenerateText(
	ctx context.Context,
	b *Bot,
	i *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	discordUser := getDiscordUser(i)
	prompt := opts.String(generateTextOptionPrompt, "")

	req := &GenerationRequest{
		UserID:      discordUser.ID,
		Prompt:      prompt,
		Interaction: i,
		Result:      make(chan GenerationResult, 1),
	}

	if err := b.queue.Push(req); err != nil {
		switch {
		case errors.Is(err, ErrUserBusy):
			return nil, newOptionError(DefaultDiscordBusyMessage)
		case errors.Is(err, ErrQueueFull):
			return nil, newOptionError(
				"I'm swamped right now, try again in a minute!",
			)
		default:
			return nil, err
		}
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case result := <-req.Result:
		if result.Err != nil {
			if errors.Is(result.Err, ErrAIDisabled) {
				return nil, newOptionError(ErrAIDisabled.Error())
			}
			return nil, result.Err
		}
		return &Response{
			Content: shortenString(result.Content, discordMaxMessageLength),
		}, nil
	}
}
