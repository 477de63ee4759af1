package slashbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	chatOptionSeed = "seed"
)

var oracleResponses = []string{
	"It is certain.",
	"Without a doubt.",
	"You may rely on it.",
	"Most likely.",
	"Outlook good.",
	"Reply hazy, try again.",
	"Ask again later.",
	"Better not tell you now.",
	"Don't count on it.",
	"My reply is no.",
	"Outlook not so good.",
	"Very doubtful.",
}

func appCommandChat() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandChat,
			Description: "Generate a sentence from this server's chat history",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(
					chatOptionSeed,
					"A word to start the sentence with",
					false,
				),
			},
		},
		Handler: handleChat,
	}
}

func appCommandOracle() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandOracle,
			Description: "Consult the oracle for a cryptic pronouncement",
			Type:        discordgo.ChatApplicationCommand,
		},
		Handler: handleOracle,
	}
}

func appCommandUpdateChain() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandUpdateChain,
			Description: "Fold collected messages into the chat model now",
			Type:        discordgo.ChatApplicationCommand,
		},
		Handler: handleUpdateChain,
	}
}

func handleChat(
	_ context.Context,
	b *Bot,
	i *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	seed := opts.String(chatOptionSeed, "")

	var sentence string
	var err error
	for attempt := 0; attempt < DefaultMarkovAttempts; attempt++ {
		sentence, err = b.chains.Generate(i.GuildID, seed)
		if err == nil && sentence != "" {
			break
		}
		if errors.Is(err, ErrChainNoSeed) || errors.Is(err, ErrChainEmpty) {
			break
		}
	}
	if err != nil {
		if errors.Is(err, ErrChainEmpty) {
			return nil, newOptionError(
				"I haven't learned enough from this server to say anything yet!",
			)
		}
		if errors.Is(err, ErrChainNoSeed) {
			return nil, newOptionError("I've never heard the word %q!", seed)
		}
		return nil, err
	}

	return &Response{Content: sentence}, nil
}

func handleOracle(
	_ context.Context,
	b *Bot,
	i *discordgo.InteractionCreate,
	_ OptionMap,
) (*Response, error) {
	// Prefer a generated pronouncement; fall back to the canned
	// responses for untrained servers.
	sentence, err := b.chains.Generate(i.GuildID, "")
	if err != nil || sentence == "" {
		sentence = oracleResponses[b.chains.Intn(len(oracleResponses))]
	}
	return &Response{
		Content: fmt.Sprintf("*The oracle says:* %s", sentence),
	}, nil
}

func handleUpdateChain(
	ctx context.Context,
	b *Bot,
	_ *discordgo.InteractionCreate,
	_ OptionMap,
) (*Response, error) {
	if err := b.retrainChains(ctx); err != nil {
		return nil, err
	}
	return &Response{Content: "Updated the chat model!"}, nil
}
