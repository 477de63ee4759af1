package slashbot

import (
	"context"
	"errors"

	"github.com/bwmarrin/discordgo"
)

const imageOptionTags = "tags"

func appCommandImage() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandImage,
			Description: "Post a random image matching some tags",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(
					imageOptionTags,
					"Space-separated search tags",
					true,
				),
			},
		},
		Handler: handleImage,
	}
}

func handleImage(
	ctx context.Context,
	b *Bot,
	_ *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	tags := opts.String(imageOptionTags, "")

	adapterCtx, cancel := context.WithTimeout(ctx, b.config.AdapterTimeout)
	defer cancel()

	imageURL, err := b.booru.RandomImage(adapterCtx, tags)
	if err != nil {
		if errors.Is(err, ErrNoImages) {
			return nil, newOptionError("no images found for %q!", tags)
		}
		return nil, err
	}

	return &Response{
		Embeds: []*discordgo.MessageEmbed{
			{
				Image: &discordgo.MessageEmbedImage{URL: imageURL},
			},
		},
		Content: imageURL,
	}, nil
}
