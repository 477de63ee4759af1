package slashbot

import (
	"context"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler(
	context.Context,
	*Bot,
	*discordgo.InteractionCreate,
	OptionMap,
) (*Response, error) {
	return &Response{Content: "ok"}, nil
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()

	cmd := &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{Name: "echo"},
		Handler:            noopHandler,
	}
	require.NoError(t, registry.Register(cmd))

	err := registry.Register(
		&Command{
			ApplicationCommand: &discordgo.ApplicationCommand{Name: "echo"},
			Handler:            noopHandler,
		},
	)
	assert.ErrorIs(t, err, ErrDuplicateCommand)
	assert.Equal(t, 1, registry.Len())
}

func TestRegistryRejectsInvalidCommands(t *testing.T) {
	registry := NewRegistry()

	assert.Error(t, registry.Register(nil))
	assert.Error(
		t,
		registry.Register(&Command{Handler: noopHandler}),
	)
	assert.Error(
		t,
		registry.Register(
			&Command{
				ApplicationCommand: &discordgo.ApplicationCommand{},
				Handler:            noopHandler,
			},
		),
	)
	assert.Error(
		t,
		registry.Register(
			&Command{
				ApplicationCommand: &discordgo.ApplicationCommand{Name: "echo"},
			},
		),
	)
	assert.Equal(t, 0, registry.Len())
}

func TestRegistryLookup(t *testing.T) {
	registry := NewRegistry()
	require.NoError(
		t,
		registry.Register(
			&Command{
				ApplicationCommand: &discordgo.ApplicationCommand{Name: "echo"},
				Handler:            noopHandler,
			},
		),
	)

	cmd, err := registry.Lookup("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", cmd.ApplicationCommand.Name)

	_, err = registry.Lookup("nope")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestRegistryApplicationCommandsPreserveOrder(t *testing.T) {
	registry := NewRegistry()
	names := []string{"charlie", "alpha", "bravo"}
	for _, name := range names {
		require.NoError(
			t,
			registry.Register(
				&Command{
					ApplicationCommand: &discordgo.ApplicationCommand{Name: name},
					Handler:            noopHandler,
				},
			),
		)
	}

	cmds := registry.ApplicationCommands()
	require.Len(t, cmds, len(names))
	for ind, name := range names {
		assert.Equal(t, name, cmds[ind].Name)
	}
}

func TestValidateOptions(t *testing.T) {
	cmd := &discordgo.ApplicationCommand{
		Name: "echo",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:     discordgo.ApplicationCommandOptionString,
				Name:     "text",
				Required: true,
			},
			{
				Type: discordgo.ApplicationCommandOptionInteger,
				Name: "count",
			},
		},
	}

	t.Run(
		"valid", func(t *testing.T) {
			opts, err := validateOptions(
				cmd,
				[]*discordgo.ApplicationCommandInteractionDataOption{
					stringOptionValue("text", "hello"),
					intOptionValue("count", 3),
				},
			)
			require.NoError(t, err)
			assert.Equal(t, "hello", opts.String("text", ""))
			assert.Equal(t, int64(3), opts.Int("count", 0))
		},
	)

	t.Run(
		"missing required", func(t *testing.T) {
			_, err := validateOptions(
				cmd,
				[]*discordgo.ApplicationCommandInteractionDataOption{
					intOptionValue("count", 3),
				},
			)
			var optErr *OptionError
			require.ErrorAs(t, err, &optErr)
			assert.Contains(t, optErr.Message, "text")
		},
	)

	t.Run(
		"undeclared option", func(t *testing.T) {
			_, err := validateOptions(
				cmd,
				[]*discordgo.ApplicationCommandInteractionDataOption{
					stringOptionValue("text", "hello"),
					stringOptionValue("bogus", "x"),
				},
			)
			var optErr *OptionError
			require.ErrorAs(t, err, &optErr)
			assert.Contains(t, optErr.Message, "bogus")
		},
	)

	t.Run(
		"type mismatch", func(t *testing.T) {
			_, err := validateOptions(
				cmd,
				[]*discordgo.ApplicationCommandInteractionDataOption{
					intOptionValue("text", 42),
				},
			)
			var optErr *OptionError
			require.ErrorAs(t, err, &optErr)
			assert.Contains(t, optErr.Message, "expected type")
		},
	)
}

func TestOptionMapFallbacks(t *testing.T) {
	opts := OptionMap{}
	assert.Equal(t, "fallback", opts.String("missing", "fallback"))
	assert.Equal(t, int64(7), opts.Int("missing", 7))
}
