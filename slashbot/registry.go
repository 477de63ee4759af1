package slashbot

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// ErrDuplicateCommand indicates a command name was registered twice.
// This is a startup error, surfaced before the gateway opens.
var ErrDuplicateCommand = errors.New("command already registered")

// ErrUnknownCommand indicates an interaction referenced a command
// name the registry doesn't know.
var ErrUnknownCommand = errors.New("unknown command")

// CommandHandler executes one slash command. The interaction has
// already been acknowledged with a deferred response; the handler's
// return value (or error) is sent as the response edit.
//
// Returning an OptionError produces an ephemeral validation message.
// Any other error produces the configured generic error message, and
// is logged with the full detail.
type CommandHandler func(
	ctx context.Context,
	b *Bot,
	i *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error)

// Response is a command handler's reply, applied as an edit of the
// deferred interaction response.
type Response struct {
	Content string
	Embeds  []*discordgo.MessageEmbed
}

// Command pairs a discordgo application command descriptor with its
// handler.
type Command struct {
	ApplicationCommand *discordgo.ApplicationCommand
	Handler            CommandHandler

	// AdminOnly commands still run while the bot is paused
	AdminOnly bool
}

// Registry holds the bot's slash commands, keyed by name. It is
// populated once during New and read-only afterwards.
type Registry struct {
	commands map[string]*Command
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{commands: map[string]*Command{}}
}

// Register adds a command. Registering a name twice returns
// ErrDuplicateCommand.
func (r *Registry) Register(cmd *Command) error {
	if cmd == nil || cmd.ApplicationCommand == nil {
		return errors.New("nil command")
	}
	name := cmd.ApplicationCommand.Name
	if name == "" {
		return errors.New("command has no name")
	}
	if cmd.Handler == nil {
		return fmt.Errorf("command %q has no handler", name)
	}
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, name)
	}
	r.commands[name] = cmd
	r.order = append(r.order, name)
	return nil
}

// Lookup returns the command registered under name.
func (r *Registry) Lookup(name string) (*Command, error) {
	cmd, ok := r.commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return cmd, nil
}

// ApplicationCommands returns the command descriptors in registration
// order, for bulk registration with Discord.
func (r *Registry) ApplicationCommands() []*discordgo.ApplicationCommand {
	cmds := make([]*discordgo.ApplicationCommand, 0, len(r.order))
	for _, name := range r.order {
		cmds = append(cmds, r.commands[name].ApplicationCommand)
	}
	return cmds
}

func (r *Registry) Len() int {
	return len(r.commands)
}

// OptionError is a user-visible option validation failure. The message
// is sent back to the user as-is (ephemeral), rather than the generic
// error message.
type OptionError struct {
	Message string
}

func (e *OptionError) Error() string {
	return e.Message
}

func newOptionError(format string, args ...any) *OptionError {
	return &OptionError{Message: fmt.Sprintf(format, args...)}
}

// OptionMap holds an interaction's options keyed by name, validated
// against the command's declared options.
type OptionMap map[string]*discordgo.ApplicationCommandInteractionDataOption

// String returns the named string option, or fallback if absent.
func (m OptionMap) String(name string, fallback string) string {
	opt, ok := m[name]
	if !ok {
		return fallback
	}
	return opt.StringValue()
}

// Int returns the named integer option, or fallback if absent.
func (m OptionMap) Int(name string, fallback int64) int64 {
	opt, ok := m[name]
	if !ok {
		return fallback
	}
	return opt.IntValue()
}

// validateOptions checks the received options against the command's
// declared options: required options must be present, and every
// received option must be declared with a matching type. Returns an
// OptionError describing the first failure.
func validateOptions(
	cmd *discordgo.ApplicationCommand,
	received []*discordgo.ApplicationCommandInteractionDataOption,
) (OptionMap, error) {
	declared := make(
		map[string]*discordgo.ApplicationCommandOption,
		len(cmd.Options),
	)
	for _, opt := range cmd.Options {
		declared[opt.Name] = opt
	}

	optionMap := make(OptionMap, len(received))
	for _, opt := range received {
		decl, ok := declared[opt.Name]
		if !ok {
			return nil, newOptionError("unexpected option: %s", opt.Name)
		}
		if decl.Type != opt.Type {
			return nil, newOptionError(
				"option %s: expected type %d, got type %d",
				opt.Name,
				decl.Type,
				opt.Type,
			)
		}
		optionMap[opt.Name] = opt
	}

	for _, decl := range cmd.Options {
		if !decl.Required {
			continue
		}
		if _, ok := optionMap[decl.Name]; !ok {
			return nil, newOptionError("missing required option: %s", decl.Name)
		}
	}
	return optionMap, nil
}
