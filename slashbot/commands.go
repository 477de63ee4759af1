package slashbot

import (
	"github.com/bwmarrin/discordgo"
)

// Slash command names, as registered with Discord.
const (
	SlashCommandWeather      = "weather"
	SlashCommandForecast     = "forecast"
	SlashCommandRemind       = "remind"
	SlashCommandForget       = "forget"
	SlashCommandPlanned      = "planned"
	SlashCommandChat         = "chat"
	SlashCommandOracle       = "oracle"
	SlashCommandUpdateChain  = "update_chain"
	SlashCommandClap         = "clap"
	SlashCommandEightBall    = "8ball"
	SlashCommandRoll         = "roll"
	SlashCommandGenerateText = "generate_text"
	SlashCommandWolfram      = "wolfram"
	SlashCommandImage        = "image"
	SlashCommandNews         = "news"
	SlashCommandRemember     = "remember"
	SlashCommandCurrentTime  = "current_time"
)

// buildRegistry assembles the full command table. Commands whose
// adapter has no credentials configured are left out, so Discord never
// shows a command the bot can't serve.
func buildRegistry(b *Bot) (*Registry, error) {
	registry := NewRegistry()

	commands := []*Command{
		appCommandRemind(),
		appCommandForget(),
		appCommandPlanned(),
		appCommandChat(),
		appCommandOracle(),
		appCommandUpdateChain(),
		appCommandClap(),
		appCommandEightBall(),
		appCommandRoll(),
		appCommandImage(),
		appCommandNews(),
		appCommandRemember(),
		appCommandCurrentTime(),
	}

	if b.weather.Enabled() {
		commands = append(commands, appCommandWeather(), appCommandForecast())
	}
	if b.wolfram.Enabled() {
		commands = append(commands, appCommandWolfram())
	}
	if b.openai.Enabled() {
		commands = append(commands, appCommandGenerateText())
	}

	for _, cmd := range commands {
		if err := registry.Register(cmd); err != nil {
			return registry, err
		}
	}
	return registry, nil
}

// stringOption is a shorthand constructor for string command options.
func stringOption(
	name string,
	description string,
	required bool,
) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

// intOption is a shorthand constructor for integer command options.
func intOption(
	name string,
	description string,
	required bool,
) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        name,
		Description: description,
		Required:    required,
	}
}

// choices converts value/name pairs into option choices.
func choices(values ...string) []*discordgo.ApplicationCommandOptionChoice {
	result := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(values))
	for _, v := range values {
		result = append(result, &discordgo.ApplicationCommandOptionChoice{
			Name:  v,
			Value: v,
		})
	}
	return result
}
