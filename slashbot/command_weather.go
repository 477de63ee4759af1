package slashbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	weatherOptionLocation = "location"
	weatherOptionUnits    = "units"
)

func appCommandWeather() *Command {
	units := stringOption(
		weatherOptionUnits,
		"Temperature and wind units",
		false,
	)
	units.Choices = choices(WeatherUnitsMetric, WeatherUnitsImperial)

	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandWeather,
			Description: "Get the current weather for a location",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(
					weatherOptionLocation,
					"City to look up, e.g. 'Exeter' or 'Exeter,GB'. Defaults to your saved location.",
					false,
				),
				units,
			},
		},
		Handler: handleWeather,
	}
}

func appCommandForecast() *Command {
	units := stringOption(
		weatherOptionUnits,
		"Temperature and wind units",
		false,
	)
	units.Choices = choices(WeatherUnitsMetric, WeatherUnitsImperial)

	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandForecast,
			Description: "Get a multi-day weather forecast for a location",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(
					weatherOptionLocation,
					"City to look up. Defaults to your saved location.",
					false,
				),
				units,
			},
		},
		Handler: handleForecast,
	}
}

// resolveLocation picks the location from the option, falling back to
// the user's saved /remember location.
func resolveLocation(b *Bot, i *discordgo.InteractionCreate, opts OptionMap) (string, error) {
	location := opts.String(weatherOptionLocation, "")
	if location != "" {
		return location, nil
	}
	discordUser := getDiscordUser(i)
	if discordUser != nil {
		if u := b.writeDB.GetUser(discordUser.ID); u != nil && u.Location() != "" {
			return u.Location(), nil
		}
	}
	return "", newOptionError(
		"you haven't saved a location - pass one, or save one with /remember",
	)
}

func handleWeather(
	ctx context.Context,
	b *Bot,
	i *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	location, err := resolveLocation(b, i, opts)
	if err != nil {
		return nil, err
	}
	units := opts.String(weatherOptionUnits, WeatherUnitsMetric)

	adapterCtx, cancel := context.WithTimeout(ctx, b.config.AdapterTimeout)
	defer cancel()

	place, err := b.weather.Geocode(adapterCtx, location)
	if err != nil {
		if errors.Is(err, ErrLocationNotFound) {
			return nil, newOptionError("I couldn't find %q on the map!", location)
		}
		return nil, err
	}

	conditions, err := b.weather.CurrentWeather(
		adapterCtx, place.Lat, place.Lon, units,
	)
	if err != nil {
		return nil, err
	}

	description := "unknown conditions"
	if len(conditions.Weather) > 0 {
		description = conditions.Weather[0].Description
	}

	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("Weather in %s, %s", place.Name, place.Country),
		Description: fmt.Sprintf(
			"%s, %.1f%s (feels like %.1f%s)",
			description,
			conditions.Main.Temp,
			TemperatureUnit(units),
			conditions.Main.FeelsLike,
			TemperatureUnit(units),
		),
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:   "Humidity",
				Value:  fmt.Sprintf("%d%%", conditions.Main.Humidity),
				Inline: true,
			},
			{
				Name: "Wind",
				Value: fmt.Sprintf(
					"%.1f %s %s",
					conditions.Wind.Speed,
					SpeedUnit(units),
					degreesToCardinal(conditions.Wind.Deg),
				),
				Inline: true,
			},
		},
	}

	return &Response{
		Content: fmt.Sprintf("Current weather for %s", place.Name),
		Embeds:  []*discordgo.MessageEmbed{embed},
	}, nil
}

func handleForecast(
	ctx context.Context,
	b *Bot,
	i *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	location, err := resolveLocation(b, i, opts)
	if err != nil {
		return nil, err
	}
	units := opts.String(weatherOptionUnits, WeatherUnitsMetric)

	adapterCtx, cancel := context.WithTimeout(ctx, b.config.AdapterTimeout)
	defer cancel()

	place, err := b.weather.Geocode(adapterCtx, location)
	if err != nil {
		if errors.Is(err, ErrLocationNotFound) {
			return nil, newOptionError("I couldn't find %q on the map!", location)
		}
		return nil, err
	}

	forecast, err := b.weather.DailyForecast(adapterCtx, place.Lat, place.Lon, units)
	if err != nil {
		return nil, err
	}

	// One entry per day, taken from the midday slot
	var lines []string
	seen := map[string]bool{}
	for _, entry := range forecast.List {
		at := time.Unix(entry.Dt, 0).UTC()
		day := at.Format("Mon 2 Jan")
		if seen[day] || at.Hour() != 12 {
			continue
		}
		seen[day] = true
		description := ""
		if len(entry.Weather) > 0 {
			description = entry.Weather[0].Description
		}
		lines = append(lines, fmt.Sprintf(
			"**%s**: %s, %.0f%s to %.0f%s",
			day,
			description,
			entry.Main.TempMin,
			TemperatureUnit(units),
			entry.Main.TempMax,
			TemperatureUnit(units),
		))
	}
	if len(lines) == 0 {
		return nil, errors.New("forecast response had no midday entries")
	}

	embed := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("Forecast for %s, %s", place.Name, place.Country),
		Description: strings.Join(lines, "\n"),
	}
	return &Response{
		Content: fmt.Sprintf("Forecast for %s", place.Name),
		Embeds:  []*discordgo.MessageEmbed{embed},
	}, nil
}
