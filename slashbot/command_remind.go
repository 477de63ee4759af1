package slashbot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

const (
	remindOptionWhen        = "when"
	remindOptionUnit        = "unit"
	remindOptionMessage     = "message"
	remindOptionDestination = "destination"
	forgetOptionID          = "id"

	remindUnitSeconds = "seconds"
	remindUnitMinutes = "minutes"
	remindUnitHours   = "hours"
	remindUnitTime    = "time"
)

func appCommandRemind() *Command {
	unit := stringOption(
		remindOptionUnit,
		"How to interpret 'when': a duration unit, or 'time' for a UTC clock time like 21:30",
		true,
	)
	unit.Choices = choices(
		remindUnitSeconds,
		remindUnitMinutes,
		remindUnitHours,
		remindUnitTime,
	)

	destination := stringOption(
		remindOptionDestination,
		"Where to send the reminder",
		false,
	)
	destination.Choices = choices(
		string(ReminderDestinationChannel),
		string(ReminderDestinationDM),
		string(ReminderDestinationBoth),
	)

	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandRemind,
			Description: "Set a reminder",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(
					remindOptionWhen,
					"When to fire: a number (with a unit), or a 24h UTC clock time like 21:30",
					true,
				),
				unit,
				stringOption(
					remindOptionMessage,
					"What to remind you about",
					true,
				),
				destination,
			},
		},
		Handler: handleRemind,
	}
}

func appCommandForget() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandForget,
			Description: "Cancel a pending reminder",
			Type:        discordgo.ChatApplicationCommand,
			Options: []*discordgo.ApplicationCommandOption{
				stringOption(
					forgetOptionID,
					"The reminder ID shown by /planned",
					true,
				),
			},
		},
		Handler: handleForget,
	}
}

func appCommandPlanned() *Command {
	return &Command{
		ApplicationCommand: &discordgo.ApplicationCommand{
			Name:        SlashCommandPlanned,
			Description: "List your pending reminders",
			Type:        discordgo.ChatApplicationCommand,
		},
		Handler: handlePlanned,
	}
}

// parseDueTime converts the when/unit option pair into an absolute
// time. unit=time expects a 24h clock time (HH:MM) and resolves to the
// next occurrence of that time.
func parseDueTime(when string, unit string, now time.Time) (time.Time, error) {
	switch unit {
	case remindUnitSeconds, remindUnitMinutes, remindUnitHours:
		var amount float64
		if _, err := fmt.Sscanf(when, "%g", &amount); err != nil || amount <= 0 {
			return time.Time{}, newOptionError(
				"%q doesn't look like a positive number", when,
			)
		}
		var d time.Duration
		switch unit {
		case remindUnitSeconds:
			d = time.Duration(amount * float64(time.Second))
		case remindUnitMinutes:
			d = time.Duration(amount * float64(time.Minute))
		case remindUnitHours:
			d = time.Duration(amount * float64(time.Hour))
		}
		return now.Add(d), nil
	case remindUnitTime:
		at, err := time.Parse("15:04", strings.TrimSpace(when))
		if err != nil {
			return time.Time{}, newOptionError(
				"%q doesn't look like a 24h clock time (e.g. 21:30)", when,
			)
		}
		due := time.Date(
			now.Year(), now.Month(), now.Day(),
			at.Hour(), at.Minute(), 0, 0, now.Location(),
		)
		if !due.After(now) {
			due = due.AddDate(0, 0, 1)
		}
		return due, nil
	default:
		return time.Time{}, newOptionError("unknown unit: %s", unit)
	}
}

func handleRemind(
	ctx context.Context,
	b *Bot,
	i *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	discordUser := getDiscordUser(i)
	when := opts.String(remindOptionWhen, "")
	unit := opts.String(remindOptionUnit, "")
	message := opts.String(remindOptionMessage, "")
	destination := ReminderDestination(
		opts.String(remindOptionDestination, string(ReminderDestinationChannel)),
	)

	if len(message) > DefaultReminderMaxLength {
		return nil, newOptionError(
			"that's too long to remember - keep it under %d characters",
			DefaultReminderMaxLength,
		)
	}

	due, err := parseDueTime(when, unit, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	reminder := NewReminder(
		discordUser.ID,
		i.ChannelID,
		i.GuildID,
		destination,
		due,
		message,
	)
	if _, err = b.writeDB.Create(ctx, reminder); err != nil {
		return nil, fmt.Errorf("error saving reminder: %w", err)
	}

	return &Response{
		Content: fmt.Sprintf(
			"Okay, I'll remind you %s (`%s`)",
			reminder.ETA(),
			reminder.ID,
		),
	}, nil
}

func handleForget(
	ctx context.Context,
	b *Bot,
	i *discordgo.InteractionCreate,
	opts OptionMap,
) (*Response, error) {
	discordUser := getDiscordUser(i)
	id := strings.TrimSpace(opts.String(forgetOptionID, ""))

	var reminder Reminder
	err := b.writeDB.DB().WithContext(ctx).Where(
		"id = ? AND user_id = ?", id, discordUser.ID,
	).First(&reminder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newOptionError(
				"I don't have a reminder `%s` for you", id,
			)
		}
		return nil, err
	}

	if _, err = b.writeDB.Delete(&reminder); err != nil {
		return nil, fmt.Errorf("error deleting reminder: %w", err)
	}
	return &Response{
		Content: fmt.Sprintf("Forgotten: %s", truncate(reminder.Content, 100)),
	}, nil
}

func handlePlanned(
	ctx context.Context,
	b *Bot,
	i *discordgo.InteractionCreate,
	_ OptionMap,
) (*Response, error) {
	discordUser := getDiscordUser(i)

	reminders, err := PendingReminders(
		b.writeDB.DB().WithContext(ctx),
		discordUser.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("error listing reminders: %w", err)
	}
	if len(reminders) == 0 {
		return &Response{Content: "You have no reminders set."}, nil
	}

	var lines []string
	for _, r := range reminders {
		lines = append(lines, fmt.Sprintf(
			"`%s` %s: %s",
			r.ID,
			r.ETA(),
			truncate(r.Content, 100),
		))
	}
	return &Response{Content: strings.Join(lines, "\n")}, nil
}
