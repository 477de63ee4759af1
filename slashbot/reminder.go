package slashbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

var columnReminderFired = "fired"

// ReminderDestination determines where a fired reminder is delivered.
type ReminderDestination string

const (
	// ReminderDestinationChannel sends the reminder to the channel it
	// was created in
	ReminderDestinationChannel ReminderDestination = "here"

	// ReminderDestinationDM sends the reminder as a direct message
	ReminderDestinationDM ReminderDestination = "dm"

	// ReminderDestinationBoth sends the reminder to both
	ReminderDestinationBoth ReminderDestination = "both"
)

// Reminder is a scheduled one-shot notification for a user.
//
//nolint:lll // struct tags can't be split
type Reminder struct {
	// ID is a UUID assigned at creation, shown to the user so they
	// can /forget the reminder
	ModelStringID

	// UserID is the Discord user to notify
	UserID string `json:"user_id" gorm:"index;not null"`

	// ChannelID is the channel the reminder was created in
	ChannelID string `json:"channel_id" gorm:"type:string"`

	// GuildID is the guild the reminder was created in, if any
	GuildID string `json:"guild_id" gorm:"type:string"`

	// Destination is where the reminder should be delivered
	Destination ReminderDestination `json:"destination" gorm:"type:string;default:here"`

	// DueAt is when the reminder fires, Unix milliseconds UTC
	DueAt int64 `json:"due_at" gorm:"index;not null"`

	// Content is the reminder text, capped at 1024 characters
	Content string `json:"content" gorm:"type:string"`

	// Fired is set inside the sweep transaction before the message is
	// sent, so a reminder is never delivered twice
	Fired bool `json:"fired" gorm:"not null;default:false"`

	ModelUnixTime
}

func NewReminder(
	userID string,
	channelID string,
	guildID string,
	destination ReminderDestination,
	dueAt time.Time,
	content string,
) *Reminder {
	return &Reminder{
		ModelStringID: ModelStringID{ID: uuid.NewString()},
		UserID:        userID,
		ChannelID:     channelID,
		GuildID:       guildID,
		Destination:   destination,
		DueAt:         dueAt.UTC().UnixMilli(),
		Content:       truncate(content, DefaultReminderMaxLength),
	}
}

func (r *Reminder) Due() time.Time {
	return time.UnixMilli(r.DueAt).UTC()
}

// ETA returns a human-readable description of when the reminder fires.
func (r *Reminder) ETA() string {
	return humanize.Time(r.Due())
}

func (r *Reminder) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", r.ID),
		slog.String(columnUserID, r.UserID),
		slog.String("channel_id", r.ChannelID),
		slog.String("destination", string(r.Destination)),
		slog.Time("due_at", r.Due()),
	)
}

// PendingReminders returns un-fired reminders for the given user,
// ordered by due time. An empty userID returns all pending reminders.
func PendingReminders(db *gorm.DB, userID string) ([]Reminder, error) {
	var reminders []Reminder
	q := db.Where("fired = ?", false).Order("due_at asc")
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	err := q.Find(&reminders).Error
	return reminders, err
}

// sweepReminders finds due reminders, marks each fired inside a
// transaction, and delivers it. Marking happens before sending, so a
// delivery failure cannot cause a duplicate on the next sweep.
func (b *Bot) sweepReminders(ctx context.Context) error {
	log := b.logger.With(loggerNameKey, "reminders")

	var due []Reminder
	err := b.writeDB.DB().WithContext(ctx).Where(
		"fired = ? AND due_at <= ?",
		false,
		time.Now().UTC().UnixMilli(),
	).Find(&due).Error
	if err != nil {
		return fmt.Errorf("error loading due reminders: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for i := range due {
		reminder := due[i]
		claimed := false
		txErr := b.writeDB.Transaction(ctx, func(tx *gorm.DB) error {
			rv := tx.Model(&Reminder{}).Where(
				"id = ? AND fired = ?", reminder.ID, false,
			).Update(columnReminderFired, true)
			if rv.Error != nil {
				return rv.Error
			}
			claimed = rv.RowsAffected == 1
			return nil
		})
		if txErr != nil {
			log.Error("error claiming reminder", "reminder", &reminder, tint.Err(txErr))
			continue
		}
		if !claimed {
			continue
		}

		g.Go(
			func() error {
				b.deliverReminder(gctx, log, reminder)

				if _, delErr := b.writeDB.Delete(&reminder); delErr != nil {
					log.Error(
						"error deleting fired reminder",
						"reminder", &reminder,
						tint.Err(delErr),
					)
				}
				return nil
			},
		)
	}
	return g.Wait()
}

func (b *Bot) deliverReminder(ctx context.Context, log *slog.Logger, r Reminder) {
	content := fmt.Sprintf("<@%s> %s", r.UserID, r.Content)

	sendChannel := r.Destination == ReminderDestinationChannel ||
		r.Destination == ReminderDestinationBoth
	sendDM := r.Destination == ReminderDestinationDM ||
		r.Destination == ReminderDestinationBoth

	if sendChannel && r.ChannelID != "" {
		if _, err := b.discord.session.ChannelMessageSend(r.ChannelID, content); err != nil {
			log.ErrorContext(ctx, "error sending reminder to channel",
				"reminder", &r, tint.Err(err))
		}
	}

	if sendDM {
		dm, err := b.discord.session.UserChannelCreate(r.UserID)
		if err != nil {
			log.ErrorContext(ctx, "error opening DM channel",
				"reminder", &r, tint.Err(err))
			return
		}
		if _, err = b.discord.session.ChannelMessageSend(dm.ID, content); err != nil {
			log.ErrorContext(ctx, "error sending reminder DM",
				"reminder", &r, tint.Err(err))
		}
	}
	log.InfoContext(ctx, "delivered reminder", "reminder", &r)
}
