package slashbot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
)

var (
	columnUserID         = "id"
	columnUserUsername   = "username"
	columnUserGlobalName = "global_name"
	columnUserLastSeen   = "last_seen"
	columnUserCity       = "city"
	columnUserCountry    = "country"
	columnUserBadWord    = "bad_word"
)

// User is a record of a Discord user and their saved settings.
// See: https://discord.com/developers/docs/resources/user
//
//nolint:lll // struct tags can't be split
type User struct {
	//
	// The first set of fields are set from the Discord user object
	//

	// ID is the Discord user ID
	ID string `json:"id" gorm:"primaryKey;unique;type:string"`

	// Username, not unique
	Username string `json:"username" gorm:"type:string"`

	// User's display name - for bots, the application name
	GlobalName string `json:"global_name" gorm:"type:string"`

	// Indicates this user is a Discord bot user. Bots are ignored
	// by default.
	Bot bool `json:"bot" gorm:"type:bool"`

	//
	// The fields below are set via /remember
	//

	// City used as the default location for /weather and /forecast
	City string `json:"city" gorm:"column:city"`

	// Country code qualifying City (e.g. "GB")
	Country string `json:"country" gorm:"column:country"`

	// BadWord is the user's favourite bad word
	BadWord string `json:"bad_word" gorm:"column:bad_word"`

	// If true, interactions from this user are ignored
	Ignored bool `json:"ignored" gorm:"type:bool;default:false"`

	// LastSeen is the last time this user was seen in a Discord interaction
	LastSeen int64 `json:"last_seen" gorm:"column:last_seen"`

	ModelUnixTime
}

func NewUser(u discordgo.User) *User {
	user := User{
		ID:         u.ID,
		Username:   u.Username,
		GlobalName: u.GlobalName,
		Bot:        u.Bot,
		LastSeen:   time.Now().UTC().UnixMilli(),
	}
	if u.Bot {
		user.Ignored = true
	}

	return &user
}

func (u *User) String() string {
	return fmt.Sprintf("%s [%s]", u.Username, u.ID)
}

// changedDiscordUsername reports whether the Discord user object carries
// a different username or display name than the stored record.
func (u *User) changedDiscordUsername(d discordgo.User) bool {
	return u.Username != d.Username || u.GlobalName != d.GlobalName
}

// Location returns the user's saved weather location as a single
// query string, or "" if none is saved.
func (u *User) Location() string {
	if u.City == "" {
		return ""
	}
	if u.Country == "" {
		return u.City
	}
	return fmt.Sprintf("%s,%s", u.City, u.Country)
}

func (u *User) LogValue() slog.Value {
	if u == nil {
		return slog.Value{}
	}
	attrs := []slog.Attr{
		slog.String(columnUserID, u.ID),
		slog.String("username", u.Username),
		slog.String("global_name", u.GlobalName),
		slog.Bool("ignored", u.Ignored),
	}
	if u.City != "" {
		attrs = append(attrs, slog.String(columnUserCity, u.City))
	}
	if u.Country != "" {
		attrs = append(attrs, slog.String(columnUserCountry, u.Country))
	}
	return slog.GroupValue(attrs...)
}
