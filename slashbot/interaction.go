package slashbot

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// InteractionLog is an audit row for every interaction received from
// the gateway, successful or not.
//
//nolint:lll // struct tags can't be split
type InteractionLog struct {
	ModelUintID
	InteractionID string         `json:"interaction_id" gorm:"not null"`
	Type          string         `json:"type" gorm:"type:string"`
	CommandName   string         `json:"command_name" gorm:"type:string;index"`
	UserID        string         `json:"user_id" gorm:"not null"`
	Username      string         `json:"username" gorm:"type:string"`
	AppID         string         `json:"application_id" gorm:"type:string"`
	GuildID       string         `json:"guild_id" gorm:"type:string"`
	ChannelID     string         `json:"channel_id" gorm:"type:string"`
	Payload       string         `json:"payload" gorm:"type:string"`
	Response      string         `json:"response" gorm:"type:string"`
	Error         NullableString `json:"error"`
	CreatedAt     int64          `gorm:"autoCreateTime:milli" json:"created_at,omitempty"`
}

func newInteractionLog(
	i *discordgo.InteractionCreate,
	u *discordgo.User,
) (*InteractionLog, error) {
	p, err := json.Marshal(i)
	if err != nil {
		return nil, fmt.Errorf("error marshaling interaction: %w", err)
	}

	interactionLog := &InteractionLog{
		InteractionID: i.ID,
		Type:          i.Type.String(),
		UserID:        u.ID,
		Username:      u.String(),
		AppID:         i.AppID,
		GuildID:       i.GuildID,
		ChannelID:     i.ChannelID,
		Payload:       string(p),
	}
	if i.Type == discordgo.InteractionApplicationCommand {
		interactionLog.CommandName = i.ApplicationCommandData().Name
	}
	return interactionLog, nil
}

type NullableString string

//goland:noinspection GoMixedReceiverTypes
func (ns *NullableString) Scan(value any) error {
	if value == nil {
		*ns = ""
		return nil
	}
	strVal, ok := value.(string)
	if !ok {
		return errors.New("failed to cast to string")
	}
	*ns = NullableString(strVal)
	return nil
}

//goland:noinspection GoMixedReceiverTypes
func (ns NullableString) Value() (driver.Value, error) {
	if ns == "" {
		return nil, nil
	}
	return string(ns), nil
}

//goland:noinspection GoMixedReceiverTypes
func (ns NullableString) MarshalJSON() ([]byte, error) {
	if ns == "" {
		return []byte("null"), nil
	}
	return json.Marshal(string(ns))
}

//goland:noinspection GoMixedReceiverTypes
func (ns *NullableString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*ns = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*ns = NullableString(s)
	return nil
}

//goland:noinspection GoMixedReceiverTypes
func (ns NullableString) GoString() string {
	return string(ns)
}

//goland:noinspection GoMixedReceiverTypes
func (ns NullableString) String() string {
	return string(ns)
}
