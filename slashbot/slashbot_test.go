package slashbot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannelMessageSend struct {
	ChannelID string
	Content   string
}

type stubEdits struct {
	Interaction *discordgo.Interaction
	WebhookEdit *discordgo.WebhookEdit
}

// stubSession implements DiscordSessionHandler without touching the
// network. Calls are recorded on buffered channels.
type stubSession struct {
	messagesSent   chan stubChannelMessageSend
	responds       chan *discordgo.InteractionResponse
	edits          chan *stubEdits
	statusUpdates  chan string
	bulkOverwrites chan []*discordgo.ApplicationCommand

	errorOnSend error
	opened      atomic.Bool
}

func newStubSession(t testing.TB) *stubSession {
	t.Helper()
	return &stubSession{
		messagesSent:   make(chan stubChannelMessageSend, 100),
		responds:       make(chan *discordgo.InteractionResponse, 100),
		edits:          make(chan *stubEdits, 100),
		statusUpdates:  make(chan string, 100),
		bulkOverwrites: make(chan []*discordgo.ApplicationCommand, 100),
	}
}

func (s *stubSession) Open() error {
	s.opened.Store(true)
	return nil
}

func (s *stubSession) Close() error {
	s.opened.Store(false)
	return nil
}

func (s *stubSession) ChannelMessageSend(
	channelID string,
	message string,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	if s.errorOnSend != nil {
		return nil, s.errorOnSend
	}
	s.messagesSent <- stubChannelMessageSend{
		ChannelID: channelID,
		Content:   message,
	}
	return &discordgo.Message{}, nil
}

func (s *stubSession) UserChannelCreate(
	recipientID string,
	_ ...discordgo.RequestOption,
) (*discordgo.Channel, error) {
	return &discordgo.Channel{ID: fmt.Sprintf("dm_%s", recipientID)}, nil
}

func (s *stubSession) ApplicationCommandBulkOverwrite(
	_ string,
	_ string,
	commands []*discordgo.ApplicationCommand,
	_ ...discordgo.RequestOption,
) ([]*discordgo.ApplicationCommand, error) {
	s.bulkOverwrites <- commands
	return commands, nil
}

func (s *stubSession) UpdateCustomStatus(status string) error {
	s.statusUpdates <- status
	return nil
}

func (s *stubSession) AddHandler(any) func() {
	return func() {}
}

func (s *stubSession) InteractionRespond(
	_ *discordgo.Interaction,
	resp *discordgo.InteractionResponse,
	_ ...discordgo.RequestOption,
) error {
	s.responds <- resp
	return nil
}

func (s *stubSession) InteractionResponse(
	*discordgo.Interaction,
	...discordgo.RequestOption,
) (*discordgo.Message, error) {
	return &discordgo.Message{}, nil
}

func (s *stubSession) InteractionResponseEdit(
	interaction *discordgo.Interaction,
	newresp *discordgo.WebhookEdit,
	_ ...discordgo.RequestOption,
) (*discordgo.Message, error) {
	s.edits <- &stubEdits{Interaction: interaction, WebhookEdit: newresp}
	return &discordgo.Message{}, nil
}

func (s *stubSession) InteractionResponseDelete(
	*discordgo.Interaction,
	...discordgo.RequestOption,
) error {
	return nil
}

func (s *stubSession) SetHTTPClient(*http.Client) {}

func (s *stubSession) SetIdentify(discordgo.Identify) {}

func (s *stubSession) SetLogLevel(slog.Level) error {
	return nil
}

func (s *stubSession) GatewayBot(...discordgo.RequestOption) (
	*discordgo.GatewayBotResponse,
	error,
) {
	return &discordgo.GatewayBotResponse{}, nil
}

func newTestConfig(t testing.TB) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Database = filepath.Join(t.TempDir(), "slashbot_test.sqlite3")
	cfg.DatabaseType = dbTypeSQLite
	cfg.Discord.Token = fmt.Sprintf("token_%s", t.Name())
	cfg.Discord.ApplicationID = fmt.Sprintf("app_%s", t.Name())
	return cfg
}

// newTestBot creates a Bot with a temp SQLite database, loaded runtime
// config and a stub gateway session.
func newTestBot(t testing.TB) (*Bot, *stubSession) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	bot, err := New(newTestConfig(t))
	require.NoError(t, err)
	require.NoError(t, bot.initRun(ctx))

	session := newStubSession(t)
	bot.discord.session = session
	return bot, session
}

// newDiscordUser creates a new discordgo.User with the test name as
// the user ID, with the user ID also included in the username and global name
func newDiscordUser(t testing.TB) *discordgo.User {
	t.Helper()
	return &discordgo.User{
		ID:         t.Name(),
		Username:   fmt.Sprintf("u_%s", t.Name()),
		GlobalName: fmt.Sprintf("g_%s", t.Name()),
	}
}

func newDiscordInteraction(
	t testing.TB,
	u *discordgo.User,
	commandName string,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) *discordgo.InteractionCreate {
	t.Helper()
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			ID:        fmt.Sprintf("interaction_%s", t.Name()),
			User:      u,
			ChannelID: fmt.Sprintf("channel_%s", t.Name()),
			Data: discordgo.ApplicationCommandInteractionData{
				CommandType: discordgo.ChatApplicationCommand,
				Name:        commandName,
				Options:     options,
			},
		},
	}
}

func stringOptionValue(
	name string,
	value string,
) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func intOptionValue(
	name string,
	value float64,
) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionInteger,
		Value: value,
	}
}

func TestHandleApplicationCommand(t *testing.T) {
	bot, session := newTestBot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	u := newDiscordUser(t)
	i := newDiscordInteraction(
		t,
		u,
		SlashCommandClap,
		[]*discordgo.ApplicationCommandInteractionDataOption{
			stringOptionValue(clapOptionText, "bread is good"),
		},
	)

	bot.handleInteraction(ctx, i)

	select {
	case <-ctx.Done():
		t.Fatal("timed out waiting for interaction response")
	case resp := <-session.responds:
		assert.Equal(
			t,
			discordgo.InteractionResponseDeferredChannelMessageWithSource,
			resp.Type,
		)
	}

	select {
	case <-ctx.Done():
		t.Fatal("timed out waiting for response edit")
	case edit := <-session.edits:
		require.NotNil(t, edit.WebhookEdit.Content)
		assert.Equal(
			t,
			"bread 👏 is 👏 good 👏",
			*edit.WebhookEdit.Content,
		)
	}

	assert.Equal(t, int64(1), bot.metricCommandsHandled.Load())

	// the user is created as a side effect of the command
	user := bot.writeDB.GetUser(u.ID)
	require.NotNil(t, user)
	assert.Equal(t, u.Username, user.Username)
}

func TestHandleUnknownCommand(t *testing.T) {
	bot, session := newTestBot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	u := newDiscordUser(t)
	i := newDiscordInteraction(t, u, "does_not_exist", nil)

	bot.handleInteraction(ctx, i)

	select {
	case <-ctx.Done():
		t.Fatal("timed out waiting for interaction response")
	case resp := <-session.responds:
		assert.Equal(
			t,
			discordgo.InteractionResponseChannelMessageWithSource,
			resp.Type,
		)
		assert.Equal(
			t,
			discordgo.MessageFlagsEphemeral,
			resp.Data.Flags&discordgo.MessageFlagsEphemeral,
		)
	}
}

func TestIgnoredUserGetsEphemeralBrushoff(t *testing.T) {
	bot, session := newTestBot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	u := newDiscordUser(t)
	_, _, err := bot.writeDB.GetOrCreateUser(ctx, *u)
	require.NoError(t, err)

	user := bot.writeDB.GetUser(u.ID)
	require.NotNil(t, user)
	user.Ignored = true

	i := newDiscordInteraction(
		t,
		u,
		SlashCommandClap,
		[]*discordgo.ApplicationCommandInteractionDataOption{
			stringOptionValue(clapOptionText, "hello there"),
		},
	)
	bot.handleInteraction(ctx, i)

	select {
	case <-ctx.Done():
		t.Fatal("timed out waiting for interaction response")
	case resp := <-session.responds:
		assert.Equal(
			t,
			discordgo.InteractionResponseChannelMessageWithSource,
			resp.Type,
		)
	}
	assert.Empty(t, session.edits)
}

func TestPauseResume(t *testing.T) {
	bot, _ := newTestBot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	require.False(t, bot.paused.Load())

	assert.True(t, bot.Pause(ctx))
	assert.True(t, bot.paused.Load())
	// already paused
	assert.False(t, bot.Pause(ctx))

	assert.True(t, bot.Resume(ctx))
	assert.False(t, bot.paused.Load())
	assert.False(t, bot.Resume(ctx))
}

func TestPausedBotRejectsCommands(t *testing.T) {
	bot, session := newTestBot(t)
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	t.Cleanup(cancel)

	require.True(t, bot.Pause(ctx))

	u := newDiscordUser(t)
	i := newDiscordInteraction(
		t,
		u,
		SlashCommandClap,
		[]*discordgo.ApplicationCommandInteractionDataOption{
			stringOptionValue(clapOptionText, "hello there"),
		},
	)
	bot.handleInteraction(ctx, i)

	select {
	case <-ctx.Done():
		t.Fatal("timed out waiting for interaction response")
	case resp := <-session.responds:
		assert.Equal(
			t,
			discordgo.InteractionResponseChannelMessageWithSource,
			resp.Type,
		)
	}
	assert.Empty(t, session.edits)
}

func TestValidateConfigRequiresDiscordCredentials(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.Discord.Token = ""

	bot, err := New(cfg)
	require.NoError(t, err)
	assert.Error(t, bot.ValidateConfig())

	cfg.Discord.Token = "token"
	cfg.Discord.ApplicationID = ""
	bot, err = New(cfg)
	require.NoError(t, err)
	assert.Error(t, bot.ValidateConfig())
}

func TestNewRejectsBadDatabaseType(t *testing.T) {
	cfg := newTestConfig(t)
	cfg.DatabaseType = "mysql"
	_, err := New(cfg)
	assert.Error(t, err)
}
