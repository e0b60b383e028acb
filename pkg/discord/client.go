// Package discord is the boundary between the ticket logic and the chat platform.
package discord

import (
	"errors"
	"fmt"

	"github.com/Jacobbrewer1/discordgo"
)

// Client is the subset of the platform API the bot uses.
type Client interface {
	// BotUserID returns the user ID of the bot itself.
	BotUserID() string

	// Channel fetches a channel.
	Channel(channelID string) (*discordgo.Channel, error)

	// CreateChannel creates a guild channel.
	CreateChannel(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error)

	// RenameChannel sets the name of a channel.
	RenameChannel(channelID, name string) error

	// DeleteChannel deletes a channel.
	DeleteChannel(channelID string) error

	// SetPermission creates or replaces the permission overwrite of a role or member.
	SetPermission(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64) error

	// DeletePermission removes the permission overwrite of a role or member.
	DeletePermission(channelID, targetID string) error

	// Message fetches a single message.
	Message(channelID, messageID string) (*discordgo.Message, error)

	// Messages fetches up to limit messages older than beforeID, newest first. An empty beforeID
	// starts at the latest message.
	Messages(channelID string, limit int, beforeID string) ([]*discordgo.Message, error)

	// SendMessage sends a message to a channel.
	SendMessage(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error)

	// EditMessage edits a message.
	EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error)

	// SendDirectMessage sends a message to a user's direct message channel.
	SendDirectMessage(userID string, data *discordgo.MessageSend) (*discordgo.Message, error)
}

// ErrNotReady is returned when the session has not received its ready event.
var ErrNotReady = errors.New("discord session is not ready")

type sessionClient struct {
	s *discordgo.Session
}

// NewSessionClient adapts a session to the Client interface.
func NewSessionClient(s *discordgo.Session) Client {
	return &sessionClient{s: s}
}

func (c *sessionClient) BotUserID() string {
	if c.s.State == nil || c.s.State.User == nil {
		return ""
	}
	return c.s.State.User.ID
}

func (c *sessionClient) Channel(channelID string) (*discordgo.Channel, error) {
	if channelID == "" {
		return nil, fmt.Errorf("empty channel id")
	}
	return c.s.Channel(channelID)
}

func (c *sessionClient) CreateChannel(guildID string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	return c.s.GuildChannelCreateComplex(guildID, data)
}

func (c *sessionClient) RenameChannel(channelID, name string) error {
	_, err := c.s.ChannelEditComplex(channelID, &discordgo.ChannelEdit{Name: name})
	return err
}

func (c *sessionClient) DeleteChannel(channelID string) error {
	_, err := c.s.ChannelDelete(channelID)
	return err
}

func (c *sessionClient) SetPermission(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64) error {
	return c.s.ChannelPermissionSet(channelID, targetID, targetType, allow, deny)
}

func (c *sessionClient) DeletePermission(channelID, targetID string) error {
	return c.s.ChannelPermissionDelete(channelID, targetID)
}

func (c *sessionClient) Message(channelID, messageID string) (*discordgo.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("empty message id")
	}
	return c.s.ChannelMessage(channelID, messageID)
}

func (c *sessionClient) Messages(channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	return c.s.ChannelMessages(channelID, limit, beforeID, "", "")
}

func (c *sessionClient) SendMessage(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	return c.s.ChannelMessageSendComplex(channelID, data)
}

func (c *sessionClient) EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	return c.s.ChannelMessageEditComplex(edit)
}

func (c *sessionClient) SendDirectMessage(userID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	ch, err := c.s.UserChannelCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("error opening direct message channel: %w", err)
	}
	return c.s.ChannelMessageSendComplex(ch.ID, data)
}
