// Package discordtest provides an in-memory chat platform for tests.
package discordtest

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
)

// BotID is the user ID of the bot on the fake platform.
const BotID = "1"

// ErrNotFound is returned for unknown channels and messages.
var ErrNotFound = errors.New("discordtest: not found")

// Op names a platform call for failure injection and call counting.
type Op string

const (
	OpChannel          Op = "channel"
	OpCreateChannel    Op = "create_channel"
	OpRenameChannel    Op = "rename_channel"
	OpDeleteChannel    Op = "delete_channel"
	OpSetPermission    Op = "set_permission"
	OpDeletePermission Op = "delete_permission"
	OpMessage          Op = "message"
	OpMessages         Op = "messages"
	OpSendMessage      Op = "send_message"
	OpEditMessage      Op = "edit_message"
	OpDirectMessage    Op = "direct_message"
)

// File is an attachment delivered through the platform.
type File struct {
	// Target is the channel ID, or "dm:<userID>" for direct messages.
	Target string
	Name   string
	Data   []byte
}

// DirectMessage is a message delivered to a user.
type DirectMessage struct {
	UserID  string
	Content string
	Files   []string
}

// Platform is an in-memory implementation of discord.Client.
type Platform struct {
	mu sync.Mutex

	nextID   int64
	clock    time.Time
	channels map[string]*discordgo.Channel
	messages map[string][]*discordgo.Message
	dms      []DirectMessage
	files    []File
	calls    map[Op]int
	failures map[Op]error

	// historyPages counts Messages calls that returned a page, used to fail part way through paging.
	historyPages   int
	failHistoryAt  int
	failHistoryErr error
}

var _ discord.Client = (*Platform)(nil)

// New creates an empty platform.
func New() *Platform {
	return &Platform{
		nextID:   100000000000000000,
		clock:    time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		channels: make(map[string]*discordgo.Channel),
		messages: make(map[string][]*discordgo.Message),
		calls:    make(map[Op]int),
		failures: make(map[Op]error),
	}
}

// Fail makes every subsequent call of op return err.
func (p *Platform) Fail(op Op, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[op] = err
}

// Recover clears the failure of op.
func (p *Platform) Recover(op Op) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.failures, op)
}

// FailHistoryAfter makes history fetches fail once pages pages have been served.
func (p *Platform) FailHistoryAfter(pages int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failHistoryAt = pages
	p.failHistoryErr = err
}

// Calls returns how many times op was called.
func (p *Platform) Calls(op Op) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// AddChannel creates a channel and returns its ID.
func (p *Platform) AddChannel(name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.newID()
	p.channels[id] = &discordgo.Channel{ID: id, Name: name, Type: discordgo.ChannelTypeGuildText}
	return id
}

// HasChannel reports whether the channel exists.
func (p *Platform) HasChannel(channelID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.channels[channelID]
	return ok
}

// RemoveChannel deletes a channel behind the bot's back.
func (p *Platform) RemoveChannel(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.channels, channelID)
	delete(p.messages, channelID)
}

// ChannelInfo returns a copy of the channel.
func (p *Platform) ChannelInfo(channelID string) (*discordgo.Channel, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[channelID]
	if !ok {
		return nil, false
	}
	return copyChannel(ch), true
}

// Overwrite returns the permission overwrite of a target in a channel.
func (p *Platform) Overwrite(channelID, targetID string) (*discordgo.PermissionOverwrite, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch, ok := p.channels[channelID]
	if !ok {
		return nil, false
	}
	for _, o := range ch.PermissionOverwrites {
		if o.ID == targetID {
			c := *o
			return &c, true
		}
	}
	return nil, false
}

// Post adds a message from a user at a given time.
func (p *Platform) Post(channelID string, author *discordgo.User, content string, at time.Time, attachmentURLs ...string) *discordgo.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := &discordgo.Message{
		ID:        p.newID(),
		ChannelID: channelID,
		Content:   content,
		Author:    author,
		Timestamp: at,
	}
	for _, u := range attachmentURLs {
		m.Attachments = append(m.Attachments, &discordgo.MessageAttachment{URL: u})
	}
	p.messages[channelID] = append(p.messages[channelID], m)
	return copyMessage(m)
}

// History returns the messages of a channel, oldest first.
func (p *Platform) History(channelID string) []*discordgo.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	list := make([]*discordgo.Message, 0, len(p.messages[channelID]))
	for _, m := range p.messages[channelID] {
		list = append(list, copyMessage(m))
	}
	return list
}

// RemoveMessage deletes a message behind the bot's back.
func (p *Platform) RemoveMessage(channelID, messageID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages[channelID] = slices.DeleteFunc(p.messages[channelID], func(m *discordgo.Message) bool {
		return m.ID == messageID
	})
}

// DirectMessages returns the direct messages delivered to a user.
func (p *Platform) DirectMessages(userID string) []DirectMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var list []DirectMessage
	for _, dm := range p.dms {
		if dm.UserID == userID {
			list = append(list, dm)
		}
	}
	return list
}

// Files returns every delivered attachment.
func (p *Platform) Files() []File {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.files)
}

func (p *Platform) BotUserID() string {
	return BotID
}

func (p *Platform) Channel(channelID string) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpChannel); err != nil {
		return nil, err
	}
	ch, ok := p.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	return copyChannel(ch), nil
}

func (p *Platform) CreateChannel(_ string, data discordgo.GuildChannelCreateData) (*discordgo.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpCreateChannel); err != nil {
		return nil, err
	}
	ch := &discordgo.Channel{
		ID:       p.newID(),
		Name:     data.Name,
		Type:     data.Type,
		ParentID: data.ParentID,
	}
	for _, o := range data.PermissionOverwrites {
		c := *o
		ch.PermissionOverwrites = append(ch.PermissionOverwrites, &c)
	}
	p.channels[ch.ID] = ch
	return copyChannel(ch), nil
}

func (p *Platform) RenameChannel(channelID, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpRenameChannel); err != nil {
		return err
	}
	ch, ok := p.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	ch.Name = name
	return nil
}

func (p *Platform) DeleteChannel(channelID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpDeleteChannel); err != nil {
		return err
	}
	if _, ok := p.channels[channelID]; !ok {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	delete(p.channels, channelID)
	delete(p.messages, channelID)
	return nil
}

func (p *Platform) SetPermission(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpSetPermission); err != nil {
		return err
	}
	ch, ok := p.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	o := &discordgo.PermissionOverwrite{ID: targetID, Type: targetType, Allow: allow, Deny: deny}
	for i, existing := range ch.PermissionOverwrites {
		if existing.ID == targetID {
			ch.PermissionOverwrites[i] = o
			return nil
		}
	}
	ch.PermissionOverwrites = append(ch.PermissionOverwrites, o)
	return nil
}

func (p *Platform) DeletePermission(channelID, targetID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpDeletePermission); err != nil {
		return err
	}
	ch, ok := p.channels[channelID]
	if !ok {
		return fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	ch.PermissionOverwrites = slices.DeleteFunc(ch.PermissionOverwrites, func(o *discordgo.PermissionOverwrite) bool {
		return o.ID == targetID
	})
	return nil
}

func (p *Platform) Message(channelID, messageID string) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpMessage); err != nil {
		return nil, err
	}
	m, ok := p.find(channelID, messageID)
	if !ok {
		return nil, fmt.Errorf("message %s: %w", messageID, ErrNotFound)
	}
	return copyMessage(m), nil
}

func (p *Platform) Messages(channelID string, limit int, beforeID string) ([]*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpMessages); err != nil {
		return nil, err
	}
	if p.failHistoryErr != nil && p.historyPages >= p.failHistoryAt {
		return nil, p.failHistoryErr
	}
	if _, ok := p.channels[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}
	p.historyPages++

	all := p.messages[channelID]
	end := len(all)
	if beforeID != "" {
		before := parseID(beforeID)
		end = 0
		for i, m := range all {
			if parseID(m.ID) < before {
				end = i + 1
			}
		}
	}
	start := max(0, end-limit)

	page := make([]*discordgo.Message, 0, end-start)
	for i := end - 1; i >= start; i-- {
		page = append(page, copyMessage(all[i]))
	}
	return page, nil
}

func (p *Platform) SendMessage(channelID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpSendMessage); err != nil {
		return nil, err
	}
	if _, ok := p.channels[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, ErrNotFound)
	}

	m := &discordgo.Message{
		ID:         p.newID(),
		ChannelID:  channelID,
		Content:    data.Content,
		Embeds:     slices.Clone(data.Embeds),
		Components: slices.Clone(data.Components),
		Author:     &discordgo.User{ID: BotID, Username: "supportbot", Bot: true},
		Timestamp:  p.tick(),
	}
	for _, name := range p.readFiles(channelID, data.Files) {
		m.Attachments = append(m.Attachments, &discordgo.MessageAttachment{Filename: name})
	}
	p.messages[channelID] = append(p.messages[channelID], m)
	return copyMessage(m), nil
}

func (p *Platform) EditMessage(edit *discordgo.MessageEdit) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpEditMessage); err != nil {
		return nil, err
	}
	m, ok := p.find(edit.Channel, edit.ID)
	if !ok {
		return nil, fmt.Errorf("message %s: %w", edit.ID, ErrNotFound)
	}
	if edit.Content != nil {
		m.Content = *edit.Content
	}
	if edit.Components != nil {
		m.Components = slices.Clone(edit.Components)
	}
	if edit.Embeds != nil {
		m.Embeds = slices.Clone(edit.Embeds)
	}
	return copyMessage(m), nil
}

func (p *Platform) SendDirectMessage(userID string, data *discordgo.MessageSend) (*discordgo.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.call(OpDirectMessage); err != nil {
		return nil, err
	}
	names := p.readFiles("dm:"+userID, data.Files)
	p.dms = append(p.dms, DirectMessage{UserID: userID, Content: data.Content, Files: names})
	return &discordgo.Message{ID: p.newID(), Content: data.Content, Timestamp: p.tick()}, nil
}

// call records a call and returns the injected failure, if any. p.mu must be held.
func (p *Platform) call(op Op) error {
	p.calls[op]++
	return p.failures[op]
}

func (p *Platform) newID() string {
	p.nextID++
	return strconv.FormatInt(p.nextID, 10)
}

func (p *Platform) tick() time.Time {
	p.clock = p.clock.Add(time.Second)
	return p.clock
}

func (p *Platform) find(channelID, messageID string) (*discordgo.Message, bool) {
	for _, m := range p.messages[channelID] {
		if m.ID == messageID {
			return m, true
		}
	}
	return nil, false
}

func (p *Platform) readFiles(target string, files []*discordgo.File) []string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		if f == nil || f.Reader == nil {
			continue
		}
		data, err := io.ReadAll(f.Reader)
		if err != nil {
			continue
		}
		p.files = append(p.files, File{Target: target, Name: f.Name, Data: data})
		names = append(names, f.Name)
	}
	return names
}

func parseID(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func copyChannel(ch *discordgo.Channel) *discordgo.Channel {
	c := *ch
	c.PermissionOverwrites = make([]*discordgo.PermissionOverwrite, 0, len(ch.PermissionOverwrites))
	for _, o := range ch.PermissionOverwrites {
		oc := *o
		c.PermissionOverwrites = append(c.PermissionOverwrites, &oc)
	}
	return &c
}

func copyMessage(m *discordgo.Message) *discordgo.Message {
	c := *m
	c.Embeds = slices.Clone(m.Embeds)
	c.Components = slices.Clone(m.Components)
	c.Attachments = slices.Clone(m.Attachments)
	return &c
}
