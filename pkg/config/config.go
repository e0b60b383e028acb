// Package config loads the bot configuration file. Files may be JSON with comments and trailing
// commas, or YAML. Every file is validated against an embedded JSON schema before it is used.
package config

import (
	"fmt"
	"slices"
	"time"
)

const (
	// DefaultTranscriptLimit is the number of messages read for a transcript when none is configured.
	DefaultTranscriptLimit = 200

	// MaxTranscriptLimit is the largest number of messages read for a transcript.
	MaxTranscriptLimit = 1000

	// DefaultTranscriptTimezone is used to render transcript timestamps when none is configured.
	DefaultTranscriptTimezone = "UTC"
)

// Button is a create-ticket button on a panel.
type Button struct {
	// CustomID is the button ID, always of the form create:<ticketType>.
	CustomID string `json:"customId" yaml:"customId"`

	// Label is the button text.
	Label string `json:"label" yaml:"label"`

	// Emoji overrides the emoji chosen from the ticket type.
	Emoji string `json:"emoji,omitempty" yaml:"emoji,omitempty"`

	// Style is one of primary, secondary, success or danger.
	Style string `json:"style,omitempty" yaml:"style,omitempty"`
}

// Panel is a message offering buttons that create tickets.
type Panel struct {
	ChannelID   string   `json:"channelId" yaml:"channelId"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Buttons     []Button `json:"buttons" yaml:"buttons"`
}

// EmbedField is a field of a configured embed.
type EmbedField struct {
	Name   string `json:"name" yaml:"name"`
	Value  string `json:"value" yaml:"value"`
	Inline bool   `json:"inline,omitempty" yaml:"inline,omitempty"`
}

// Embed is a configured embed.
type Embed struct {
	Title       string       `json:"title,omitempty" yaml:"title,omitempty"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// PermanentMessage is the informational message kept in the support waiting room.
type PermanentMessage struct {
	ChannelID string  `json:"channelId,omitempty" yaml:"channelId,omitempty"`
	Content   string  `json:"content,omitempty" yaml:"content,omitempty"`
	Embeds    []Embed `json:"embeds,omitempty" yaml:"embeds,omitempty"`
}

// RoleChoice is a role offered by the add-support-role command.
type RoleChoice struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// Bot is the bot configuration.
type Bot struct {
	// TicketCategory is the category new ticket channels are created in.
	TicketCategory string `json:"ticketCategory" yaml:"ticketCategory"`

	// JoinLogChannel receives one join-log message per open ticket.
	JoinLogChannel string `json:"joinLogChannel" yaml:"joinLogChannel"`

	// TranscriptLogChannel receives transcripts and close summaries.
	TranscriptLogChannel string `json:"transcriptLogChannel" yaml:"transcriptLogChannel"`

	// StaffRolesByPanel is the staff role granted access to tickets of each panel.
	StaffRolesByPanel map[string]string `json:"staffRolesByPanel,omitempty" yaml:"staffRolesByPanel,omitempty"`

	// TypeAliases maps a ticket type to the panel key it is handled by.
	TypeAliases map[string]string `json:"typeAliases,omitempty" yaml:"typeAliases,omitempty"`

	// StaffRoleIDs are roles treated as staff in addition to the panel staff roles.
	StaffRoleIDs []string `json:"staffRoleIds,omitempty" yaml:"staffRoleIds,omitempty"`

	// ManagerRoleForAdd is the role allowed to add support roles to a ticket.
	ManagerRoleForAdd string `json:"managerRoleForAdd,omitempty" yaml:"managerRoleForAdd,omitempty"`

	// AddRoleChoices are the roles that can be added to a ticket.
	AddRoleChoices []RoleChoice `json:"addRoleChoices,omitempty" yaml:"addRoleChoices,omitempty"`

	AnnouncementChannelID      string   `json:"announcementChannelId,omitempty" yaml:"announcementChannelId,omitempty"`
	AnnouncementAllowedRoleIDs []string `json:"announcementAllowedRoleIds,omitempty" yaml:"announcementAllowedRoleIds,omitempty"`
	OverviewChannelID          string   `json:"overviewChannelId,omitempty" yaml:"overviewChannelId,omitempty"`
	WelcomeChannelID           string   `json:"welcomeChannelId,omitempty" yaml:"welcomeChannelId,omitempty"`
	RulesChannelID             string   `json:"rulesChannelId,omitempty" yaml:"rulesChannelId,omitempty"`

	// Panels are the configured panels keyed by panel key.
	Panels map[string]*Panel `json:"panels,omitempty" yaml:"panels,omitempty"`

	// PermanentSupportMessage is the permanent waiting room message.
	PermanentSupportMessage *PermanentMessage `json:"permanentSupportMessage,omitempty" yaml:"permanentSupportMessage,omitempty"`

	// TranscriptLimit is the number of messages read for a transcript.
	TranscriptLimit int `json:"transcriptLimit,omitempty" yaml:"transcriptLimit,omitempty"`

	// TranscriptTimezone is the IANA zone transcript timestamps are rendered in.
	TranscriptTimezone string `json:"transcriptTimezone,omitempty" yaml:"transcriptTimezone,omitempty"`

	location *time.Location
}

// applyDefaults fills in optional values and resolves the transcript timezone.
func (b *Bot) applyDefaults() error {
	if b.TranscriptLimit <= 0 {
		b.TranscriptLimit = DefaultTranscriptLimit
	}
	if b.TranscriptTimezone == "" {
		b.TranscriptTimezone = DefaultTranscriptTimezone
	}
	if b.StaffRolesByPanel == nil {
		b.StaffRolesByPanel = make(map[string]string)
	}
	if b.TypeAliases == nil {
		b.TypeAliases = make(map[string]string)
	}
	if b.Panels == nil {
		b.Panels = make(map[string]*Panel)
	}

	loc, err := time.LoadLocation(b.TranscriptTimezone)
	if err != nil {
		return fmt.Errorf("invalid transcript timezone %q: %w", b.TranscriptTimezone, err)
	}
	b.location = loc
	return nil
}

// validate checks the rules the schema cannot express.
func (b *Bot) validate() error {
	if b.TranscriptLimit > MaxTranscriptLimit {
		return fmt.Errorf("transcriptLimit %d exceeds %d", b.TranscriptLimit, MaxTranscriptLimit)
	}

	for ticketType, key := range b.TypeAliases {
		if _, ok := b.Panels[key]; ok {
			continue
		}
		if _, ok := b.StaffRolesByPanel[key]; ok {
			continue
		}
		return fmt.Errorf("type alias %q points at unknown panel %q", ticketType, key)
	}

	seen := make(map[string]string)
	for key, p := range b.Panels {
		if p == nil {
			return fmt.Errorf("panel %q is empty", key)
		}
		for _, btn := range p.Buttons {
			if other, ok := seen[btn.CustomID]; ok && other != key {
				return fmt.Errorf("button %q is used by panels %q and %q", btn.CustomID, other, key)
			}
			seen[btn.CustomID] = key
		}
	}
	return nil
}

// Location returns the timezone transcripts are rendered in.
func (b *Bot) Location() *time.Location {
	if b.location == nil {
		return time.UTC
	}
	return b.location
}

// PanelKeyFor returns the panel key handling tickets of a type.
func (b *Bot) PanelKeyFor(ticketType string) string {
	if key, ok := b.TypeAliases[ticketType]; ok && key != "" {
		return key
	}
	return ticketType
}

// PanelKeyForButton returns the key of the panel carrying the button, falling back to the panel
// handling the ticket type.
func (b *Bot) PanelKeyForButton(customID, ticketType string) string {
	for key, p := range b.Panels {
		if p == nil {
			continue
		}
		for _, btn := range p.Buttons {
			if btn.CustomID == customID {
				return key
			}
		}
	}
	return b.PanelKeyFor(ticketType)
}

// PanelName returns the display name of a panel.
func (b *Bot) PanelName(key string) string {
	if p, ok := b.Panels[key]; ok && p != nil && p.Title != "" {
		return p.Title
	}
	return key
}

// KnownTicketType reports whether tickets can be switched to the given type.
func (b *Bot) KnownTicketType(ticketType string) bool {
	if _, ok := b.Panels[ticketType]; ok {
		return true
	}
	_, ok := b.TypeAliases[ticketType]
	return ok
}

// StaffRoleFor returns the staff role of the panel handling tickets of a type, or "" when none.
func (b *Bot) StaffRoleFor(ticketType string) string {
	return b.StaffRolesByPanel[b.PanelKeyFor(ticketType)]
}

// IsStaff reports whether any of the roles is a staff role.
func (b *Bot) IsStaff(roles []string) bool {
	for _, r := range roles {
		if slices.Contains(b.StaffRoleIDs, r) {
			return true
		}
		for _, staff := range b.StaffRolesByPanel {
			if staff == r {
				return true
			}
		}
	}
	return false
}

// IsManager reports whether the roles include the manager role.
func (b *Bot) IsManager(roles []string) bool {
	return b.ManagerRoleForAdd != "" && slices.Contains(roles, b.ManagerRoleForAdd)
}

// CanAnnounce reports whether the roles include an announcement role.
func (b *Bot) CanAnnounce(roles []string) bool {
	for _, r := range roles {
		if slices.Contains(b.AnnouncementAllowedRoleIDs, r) {
			return true
		}
	}
	return false
}

// IsAddRoleChoice reports whether the role is one of the add-support-role choices.
func (b *Bot) IsAddRoleChoice(roleID string) bool {
	return slices.ContainsFunc(b.AddRoleChoices, func(c RoleChoice) bool {
		return c.Value == roleID
	})
}
