package entities

// MessageRef points at a message rendered by the bot.
type MessageRef struct {
	// ChannelID is the channel the message is in.
	ChannelID string `json:"channelId"`

	// MessageID is the ID of the message.
	MessageID string `json:"messageId"`
}

// Matches reports whether the reference points into the given channel and has a message.
func (r *MessageRef) Matches(channelID string) bool {
	return r != nil && r.ChannelID == channelID && r.MessageID != ""
}

// PanelRegistry is the persisted panels document. It records which message renders each panel so
// reconciliation edits in place instead of posting duplicates.
type PanelRegistry struct {
	// Panels are the panel messages keyed by panel key.
	Panels map[string]*MessageRef `json:"panels"`

	// PermanentMessages are the permanent informational messages keyed by logical name.
	PermanentMessages map[string]*MessageRef `json:"permanentMessages"`
}

// NewPanelRegistry returns the default panels document.
func NewPanelRegistry() *PanelRegistry {
	return &PanelRegistry{
		Panels:            make(map[string]*MessageRef),
		PermanentMessages: make(map[string]*MessageRef),
	}
}

// Normalize fills in anything a partially written document is missing.
func (r *PanelRegistry) Normalize() {
	if r.Panels == nil {
		r.Panels = make(map[string]*MessageRef)
	}
	if r.PermanentMessages == nil {
		r.PermanentMessages = make(map[string]*MessageRef)
	}
}
