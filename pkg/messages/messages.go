// Package messages holds the text shown to users.
package messages

const (
	// ErrUserErrorProcessing is shown when an interaction failed unexpectedly.
	ErrUserErrorProcessing = "There was an error processing your request. Please try again later."

	ErrNotTicketChannel   = "This channel is not a ticket channel."
	ErrNoPermission       = "You do not have permission to do this."
	ErrAdminOnly          = "Only administrators can post the ticket overview."
	ErrOpenerOnly         = "Only the ticket opener can approve or deny this request."
	ErrTicketNotFound     = "Ticket not found."
	ErrTicketChannelGone  = "Ticket channel not found."
	ErrClosedNotFound     = "Ticket ID not found in closed tickets."
	ErrRoleNotAllowed     = "That role cannot be added to tickets."
	ErrUnknownPanel       = "Unknown panel. Use one of: %s"
	ErrInvalidName        = "The ticket name must be between 1 and 100 characters."
	ErrNoFirstMessage     = "No starting message found."
	ErrDuplicateTicket    = "You already have an open ticket: %s"
	ErrCreateInProgress   = "Your ticket is already being created."
	ErrCloseInProgress    = "This ticket is already being closed."
	ErrReopenInProgress   = "This ticket is already being reopened."
	ErrStaleRequest       = "This close request is no longer valid."
	ErrStaleButton        = "This button is no longer valid."
	ErrWrongChannel       = "Invalid action."
	ErrAnnouncementTarget = "Announcement channel not found."
	ErrAnnouncementEmpty  = "The announcement text cannot be empty."
	ErrOverviewTarget     = "Overview channel not found or not text based."
	ErrNotInTicket        = "This command cannot be used inside a ticket."
	ErrMissingOption      = "A required option is missing."
)

const (
	TicketCreated       = "Your ticket has been created: %s"
	JoinedTicket        = "You have been added to %s."
	TicketClaimed       = "Ticket claimed by %s."
	ClaimRemoved        = "Claim removed."
	TicketTransferred   = "Ticket transferred to %s."
	RoleAdded           = "Role added: %s"
	UserAdded           = "User added: %s"
	UserRemoved         = "User removed: %s"
	TicketRenamed       = "Ticket renamed."
	PanelSwitched       = "Ticket switched to panel: %s"
	CloseRequestSent    = "Close request sent."
	CloseRequestDenied  = "Close request denied."
	CloseRequestGranted = "Close request approved. The ticket closes in %d seconds..."
	TicketClosing       = "Closing ticket..."
	CloseConfirm        = "Are you sure you want to close this ticket?"
	CloseCancelled      = "Closing cancelled."
	TicketReopened      = "Ticket reopened: %s"
	JumpToTop           = "Click to go to the start of the ticket:"
	AnnouncementPosted  = "Announcement posted in %s."
	OverviewPosted      = "Overview posted in %s."
)

const (
	// TicketWelcome is the first message of a ticket. Arguments: opener mention, ticket ID, type.
	TicketWelcome = "Welcome %s, please describe your request here.\n\n**Ticket ID:** %d\n**Type:** %s"

	// TicketReopenNotice is the first message of a reopened ticket. Arguments: ticket ID, reason.
	TicketReopenNotice = "\U0001F513 Ticket reopened (ID: %d).\nOriginal close reason: **%s**"

	// CloseRequestPrompt asks the opener to decide. Arguments: opener mention, reason.
	CloseRequestPrompt = "%s, staff would like to close this ticket.\n**Reason:** %s\nUse a button below."

	// TranscriptDM accompanies the transcript sent to the opener. Argument: ticket ID.
	TranscriptDM = "\U0001F4C4 Transcript of your ticket (ID: %d)"

	// TranscriptLog accompanies the transcript sent to the log channel. Argument: ticket ID.
	TranscriptLog = "\U0001F4C4 Transcript ticket ID: %d"

	// NoReason is used when a close has no reason.
	NoReason = "No reason specified"

	// UnknownReason is shown when a reopened ticket has no recorded close reason.
	UnknownReason = "Unknown"

	// NoTranscript is the transcript of a channel without messages.
	NoTranscript = "No transcript available."

	// NoTranscriptFetchError is the transcript when the history could not be read at all.
	NoTranscriptFetchError = "No transcript available (fetch error)."

	// DefaultPanelDescription is the description of a panel without one.
	DefaultPanelDescription = "Click the button below to open a ticket."

	// Welcome greets a new member. Arguments: member mention, member mention, guild name.
	Welcome = "**Welcome %s \U0001F600**\nHello %s, welcome to **%s**!"

	// WelcomeRules points a new member at the rules. Argument: channel mention.
	WelcomeRules = "Please read the rules in %s first."

	// WaitingRoomTitle is the default title of the permanent support message.
	WaitingRoomTitle = "Support Waiting Room"

	// LegacyWaitingRoomTitle is the title older deployments posted the permanent message with.
	LegacyWaitingRoomTitle = "Support Wachtkamer"
)
