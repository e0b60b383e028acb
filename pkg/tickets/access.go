package tickets

import (
	"github.com/Jacobbrewer1/supportbot/pkg/config"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
)

// Member is the actor of an interaction.
type Member struct {
	// UserID is the ID of the user.
	UserID string

	// Roles are the role IDs of the member.
	Roles []string

	// Administrator is set when the member has the administrator permission.
	Administrator bool
}

// RequireStaff allows members with any staff role and administrators.
func RequireStaff(cfg *config.Bot, m Member) error {
	if m.Administrator || cfg.IsStaff(m.Roles) {
		return nil
	}
	return reject(ErrForbidden, messages.ErrNoPermission)
}

// RequireManager allows members with the manager role.
func RequireManager(cfg *config.Bot, m Member) error {
	if cfg.IsManager(m.Roles) {
		return nil
	}
	return reject(ErrForbidden, messages.ErrNoPermission)
}

// RequireAnnouncer allows members with an announcement role.
func RequireAnnouncer(cfg *config.Bot, m Member) error {
	if cfg.CanAnnounce(m.Roles) {
		return nil
	}
	return reject(ErrForbidden, messages.ErrNoPermission)
}

// RequireAdmin allows administrators.
func RequireAdmin(m Member) error {
	if m.Administrator {
		return nil
	}
	return reject(ErrForbidden, messages.ErrAdminOnly)
}

// RequireCloser allows staff, administrators and the opener of the ticket.
func RequireCloser(cfg *config.Bot, m Member, t *entities.Ticket) error {
	if t != nil && t.OpenedBy == m.UserID {
		return nil
	}
	return RequireStaff(cfg, m)
}
