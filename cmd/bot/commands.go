package main

import (
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/config"
	"github.com/Jacobbrewer1/supportbot/pkg/customid"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
)

const (
	cmdAddSupportRole   = "add-support-role"
	cmdAddUser          = "add-user"
	cmdRemoveUser       = "remove-user"
	cmdRename           = "rename"
	cmdClaim            = "claim"
	cmdUnclaim          = "unclaim"
	cmdTransfer         = "transfer"
	cmdClose            = "close"
	cmdRequestClose     = "request-close"
	cmdJumpToTop        = "jump-to-top"
	cmdSwitchPanel      = "switch-panel"
	cmdReopen           = "reopen"
	cmdPostAnnouncement = "post-announcement"
	cmdPostOverview     = "post-overview"
)

const (
	optRole     = "role"
	optUser     = "user"
	optName     = "name"
	optReason   = "reason"
	optDelay    = "delay"
	optTarget   = "target"
	optTicketID = "ticket_id"
	optText     = "text"
)

// maxChoices is the number of choices the platform accepts on one option.
const maxChoices = 25

var (
	minDelay    = float64(0)
	minTicketID = float64(1)
)

// commandDefinitions returns the slash commands. The role choices of add-support-role come from
// the configuration.
func commandDefinitions(cfg *config.Bot) []*discordgo.ApplicationCommand {
	roleChoices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(cfg.AddRoleChoices))
	for _, c := range cfg.AddRoleChoices {
		if len(roleChoices) == maxChoices {
			break
		}
		roleChoices = append(roleChoices, &discordgo.ApplicationCommandOptionChoice{Name: c.Name, Value: c.Value})
	}

	userOption := func(description string) *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        optUser,
			Description: description,
			Required:    true,
		}
	}
	reasonOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        optReason,
		Description: "Reason for closing",
		Required:    false,
	}

	return []*discordgo.ApplicationCommand{
		{
			Name:        cmdAddSupportRole,
			Description: "Give a support role access to this ticket",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optRole,
				Description: "The role to add",
				Required:    true,
				Choices:     roleChoices,
			}},
		},
		{
			Name:        cmdAddUser,
			Description: "Add a user to this ticket",
			Options:     []*discordgo.ApplicationCommandOption{userOption("The user to add")},
		},
		{
			Name:        cmdRemoveUser,
			Description: "Remove a user from this ticket",
			Options:     []*discordgo.ApplicationCommandOption{userOption("The user to remove")},
		},
		{
			Name:        cmdRename,
			Description: "Rename this ticket",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optName,
				Description: "The new channel name",
				Required:    true,
				MaxLength:   100,
			}},
		},
		{
			Name:        cmdClaim,
			Description: "Claim this ticket",
		},
		{
			Name:        cmdUnclaim,
			Description: "Remove the claim from this ticket",
		},
		{
			Name:        cmdTransfer,
			Description: "Transfer this ticket to another staff member",
			Options:     []*discordgo.ApplicationCommandOption{userOption("The staff member to transfer to")},
		},
		{
			Name:        cmdClose,
			Description: "Close this ticket",
			Options:     []*discordgo.ApplicationCommandOption{reasonOption},
		},
		{
			Name:        cmdRequestClose,
			Description: "Ask the ticket opener to approve closing this ticket",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionInteger,
					Name:        optDelay,
					Description: "Seconds to wait after approval",
					Required:    true,
					MinValue:    &minDelay,
					MaxValue:    customid.MaxCloseDelay,
				},
				reasonOption,
			},
		},
		{
			Name:        cmdJumpToTop,
			Description: "Jump to the first message of this ticket",
		},
		{
			Name:        cmdSwitchPanel,
			Description: "Move this ticket to another panel",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optTarget,
				Description: "The ticket type to switch to",
				Required:    true,
			}},
		},
		{
			Name:        cmdReopen,
			Description: "Reopen a closed ticket",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        optTicketID,
				Description: "The ID of the closed ticket",
				Required:    true,
				MinValue:    &minTicketID,
			}},
		},
		{
			Name:        cmdPostAnnouncement,
			Description: "Post an announcement",
			Options: []*discordgo.ApplicationCommandOption{{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        optText,
				Description: "The announcement text",
				Required:    true,
			}},
		},
		{
			Name:        cmdPostOverview,
			Description: "Post an overview of the open tickets",
		},
	}
}

func (a *App) registerSlashCommands() error {
	// Get all guilds the bot is in.
	guilds, err := a.GetJoinedGuilds()
	if err != nil {
		return fmt.Errorf("error getting guilds: %w", err)
	}

	defs := commandDefinitions(a.bot.Current())

	// Register slash commands for each guild.
	for _, g := range guilds {
		for _, def := range defs {
			created, err := a.Session().ApplicationCommandCreate(a.c.ApplicationId, g.ID, def)
			if err != nil {
				return fmt.Errorf("error creating %s command for guild %s: %w", def.Name, g.ID, err)
			}
			a.commands[g.ID] = append(a.commands[g.ID], created)
		}
		a.l.Debug("Registered slash commands", slog.String("guild_id", g.ID), slog.Int("count", len(defs)))
	}
	return nil
}

func (a *App) unregisterSlashCommands() {
	// Delete the commands created at startup.
	for guildID, cmds := range a.commands {
		for _, cmd := range cmds {
			if err := a.s.ApplicationCommandDelete(a.c.ApplicationId, guildID, cmd.ID); err != nil {
				a.l.Warn("Error deleting command",
					slog.String(logging.KeyCommand, cmd.Name),
					slog.String("guild_id", guildID),
					slog.String(logging.KeyError, err.Error()),
				)
			}
		}
		delete(a.commands, guildID)
	}
}
