package main

import (
	"fmt"
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
	"github.com/Jacobbrewer1/supportbot/pkg/tickets"
)

func guildJoinedHandler(a IApp) func(s *discordgo.Session, g *discordgo.GuildCreate) {
	return func(_ *discordgo.Session, g *discordgo.GuildCreate) {
		a.Log().Info(fmt.Sprintf("Joined guild %s", g.Name))

		// Increment the total number of guilds.
		JoinedGuilds.Inc()
	}
}

func guildLeaveHandler(a IApp) func(s *discordgo.Session, g *discordgo.GuildDelete) {
	return func(_ *discordgo.Session, g *discordgo.GuildDelete) {
		a.Log().Info(fmt.Sprintf("Left guild %s", g.ID))

		// Decrement the total number of guilds.
		JoinedGuilds.Dec()
	}
}

// memberJoinedHandler greets new members in the welcome channel.
func memberJoinedHandler(a IApp, engine *tickets.Engine) func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	return func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		if m.Member == nil || m.User == nil || m.User.Bot {
			return
		}

		g := tickets.Guild{}
		if guild, err := s.State.Guild(m.GuildID); err == nil {
			g.Name = guild.Name
			if guild.Icon != "" {
				g.IconURL = discordgo.EndpointGuildIcon(guild.ID, guild.Icon)
			}
		} else {
			a.Log().Debug("Guild not in state", slog.String("guild_id", m.GuildID), slog.String(logging.KeyError, err.Error()))
		}

		if engine.Welcome(g, m.User.ID) {
			a.Log().Debug("Welcomed member", slog.String(logging.KeyUser, m.User.ID))
		}
	}
}
