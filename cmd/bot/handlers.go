package main

import (
	"context"

	"github.com/Jacobbrewer1/supportbot/pkg/customid"
	"github.com/Jacobbrewer1/supportbot/pkg/discord"
	"github.com/Jacobbrewer1/supportbot/pkg/entities"
	"github.com/Jacobbrewer1/supportbot/pkg/messages"
	"github.com/Jacobbrewer1/supportbot/pkg/tickets"
)

func (rt *router) addSupportRole(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	role := req.str(optRole)
	if err := required(role); err != nil {
		return nil, err
	}
	if _, err := rt.engine.AddSupportRole(ctx, req.channelID, role); err != nil {
		return nil, err
	}
	return text(messages.RoleAdded, discord.RoleMention(role)), nil
}

func (rt *router) addUser(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	user := req.str(optUser)
	if err := required(user); err != nil {
		return nil, err
	}
	if err := rt.engine.AddUser(ctx, req.channelID, user); err != nil {
		return nil, err
	}
	return text(messages.UserAdded, discord.UserMention(user)), nil
}

func (rt *router) removeUser(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	user := req.str(optUser)
	if err := required(user); err != nil {
		return nil, err
	}
	if err := rt.engine.RemoveUser(ctx, req.channelID, user); err != nil {
		return nil, err
	}
	return text(messages.UserRemoved, discord.UserMention(user)), nil
}

func (rt *router) rename(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	if err := rt.engine.Rename(ctx, req.channelID, req.str(optName)); err != nil {
		return nil, err
	}
	return text(messages.TicketRenamed), nil
}

func (rt *router) claim(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	if _, err := rt.engine.Claim(ctx, req.channelID, req.member.UserID); err != nil {
		return nil, err
	}
	return text(messages.TicketClaimed, discord.UserMention(req.member.UserID)), nil
}

func (rt *router) unclaim(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	if _, err := rt.engine.Unclaim(ctx, req.channelID); err != nil {
		return nil, err
	}
	return text(messages.ClaimRemoved), nil
}

func (rt *router) transfer(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	user := req.str(optUser)
	if err := required(user); err != nil {
		return nil, err
	}
	if _, err := rt.engine.Transfer(ctx, req.channelID, user); err != nil {
		return nil, err
	}
	return text(messages.TicketTransferred, discord.UserMention(user)), nil
}

func (rt *router) closeCommand(_ context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	reason := req.str(optReason)
	if reason == "" {
		reason = messages.NoReason
	}
	rep := text(messages.TicketClosing)
	rep.then = rt.closeLater(req.channelID, req.member.UserID, reason)
	return rep, nil
}

func (rt *router) requestClose(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	delay, ok := req.integer(optDelay)
	if !ok {
		return nil, tickets.Reject(tickets.ErrInvalidInput, messages.ErrMissingOption)
	}
	if _, err := rt.engine.RequestClose(ctx, req.channelID, req.member.UserID, delay, req.str(optReason)); err != nil {
		return nil, err
	}
	return text(messages.CloseRequestSent), nil
}

func (rt *router) jumpToTop(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	url, err := rt.engine.JumpURL(ctx, req.guildID, req.channelID)
	if err != nil {
		return nil, err
	}
	return &reply{
		content:    messages.JumpToTop,
		components: tickets.JumpControls(url),
	}, nil
}

func (rt *router) switchPanel(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	target := req.str(optTarget)
	if err := required(target); err != nil {
		return nil, err
	}
	t, err := rt.engine.SwitchPanel(ctx, req.channelID, target)
	if err != nil {
		return nil, err
	}
	name := t.PanelName
	if name == "" {
		name = t.TicketType
	}
	return text(messages.PanelSwitched, name), nil
}

func (rt *router) reopen(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	id, ok := req.integer(optTicketID)
	if !ok {
		return nil, tickets.Reject(tickets.ErrInvalidInput, messages.ErrMissingOption)
	}
	t, err := rt.engine.Reopen(ctx, req.guildID, id)
	if err != nil {
		return nil, err
	}
	return text(messages.TicketReopened, discord.ChannelMention(t.ChannelID)), nil
}

func (rt *router) postAnnouncement(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	channelID, err := rt.engine.PostAnnouncement(ctx, req.str(optText))
	if err != nil {
		return nil, err
	}
	return text(messages.AnnouncementPosted, discord.ChannelMention(channelID)), nil
}

func (rt *router) postOverview(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	channelID, err := rt.engine.PostOverview(ctx, req.guildID)
	if err != nil {
		return nil, err
	}
	return text(messages.OverviewPosted, discord.ChannelMention(channelID)), nil
}

func (rt *router) createButton(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	t, err := rt.engine.Create(ctx, tickets.CreateRequest{
		GuildID:  req.guildID,
		UserID:   req.member.UserID,
		Username: req.username,
		Button:   req.button,
	})
	if err != nil {
		return nil, err
	}
	return text(messages.TicketCreated, discord.ChannelMention(t.ChannelID)), nil
}

func (rt *router) joinButton(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	if _, err := rt.engine.Join(ctx, req.button.ChannelID, req.member.UserID); err != nil {
		return nil, err
	}
	return text(messages.JoinedTicket, discord.ChannelMention(req.button.ChannelID)), nil
}

func (rt *router) closeButton(_ context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	return &reply{
		content:    messages.CloseConfirm,
		components: tickets.CloseConfirmControls(req.channelID),
	}, nil
}

func (rt *router) confirmCloseButton(_ context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	if err := sameChannel(req); err != nil {
		return nil, err
	}
	rep := text(messages.TicketClosing)
	rep.then = rt.closeLater(req.channelID, req.member.UserID, messages.NoReason)
	return rep, nil
}

func (rt *router) cancelCloseButton(_ context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	if err := sameChannel(req); err != nil {
		return nil, err
	}
	return text(messages.CloseCancelled), nil
}

func (rt *router) decideCloseButton(ctx context.Context, req *interactionRequest, _ *entities.Ticket) (*reply, error) {
	if err := sameChannel(req); err != nil {
		return nil, err
	}
	cr, err := rt.engine.DecideCloseRequest(ctx, req.button, req.member.UserID)
	if err != nil {
		return nil, err
	}
	rt.engine.RetireCloseRequestPrompt(req.channelID, req.messageID)
	if req.button.Kind == customid.KindDenyClose {
		return text(messages.CloseRequestDenied), nil
	}
	return text(messages.CloseRequestGranted, cr.Delay), nil
}
