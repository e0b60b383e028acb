package main

import (
	"log/slog"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/Jacobbrewer1/supportbot/pkg/logging"
)

// interactionHandler answers every interaction privately. The response is deferred first so that
// slow platform calls do not run into the response deadline.
func interactionHandler(a *App, rt *router) func(s *discordgo.Session, i *discordgo.InteractionCreate) {
	return func(_ *discordgo.Session, i *discordgo.InteractionCreate) {
		req, ok := newRequest(i)
		if !ok {
			return
		}
		a.Log().Debug("Handling interaction", slog.String(logging.KeyCommand, req.name))

		if err := deferEphemeral(a, i); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
			return
		}

		rep := rt.dispatch(a.ctx, req)
		if err := editResponse(a, i, rep); err != nil {
			a.Log().Error("Error responding to interaction", slog.String(logging.KeyError, err.Error()))
		}
		if rep.then != nil {
			rep.then(a.ctx)
		}
	}
}

func deferEphemeral(a IApp, i *discordgo.InteractionCreate) error {
	return a.Session().InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Flags: discordgo.MessageFlagsEphemeral,
		},
	})
}

func editResponse(a IApp, i *discordgo.InteractionCreate, rep *reply) error {
	edit := &discordgo.WebhookEdit{
		Content: &rep.content,
	}
	if len(rep.components) > 0 {
		edit.Components = &rep.components
	}
	_, err := a.Session().InteractionResponseEdit(i.Interaction, edit)
	return err
}
