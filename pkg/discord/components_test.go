package discord

import (
	"testing"

	"github.com/Jacobbrewer1/discordgo"
	"github.com/stretchr/testify/require"
)

func TestCustomIDs(t *testing.T) {
	local := Components(Row(
		discordgo.Button{CustomID: "create:support"},
		discordgo.Button{URL: "https://example.com"},
		discordgo.Button{CustomID: "create:unban"},
	))
	require.Equal(t, []string{"create:support", "create:unban"}, CustomIDs(local))

	decoded := []discordgo.MessageComponent{
		&discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			&discordgo.Button{CustomID: "close_ticket"},
		}},
	}
	require.Equal(t, []string{"close_ticket"}, CustomIDs(decoded))
	require.Empty(t, CustomIDs(nil))
}

func TestUserTag(t *testing.T) {
	require.Equal(t, "unknown", UserTag(nil))
	require.Equal(t, "jacob", UserTag(&discordgo.User{Username: "jacob", Discriminator: "0"}))
	require.Equal(t, "jacob#1234", UserTag(&discordgo.User{Username: "jacob", Discriminator: "1234"}))
}

func TestJumpURL(t *testing.T) {
	require.Equal(t, "https://discord.com/channels/1/2", JumpURL("1", "2", ""))
	require.Equal(t, "https://discord.com/channels/1/2/3", JumpURL("1", "2", "3"))
}

func TestButtonStyle(t *testing.T) {
	require.Equal(t, discordgo.SecondaryButton, ButtonStyle("Secondary"))
	require.Equal(t, discordgo.SuccessButton, ButtonStyle("success"))
	require.Equal(t, discordgo.DangerButton, ButtonStyle("danger"))
	require.Equal(t, discordgo.PrimaryButton, ButtonStyle(""))
	require.Equal(t, discordgo.PrimaryButton, ButtonStyle("rainbow"))
}
