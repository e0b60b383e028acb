package discord

// Names of outbound effects, used as the effect label of BestEffortFailures.
const (
	EffectFetchChannel     = "fetch_channel"
	EffectFetchMessage     = "fetch_message"
	EffectFetchHistory     = "fetch_history"
	EffectSendMessage      = "send_message"
	EffectEditMessage      = "edit_message"
	EffectDirectMessage    = "direct_message"
	EffectSetPermission    = "set_permission"
	EffectDeletePermission = "delete_permission"
	EffectRenameChannel    = "rename_channel"
	EffectDeleteChannel    = "delete_channel"
)
