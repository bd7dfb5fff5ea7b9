package ui

const (
	MsgGroupsOnly           = "Voting works only in groups."
	MsgNeedAdminRights      = "I need admin rights with the permission to ban members to run a vote."
	MsgReplyToSomeone       = "Reply to someone's message to start a vote."
	MsgCantVoteAgainstMe    = "I can't vote against myself."
	MsgCantVoteAgainstAdmin = "I can't run a vote against an admin."
	MsgVotingAlreadyStarted = "Voting against this message has already started."
	MsgVotingExpired        = "This voting has expired."
	MsgAlreadyVoted         = "You have already voted."
	MsgMustBeMember         = "Only chat members can vote."
	MsgVoteAccepted         = "Your vote has been counted."
	MsgUnknownAction        = "Unknown action."
	MsgVotingCompleted      = "Voting completed."

	MsgCancelledDisabled = "Voting cancelled: the feature has been disabled in this chat."
	MsgCancelledNotAdmin = "Voting cancelled: I no longer have the permission to ban members."
	MsgCancelledAdmin    = "Voting cancelled: can't vote against an admin."

	MsgSettingsAdminsOnly = "Only chat admins can change voting settings."
	MsgSettingsUsage      = "Usage: /votebanquorum <number>. 0 or 1 disables voting."
)
