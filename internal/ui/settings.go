package ui

import "fmt"

func QuorumStatus(quorum int) string {
	if quorum < 2 {
		return "Ban voting is disabled. " + MsgSettingsUsage
	}
	return fmt.Sprintf("Ban voting is enabled, quorum is %d.", quorum)
}

func QuorumUpdated(quorum int) string {
	if quorum < 2 {
		return "Ban voting is now disabled."
	}
	return fmt.Sprintf("Ban voting quorum set to %d.", quorum)
}
