package ledger

import (
	"strings"

	"github.com/secmon-lab/bambooslack/pkg/domain/types"
)

// Record kind prefixes. Keys are prefix + ":" + natural key.
const (
	teamPrefix     = "TEAM"
	userPrefix     = "USER"
	callbackPrefix = "CALLBACK"
	summaryPrefix  = "WIO"

	separator = ":"
)

func teamKey(teamID types.TeamID) string {
	return teamPrefix + separator + teamID.String()
}

func userKey(teamID types.TeamID, userID types.UserID) string {
	return userPrefix + separator + userID.String() + separator + teamID.String()
}

func callbackKey(triggerID types.TriggerID) string {
	return callbackPrefix + separator + triggerID.String()
}

func summaryKey(teamID types.TeamID) string {
	return summaryPrefix + separator + teamID.String()
}

func teamIDFromKey(key string) types.TeamID {
	return types.TeamID(strings.TrimPrefix(key, teamPrefix+separator))
}
