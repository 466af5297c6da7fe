package model

import (
	"fmt"
	"strings"

	"github.com/secmon-lab/bambooslack/pkg/domain/types"
)

const (
	EmptySummaryText   = "Everybody is on board."
	MissingSummaryText = "Nothing found."
)

// Summary is the last reconciliation result of a team, served by the slash command
type Summary struct {
	TeamID types.TeamID
	Text   string
}

// SummaryLine renders one person with an active status
func SummaryLine(p *Person, profile StatusProfile) string {
	return fmt.Sprintf("<@%s> (%s) %s %s", p.SlackID, p.RealName, profile.Text, profile.Emoji)
}

// RenderSummary joins lines, or returns EmptySummaryText when there is none
func RenderSummary(lines []string) string {
	if len(lines) == 0 {
		return EmptySummaryText
	}
	return strings.Join(lines, "\n")
}
