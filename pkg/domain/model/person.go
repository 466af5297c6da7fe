package model

import "github.com/secmon-lab/bambooslack/pkg/domain/types"

// Person is a Slack member matched to a BambooHR employee by email
type Person struct {
	SlackID          types.UserID
	Email            string
	Name             string
	RealName         string
	StatusText       string
	StatusEmoji      string
	StatusExpiration int64
	EmployeeID       string
	TZOffset         int // seconds east of UTC
	IsPrivileged     bool
}
