package model

import (
	"time"

	"github.com/secmon-lab/bambooslack/pkg/domain/types"
)

// InstallCallback holds an install command that waits for the user to grant more scopes.
// It is consumed by the OAuth redirect carrying TriggerID as state.
type InstallCallback struct {
	TriggerID       types.TriggerID       `json:"-"`
	ResponseURL     types.ResponseURL     `json:"response_url"`
	AdminUserID     types.UserID          `json:"admin_user"`
	DirectoryOrg    types.DirectoryOrg    `json:"bamboohr_org"`
	DirectorySecret types.DirectorySecret `json:"bamboohr_secret" masq:"secret"`
	CreatedAt       int64                 `json:"time"`
}

// Created returns CreatedAt as time
func (c *InstallCallback) Created() time.Time {
	return time.Unix(c.CreatedAt, 0)
}
