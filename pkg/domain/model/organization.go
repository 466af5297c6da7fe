package model

import "github.com/secmon-lab/bambooslack/pkg/domain/types"

// Organization binds a Slack workspace to a BambooHR company. One record per team.
type Organization struct {
	TeamID          types.TeamID          `json:"-"`
	DirectorySecret types.DirectorySecret `json:"bamboohr_secret" masq:"secret"`
	DirectoryOrg    types.DirectoryOrg    `json:"bamboohr_org"`
	AdminUserID     types.UserID          `json:"admin_user"`
}

// Credential returns the BambooHR credential of the organization
func (o *Organization) Credential() DirectoryCredential {
	return DirectoryCredential{
		Org:    o.DirectoryOrg,
		Secret: o.DirectorySecret,
	}
}

// IsAdmin reports whether userID installed the integration
func (o *Organization) IsAdmin(userID types.UserID) bool {
	return o.AdminUserID == userID
}

// OrganizationWithToken is an Organization together with its admin's current token
type OrganizationWithToken struct {
	*Organization
	AdminToken *UserToken
}

// DirectoryCredential authenticates BambooHR API calls
type DirectoryCredential struct {
	Org    types.DirectoryOrg
	Secret types.DirectorySecret `masq:"secret"`
}
