package interfaces

import (
	"context"

	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/domain/types"
)

// Repository is the tenant ledger. Every value is encrypted before it reaches the store.
// Reads of absent records return an error wrapping ErrNotFound.
type Repository interface {
	PutOrganization(ctx context.Context, org *model.Organization) error
	GetOrganization(ctx context.Context, teamID types.TeamID) (*model.Organization, error)

	// GetAllOrganizations returns every organization with its admin token attached.
	// Organizations whose admin token is missing or unreadable are left out.
	GetAllOrganizations(ctx context.Context) ([]*model.OrganizationWithToken, error)

	PutUserToken(ctx context.Context, token *model.UserToken) error
	GetUserToken(ctx context.Context, teamID types.TeamID, userID types.UserID) (*model.UserToken, error)

	PutInstallCallback(ctx context.Context, cb *model.InstallCallback) error
	GetInstallCallback(ctx context.Context, triggerID types.TriggerID) (*model.InstallCallback, error)
	DeleteInstallCallback(ctx context.Context, triggerID types.TriggerID) error

	PutSummary(ctx context.Context, summary *model.Summary) error
	GetSummary(ctx context.Context, teamID types.TeamID) (*model.Summary, error)

	Close() error
}
