package ledger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/interfaces"
	"github.com/secmon-lab/bambooslack/pkg/domain/model"
	"github.com/secmon-lab/bambooslack/pkg/domain/types"
	"github.com/secmon-lab/bambooslack/pkg/utils/crypt"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
)

// Ledger stores tenant records in a KVStore, encrypting every value.
// It holds no cache; every call goes to the store.
type Ledger struct {
	store  interfaces.KVStore
	cipher *crypt.Cipher
}

var _ interfaces.Repository = &Ledger{}

func New(store interfaces.KVStore, cipher *crypt.Cipher) *Ledger {
	return &Ledger{
		store:  store,
		cipher: cipher,
	}
}

func (l *Ledger) put(ctx context.Context, key string, plaintext []byte) error {
	blob, err := l.cipher.Encrypt(plaintext)
	if err != nil {
		return goerr.Wrap(err, "failed to encrypt record", goerr.V("key", key))
	}
	if err := l.store.Put(ctx, key, []byte(blob)); err != nil {
		return goerr.Wrap(err, "failed to store record", goerr.V("key", key))
	}
	return nil
}

func (l *Ledger) open(key string, blob []byte) ([]byte, error) {
	plaintext, err := l.cipher.Decrypt(string(blob))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to decrypt record", goerr.V("key", key))
	}
	return plaintext, nil
}

func (l *Ledger) get(ctx context.Context, key string) ([]byte, error) {
	blob, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, err
		}
		return nil, goerr.Wrap(err, "failed to load record", goerr.V("key", key))
	}
	return l.open(key, blob)
}

func (l *Ledger) putJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal record", goerr.V("key", key))
	}
	return l.put(ctx, key, raw)
}

func (l *Ledger) getJSON(ctx context.Context, key string, v any) error {
	raw, err := l.get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return goerr.Wrap(err, "failed to unmarshal record", goerr.V("key", key))
	}
	return nil
}

func (l *Ledger) PutOrganization(ctx context.Context, org *model.Organization) error {
	return l.putJSON(ctx, teamKey(org.TeamID), org)
}

func (l *Ledger) GetOrganization(ctx context.Context, teamID types.TeamID) (*model.Organization, error) {
	var org model.Organization
	if err := l.getJSON(ctx, teamKey(teamID), &org); err != nil {
		return nil, err
	}
	org.TeamID = teamID
	return &org, nil
}

func (l *Ledger) GetAllOrganizations(ctx context.Context) ([]*model.OrganizationWithToken, error) {
	var orgs []*model.Organization

	err := l.store.Scan(ctx, teamPrefix+separator, func(key string, value []byte) error {
		teamID := teamIDFromKey(key)
		raw, err := l.open(key, value)
		if err != nil {
			logging.From(ctx).Warn("skip unreadable organization", "team_id", teamID, "error", err)
			return nil
		}

		var org model.Organization
		if err := json.Unmarshal(raw, &org); err != nil {
			logging.From(ctx).Warn("skip malformed organization", "team_id", teamID, "error", err)
			return nil
		}
		org.TeamID = teamID
		orgs = append(orgs, &org)
		return nil
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan organizations")
	}

	result := make([]*model.OrganizationWithToken, 0, len(orgs))
	for _, org := range orgs {
		token, err := l.GetUserToken(ctx, org.TeamID, org.AdminUserID)
		if err != nil {
			if !errors.Is(err, interfaces.ErrNotFound) {
				logging.From(ctx).Warn("skip organization with unreadable admin token",
					"team_id", org.TeamID, "error", err)
			}
			continue
		}
		result = append(result, &model.OrganizationWithToken{
			Organization: org,
			AdminToken:   token,
		})
	}

	return result, nil
}

func (l *Ledger) PutUserToken(ctx context.Context, token *model.UserToken) error {
	return l.putJSON(ctx, userKey(token.TeamID, token.UserID), token)
}

func (l *Ledger) GetUserToken(ctx context.Context, teamID types.TeamID, userID types.UserID) (*model.UserToken, error) {
	var token model.UserToken
	if err := l.getJSON(ctx, userKey(teamID, userID), &token); err != nil {
		return nil, err
	}
	// The key is authoritative for the owner of the token
	token.TeamID = teamID
	token.UserID = userID
	return &token, nil
}

func (l *Ledger) PutInstallCallback(ctx context.Context, cb *model.InstallCallback) error {
	return l.putJSON(ctx, callbackKey(cb.TriggerID), cb)
}

func (l *Ledger) GetInstallCallback(ctx context.Context, triggerID types.TriggerID) (*model.InstallCallback, error) {
	var cb model.InstallCallback
	if err := l.getJSON(ctx, callbackKey(triggerID), &cb); err != nil {
		return nil, err
	}
	cb.TriggerID = triggerID
	return &cb, nil
}

func (l *Ledger) DeleteInstallCallback(ctx context.Context, triggerID types.TriggerID) error {
	if err := l.store.Delete(ctx, callbackKey(triggerID)); err != nil {
		return goerr.Wrap(err, "failed to delete install callback", goerr.V("trigger_id", triggerID))
	}
	return nil
}

func (l *Ledger) PutSummary(ctx context.Context, summary *model.Summary) error {
	return l.put(ctx, summaryKey(summary.TeamID), []byte(summary.Text))
}

func (l *Ledger) GetSummary(ctx context.Context, teamID types.TeamID) (*model.Summary, error) {
	raw, err := l.get(ctx, summaryKey(teamID))
	if err != nil {
		return nil, err
	}
	return &model.Summary{TeamID: teamID, Text: string(raw)}, nil
}

func (l *Ledger) Close() error {
	return l.store.Close()
}
