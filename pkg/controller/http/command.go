package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/bambooslack/pkg/domain/types"
	"github.com/secmon-lab/bambooslack/pkg/usecase"
	"github.com/secmon-lab/bambooslack/pkg/utils/errutil"
	"github.com/secmon-lab/bambooslack/pkg/utils/logging"
	"github.com/secmon-lab/bambooslack/pkg/utils/safe"
)

const (
	msgInvalidIdentity    = "Invalid payload: team_id and user_id must be nonempty alphanumeric strings."
	msgInvalidTriggerID   = "Invalid payload: trigger_id must be nonempty alphanumeric strings."
	msgInvalidResponseURL = "Invalid response URL."
)

// parseSlashCommand reads the form payload. The returned string is the message for a rejected payload.
func parseSlashCommand(r *http.Request) (*usecase.SlashCommand, string) {
	cmd := &usecase.SlashCommand{
		TeamID:      types.TeamID(r.PostFormValue("team_id")),
		UserID:      types.UserID(r.PostFormValue("user_id")),
		TriggerID:   types.TriggerID(r.PostFormValue("trigger_id")),
		ResponseURL: types.ResponseURL(r.PostFormValue("response_url")),
		Text:        r.PostFormValue("text"),
	}

	if cmd.TeamID.Validate() != nil || cmd.UserID.Validate() != nil {
		return nil, msgInvalidIdentity
	}
	if cmd.TriggerID.Validate() != nil {
		return nil, msgInvalidTriggerID
	}
	if cmd.ResponseURL.Validate() != nil {
		return nil, msgInvalidResponseURL
	}
	return cmd, ""
}

func commandHandler(uc CommandUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := r.ParseForm(); err != nil {
			errutil.HandleHTTP(ctx, w, goerr.Wrap(usecase.ErrValidationFailure, "failed to parse command form", goerr.V("error", err)), http.StatusBadRequest)
			return
		}

		cmd, rejection := parseSlashCommand(r)
		if cmd == nil {
			http.Error(w, rejection, http.StatusBadRequest)
			return
		}

		reply := uc.HandleCommand(ctx, cmd)
		switch reply.Format {
		case usecase.ReplyEmpty:
			w.WriteHeader(http.StatusOK)

		case usecase.ReplyPlain:
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			safe.Write(ctx, w, []byte(reply.Text))

		case usecase.ReplyJSON:
			data, err := json.Marshal(map[string]string{"text": reply.Text})
			if err != nil {
				errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to marshal command response"), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			safe.Write(ctx, w, data)
		}
	}
}

// interactiveHandler acknowledges interactive payloads. The app sends only link buttons, so there is nothing to act on.
func interactiveHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	body, err := io.ReadAll(r.Body)
	if err != nil {
		errutil.HandleHTTP(ctx, w, goerr.Wrap(err, "failed to read request body"), http.StatusBadRequest)
		return
	}
	logging.From(ctx).Debug("interactive request", "body", string(body))
	w.WriteHeader(http.StatusOK)
}

func redirectHandler(uc RedirectUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		q := r.URL.Query()

		location, err := uc.HandleRedirect(ctx, &usecase.RedirectRequest{
			Code:  q.Get("code"),
			State: q.Get("state"),
			Error: q.Get("error"),
		})
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, usecase.ErrValidationFailure) {
				status = http.StatusBadRequest
			}
			errutil.HandleHTTP(ctx, w, err, status)
			return
		}

		http.Redirect(w, r, location, http.StatusTemporaryRedirect)
	}
}
