package gateway

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/markb/plcgate/internal/audit"
	"github.com/markb/plcgate/internal/log"
	"github.com/markb/plcgate/internal/plc"
)

// handleCommand authorizes, executes, and audits one PLC command. Exactly one
// audit event is recorded per authorized invocation; unauthorized requests are
// rejected before any audit write.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		s.writeError(w, http.StatusUnauthorized, "Unauthorized", "")
		return
	}

	// The body is parsed permissively: a malformed payload yields an empty
	// command, which is still dispatched and audited under the caller's name.
	var cmd plc.Command
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		cmd = plc.Command{}
	}

	event := audit.Event{
		ID:        uuid.NewString(),
		UserID:    identity.UserID,
		Email:     identity.Email,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		SourceIP:  sourceIP(r),
		UserAgent: r.UserAgent(),
		Command:   &cmd,
	}

	// Secrets are fetched on every invocation so rotations take effect
	// immediately.
	params, err := s.secrets.Fetch(r.Context())
	if err != nil {
		log.Error("secret fetch failed", "error", err.Error())
		s.failCommand(r.Context(), w, event, err)
		return
	}

	outcome, err := s.action.Execute(r.Context(), params, plc.Caller{
		UserID: identity.UserID,
		Email:  identity.Email,
	}, cmd)
	if err != nil {
		log.Error("command execution failed", "error", err.Error(), "user_id", identity.UserID)
		s.failCommand(r.Context(), w, event, err)
		return
	}

	event.Action = audit.ActionCommand
	event.Result = outcome.Status
	s.recordAudit(r.Context(), event)

	json.NewEncoder(w).Encode(outcome)
}

// failCommand records a COMMAND_ERROR event and returns the generic 500 body.
// The error detail stays in the audit trail and the log, never in the response.
func (s *Server) failCommand(ctx context.Context, w http.ResponseWriter, event audit.Event, err error) {
	event.Action = audit.ActionCommandError
	event.Error = err.Error()
	s.recordAudit(ctx, event)

	s.writeError(w, http.StatusInternalServerError, "internal_error",
		"An error occurred while processing your request")
}

// recordAudit writes the event best-effort. A failing sink must never change
// the command response.
func (s *Server) recordAudit(ctx context.Context, event audit.Event) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Write(ctx, event); err != nil {
		log.Warn("audit write failed", "action", event.Action, "error", err.Error())
	}
}

func sourceIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
