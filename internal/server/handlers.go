package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/inboxlink/inboxlink/internal/account"
	"github.com/inboxlink/inboxlink/internal/flow"
	"github.com/inboxlink/inboxlink/internal/gmail"
	"github.com/inboxlink/inboxlink/internal/instrumentation"
	"github.com/inboxlink/inboxlink/internal/logging"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type initiateResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
}

type callbackResponse struct {
	Status         string `json:"status"`
	MailboxAddress string `json:"mailboxAddress"`
	AccountID      string `json:"accountId"`
}

type messagesResponse struct {
	Messages      []*gmail.Message `json:"messages"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
}

func (s *Server) handleInitiate(w http.ResponseWriter, r *http.Request) {
	authURL, err := s.linker.Initiate(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, initiateResponse{AuthorizationURL: authURL})
}

func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	acct, err := s.linker.HandleCallback(r.Context(), q.Get("state"), q.Get("code"))
	if err != nil {
		s.metrics.RecordLinkFlow(r.Context(), instrumentation.ResultFailure)
		s.writeFlowError(w, r, err)
		return
	}

	s.metrics.RecordLinkFlow(r.Context(), instrumentation.ResultSuccess)
	writeJSON(w, http.StatusOK, callbackResponse{
		Status:         "linked",
		MailboxAddress: acct.EmailAddress,
		AccountID:      acct.ID,
	})
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountID")

	acct, err := s.guard.FreshByID(r.Context(), accountID)
	if err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	if acct.UserID != userIDFrom(r.Context()) {
		// Do not reveal whether the account exists.
		writeError(w, http.StatusNotFound, "account_not_found", "account not found")
		return
	}

	q := r.URL.Query()
	var maxResults int64
	if raw := q.Get("maxResults"); raw != "" {
		maxResults, err = strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_max_results", "maxResults must be an integer")
			return
		}
	}

	client, err := s.mailClient(r.Context(), acct.AccessToken)
	if err != nil {
		s.logger.Error("failed to build mail client", logging.AccountID(accountID), logging.Err(err))
		writeError(w, http.StatusBadGateway, "mailbox_unavailable", "mailbox provider unavailable")
		return
	}

	start := time.Now()
	page, err := client.ListMessages(r.Context(), q.Get("q"), maxResults, q.Get("pageToken"))
	if err != nil {
		s.metrics.RecordMailOperation(r.Context(), "list", instrumentation.StatusError, acct.EmailAddress, time.Since(start))
		s.logger.Error("message listing failed", logging.AccountID(accountID), logging.Err(err))
		writeError(w, http.StatusBadGateway, "mailbox_unavailable", "mailbox provider unavailable")
		return
	}

	messages, err := client.FetchBatch(r.Context(), page.IDs)
	if err != nil {
		s.metrics.RecordMailOperation(r.Context(), "fetch_batch", instrumentation.StatusError, acct.EmailAddress, time.Since(start))
		s.logger.Error("batch fetch failed", logging.AccountID(accountID), logging.Err(err))
		writeError(w, http.StatusBadGateway, "mailbox_unavailable", "mailbox provider unavailable")
		return
	}
	s.metrics.RecordMailOperation(r.Context(), "fetch_batch", instrumentation.StatusSuccess, acct.EmailAddress, time.Since(start))

	writeJSON(w, http.StatusOK, messagesResponse{
		Messages:      messages,
		NextPageToken: page.NextPageToken,
	})
}

func (s *Server) handleUnlink(w http.ResponseWriter, r *http.Request) {
	accountID := r.PathValue("accountID")

	acct, err := s.guard.FreshByID(r.Context(), accountID)
	switch {
	case err == nil:
		if acct.UserID != userIDFrom(r.Context()) {
			writeError(w, http.StatusNotFound, "account_not_found", "account not found")
			return
		}
	case errors.Is(err, flow.ErrReauthorizationRequired), errors.Is(err, flow.ErrRefreshFailed):
		// Unlinking dead credentials is exactly the recovery path; proceed.
	default:
		s.writeFlowError(w, r, err)
		return
	}

	if err := s.linker.Unlink(r.Context(), accountID); err != nil {
		s.writeFlowError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeFlowError maps flow errors onto stable HTTP responses. Wrapped
// provider detail stays in the logs; clients see the generic message only.
func (s *Server) writeFlowError(w http.ResponseWriter, r *http.Request, err error) {
	s.logger.Warn("request failed",
		"path", r.URL.Path,
		logging.Err(err),
	)

	switch {
	case errors.Is(err, flow.ErrMissingState):
		writeError(w, http.StatusBadRequest, "missing_state", "state parameter is required")
	case errors.Is(err, flow.ErrInvalidState):
		writeError(w, http.StatusBadRequest, "invalid_state", "state is invalid or expired, restart the flow")
	case errors.Is(err, flow.ErrExchangeFailed):
		writeError(w, http.StatusBadGateway, "exchange_failed", "authorization code could not be exchanged")
	case errors.Is(err, flow.ErrProfileFetch):
		writeError(w, http.StatusBadGateway, "profile_fetch_failed", "mailbox identity could not be confirmed")
	case errors.Is(err, flow.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "user_not_found", "user not found")
	case errors.Is(err, flow.ErrReauthorizationRequired):
		writeError(w, http.StatusUnauthorized, "reauthorization_required", "account must be linked again")
	case errors.Is(err, flow.ErrRefreshFailed):
		writeError(w, http.StatusUnauthorized, "refresh_failed", "credentials could not be refreshed, link the account again")
	case errors.Is(err, account.ErrNotFound):
		writeError(w, http.StatusNotFound, "account_not_found", "account not found")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
