package http

import (
	"errors"
	"net/http"

	"github.com/intermine/authserver/internal/authserver/service"
	"github.com/intermine/authserver/pkg/httpx"
	"github.com/intermine/authserver/pkg/slogx"
)

// TokenHandler serves the OAuth2 token endpoint.
type TokenHandler struct {
	TokenService *service.TokenService
}

// HandleToken handles POST /oauth2/token. Client credentials are accepted
// via HTTP Basic auth (RFC 6749 §2.3.1) or as client_id/client_secret form
// fields; Basic wins when both are present.
func (h *TokenHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Malformed form body")
		return
	}

	req := service.TokenRequest{
		GrantType:    r.PostFormValue("grant_type"),
		ClientID:     r.PostFormValue("client_id"),
		ClientSecret: r.PostFormValue("client_secret"),
		Username:     r.PostFormValue("username"),
		Password:     r.PostFormValue("password"),
		Scope:        r.PostFormValue("scope"),
	}
	if id, secret, ok := r.BasicAuth(); ok {
		req.ClientID = id
		req.ClientSecret = secret
	}

	resp, err := h.TokenService.IssueToken(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidClient):
			w.Header().Set("WWW-Authenticate", `Basic realm="oauth2/token"`)
			httpx.WriteError(w, http.StatusUnauthorized,
				"invalid_client", "Client authentication failed")
		case errors.Is(err, service.ErrUnsupportedGrant):
			httpx.WriteError(w, http.StatusBadRequest,
				"unsupported_grant_type", "The grant type is not supported")
		case errors.Is(err, service.ErrUnauthorizedGrant):
			httpx.WriteError(w, http.StatusBadRequest,
				"unauthorized_client", "The client is not authorized for this grant type")
		case errors.Is(err, service.ErrInvalidUserCredentials):
			httpx.WriteError(w, http.StatusBadRequest,
				"invalid_grant", "Invalid resource owner credentials")
		default:
			log.Error("failed to issue token", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "Failed to issue token")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
