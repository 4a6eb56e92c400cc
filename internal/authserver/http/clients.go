package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/intermine/authserver/internal/authserver/domain"
	"github.com/intermine/authserver/internal/authserver/service"
	"github.com/intermine/authserver/pkg/httpx"
	"github.com/intermine/authserver/pkg/slogx"
)

// ClientsHandler handles the client registry management endpoints.
type ClientsHandler struct {
	Registry *service.RegistryService
}

// RegisterClientRequest is the POST /v1/clients body. RegisteredBy is filled
// in by the access-control layer fronting this service from the
// authenticated session.
type RegisterClientRequest struct {
	Name         string   `json:"name"`
	WebsiteURL   string   `json:"website_url"`
	RedirectURIs []string `json:"redirect_uris"`
	ClientType   string   `json:"client_type"`
	RegisteredBy string   `json:"registered_by"`
}

// ClientInfo is the wire form of a client record. The secret hash never
// leaves the service.
type ClientInfo struct {
	Name            string   `json:"name"`
	WebsiteURL      string   `json:"website_url"`
	ClientType      string   `json:"client_type,omitempty"`
	ClientID        string   `json:"client_id,omitempty"`
	RedirectURIs    []string `json:"redirect_uris"`
	Scopes          []string `json:"scopes"`
	GrantTypes      []string `json:"grant_types"`
	ResourceIDs     []string `json:"resource_ids,omitempty"`
	AccessTokenTTL  int      `json:"access_token_ttl"`
	RefreshTokenTTL int      `json:"refresh_token_ttl"`
	RegisteredBy    string   `json:"registered_by"`
	Verified        bool     `json:"verified"`
	CreatedAt       string   `json:"created_at"`
}

// VerifyClientResponse carries the one-time plaintext secret. It is shown
// exactly once; afterwards only the hash exists.
type VerifyClientResponse struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// UpdateRedirectURIRequest carries the bracket-wrapped redirect URI literal
// ("[https://app.example/cb]") as upstream callers serialize it.
type UpdateRedirectURIRequest struct {
	RedirectURI string `json:"redirect_uri"`
}

func clientInfo(c domain.Client) ClientInfo {
	return ClientInfo{
		Name:            c.Name,
		WebsiteURL:      c.WebsiteURL,
		ClientType:      c.ClientType,
		ClientID:        c.ClientID,
		RedirectURIs:    c.RedirectURIs,
		Scopes:          c.Scopes,
		GrantTypes:      c.GrantTypes,
		ResourceIDs:     c.ResourceIDs,
		AccessTokenTTL:  c.AccessTokenTTL,
		RefreshTokenTTL: c.RefreshTokenTTL,
		RegisteredBy:    c.RegisteredBy,
		Verified:        c.Verified,
		CreatedAt:       c.CreatedAt.Format(time.RFC3339),
	}
}

// HandleRegister handles POST /v1/clients.
func (h *ClientsHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req RegisterClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Invalid JSON in request body")
		return
	}

	client, err := h.Registry.Register(ctx, service.RegisterClientRequest{
		Name:         req.Name,
		WebsiteURL:   req.WebsiteURL,
		RedirectURIs: req.RedirectURIs,
		ClientType:   req.ClientType,
		RegisteredBy: req.RegisteredBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRegistration):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, service.ErrClientExists):
			httpx.WriteError(w, http.StatusConflict,
				"client_exists", "A client with that name or website URL already exists")
		default:
			log.Error("failed to register client", "error", err)
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "Failed to register client")
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, clientInfo(client))
}

// HandleList handles GET /v1/clients?owner=<username> and the point lookup
// GET /v1/clients?website=<url>.
func (h *ClientsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	if website := r.URL.Query().Get("website"); website != "" {
		client, found, err := h.Registry.LookupByWebsiteURL(ctx, website)
		if err != nil {
			log.Error("failed to look up client", "error", err, "website_url", website)
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "Failed to look up client")
			return
		}
		if !found {
			httpx.WriteError(w, http.StatusNotFound, "client_not_found", "Client not found")
			return
		}
		httpx.WriteJSON(w, http.StatusOK, clientInfo(client))
		return
	}

	owner := r.URL.Query().Get("owner")
	if owner == "" {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Either the owner or website query parameter is required")
		return
	}

	clients, err := h.Registry.ListByOwner(ctx, owner)
	if err != nil {
		log.Error("failed to list clients", "error", err, "owner", owner)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Failed to list clients")
		return
	}

	infos := make([]ClientInfo, len(clients))
	for i, c := range clients {
		infos[i] = clientInfo(c)
	}

	httpx.WriteJSON(w, http.StatusOK, map[string][]ClientInfo{"clients": infos})
}

// HandleGet handles GET /v1/clients/{name}.
func (h *ClientsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	name := r.PathValue("name")

	client, found, err := h.Registry.LookupByName(ctx, name)
	if err != nil {
		log.Error("failed to look up client", "error", err, "name", name)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Failed to look up client")
		return
	}
	if !found {
		httpx.WriteError(w, http.StatusNotFound, "client_not_found", "Client not found")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, clientInfo(client))
}

// HandleUpdateRedirectURI handles PUT /v1/clients/{name}/redirect-uri.
func (h *ClientsHandler) HandleUpdateRedirectURI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	name := r.PathValue("name")

	var req UpdateRedirectURIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest,
			"invalid_request", "Invalid JSON in request body")
		return
	}

	err := h.Registry.UpdateRedirectURI(ctx, name, req.RedirectURI)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMalformedRedirectURI):
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, service.ErrClientNotFound):
			httpx.WriteError(w, http.StatusNotFound, "client_not_found", "Client not found")
		default:
			log.Error("failed to update redirect uri", "error", err, "name", name)
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "Failed to update redirect URI")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleVerify handles POST /v1/clients/{name}/verify. The response carries
// the plaintext secret exactly once.
func (h *ClientsHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	name := r.PathValue("name")

	secret, err := h.Registry.VerifyClient(ctx, name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrClientNotFound):
			httpx.WriteError(w, http.StatusNotFound, "client_not_found", "Client not found")
		case errors.Is(err, service.ErrAlreadyVerified):
			httpx.WriteError(w, http.StatusConflict,
				"already_verified", "Client is already verified; credentials are not rotated")
		default:
			log.Error("failed to verify client", "error", err, "name", name)
			httpx.WriteError(w, http.StatusInternalServerError,
				"server_error", "Failed to verify client")
		}
		return
	}

	client, found, err := h.Registry.LookupByName(ctx, name)
	if err != nil || !found {
		log.Error("verified client vanished during lookup", "error", err, "name", name)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Failed to verify client")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, VerifyClientResponse{
		ClientID:     client.ClientID,
		ClientSecret: secret,
	})
}

// HandleDelete handles DELETE /v1/clients/{name}. Deleting an unknown name
// succeeds; callers rely on the permissive semantic.
func (h *ClientsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	name := r.PathValue("name")

	if err := h.Registry.DeleteClient(ctx, name); err != nil {
		log.Error("failed to delete client", "error", err, "name", name)
		httpx.WriteError(w, http.StatusInternalServerError,
			"server_error", "Failed to delete client")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
