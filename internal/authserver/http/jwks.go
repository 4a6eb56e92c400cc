package http

import (
	"encoding/json"
	"net/http"

	"github.com/intermine/authserver/pkg/jwtx"
)

// JWKSHandler publishes the token signing key set.
type JWKSHandler struct {
	Signer *jwtx.Signer
}

// HandleJWKS handles GET /.well-known/jwks.json. Unlike the credential
// endpoints this response is public and safe to cache briefly.
func (h *JWKSHandler) HandleJWKS(w http.ResponseWriter, r *http.Request) {
	set := jwtx.JWKS{Keys: []jwtx.JWK{h.Signer.PublicJWK()}}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=300")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(set)
}
