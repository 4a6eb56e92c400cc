// Package http wires the registry and token services onto a net/http
// ServeMux. Session handling and user-facing pages live in the external web
// layer; this surface is JSON only.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/intermine/authserver/internal/authserver/service"
	"github.com/intermine/authserver/internal/authserver/store"
	"github.com/intermine/authserver/pkg/httpx"
	"github.com/intermine/authserver/pkg/jwtx"
	"github.com/intermine/authserver/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	issuer       string
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store  store.Store
	signer *jwtx.Signer

	RegistryService *service.RegistryService
	TokenService    *service.TokenService
}

func NewRouter(
	issuer, buildVersion string,
	st store.Store,
	signer *jwtx.Signer,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		issuer:       issuer,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		signer:       signer,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerClients()
	r.registerOAuth2()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerClients() {
	h := &ClientsHandler{Registry: r.RegistryService}

	// Registration faces unauthenticated callers, so it rides the strict
	// profile; management operations sit behind the gateway and get more
	// headroom.
	strict := httpx.RateLimit(httpx.StrictLimit, httpx.IPKeyExtractor)
	moderate := httpx.RateLimit(httpx.ModerateLimit, httpx.IPKeyExtractor)

	r.Mux.Handle("POST /v1/clients", strict(http.HandlerFunc(h.HandleRegister)))
	r.Mux.Handle("GET /v1/clients", moderate(http.HandlerFunc(h.HandleList)))
	r.Mux.Handle("GET /v1/clients/{name}", moderate(http.HandlerFunc(h.HandleGet)))
	r.Mux.Handle("PUT /v1/clients/{name}/redirect-uri", moderate(http.HandlerFunc(h.HandleUpdateRedirectURI)))
	r.Mux.Handle("POST /v1/clients/{name}/verify", moderate(http.HandlerFunc(h.HandleVerify)))
	r.Mux.Handle("DELETE /v1/clients/{name}", moderate(http.HandlerFunc(h.HandleDelete)))
}

func (r *Router) registerOAuth2() {
	tokenHandler := &TokenHandler{TokenService: r.TokenService}
	jwksHandler := &JWKSHandler{Signer: r.signer}

	strict := httpx.RateLimit(httpx.StrictLimit, httpx.IPKeyExtractor)

	r.Mux.Handle("POST /oauth2/token", strict(http.HandlerFunc(tokenHandler.HandleToken)))
	r.Mux.HandleFunc("GET /.well-known/jwks.json", jwksHandler.HandleJWKS)
}

func (r *Router) registerSystem() {
	r.Mux.HandleFunc("GET /livez", r.handleLivez)
	r.Mux.HandleFunc("GET /readyz", r.handleReadyz)
	r.Mux.Handle("GET /metrics", promhttp.Handler())
}
