package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/intermine/authserver/internal/authserver/domain"
	"github.com/intermine/authserver/internal/authserver/service"
	"github.com/intermine/authserver/internal/authserver/store/drivers/memory"
	"github.com/intermine/authserver/pkg/cryptox"
	"github.com/intermine/authserver/pkg/idx"
	"github.com/intermine/authserver/pkg/jwtx"
	"github.com/intermine/authserver/pkg/slogx"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "authserver-http-test-pepper")
	cryptox.SetPepperPath(pepperPath)
	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

func newTestRouter(t *testing.T) (*Router, *memory.Store) {
	t.Helper()

	st := memory.NewStore()

	signer, err := jwtx.NewSigner()
	require.NoError(t, err)

	logger := slogx.New(slogx.Config{
		Service: "authserver-test",
		Level:   "error",
		Format:  "text",
	})

	r := NewRouter("https://auth.intermine.test", "test", st, signer, logger)
	r.RegistryService = &service.RegistryService{Store: st}
	r.TokenService = &service.TokenService{
		Registry: r.RegistryService,
		Store:    st,
		Signer:   signer,
		Issuer:   "https://auth.intermine.test",
	}
	r.ApplyRoutes()
	return r, st
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func registerBody(name string) RegisterClientRequest {
	return RegisterClientRequest{
		Name:         name,
		WebsiteURL:   "https://" + name + ".example",
		RedirectURIs: []string{"https://" + name + ".example/callback"},
		ClientType:   "confidential",
		RegisteredBy: "alice",
	}
}

func TestClientRegistrationEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/clients", registerBody("flymine"))
	require.Equal(t, http.StatusCreated, rec.Code)

	var info ClientInfo
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
	require.Equal(t, "flymine", info.Name)
	require.False(t, info.Verified)
	require.Empty(t, info.ClientID)
	require.Equal(t, domain.DefaultScopes, info.Scopes)
	require.Equal(t, domain.DefaultAccessTokenTTL, info.AccessTokenTTL)

	t.Run("duplicate name conflicts", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/clients", registerBody("flymine"))
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/clients",
			RegisterClientRequest{Name: "incomplete"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/clients",
			strings.NewReader("{not json"))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestClientLookupEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/clients", registerBody("humanmine"))
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("get by name", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/clients/humanmine", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var info ClientInfo
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
		require.Equal(t, "https://humanmine.example", info.WebsiteURL)
	})

	t.Run("unknown name is 404", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/clients/nope", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list by owner", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/clients?owner=alice", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string][]ClientInfo
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Len(t, body["clients"], 1)
	})

	t.Run("lookup by website url", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet,
			"/v1/clients?website="+url.QueryEscape("https://humanmine.example"), nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var info ClientInfo
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
		require.Equal(t, "humanmine", info.Name)
	})

	t.Run("unknown website url is 404", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet,
			"/v1/clients?website="+url.QueryEscape("https://nope.example"), nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("list without owner is 400", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/v1/clients", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestClientVerifyEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/clients", registerBody("beanmine"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/clients/beanmine/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var creds VerifyClientResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&creds))
	require.Regexp(t, `^[0-9a-f]{40}\.apps\.intermine\.com$`, creds.ClientID)
	require.Regexp(t, `^[0-9a-f]{40}$`, creds.ClientSecret)

	t.Run("second verify conflicts", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/clients/beanmine/verify", nil)
		require.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown client is 404", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPost, "/v1/clients/nope/verify", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestRedirectURIEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/clients", registerBody("ratmine"))
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("accepts bracketed literal", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPut, "/v1/clients/ratmine/redirect-uri",
			UpdateRedirectURIRequest{RedirectURI: "[https://ratmine.example/new-callback]"})
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doJSON(t, r, http.MethodGet, "/v1/clients/ratmine", nil)
		var info ClientInfo
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&info))
		require.Equal(t, []string{"https://ratmine.example/new-callback"}, info.RedirectURIs)
	})

	t.Run("rejects malformed literal", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPut, "/v1/clients/ratmine/redirect-uri",
			UpdateRedirectURIRequest{RedirectURI: "https://no-brackets.example/cb"})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown client is 404", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodPut, "/v1/clients/nope/redirect-uri",
			UpdateRedirectURIRequest{RedirectURI: "[https://x.example/cb]"})
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestClientDeleteEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/clients", registerBody("wormmine"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodDelete, "/v1/clients/wormmine", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	t.Run("delete of unknown name still succeeds", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodDelete, "/v1/clients/wormmine", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})
}

func TestTokenEndpoint(t *testing.T) {
	ctx := context.Background()
	r, st := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/v1/clients", registerBody("yeastmine"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/v1/clients/yeastmine/verify", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var creds VerifyClientResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&creds))

	passwordHash, err := cryptox.HashSecret("correct horse battery staple")
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, st.Users().CreateUser(ctx, domain.User{
		ID:           idx.New().String(),
		Username:     "alice",
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}))

	postForm := func(t *testing.T, form url.Values, basic bool) *httptest.ResponseRecorder {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/oauth2/token",
			strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if basic {
			req.SetBasicAuth(creds.ClientID, creds.ClientSecret)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	t.Run("password grant with basic auth", func(t *testing.T) {
		rec := postForm(t, url.Values{
			"grant_type": {"password"},
			"username":   {"alice"},
			"password":   {"correct horse battery staple"},
		}, true)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

		var tok service.TokenResponse
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&tok))
		require.Equal(t, "Bearer", tok.TokenType)
		require.Equal(t, domain.DefaultAccessTokenTTL, tok.ExpiresIn)
		require.NotEmpty(t, tok.AccessToken)
	})

	t.Run("form credentials accepted", func(t *testing.T) {
		rec := postForm(t, url.Values{
			"grant_type":    {"password"},
			"client_id":     {creds.ClientID},
			"client_secret": {creds.ClientSecret},
			"username":      {"alice"},
			"password":      {"correct horse battery staple"},
		}, false)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad client secret is 401", func(t *testing.T) {
		rec := postForm(t, url.Values{
			"grant_type":    {"password"},
			"client_id":     {creds.ClientID},
			"client_secret": {"wrong"},
			"username":      {"alice"},
			"password":      {"correct horse battery staple"},
		}, false)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")
	})

	t.Run("bad user password is invalid_grant", func(t *testing.T) {
		rec := postForm(t, url.Values{
			"grant_type": {"password"},
			"username":   {"alice"},
			"password":   {"nope"},
		}, true)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "invalid_grant", body["error"])
	})

	t.Run("unsupported grant type", func(t *testing.T) {
		rec := postForm(t, url.Values{
			"grant_type": {"authorization_code"},
			"code":       {"whatever"},
		}, true)
		require.Equal(t, http.StatusBadRequest, rec.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		require.Equal(t, "unsupported_grant_type", body["error"])
	})
}

func TestSystemEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("livez", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/livez", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readyz", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/readyz", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("jwks publishes the signing key", func(t *testing.T) {
		rec := doJSON(t, r, http.MethodGet, "/.well-known/jwks.json", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var set jwtx.JWKS
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&set))
		require.Len(t, set.Keys, 1)
		require.Equal(t, "OKP", set.Keys[0].Kty)
		require.Equal(t, "EdDSA", set.Keys[0].Alg)
	})
}
