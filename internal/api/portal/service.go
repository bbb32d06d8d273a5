package portal

import (
	"context"
	"embed"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/skybi/assetdesk/internal/api/schema"
	"github.com/skybi/assetdesk/internal/config"
	"github.com/skybi/assetdesk/internal/function"
	"github.com/skybi/assetdesk/internal/identity"
	"github.com/skybi/assetdesk/internal/storage"
	"golang.org/x/oauth2"
	"io/fs"
	"net/http"
	"time"
)

//go:embed static
var staticFiles embed.FS

// Service represents the portal service serving the pages and the API of the application
type Service struct {
	server *http.Server

	Config *config.Config

	Storage        storage.Driver
	SessionStorage session.Storage

	// Validator validates the sessions of guarded requests.
	// Router falls back to the OIDC backed identity provider if it is nil.
	Validator session.Validator

	identity            *identity.Provider
	oidcOAuth2Config    *oauth2.Config
	oidcIDTokenVerifier *oidc.IDTokenVerifier

	writer *schema.Writer
	pages  *pageRenderer
}

// Startup connects to the OIDC provider and starts up the portal
func (service *Service) Startup() error {
	// Create the OIDC provider & ID token verifier
	oidcProvider, err := oidc.NewProvider(context.Background(), service.Config.OIDCProviderURL)
	if err != nil {
		return err
	}
	service.oidcIDTokenVerifier = oidcProvider.Verifier(&oidc.Config{
		ClientID: service.Config.OIDCClientID,
	})

	// Create the OAuth2 config
	service.oidcOAuth2Config = &oauth2.Config{
		ClientID:     service.Config.OIDCClientID,
		ClientSecret: service.Config.OIDCClientSecret,
		Endpoint:     oidcProvider.Endpoint(),
		RedirectURL:  service.Config.BaseAddress + "/api/auth/oidc/callback",
		Scopes:       []string{oidc.ScopeOpenID, oidc.ScopeOfflineAccess, "profile", "email"},
	}

	router, err := service.Router()
	if err != nil {
		return err
	}

	// Start up the server
	server := &http.Server{
		Addr:              service.Config.ListenAddress,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	service.server = server
	return server.ListenAndServe()
}

// Shutdown shuts down the portal
func (service *Service) Shutdown() {
	if service.server != nil {
		service.server.Close()
		service.server = nil
	}
}

// Router builds the HTTP router of the portal including the session guard
func (service *Service) Router() (http.Handler, error) {
	// Create the HTTP schema writer
	service.writer = &schema.Writer{
		InternalErrorHook: func(err error) {
			log.Error().Err(err).Msg("the portal experienced an unexpected error")
		},
	}

	// Create the identity provider client validating & refreshing sessions
	if service.identity == nil {
		service.identity = &identity.Provider{
			Sessions:      service.SessionStorage,
			Users:         service.Storage.Users(),
			Refresher:     &identity.OAuth2Refresher{Config: service.oidcOAuth2Config},
			Lifetime:      service.Config.SessionLifetime,
			RefreshLeeway: service.Config.SessionRefreshLeeway,
			Secure:        service.Config.IsSecure(),
		}
	}
	if service.Validator == nil {
		service.Validator = service.identity
	}

	// Parse the page templates
	pages, err := newPageRenderer()
	if err != nil {
		return nil, err
	}
	service.pages = pages

	// Create the session guard
	guard := &session.Guard{
		Validator:       service.Validator,
		Exclusions:      session.DefaultExclusions,
		Unauthenticated: http.HandlerFunc(service.handleUnauthenticated),
		ErrorHook: func(request *http.Request, err error) {
			log.Error().Err(err).Str("path", request.URL.Path).Msg("could not validate the session")
		},
	}

	// Create the HTTP router
	router := chi.NewRouter()
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RedirectSlashes)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{service.Config.AllowedOrigin},
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))
	router.Use(guard.Middleware)
	router.NotFound(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusNotFound, schema.ErrNotFound)
	})
	router.MethodNotAllowed(func(writer http.ResponseWriter, _ *http.Request) {
		service.writer.WriteErrors(writer, http.StatusMethodNotAllowed, schema.ErrMethodNotAllowed)
	})

	// Register the static files
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, err
	}
	router.Handle("/_next/static/*", http.StripPrefix("/_next/static/", http.FileServer(http.FS(static))))
	favicon, err := fs.ReadFile(static, "favicon.svg")
	if err != nil {
		return nil, err
	}
	router.Get("/favicon.ico", func(writer http.ResponseWriter, _ *http.Request) {
		writer.Header().Set("Content-Type", "image/svg+xml")
		writer.Write(favicon)
	})

	// Register the authentication pages & endpoints
	router.Get("/auth/login", service.PageLogin)
	router.Get("/api/auth/oidc/login_flow", service.EndpointOIDCLoginFlow)
	router.Get("/api/auth/oidc/callback", service.EndpointOIDCLoginCallback)
	router.Post("/api/auth/oidc/backchannel_logout", service.EndpointOIDCBackchannelLogout)
	router.Post("/api/auth/logout", service.EndpointLogout)

	// Register the public report flow
	router.Get("/report/{uid}", service.PageReport)
	router.Post("/api/report-issue", service.EndpointReportIssue)

	// Register the guarded pages
	router.Get("/", func(writer http.ResponseWriter, request *http.Request) {
		http.Redirect(writer, request, "/dashboard", http.StatusFound)
	})
	router.Get("/dashboard", function.Nest[http.HandlerFunc](service.PageDashboard, service.MiddlewareRequireSession))
	router.Get("/issues", function.Nest[http.HandlerFunc](service.PageIssues, service.MiddlewareRequireSession))

	// Register the user controller endpoints
	router.Get("/api/me", function.Nest[http.HandlerFunc](service.EndpointGetSelfUser, service.MiddlewareRequireSession))
	router.Delete("/api/me", function.Nest[http.HandlerFunc](service.EndpointDeleteSelfUserData, service.MiddlewareRequireSession))
	router.Get("/api/users/{id}", function.Nest[http.HandlerFunc](service.EndpointGetUser, service.MiddlewareRequireSession, service.MiddlewareCheckAdmin))
	router.Patch("/api/users/{id}", function.Nest[http.HandlerFunc](service.EndpointEditUser, service.MiddlewareRequireSession, service.MiddlewareCheckAdmin))

	// Register the asset controller endpoints
	router.Get("/api/assets", function.Nest[http.HandlerFunc](service.EndpointGetAssets, service.MiddlewareRequireSession))
	router.Post("/api/assets", function.Nest[http.HandlerFunc](service.EndpointCreateAsset, service.MiddlewareRequireSession))
	router.Get("/api/assets/{uid}", function.Nest[http.HandlerFunc](service.EndpointGetAsset, service.MiddlewareRequireSession))
	router.Patch("/api/assets/{uid}", function.Nest[http.HandlerFunc](service.EndpointEditAsset, service.MiddlewareRequireSession))
	router.Delete("/api/assets/{uid}", function.Nest[http.HandlerFunc](service.EndpointDeleteAsset, service.MiddlewareRequireSession, service.MiddlewareCheckAdmin))
	router.Get("/api/assets/{uid}/report_link", function.Nest[http.HandlerFunc](service.EndpointGetAssetReportLink, service.MiddlewareRequireSession))

	// Register the issue controller endpoints
	router.Get("/api/issues", function.Nest[http.HandlerFunc](service.EndpointGetIssues, service.MiddlewareRequireSession))
	router.Patch("/api/issues/{id}", function.Nest[http.HandlerFunc](service.EndpointEditIssue, service.MiddlewareRequireSession))

	return router, nil
}
