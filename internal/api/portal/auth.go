package portal

import (
	"errors"
	"github.com/skybi/assetdesk/internal/api/portal/session"
	"github.com/skybi/assetdesk/internal/api/schema"
	"github.com/skybi/assetdesk/internal/user"
	"net/http"
	"net/url"
	"strings"
)

var errAdminCheckWithoutSession = errors.New("admin check without session verification")

// handleUnauthenticated is the policy the session guard applies to requests without a valid session.
// API requests are answered with 401, page requests are redirected to the login page.
func (service *Service) handleUnauthenticated(writer http.ResponseWriter, request *http.Request) {
	if isAPIPath(request.URL.Path) {
		service.writer.WriteErrors(writer, http.StatusUnauthorized, schema.ErrUnauthorized)
		return
	}
	target := "/auth/login?afterwards=" + url.QueryEscape(request.URL.RequestURI())
	http.Redirect(writer, request, target, http.StatusFound)
}

// MiddlewareRequireSession makes sure the request passed the session guard with a valid session.
// It protects the handlers even if the guard is configured without an unauthenticated policy.
func (service *Service) MiddlewareRequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		if _, ok := session.FromContext(request.Context()); !ok {
			service.handleUnauthenticated(writer, request)
			return
		}
		next(writer, request)
	}
}

// MiddlewareCheckAdmin makes sure that the authenticated user is an admin
func (service *Service) MiddlewareCheckAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		obj := sessionUser(request)
		if obj == nil {
			service.writer.WriteInternalError(writer, errAdminCheckWithoutSession)
			return
		}
		if !obj.Admin {
			service.writer.WriteErrors(writer, http.StatusForbidden, schema.ErrAdminRequired)
			return
		}
		next(writer, request)
	}
}

// sessionUser returns the user of the session context of a request or nil if there is none
func sessionUser(request *http.Request) *user.User {
	ses, ok := session.FromContext(request.Context())
	if !ok {
		return nil
	}
	return ses.User
}

func isAPIPath(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}

// safeRedirectTarget only allows local absolute paths as redirect targets after a login
func safeRedirectTarget(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/dashboard"
	}
	return target
}
