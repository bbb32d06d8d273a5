package session

import (
	"context"
	"net/http"
)

// Outcome represents the result of a session validation
type Outcome struct {
	// Context is the session context handed to the handlers behind the guard
	Context *Context

	// Cookies are written to the response before the request is passed on (i.e. a refreshed session cookie)
	Cookies []*http.Cookie
}

// Validator validates and, if required, refreshes the session a request carries.
// A nil outcome or an outcome without a context means the request is unauthenticated; cookies of such an outcome are
// still written (i.e. to clear a stale session cookie).
type Validator interface {
	Validate(ctx context.Context, request *http.Request) (*Outcome, error)
}

// ValidatorFunc adapts an ordinary function to the Validator interface
type ValidatorFunc func(ctx context.Context, request *http.Request) (*Outcome, error)

// Validate calls fn(ctx, request)
func (fn ValidatorFunc) Validate(ctx context.Context, request *http.Request) (*Outcome, error) {
	return fn(ctx, request)
}

// Guard gates every request whose path is not excluded on having a valid or refreshable session
type Guard struct {
	Validator Validator

	// Exclusions defines the paths bypassing the guard entirely
	Exclusions Matcher

	// Unauthenticated handles requests without a valid session.
	// If nil, these requests are passed on without a session context.
	Unauthenticated http.Handler

	// ErrorHook receives validator errors; the affected request is treated as unauthenticated
	ErrorHook func(request *http.Request, err error)
}

// Middleware wraps the given handler with the session guard
func (guard *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if guard.Exclusions.Excluded(request.URL.Path) {
			next.ServeHTTP(writer, request)
			return
		}

		outcome, err := guard.Validator.Validate(request.Context(), request)
		if err != nil {
			if guard.ErrorHook != nil {
				guard.ErrorHook(request, err)
			}
			outcome = nil
		}

		if outcome != nil {
			for _, cookie := range outcome.Cookies {
				http.SetCookie(writer, cookie)
			}
		}

		if outcome == nil || outcome.Context == nil {
			if guard.Unauthenticated != nil {
				guard.Unauthenticated.ServeHTTP(writer, request)
				return
			}
			next.ServeHTTP(writer, request)
			return
		}

		next.ServeHTTP(writer, request.WithContext(WithContext(request.Context(), outcome.Context)))
	})
}
