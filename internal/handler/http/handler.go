package http

import (
	"net"
	"net/http"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/service"
	"github.com/donMuregi/tepstore/internal/session"
	"github.com/donMuregi/tepstore/pkg/middleware"
)

// SessionTokenHeader carries the opaque guest session token. The server
// mints the token on the first cart write and echoes it back in the same
// header; clients must replay it on subsequent requests.
const SessionTokenHeader = "X-Session-Token"

// actorResolver turns a request into a service.Actor, validating any guest
// session token against the session store.
type actorResolver struct {
	sessions *session.Store
}

// actor resolves the caller identity without side effects. An invalid or
// expired session token is treated as absent.
func (a actorResolver) actor(r *http.Request) service.Actor {
	act := service.Actor{
		AccountID: middleware.AccountIDFromContext(r.Context()),
		IP:        clientIP(r),
	}
	if role := middleware.RoleFromContext(r.Context()); role != "" {
		act.Role = domain.Role(role)
	}
	if token := r.Header.Get(SessionTokenHeader); token != "" && !act.IsAuthenticated() {
		if ok, err := a.sessions.Validate(r.Context(), token); err == nil && ok {
			act.SessionToken = token
		}
	}
	return act
}

// ensureSession resolves the caller and, for anonymous callers without a
// live session, mints one. The minted token is set on the response so the
// client can replay it.
func (a actorResolver) ensureSession(w http.ResponseWriter, r *http.Request) (service.Actor, error) {
	act := a.actor(r)
	if act.IsAuthenticated() || act.SessionToken != "" {
		return act, nil
	}
	token, err := a.sessions.Mint(r.Context())
	if err != nil {
		return act, err
	}
	act.SessionToken = token
	w.Header().Set(SessionTokenHeader, token)
	return act, nil
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
