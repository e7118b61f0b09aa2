package handlers

import (
	"net/http"

	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/chat"
)

const (
	sessionCookieName = "datatalk_session"
	sessionIDKey      = "session_id"
)

// SessionResolver binds HTTP requests to chat sessions through a signed
// cookie carrying the session id.
type SessionResolver struct {
	store   sessions.Store
	manager *chat.Manager
	logger  *zap.Logger
}

// NewSessionResolver creates a resolver with a cookie store signed by
// secret.
func NewSessionResolver(secret string, manager *chat.Manager, logger *zap.Logger) *SessionResolver {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   12 * 60 * 60, // matches the session manager TTL
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &SessionResolver{store: store, manager: manager, logger: logger}
}

// Resolve returns the chat session for the request, creating one (and
// setting the cookie) when the request carries none.
func (r *SessionResolver) Resolve(w http.ResponseWriter, req *http.Request) *chat.Session {
	cookie, err := r.store.Get(req, sessionCookieName)
	if err != nil {
		// Tampered or stale cookie; fall through with a fresh one.
		r.logger.Debug("session cookie rejected", zap.Error(err))
	}

	id, _ := cookie.Values[sessionIDKey].(string)
	session := r.manager.GetOrCreate(id)

	if session.ID() != id {
		cookie.Values[sessionIDKey] = session.ID()
		if err := cookie.Save(req, w); err != nil {
			r.logger.Error("failed to save session cookie", zap.Error(err))
		}
	}

	return session
}
