package web

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	actorCookieName = "bankster_actor"
	actorCookieTTL  = 24 * time.Hour
)

// actorID identifies the browser driving a setup wizard so that in-flight
// setups of different users never share transient state. A missing or
// malformed cookie is replaced by a fresh random id.
func actorID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(actorCookieName); err == nil {
		if id, err := uuid.Parse(cookie.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     actorCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(actorCookieTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   r.TLS != nil,
	})
	return id
}

// existingActorID returns the actor id of the request without issuing one.
func existingActorID(r *http.Request) string {
	cookie, err := r.Cookie(actorCookieName)
	if err != nil {
		return ""
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return ""
	}
	return id.String()
}
