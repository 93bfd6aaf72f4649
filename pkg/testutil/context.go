package testutil

import (
	"net/http"
	"time"

	id "dlvery/pkg/domain"
	"dlvery/pkg/requestcontext"
)

// AsUser attaches an authenticated identity to the request, standing in for RequireAuth.
// Invalid user IDs leave the request anonymous.
func AsUser(req *http.Request, userID, username string, role id.Role) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	ctx := requestcontext.WithIdentity(req.Context(), requestcontext.Identity{
		UserID:   parsed,
		Username: username,
		Role:     role,
	})
	return req.WithContext(ctx)
}

// AtTime pins the request clock so date bucketing in handlers is deterministic.
func AtTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
