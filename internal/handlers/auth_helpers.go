package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/errs"
	"github.com/roktolink/roktolink-backend/internal/models"
	"github.com/roktolink/roktolink-backend/internal/services"
)

// extractBearerToken pulls the token out of "Authorization: Bearer <token>".
func extractBearerToken(header string) string {
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

// clientMessage strips the sentinel prefix from a wrapped service error so
// clients see "full_name is required" instead of "validation failed:
// full_name is required".
func clientMessage(err error, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return msg
}

// writeServiceError maps service errors to HTTP status codes. Anything that
// is not a known sentinel becomes a 500 with a generic message so internals
// never leak to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrValidation):
		writeError(w, http.StatusBadRequest, clientMessage(err, errs.ErrValidation))
	case errors.Is(err, errs.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, clientMessage(err, errs.ErrUnauthorized))
	case errors.Is(err, errs.ErrForbidden):
		writeError(w, http.StatusForbidden, clientMessage(err, errs.ErrForbidden))
	case errors.Is(err, errs.ErrNotFound):
		writeError(w, http.StatusNotFound, clientMessage(err, errs.ErrNotFound))
	case errors.Is(err, errs.ErrConflict):
		writeError(w, http.StatusConflict, clientMessage(err, errs.ErrConflict))
	case errors.Is(err, errs.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, clientMessage(err, errs.ErrRateLimited))
	default:
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// requireAuth validates the bearer token and writes the 401 itself so call
// sites stay one line.
func requireAuth(w http.ResponseWriter, r *http.Request) (*services.TokenClaims, bool) {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}
	claims, err := services.ParseToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return nil, false
	}
	return claims, true
}

// requireAdminAuth is requireAuth plus a role check.
func requireAdminAuth(w http.ResponseWriter, r *http.Request) (*services.TokenClaims, bool) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return nil, false
	}
	if claims.Role != models.RoleAdmin {
		writeError(w, http.StatusForbidden, "Admin access required")
		return nil, false
	}
	return claims, true
}

// callerID converts the token subject back to an ObjectID. A token that
// fails here was forged or issued before a schema change; treat as unauth.
func callerID(w http.ResponseWriter, claims *services.TokenClaims) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid token subject")
		return primitive.NilObjectID, false
	}
	return id, true
}

// viewerFromRequest builds the visibility viewer for optional-auth reads.
// A missing or invalid token degrades to guest rather than failing, so the
// public directory stays public.
func viewerFromRequest(r *http.Request) services.Viewer {
	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return services.Viewer{Role: services.ViewerGuest}
	}
	claims, err := services.ParseToken(token)
	if err != nil {
		return services.Viewer{Role: services.ViewerGuest}
	}
	uid, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		return services.Viewer{Role: services.ViewerGuest}
	}
	role := services.ViewerRegistered
	if claims.Role == models.RoleAdmin {
		role = services.ViewerAdmin
	}
	return services.Viewer{Role: role, UserID: uid}
}

// viewerFromClaims is viewerFromRequest for paths that already did
// requireAuth.
func viewerFromClaims(claims *services.TokenClaims, uid primitive.ObjectID) services.Viewer {
	role := services.ViewerRegistered
	if claims.Role == models.RoleAdmin {
		role = services.ViewerAdmin
	}
	return services.Viewer{Role: role, UserID: uid}
}

// queryObjectID parses a hex ObjectID out of a query parameter.
func queryObjectID(r *http.Request, key string) (primitive.ObjectID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return primitive.NilObjectID, errors.New(key + " is required")
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, errors.New("invalid " + key)
	}
	return id, nil
}
