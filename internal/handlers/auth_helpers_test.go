package handlers

import (
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/errs"
	"github.com/roktolink/roktolink-backend/internal/models"
	"github.com/roktolink/roktolink-backend/internal/services"
)

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc.def.ghi", extractBearerToken("Bearer abc.def.ghi"))
	assert.Equal(t, "abc", extractBearerToken("Bearer abc  "))
	assert.Equal(t, "", extractBearerToken(""))
	assert.Equal(t, "", extractBearerToken("Basic dXNlcjpwYXNz"))
	assert.Equal(t, "", extractBearerToken("bearer lowercase-scheme"))
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"validation", fmt.Errorf("%w: full_name is required", errs.ErrValidation), 400, "full_name is required"},
		{"unauthorized", fmt.Errorf("%w: invalid token", errs.ErrUnauthorized), 401, "invalid token"},
		{"forbidden", fmt.Errorf("%w: admins only", errs.ErrForbidden), 403, "admins only"},
		{"not found", fmt.Errorf("%w: donor abc", errs.ErrNotFound), 404, "donor abc"},
		{"conflict", fmt.Errorf("%w: duplicate profile", errs.ErrConflict), 409, "duplicate profile"},
		{"rate limited", fmt.Errorf("%w: slow down", errs.ErrRateLimited), 429, "slow down"},
		{"unknown stays generic", fmt.Errorf("pq: connection refused"), 500, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body struct {
				Success bool   `json:"success"`
				Message string `json:"message"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantMsg, body.Message)
		})
	}
}

func TestWriteServiceError_BareSentinel(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errs.ErrNotFound)
	assert.Equal(t, 404, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not found", body["message"])
}

func TestViewerFromRequest(t *testing.T) {
	services.InitTokens("handlers-test-secret", time.Hour)

	t.Run("no token means guest", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/donors", nil)
		v := viewerFromRequest(r)
		assert.Equal(t, services.ViewerGuest, v.Role)
	})

	t.Run("junk token degrades to guest", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/api/donors", nil)
		r.Header.Set("Authorization", "Bearer not-a-real-token")
		v := viewerFromRequest(r)
		assert.Equal(t, services.ViewerGuest, v.Role)
	})

	t.Run("user token is registered viewer", func(t *testing.T) {
		user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
		token, err := services.IssueToken(user)
		require.NoError(t, err)

		r := httptest.NewRequest("GET", "/api/donors", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		v := viewerFromRequest(r)
		assert.Equal(t, services.ViewerRegistered, v.Role)
		assert.Equal(t, user.ID, v.UserID)
	})

	t.Run("admin token is admin viewer", func(t *testing.T) {
		admin := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
		token, err := services.IssueToken(admin)
		require.NoError(t, err)

		r := httptest.NewRequest("GET", "/api/donors", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		v := viewerFromRequest(r)
		assert.Equal(t, services.ViewerAdmin, v.Role)
		assert.Equal(t, admin.ID, v.UserID)
	})
}

func TestRequireAuth(t *testing.T) {
	services.InitTokens("handlers-test-secret", time.Hour)

	t.Run("missing token writes 401", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/me", nil)
		_, ok := requireAuth(rec, r)
		assert.False(t, ok)
		assert.Equal(t, 401, rec.Code)
	})

	t.Run("valid token passes claims through", func(t *testing.T) {
		user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
		token, err := services.IssueToken(user)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/me", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		claims, ok := requireAuth(rec, r)
		require.True(t, ok)
		assert.Equal(t, user.ID.Hex(), claims.UserID)
	})
}

func TestRequireAdminAuth(t *testing.T) {
	services.InitTokens("handlers-test-secret", time.Hour)

	t.Run("plain user gets 403", func(t *testing.T) {
		user := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser}
		token, err := services.IssueToken(user)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/admin/users", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		_, ok := requireAdminAuth(rec, r)
		assert.False(t, ok)
		assert.Equal(t, 403, rec.Code)
	})

	t.Run("admin passes", func(t *testing.T) {
		admin := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin}
		token, err := services.IssueToken(admin)
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		r := httptest.NewRequest("GET", "/api/admin/users", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		claims, ok := requireAdminAuth(rec, r)
		require.True(t, ok)
		assert.Equal(t, models.RoleAdmin, claims.Role)
	})
}

func TestQueryObjectID(t *testing.T) {
	id := primitive.NewObjectID()

	r := httptest.NewRequest("GET", "/api/donors/profile?id="+id.Hex(), nil)
	got, err := queryObjectID(r, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	r = httptest.NewRequest("GET", "/api/donors/profile", nil)
	_, err = queryObjectID(r, "id")
	assert.EqualError(t, err, "id is required")

	r = httptest.NewRequest("GET", "/api/donors/profile?id=zzz", nil)
	_, err = queryObjectID(r, "id")
	assert.EqualError(t, err, "invalid id")
}
