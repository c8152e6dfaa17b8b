package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/middleware"
	"github.com/roktolink/roktolink-backend/internal/models"
	"github.com/roktolink/roktolink-backend/internal/services"
	"github.com/roktolink/roktolink-backend/pkg/clientip"
)

// ListUsers returns all accounts, newest first. Password hashes never
// serialize (json:"-" on the model).
func ListUsers(w http.ResponseWriter, r *http.Request) {
	_, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	limit := int64(100)
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if parsed, err := strconv.ParseInt(lStr, 10, 64); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	var skip int64
	if sStr := r.URL.Query().Get("skip"); sStr != "" {
		if parsed, err := strconv.ParseInt(sStr, 10, 64); err == nil && parsed > 0 {
			skip = parsed
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	cursor, err := database.DB.Collection("users").Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"created_at": -1}).SetLimit(limit).SetSkip(skip))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err = cursor.All(ctx, &users); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to decode users")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"users":   users,
		"count":   len(users),
	})
}

type SetUserActiveBody struct {
	UserID   string `json:"user_id"`
	IsActive bool   `json:"is_active"`
}

// SetUserActive toggles an account. Deactivated accounts cannot sign in;
// existing tokens keep working until they expire.
func SetUserActive(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	var body SetUserActiveBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	userID, err := primitive.ObjectIDFromHex(strings.TrimSpace(body.UserID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := database.DB.Collection("users").UpdateOne(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"is_active": body.IsActive, "updated_at": time.Now()}},
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}
	if res.MatchedCount == 0 {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	action := "user.deactivate"
	msg := "User deactivated"
	if body.IsActive {
		action = "user.activate"
		msg = "User activated"
	}

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    action,
		Entity:    "user",
		EntityID:  userID.Hex(),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}

// DeleteUser removes an account and soft-deletes its donor profile so
// donation history stays intact. Admins cannot delete themselves.
func DeleteUser(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	userID, err := queryObjectID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if userID.Hex() == claims.UserID {
		writeError(w, http.StatusBadRequest, "You cannot delete your own account")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := database.DB.Collection("users").DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete user")
		return
	}
	if res.DeletedCount == 0 {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	// Orphaned donor profile becomes a tombstone, not a directory entry.
	_, err = database.DB.Collection("donors").UpdateOne(ctx,
		bson.M{"user_id": userID, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now()}},
	)
	if err != nil && err != mongo.ErrNoDocuments {
		writeError(w, http.StatusInternalServerError, "User deleted but donor profile cleanup failed")
		return
	}

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "user.delete",
		Entity:    "user",
		EntityID:  userID.Hex(),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "User deleted",
	})
}

type DeferDonorBody struct {
	DonorID string `json:"donor_id"`
	// Until is YYYY-MM-DD; empty clears the deferral.
	Until  string `json:"until,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// DeferDonor sets or clears an administrative deferral that blocks
// eligibility until the given date, independent of the donation cooldown.
func DeferDonor(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	var body DeferDonorBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	donorID, err := primitive.ObjectIDFromHex(strings.TrimSpace(body.DonorID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid donor_id")
		return
	}

	set := bson.M{"updated_at": time.Now()}
	var detail string
	if body.Until == "" {
		set["deferral_until"] = nil
		set["deferral_reason"] = ""
		detail = "cleared"
	} else {
		until, err := time.Parse(dateLayout, body.Until)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid until, expected YYYY-MM-DD")
			return
		}
		set["deferral_until"] = until
		set["deferral_reason"] = strings.TrimSpace(body.Reason)
		detail = "until " + body.Until
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := database.DB.Collection("donors").UpdateOne(ctx,
		bson.M{"_id": donorID, "deleted": false},
		bson.M{"$set": set},
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update donor")
		return
	}
	if res.MatchedCount == 0 {
		writeError(w, http.StatusNotFound, "Donor not found")
		return
	}

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "donor.defer",
		Entity:    "donor",
		EntityID:  donorID.Hex(),
		Detail:    detail,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Deferral " + detail,
	})
}

// RegistryStats serves the aggregate dashboard numbers, cached in Redis.
// ?refresh=true bypasses the cache.
func RegistryStats(w http.ResponseWriter, r *http.Request) {
	_, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	refresh := false
	if v := r.URL.Query().Get("refresh"); v == "true" || v == "1" {
		refresh = true
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	stats, err := services.GetRegistryStats(ctx, refresh)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to compute stats")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   stats,
	})
}

// AuditLogs pages through the Postgres audit trail.
// Query params: actor_id, action, entity, limit, offset.
func AuditLogs(w http.ResponseWriter, r *http.Request) {
	_, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	f := services.AuditFilter{
		ActorID: strings.TrimSpace(r.URL.Query().Get("actor_id")),
		Action:  strings.TrimSpace(r.URL.Query().Get("action")),
		Entity:  strings.TrimSpace(r.URL.Query().Get("entity")),
	}
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if parsed, err := strconv.Atoi(lStr); err == nil && parsed > 0 {
			f.Limit = parsed
		}
	}
	if oStr := r.URL.Query().Get("offset"); oStr != "" {
		if parsed, err := strconv.Atoi(oStr); err == nil && parsed > 0 {
			f.Offset = parsed
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	logs, total, err := services.ListAuditLogs(ctx, f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to fetch audit logs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"logs":    logs,
		"total":   total,
	})
}

type UnblockIPBody struct {
	IP string `json:"ip"`
}

// UnblockIP lifts a rate-limit block early.
func UnblockIP(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	var body UnblockIPBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	ip := strings.TrimSpace(body.IP)
	if ip == "" {
		writeError(w, http.StatusBadRequest, "ip is required")
		return
	}

	wasBlocked, err := middleware.IsIPBlocked(ip)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check IP block")
		return
	}

	if err := middleware.UnblockIP(ip); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to unblock IP")
		return
	}

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "ratelimit.unblock",
		Entity:    "ip",
		EntityID:  ip,
	})

	msg := "IP unblocked"
	if !wasBlocked {
		msg = "IP was not blocked"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     msg,
		"was_blocked": wasBlocked,
	})
}
