package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/models"
	"github.com/roktolink/roktolink-backend/internal/services"
	"github.com/roktolink/roktolink-backend/pkg/clientip"
)

type CreateRequestBody struct {
	PatientName  string `json:"patient_name"`
	BloodGroup   string `json:"blood_group"`
	UnitsNeeded  int    `json:"units_needed"`
	City         string `json:"city"`
	HospitalName string `json:"hospital_name,omitempty"`
	RequiredBy   string `json:"required_by,omitempty"` // YYYY-MM-DD
	Urgency      string `json:"urgency,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// CreateRequest opens a blood request and fans out match notifications
// to contactable donors in the background. The response never waits on
// the fan-out.
func CreateRequest(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	var body CreateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req := models.BloodRequest{
		RequesterID:  uid,
		PatientName:  strings.TrimSpace(body.PatientName),
		BloodGroup:   strings.TrimSpace(body.BloodGroup),
		UnitsNeeded:  body.UnitsNeeded,
		City:         strings.TrimSpace(body.City),
		HospitalName: strings.TrimSpace(body.HospitalName),
		Urgency:      strings.TrimSpace(body.Urgency),
		Notes:        strings.TrimSpace(body.Notes),
	}

	if body.RequiredBy != "" {
		requiredBy, err := time.Parse(dateLayout, body.RequiredBy)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid required_by, expected YYYY-MM-DD")
			return
		}
		req.RequiredBy = &requiredBy
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := services.CreateBloodRequest(ctx, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	// Best effort: matching donors hear about the request, the requester
	// does not wait for them.
	services.EmitRequestMatchNotifications(req, viewerFromClaims(claims, uid))

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "request.create",
		Entity:    "blood_request",
		EntityID:  req.ID.Hex(),
		Detail:    req.BloodGroup + " x" + strconv.Itoa(req.UnitsNeeded),
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Blood request created",
		"request": req,
	})
}

// ListRequests is the public board of open requests.
// Query params: blood_group, city, limit, skip.
func ListRequests(w http.ResponseWriter, r *http.Request) {
	bloodGroup := strings.TrimSpace(r.URL.Query().Get("blood_group"))
	if bloodGroup != "" && !models.ValidBloodGroup(bloodGroup) {
		writeError(w, http.StatusBadRequest, "Invalid blood_group")
		return
	}

	var limit, skip int64
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if parsed, err := strconv.ParseInt(lStr, 10, 64); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if sStr := r.URL.Query().Get("skip"); sStr != "" {
		if parsed, err := strconv.ParseInt(sStr, 10, 64); err == nil && parsed > 0 {
			skip = parsed
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	requests, err := services.ListOpenRequests(ctx, bloodGroup, r.URL.Query().Get("city"), limit, skip)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"requests": requests,
		"count":    len(requests),
	})
}

// MyRequests lists every request the caller has created, any status.
func MyRequests(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	requests, err := services.ListRequestsByRequester(ctx, uid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"requests": requests,
		"count":    len(requests),
	})
}

// RequestMatches returns the donors matching a request, redacted for the
// caller. Only the requester or an admin may pull the match list.
func RequestMatches(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	id, err := queryObjectID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	req, err := services.GetBloodRequest(ctx, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if claims.Role != models.RoleAdmin && req.RequesterID != uid {
		writeError(w, http.StatusForbidden, "Only the requester may view matches")
		return
	}

	matches, err := services.MatchDonors(ctx, req, viewerFromClaims(claims, uid))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to match donors")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"matches": matches,
		"count":   len(matches),
	})
}

type ChangeRequestStatusBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// UpdateRequestStatus moves a request to fulfilled or cancelled. Both are
// terminal; a closed request never reopens.
func UpdateRequestStatus(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	var body ChangeRequestStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(body.ID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	req, err := services.ChangeRequestStatus(ctx, id, strings.TrimSpace(body.Status), uid, claims.Role == models.RoleAdmin)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "request.status",
		Entity:    "blood_request",
		EntityID:  req.ID.Hex(),
		Detail:    req.Status,
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Request marked " + req.Status,
		"request": req,
	})
}

// DeleteRequest removes a request outright. Requester or admin only.
func DeleteRequest(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	id, err := queryObjectID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := services.DeleteBloodRequest(ctx, id, uid, claims.Role == models.RoleAdmin); err != nil {
		writeServiceError(w, err)
		return
	}

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "request.delete",
		Entity:    "blood_request",
		EntityID:  id.Hex(),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Request deleted",
	})
}
