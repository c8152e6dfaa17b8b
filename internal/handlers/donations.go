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

type RecordDonationRequest struct {
	DonorID       string `json:"donor_id"`
	InstitutionID string `json:"institution_id,omitempty"`
	DonationDate  string `json:"donation_date,omitempty"` // YYYY-MM-DD, defaults to today
	Units         int    `json:"units"`
	Notes         string `json:"notes,omitempty"`
}

// RecordDonation is admin-only: it appends an immutable donation event
// and is the only code path that moves donor and institution counters.
func RecordDonation(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}
	adminID, ok := callerID(w, claims)
	if !ok {
		return
	}

	var req RecordDonationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	donorID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.DonorID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid donor_id")
		return
	}

	donation := models.Donation{
		DonorID:    donorID,
		RecordedBy: adminID,
		Units:      req.Units,
		Notes:      strings.TrimSpace(req.Notes),
	}

	if raw := strings.TrimSpace(req.InstitutionID); raw != "" {
		instID, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid institution_id")
			return
		}
		donation.InstitutionID = &instID
	}

	if req.DonationDate != "" {
		date, err := time.Parse(dateLayout, req.DonationDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid donation_date, expected YYYY-MM-DD")
			return
		}
		donation.DonationDate = date
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := services.RecordDonation(ctx, &donation); err != nil {
		writeServiceError(w, err)
		return
	}

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "donation.record",
		Entity:    "donation",
		EntityID:  donation.ID.Hex(),
		Detail:    "donor " + donorID.Hex(),
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":  true,
		"message":  "Donation recorded",
		"donation": donation,
	})
}

// ListDonations returns donation history. Admin callers may pass
// ?donor_id= (or omit it for all donors); everyone else gets the history
// of their own donor profile only.
func ListDonations(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
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

	var donorID primitive.ObjectID
	if claims.Role == models.RoleAdmin {
		if raw := strings.TrimSpace(r.URL.Query().Get("donor_id")); raw != "" {
			id, err := primitive.ObjectIDFromHex(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid donor_id")
				return
			}
			donorID = id
		}
	} else {
		donor, err := services.GetDonorByUserID(ctx, uid)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		donorID = donor.ID
	}

	donations, err := services.ListDonations(ctx, donorID, limit, skip)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list donations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"donations": donations,
		"count":     len(donations),
	})
}
