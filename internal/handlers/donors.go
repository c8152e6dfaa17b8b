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

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/models"
	"github.com/roktolink/roktolink-backend/internal/services"
	"github.com/roktolink/roktolink-backend/pkg/clientip"
)

const dateLayout = "2006-01-02"

// DonorUpsertRequest is the body for creating or replacing the caller's
// donor profile. last_donation_date and total_donations are absent on
// purpose: only donation recording mutates them.
type DonorUpsertRequest struct {
	FullName            string                  `json:"full_name"`
	Phone               string                  `json:"phone"`
	Email               string                  `json:"email,omitempty"`
	Gender              string                  `json:"gender,omitempty"`
	DateOfBirth         string                  `json:"date_of_birth,omitempty"` // YYYY-MM-DD
	BloodGroup          string                  `json:"blood_group"`
	WillingToDonate     *bool                   `json:"willing_to_donate,omitempty"`
	Visibility          string                  `json:"visibility,omitempty"`
	PhoneVisibility     string                  `json:"phone_visibility,omitempty"`
	ContactPreference   string                  `json:"contact_preference,omitempty"`
	AllowRequestContact *bool                   `json:"allow_request_contact,omitempty"`
	Address             models.Address          `json:"address"`
	EmergencyContact    models.EmergencyContact `json:"emergency_contact,omitempty"`
	Notes               string                  `json:"notes,omitempty"`
}

// applyTo copies the request onto a donor record, filling defaults for
// omitted enum and flag fields.
func (req *DonorUpsertRequest) applyTo(d *models.Donor) error {
	d.FullName = strings.TrimSpace(req.FullName)
	d.Phone = strings.TrimSpace(req.Phone)
	d.Email = strings.ToLower(strings.TrimSpace(req.Email))
	d.Gender = strings.TrimSpace(req.Gender)
	d.BloodGroup = strings.TrimSpace(req.BloodGroup)
	d.Address = req.Address
	d.EmergencyContact = req.EmergencyContact
	d.Notes = req.Notes

	d.DateOfBirth = nil
	if req.DateOfBirth != "" {
		dob, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			return err
		}
		d.DateOfBirth = &dob
	}

	// Omitted flags default to the participating posture: willing and
	// contactable. Omitted visibility tiers default to registered.
	d.WillingToDonate = true
	if req.WillingToDonate != nil {
		d.WillingToDonate = *req.WillingToDonate
	}
	d.AllowRequestContact = true
	if req.AllowRequestContact != nil {
		d.AllowRequestContact = *req.AllowRequestContact
	}
	d.Visibility = req.Visibility
	if d.Visibility == "" {
		d.Visibility = models.VisibilityRegistered
	}
	d.PhoneVisibility = req.PhoneVisibility
	if d.PhoneVisibility == "" {
		d.PhoneVisibility = models.VisibilityRegistered
	}
	d.ContactPreference = req.ContactPreference
	return nil
}

// CreateDonor registers the caller's donor profile. One profile per user,
// enforced by a partial unique index that ignores soft-deleted rows.
func CreateDonor(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	var req DonorUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	now := time.Now()
	donor := models.Donor{
		UserID:    uid,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := req.applyTo(&donor); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_of_birth, expected YYYY-MM-DD")
		return
	}
	if err := services.ValidateDonorInput(&donor); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := services.EncryptDonorSecrets(&donor); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to protect profile fields")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := database.DB.Collection("donors").InsertOne(ctx, &donor)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			writeError(w, http.StatusConflict, "You already have a donor profile")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create donor profile")
		return
	}
	donor.ID = res.InsertedID.(primitive.ObjectID)

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "donor.create",
		Entity:    "donor",
		EntityID:  donor.ID.Hex(),
	})

	services.DecryptDonorSecrets(&donor)
	view := services.ProjectDonorView(&donor, viewerFromClaims(claims, uid), now)
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "Donor profile created",
		"donor":   view,
	})
}

// DonorDirectory is the public donor search. Results are scoped to what
// the caller may see; an anonymous caller gets public profiles only.
// Query params: blood_group, city, eligible_only, limit, skip.
func DonorDirectory(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFromRequest(r)

	q := services.DonorSearchQuery{
		BloodGroup: strings.TrimSpace(r.URL.Query().Get("blood_group")),
		City:       strings.TrimSpace(r.URL.Query().Get("city")),
	}
	if q.BloodGroup != "" && !models.ValidBloodGroup(q.BloodGroup) {
		writeError(w, http.StatusBadRequest, "Invalid blood_group")
		return
	}
	if v := r.URL.Query().Get("eligible_only"); v == "true" || v == "1" {
		q.EligibleOnly = true
	}
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if parsed, err := strconv.ParseInt(lStr, 10, 64); err == nil && parsed > 0 {
			q.Limit = parsed
		}
	}
	if sStr := r.URL.Query().Get("skip"); sStr != "" {
		if parsed, err := strconv.ParseInt(sStr, 10, 64); err == nil && parsed > 0 {
			q.Skip = parsed
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	donors, err := services.FindDonors(ctx, q, viewer)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to search donors")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"donors":  donors,
		"count":   len(donors),
	})
}

// GetDonorProfile returns one donor by id, redacted for the caller.
// Profiles outside the caller's visibility tiers read as not found rather
// than forbidden, so the directory does not leak which ids exist.
func GetDonorProfile(w http.ResponseWriter, r *http.Request) {
	id, err := queryObjectID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	donor, err := services.GetDonorByID(ctx, id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	viewer := viewerFromRequest(r)
	if !services.CanViewDonor(donor, viewer) {
		writeError(w, http.StatusNotFound, "Donor not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"donor":   services.ProjectDonorView(donor, viewer, time.Now()),
	})
}

// GetMyDonorProfile returns the caller's own donor profile in full.
func GetMyDonorProfile(w http.ResponseWriter, r *http.Request) {
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

	donor, err := services.GetDonorByUserID(ctx, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"donor":   services.ProjectDonorView(donor, viewerFromClaims(claims, uid), time.Now()),
	})
}

// UpdateDonor replaces the mutable fields of the caller's donor profile.
// PUT semantics: omitted optional fields reset to their defaults.
func UpdateDonor(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	var req DonorUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	donor, err := services.GetDonorByUserID(ctx, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := req.applyTo(donor); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date_of_birth, expected YYYY-MM-DD")
		return
	}
	if err := services.ValidateDonorInput(donor); err != nil {
		writeServiceError(w, err)
		return
	}
	if err := services.EncryptDonorSecrets(donor); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to protect profile fields")
		return
	}

	now := time.Now()
	update := bson.M{"$set": bson.M{
		"full_name":             donor.FullName,
		"phone":                 donor.Phone,
		"email":                 donor.Email,
		"gender":                donor.Gender,
		"date_of_birth":         donor.DateOfBirth,
		"blood_group":           donor.BloodGroup,
		"willing_to_donate":     donor.WillingToDonate,
		"visibility":            donor.Visibility,
		"phone_visibility":      donor.PhoneVisibility,
		"contact_preference":    donor.ContactPreference,
		"allow_request_contact": donor.AllowRequestContact,
		"address":               donor.Address,
		"emergency_contact":     donor.EmergencyContact,
		"notes":                 donor.Notes,
		"updated_at":            now,
	}}

	_, err = database.DB.Collection("donors").UpdateOne(ctx, bson.M{"_id": donor.ID, "deleted": false}, update)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update donor profile")
		return
	}
	donor.UpdatedAt = now

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "donor.update",
		Entity:    "donor",
		EntityID:  donor.ID.Hex(),
	})

	services.DecryptDonorSecrets(donor)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Donor profile updated",
		"donor":   services.ProjectDonorView(donor, viewerFromClaims(claims, uid), now),
	})
}

// DeleteDonor soft-deletes the caller's donor profile. The record stays
// for donation history; it stops resolving through every read path.
func DeleteDonor(w http.ResponseWriter, r *http.Request) {
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

	res, err := database.DB.Collection("donors").UpdateOne(ctx,
		bson.M{"user_id": uid, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now()}},
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete donor profile")
		return
	}
	if res.MatchedCount == 0 {
		writeError(w, http.StatusNotFound, "No donor profile to delete")
		return
	}

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "donor.delete",
		Entity:    "donor",
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Donor profile deleted",
	})
}
