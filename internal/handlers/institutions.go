package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/roktolink/roktolink-backend/internal/database"
	"github.com/roktolink/roktolink-backend/internal/models"
	"github.com/roktolink/roktolink-backend/internal/services"
	"github.com/roktolink/roktolink-backend/pkg/clientip"
)

type InstitutionRequest struct {
	ID      string         `json:"id,omitempty"` // required for update
	Name    string         `json:"name"`
	Type    string         `json:"type"`
	Phone   string         `json:"phone,omitempty"`
	Email   string         `json:"email,omitempty"`
	Address models.Address `json:"address"`
}

// ListInstitutions is public. With ?id= it returns a single institution,
// otherwise the full live list sorted by name.
func ListInstitutions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if raw := strings.TrimSpace(r.URL.Query().Get("id")); raw != "" {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		var inst models.Institution
		err = database.DB.Collection("institutions").FindOne(ctx, bson.M{"_id": id, "deleted": false}).Decode(&inst)
		if err != nil {
			if err == mongo.ErrNoDocuments {
				writeError(w, http.StatusNotFound, "Institution not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Database error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success":     true,
			"institution": inst,
		})
		return
	}

	filter := bson.M{"deleted": false}
	if t := strings.TrimSpace(r.URL.Query().Get("type")); t != "" {
		if !models.ValidInstitutionType(t) {
			writeError(w, http.StatusBadRequest, "Invalid type")
			return
		}
		filter["type"] = t
	}

	cursor, err := database.DB.Collection("institutions").Find(ctx, filter, options.Find().SetSort(bson.M{"name": 1}))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list institutions")
		return
	}
	defer cursor.Close(ctx)

	var institutions []models.Institution
	if err = cursor.All(ctx, &institutions); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list institutions")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"institutions": institutions,
		"count":        len(institutions),
	})
}

// CreateInstitution is admin-only. Institution names are unique among
// live records.
func CreateInstitution(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	var req InstitutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if !models.ValidInstitutionType(req.Type) {
		writeError(w, http.StatusBadRequest, "Invalid institution type")
		return
	}

	now := time.Now()
	inst := models.Institution{
		CreatedAt: now,
		UpdatedAt: now,
		Name:      req.Name,
		Type:      req.Type,
		Phone:     strings.TrimSpace(req.Phone),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Address:   req.Address,
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := database.DB.Collection("institutions").InsertOne(ctx, &inst)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			writeError(w, http.StatusConflict, "An institution with this name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to create institution")
		return
	}
	inst.ID = res.InsertedID.(primitive.ObjectID)

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "institution.create",
		Entity:    "institution",
		EntityID:  inst.ID.Hex(),
		Detail:    inst.Name,
	})

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success":     true,
		"message":     "Institution created",
		"institution": inst,
	})
}

// UpdateInstitution is admin-only and replaces the mutable fields.
func UpdateInstitution(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdminAuth(w, r)
	if !ok {
		return
	}

	var req InstitutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.ID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if !models.ValidInstitutionType(req.Type) {
		writeError(w, http.StatusBadRequest, "Invalid institution type")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"name":       req.Name,
		"type":       req.Type,
		"phone":      strings.TrimSpace(req.Phone),
		"email":      strings.ToLower(strings.TrimSpace(req.Email)),
		"address":    req.Address,
		"updated_at": time.Now(),
	}}

	res, err := database.DB.Collection("institutions").UpdateOne(ctx, bson.M{"_id": id, "deleted": false}, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			writeError(w, http.StatusConflict, "An institution with this name already exists")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to update institution")
		return
	}
	if res.MatchedCount == 0 {
		writeError(w, http.StatusNotFound, "Institution not found")
		return
	}

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "institution.update",
		Entity:    "institution",
		EntityID:  id.Hex(),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Institution updated",
	})
}

// DeleteInstitution soft-deletes an institution. Donation history keeps
// pointing at the record.
func DeleteInstitution(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAdminAuth(w, r)
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

	res, err := database.DB.Collection("institutions").UpdateOne(ctx,
		bson.M{"_id": id, "deleted": false},
		bson.M{"$set": bson.M{"deleted": true, "updated_at": time.Now()}},
	)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete institution")
		return
	}
	if res.MatchedCount == 0 {
		writeError(w, http.StatusNotFound, "Institution not found")
		return
	}

	services.RecordAuditAsync(models.AuditLog{
		ActorID:   claims.UserID,
		ActorRole: claims.Role,
		ActorIP:   clientip.ForwardedClientIP(r),
		Action:    "institution.delete",
		Entity:    "institution",
		EntityID:  id.Hex(),
	})

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Institution deleted",
	})
}
