package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/roktolink/roktolink-backend/internal/models"
	"github.com/roktolink/roktolink-backend/internal/services"
)

// ContactDonorRequest represents a direct contact message to a donor.
type ContactDonorRequest struct {
	DonorID string `json:"donor_id"`
	Message string `json:"message"`
}

// ContactDonorResponse is returned after the message is delivered.
type ContactDonorResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Thread  *models.Thread `json:"thread,omitempty"`
}

// ContactDonor opens (or reuses) the direct conversation with a donor and
// delivers the first message in one call. Gated on the donor's
// allow_request_contact consent and a per-pair cooldown for brand-new
// conversations.
func ContactDonor(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	var req ContactDonorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	donorID, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.DonorID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid donor_id")
		return
	}
	if err := services.ValidateMessageText(req.Message); err != nil {
		writeServiceError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	thread, err := services.OpenContactThread(ctx, donorID, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if _, err := services.SendMessage(ctx, thread.ID, uid, req.Message); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, ContactDonorResponse{
		Success: true,
		Message: "Message sent to donor",
		Thread:  thread,
	})
}
