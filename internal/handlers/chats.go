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
)

type OpenChatBody struct {
	RequestID string `json:"request_id"`
	DonorID   string `json:"donor_id"`
}

// OpenChat opens (or returns the existing) conversation between a blood
// request's owner and a donor. Either side may open it: the requester if
// the donor accepts request contact, the donor always.
func OpenChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	var body OpenChatBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	requestID, err := primitive.ObjectIDFromHex(strings.TrimSpace(body.RequestID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request_id")
		return
	}
	donorID, err := primitive.ObjectIDFromHex(strings.TrimSpace(body.DonorID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid donor_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	thread, err := services.OpenRequestThread(ctx, requestID, donorID, uid)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"thread":  thread,
	})
}

// ChatInbox lists the caller's conversations, most recently active first,
// with the denormalized last-message snapshots.
func ChatInbox(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	limit := int64(50)
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if parsed, err := strconv.ParseInt(lStr, 10, 64); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	threads, err := services.ListThreads(ctx, uid, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load conversations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"threads": threads,
		"count":   len(threads),
	})
}

// ChatMessagesResponse is returned when loading historical messages.
type ChatMessagesResponse struct {
	Success  bool             `json:"success"`
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"has_more"`
}

// ChatMessages loads paginated messages for one conversation.
// Query params:
//
//	thread_id (required)
//	before    (optional RFC3339 timestamp for pagination)
//	limit     (optional, default 50)
func ChatMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	threadID, err := queryObjectID(r, "thread_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := int64(50)
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if parsed, err := strconv.ParseInt(lStr, 10, 64); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	var before *time.Time
	if bStr := r.URL.Query().Get("before"); bStr != "" {
		if t, err := time.Parse(time.RFC3339, bStr); err == nil {
			before = &t
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	msgs, hasMore, err := services.LoadThreadMessages(ctx, threadID, uid, before, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ChatMessagesResponse{
		Success:  true,
		Messages: msgs,
		HasMore:  hasMore,
	})
}

type SendChatMessageBody struct {
	ThreadID string `json:"thread_id"`
	Text     string `json:"text"`
}

// SendChatMessage appends a message to a conversation the caller
// participates in, subject to the pause gate.
func SendChatMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	var body SendChatMessageBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	threadID, err := primitive.ObjectIDFromHex(strings.TrimSpace(body.ThreadID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	msg, err := services.SendMessage(ctx, threadID, uid, body.Text)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": msg,
	})
}

type ChatPauseBody struct {
	ThreadID string `json:"thread_id"`
}

// PauseChat adds the caller to a conversation's pause set. Any non-empty
// pause set blocks new messages from both sides.
func PauseChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	var body ChatPauseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	threadID, err := primitive.ObjectIDFromHex(strings.TrimSpace(body.ThreadID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := services.PauseThread(ctx, threadID, uid); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Conversation paused",
	})
}

// ResumeChat removes the caller from the pause set. Only the participant
// who paused can lift their own pause.
func ResumeChat(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireAuth(w, r)
	if !ok {
		return
	}
	uid, ok := callerID(w, claims)
	if !ok {
		return
	}

	var body ChatPauseBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	threadID, err := primitive.ObjectIDFromHex(strings.TrimSpace(body.ThreadID))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := services.ResumeThread(ctx, threadID, uid); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Conversation resumed",
	})
}
