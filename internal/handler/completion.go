package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/streak"
	"github.com/dukerupert/bywater/internal/websocket"
	"github.com/dukerupert/bywater/internal/workflow"
)

type CompletionHandler struct {
	workflow *workflow.Service
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewCompletionHandler(wf *workflow.Service, hub *websocket.Hub, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{workflow: wf, hub: hub, logger: logger}
}

func (h *CompletionHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type claimRequest struct {
	AssignmentID int64  `json:"assignment_id"`
	ChildID      int64  `json:"child_id"`
	Date         string `json:"date"` // YYYY-MM-DD; empty = today
}

func (h *CompletionHandler) Claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	date := time.Now()
	if req.Date != "" {
		d, err := streak.ParseDay(req.Date)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = d
	}

	result, err := h.workflow.Claim(req.AssignmentID, req.ChildID, date)
	if err != nil {
		writeWorkflowError(w, h.logger, "claim", err)
		return
	}

	h.broadcast(websocket.NewMessage("completion", "claimed", result.Completion.ID, result.FamilyID, map[string]any{
		"assignment_id": result.Completion.AssignmentID,
		"status":        result.Completion.Status,
	}))

	writeJSON(w, http.StatusCreated, result)
}

func (h *CompletionHandler) Pending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.workflow.Pending()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list pending completions"})
		return
	}
	if pending == nil {
		pending = []model.PendingCompletion{}
	}
	writeJSON(w, http.StatusOK, pending)
}

type resolveRequest struct {
	ApproverID int64 `json:"approver_id"`
}

func (h *CompletionHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	result, err := h.workflow.Approve(id, req.ApproverID)
	if err != nil {
		writeWorkflowError(w, h.logger, "approve", err)
		return
	}

	h.broadcast(websocket.NewMessage("completion", "approved", id, result.FamilyID, map[string]any{
		"child_id": result.Balance.ChildID,
		"coins":    result.Balance.Coins,
		"streak":   result.Balance.StreakCount,
	}))

	writeJSON(w, http.StatusOK, result)
}

func (h *CompletionHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	result, err := h.workflow.Reject(id, req.ApproverID)
	if err != nil {
		writeWorkflowError(w, h.logger, "reject", err)
		return
	}

	h.broadcast(websocket.NewMessage("completion", "rejected", id, result.FamilyID, nil))

	writeJSON(w, http.StatusOK, result)
}

// Board returns the child's chores for one day, with claim status.
func (h *CompletionHandler) Board(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	date := time.Now()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := streak.ParseDay(q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
			return
		}
		date = d
	}

	board, err := h.workflow.Board(id, date)
	if err != nil {
		writeWorkflowError(w, h.logger, "board", err)
		return
	}
	if board == nil {
		board = []workflow.BoardEntry{}
	}
	writeJSON(w, http.StatusOK, board)
}

// writeWorkflowError maps workflow sentinel errors to HTTP statuses. A
// failed store call surfaces as one 5xx per action; nothing retries.
func writeWorkflowError(w http.ResponseWriter, logger *slog.Logger, op string, err error) {
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, workflow.ErrAlreadyResolved):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "completion already resolved"})
	case errors.Is(err, workflow.ErrNotParent):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only a parent can do that"})
	case errors.Is(err, workflow.ErrNotAssignee):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "chore is not assigned to this child"})
	default:
		logger.Error(op, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "something went wrong, try again"})
	}
}
