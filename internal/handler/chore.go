package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/bywater/internal/family"
	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/schedule"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type ChoreHandler struct {
	chores *store.ChoreStore
	family *family.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewChoreHandler(cs *store.ChoreStore, fs *family.Service, hub *websocket.Hub, logger *slog.Logger) *ChoreHandler {
	return &ChoreHandler{chores: cs, family: fs, hub: hub, logger: logger}
}

func (h *ChoreHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

type choreRequest struct {
	Title      string  `json:"title"`
	Frequency  string  `json:"frequency"`
	Points     int     `json:"points"`
	ActiveDays string  `json:"active_days"`
	CreatedBy  int64   `json:"created_by"`
	ChildIDs   []int64 `json:"child_ids"`
}

// Create makes a chore and assigns it to the given children in one go.
// The parent's family is created on first use, and each picked child is
// attached to it.
func (h *ChoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req choreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.Frequency == "" {
		req.Frequency = model.FrequencyDaily
	}
	if req.Frequency != model.FrequencyDaily && req.Frequency != model.FrequencyWeekly {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "frequency must be daily or weekly"})
		return
	}
	if req.Points <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "points must be positive"})
		return
	}

	days, err := schedule.ParseDays(req.ActiveDays)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid active_days"})
		return
	}

	familyID, err := h.family.EnsureFamily(req.CreatedBy)
	if err != nil {
		if errors.Is(err, family.ErrNotParent) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "only parents can create chores"})
			return
		}
		if errors.Is(err, family.ErrProfileNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "profile not found"})
			return
		}
		h.logger.Error("ensure family", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to resolve family"})
		return
	}

	chore, err := h.chores.Create(familyID, req.Title, req.Frequency, req.Points, days.String(), req.CreatedBy)
	if err != nil {
		h.logger.Error("create chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create chore"})
		return
	}

	var assignments []model.Assignment
	for _, childID := range req.ChildIDs {
		if err := h.family.AttachChild(childID, familyID); err != nil {
			if errors.Is(err, family.ErrProfileNotFound) || errors.Is(err, family.ErrNotChild) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "child not found"})
				return
			}
			h.logger.Error("attach child", "child_id", childID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to attach child"})
			return
		}
		a, err := h.chores.Assign(chore.ID, childID)
		if err != nil {
			h.logger.Error("assign chore", "child_id", childID, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to assign chore"})
			return
		}
		assignments = append(assignments, *a)
	}

	h.broadcast(websocket.NewMessage("chore", "created", chore.ID, chore.FamilyID, nil))

	writeJSON(w, http.StatusCreated, map[string]any{
		"chore":       chore,
		"assignments": assignments,
	})
}

func (h *ChoreHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		chores []model.Chore
		err    error
	)
	switch {
	case r.URL.Query().Get("created_by") != "":
		var createdBy int64
		createdBy, err = strconv.ParseInt(r.URL.Query().Get("created_by"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid created_by"})
			return
		}
		chores, err = h.chores.ListByCreator(createdBy)
	case r.URL.Query().Get("family_id") != "":
		var familyID int64
		familyID, err = strconv.ParseInt(r.URL.Query().Get("family_id"), 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid family_id"})
			return
		}
		chores, err = h.chores.ListByFamily(familyID)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "created_by or family_id is required"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list chores"})
		return
	}
	if chores == nil {
		chores = []model.Chore{}
	}
	writeJSON(w, http.StatusOK, chores)
}

func (h *ChoreHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	chore, err := h.chores.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if chore == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}
	writeJSON(w, http.StatusOK, chore)
}

type assignRequest struct {
	ChildID int64 `json:"child_id"`
}

func (h *ChoreHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req assignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	chore, err := h.chores.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get chore"})
		return
	}
	if chore == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "chore not found"})
		return
	}

	if err := h.family.AttachChild(req.ChildID, chore.FamilyID); err != nil {
		if errors.Is(err, family.ErrProfileNotFound) || errors.Is(err, family.ErrNotChild) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "child not found"})
			return
		}
		h.logger.Error("attach child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to attach child"})
		return
	}

	assignment, err := h.chores.Assign(chore.ID, req.ChildID)
	if err != nil {
		h.logger.Error("assign chore", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to assign chore"})
		return
	}

	h.broadcast(websocket.NewMessage("assignment", "created", assignment.ID, chore.FamilyID, map[string]any{
		"chore_id": chore.ID,
		"child_id": req.ChildID,
	}))

	writeJSON(w, http.StatusCreated, assignment)
}
