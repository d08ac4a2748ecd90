package handler

import (
	"net/http"

	"github.com/dukerupert/bywater/internal/family"
	"github.com/dukerupert/bywater/internal/model"
)

type FamilyHandler struct {
	family *family.Service
}

func NewFamilyHandler(fs *family.Service) *FamilyHandler {
	return &FamilyHandler{family: fs}
}

func (h *FamilyHandler) Children(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	children, err := h.family.ListChildren(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list children"})
		return
	}
	if children == nil {
		children = []model.Profile{}
	}
	writeJSON(w, http.StatusOK, children)
}
