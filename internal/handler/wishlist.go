package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/bywater/internal/model"
	"github.com/dukerupert/bywater/internal/store"
	"github.com/dukerupert/bywater/internal/websocket"
)

type WishlistHandler struct {
	wishlist *store.WishlistStore
	profiles *store.ProfileStore
	hub      *websocket.Hub
	logger   *slog.Logger
}

func NewWishlistHandler(ws *store.WishlistStore, ps *store.ProfileStore, hub *websocket.Hub, logger *slog.Logger) *WishlistHandler {
	return &WishlistHandler{wishlist: ws, profiles: ps, hub: hub, logger: logger}
}

func (h *WishlistHandler) broadcast(msg websocket.Message) {
	if h.hub != nil {
		h.hub.Broadcast(msg)
	}
}

func (h *WishlistHandler) List(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	items, err := h.wishlist.ListByChild(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list wishlist"})
		return
	}
	if items == nil {
		items = []model.WishlistItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

type wishlistRequest struct {
	Title     string `json:"title"`
	CostCoins int    `json:"cost_coins"`
}

func (h *WishlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	var req wishlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}
	if req.CostCoins < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cost_coins must not be negative"})
		return
	}

	child, err := h.profiles.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get profile"})
		return
	}
	if child == nil || child.Role != model.RoleChild {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	item, err := h.wishlist.Create(id, req.Title, req.CostCoins)
	if err != nil {
		h.logger.Error("create wishlist item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create wishlist item"})
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *WishlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	if err := h.wishlist.Delete(id); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete wishlist item"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Redeem marks an affordable item redeemed. Coins are not debited; the
// balance is a record of what was earned, and the wishlist tracks what
// it has been promised against.
func (h *WishlistHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	item, err := h.wishlist.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get wishlist item"})
		return
	}
	if item == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "wishlist item not found"})
		return
	}
	if item.Redeemed {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already redeemed"})
		return
	}

	child, err := h.profiles.GetByID(item.ChildID)
	if err != nil || child == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get profile"})
		return
	}
	if child.Coins < item.CostCoins {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "not enough coins"})
		return
	}

	if err := h.wishlist.SetRedeemed(id); err != nil {
		h.logger.Error("redeem wishlist item", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to redeem"})
		return
	}

	var familyID int64
	if child.FamilyID != nil {
		familyID = *child.FamilyID
	}
	h.broadcast(websocket.NewMessage("wishlist_item", "redeemed", id, familyID, map[string]any{
		"child_id": item.ChildID,
	}))

	item, err = h.wishlist.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get wishlist item"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}
