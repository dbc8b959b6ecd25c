package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aldomata/storefront-checkout/internal/cart"
	"github.com/aldomata/storefront-checkout/internal/checkout/domain"
)

// CartHandler exposes cart state over HTTP. Carts are addressed by an opaque
// client-chosen id (session or device id); there is no server-side session.
type CartHandler struct {
	store *cart.Store
}

func NewCartHandler(store *cart.Store) *CartHandler {
	return &CartHandler{store: store}
}

// GetCart returns the cart; an unknown id yields an empty cart, not a 404.
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	c, err := h.store.Get(r.Context(), cartID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

// AddItem appends or increments a line.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")

	var req CartAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	kind := domain.ItemKind(req.Kind)
	if !kind.Valid() || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "invalid_item", "kind and item_id are required")
		return
	}

	c, err := h.store.AddItem(r.Context(), cartID, kind, req.ItemID, req.DisplayPrice)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

// SetQuantity updates a line's quantity; zero or negative removes the line.
func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")

	var req CartQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	kind := domain.ItemKind(req.Kind)
	if !kind.Valid() || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "invalid_item", "kind and item_id are required")
		return
	}

	c, err := h.store.SetQuantity(r.Context(), cartID, kind, req.ItemID, req.Quantity)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

// RemoveItem drops a line.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	kind := domain.ItemKind(chi.URLParam(r, "kind"))
	itemID := chi.URLParam(r, "itemID")
	if !kind.Valid() || itemID == "" {
		writeError(w, http.StatusBadRequest, "invalid_item", "kind and item id are required")
		return
	}

	c, err := h.store.RemoveItem(r.Context(), cartID, kind, itemID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, mapCartToResponse(c))
}

// ClearCart discards the cart entirely.
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	if err := h.store.Clear(r.Context(), cartID); err != nil {
		writeError(w, http.StatusInternalServerError, "cart_error", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func mapCartToResponse(c *cart.Cart) CartResponse {
	lines := make([]CartLineResponse, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = CartLineResponse{
			Kind:         string(l.Kind),
			ItemID:       l.ItemID,
			Quantity:     l.Quantity,
			DisplayPrice: l.DisplayPrice,
		}
	}
	return CartResponse{
		ID:           c.ID,
		Lines:        lines,
		Count:        c.Count(),
		DisplayTotal: c.DisplayTotal(),
	}
}
