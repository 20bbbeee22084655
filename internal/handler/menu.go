package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/ezh-cafe/api/internal/service"
	"github.com/go-chi/chi/v5"
)

// MenuServicer defines the service methods needed by menu handlers.
// Satisfied by *service.MenuService; narrow interface for testability.
type MenuServicer interface {
	PopularMenu(ctx context.Context, venueID string) ([]service.ProductView, error)
	CategoryMenu(ctx context.Context, venueID, categoryID string) ([]service.ProductView, error)
	ProductDetails(ctx context.Context, venueID, productID string) (*service.ProductView, error)
}

// MenuHandler serves menus assembled for a venue.
type MenuHandler struct {
	svc MenuServicer
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(svc MenuServicer) *MenuHandler {
	return &MenuHandler{svc: svc}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
// Expected to be mounted at /venues.
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{vid}/popular", h.Popular)
	r.Get("/{vid}/menu/{cid}", h.Category)
	r.Get("/{vid}/menu/details/{pid}", h.Details)
}

// Popular handles GET /venues/{vid}/popular.
func (h *MenuHandler) Popular(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.PopularMenu(r.Context(), chi.URLParam(r, "vid"))
	if err != nil {
		log.Printf("ERROR: popular menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Category handles GET /venues/{vid}/menu/{cid}.
func (h *MenuHandler) Category(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.CategoryMenu(r.Context(), chi.URLParam(r, "vid"), chi.URLParam(r, "cid"))
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "category not found"})
			return
		}
		log.Printf("ERROR: category menu: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// Details handles GET /venues/{vid}/menu/details/{pid}.
func (h *MenuHandler) Details(w http.ResponseWriter, r *http.Request) {
	product, err := h.svc.ProductDetails(r.Context(), chi.URLParam(r, "vid"), chi.URLParam(r, "pid"))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: product details: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, product)
}
