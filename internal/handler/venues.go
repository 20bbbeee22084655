package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// VenueStore defines the database methods needed by venue handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type VenueStore interface {
	ListVenues(ctx context.Context) ([]database.Venue, error)
	GetVenue(ctx context.Context, id string) (database.Venue, error)
	ListVenueCategories(ctx context.Context, venueID string) ([]database.Category, error)
}

// MediaLinker turns stored media paths into URLs clients can load.
// Satisfied by *service.MenuService.
type MediaLinker interface {
	MediaURL(path string) string
}

// VenueHandler handles the public venue endpoints.
type VenueHandler struct {
	store VenueStore
	media MediaLinker
}

// NewVenueHandler creates a new VenueHandler.
func NewVenueHandler(store VenueStore, media MediaLinker) *VenueHandler {
	return &VenueHandler{store: store, media: media}
}

// RegisterRoutes registers venue endpoints on the given Chi router.
// Expected to be mounted at /venues.
func (h *VenueHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{vid}", h.Get)
	r.Get("/{vid}/settings", h.Settings)
	r.Get("/{vid}/categories", h.Categories)
}

// --- Response types ---

type venueResponse struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	CoverImage        *string `json:"cover_image"`
	LogoImage         *string `json:"logo_image"`
	KitchenCategories *string `json:"kitchen_categories"`
	Rating            *string `json:"rating"`
	CookingTime       *string `json:"cooking_time"`
	Status            *string `json:"status"`
	OpeningHours      *string `json:"opening_hours"`
	MinOrderAmount    int64   `json:"min_order_amount"`
}

type venueSettingsResponse struct {
	MinOrderAmount int64 `json:"min_order_amount"`
}

type categoryResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Icon            *string `json:"icon"`
	BackgroundColor *string `json:"background_color"`
}

// --- Handlers ---

// List handles GET /venues.
func (h *VenueHandler) List(w http.ResponseWriter, r *http.Request) {
	venues, err := h.store.ListVenues(r.Context())
	if err != nil {
		log.Printf("ERROR: list venues: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]venueResponse, len(venues))
	for i, v := range venues {
		resp[i] = h.toVenueResponse(v)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /venues/{vid}.
func (h *VenueHandler) Get(w http.ResponseWriter, r *http.Request) {
	venue, ok := h.loadVenue(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.toVenueResponse(venue))
}

// Settings handles GET /venues/{vid}/settings.
func (h *VenueHandler) Settings(w http.ResponseWriter, r *http.Request) {
	venue, ok := h.loadVenue(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, venueSettingsResponse{MinOrderAmount: venue.MinOrderAmount})
}

// Categories handles GET /venues/{vid}/categories. Only categories with at
// least one sellable product at the venue are listed.
func (h *VenueHandler) Categories(w http.ResponseWriter, r *http.Request) {
	venue, ok := h.loadVenue(w, r)
	if !ok {
		return
	}

	categories, err := h.store.ListVenueCategories(r.Context(), venue.ID)
	if err != nil {
		log.Printf("ERROR: list categories for venue %s: %v", venue.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]categoryResponse, len(categories))
	for i, c := range categories {
		resp[i] = categoryResponse{
			ID:              c.ID,
			Name:            c.Name,
			Icon:            h.mediaPtr(c.Icon),
			BackgroundColor: textPtr(c.BackgroundColor),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func (h *VenueHandler) loadVenue(w http.ResponseWriter, r *http.Request) (database.Venue, bool) {
	venue, err := h.store.GetVenue(r.Context(), chi.URLParam(r, "vid"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "venue not found"})
			return database.Venue{}, false
		}
		log.Printf("ERROR: get venue: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return database.Venue{}, false
	}
	return venue, true
}

func (h *VenueHandler) toVenueResponse(v database.Venue) venueResponse {
	return venueResponse{
		ID:                v.ID,
		Name:              v.Name,
		CoverImage:        h.mediaPtr(v.CoverImage),
		LogoImage:         h.mediaPtr(v.LogoImage),
		KitchenCategories: textPtr(v.KitchenCategories),
		Rating:            textPtr(v.Rating),
		CookingTime:       textPtr(v.CookingTime),
		Status:            textPtr(v.Status),
		OpeningHours:      textPtr(v.OpeningHours),
		MinOrderAmount:    v.MinOrderAmount,
	}
}

func (h *VenueHandler) mediaPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := h.media.MediaURL(t.String)
	return &s
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}
