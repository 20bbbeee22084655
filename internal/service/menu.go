package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the menu service.
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrProductNotFound  = errors.New("product not found")
)

const mediaPrefix = "/media/"

// MenuStore defines the DB methods needed to assemble menus.
// Satisfied by *database.Queries; narrow interface for testability.
type MenuStore interface {
	GetCategory(ctx context.Context, id string) (database.Category, error)
	ListVenueMenuRows(ctx context.Context, arg database.ListVenueMenuRowsParams) ([]database.ListVenueMenuRowsRow, error)
	ListVenueAddonRows(ctx context.Context, arg database.ListVenueAddonRowsParams) ([]database.ListVenueAddonRowsRow, error)
}

// MenuFilter narrows an assembled menu. Zero values mean no restriction.
type MenuFilter struct {
	CategoryID  string
	ProductID   string
	PopularOnly bool
}

// ProductView is a product as sold at one venue.
type ProductView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Image       string           `json:"image"`
	CategoryID  string           `json:"category_id"`
	SubCategory string           `json:"sub_category,omitempty"`
	Variants    []VariantView    `json:"variants"`
	Addons      []AddonGroupView `json:"addons"`
}

type VariantView struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Cost   string `json:"cost"`
	Weight string `json:"weight,omitempty"`
}

type AddonGroupView struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Items []AddonItemView `json:"items"`
}

type AddonItemView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Cost string `json:"cost"`
}

// MenuService assembles venue menus from the global catalog and the venue
// overlays. Overlays are read on every call.
type MenuService struct {
	store        MenuStore
	mediaBaseURL string
}

// NewMenuService creates a new MenuService. Images stored as /media/ paths are
// served under mediaBaseURL when it is set.
func NewMenuService(store MenuStore, mediaBaseURL string) *MenuService {
	return &MenuService{store: store, mediaBaseURL: strings.TrimRight(mediaBaseURL, "/")}
}

// AssembleMenu returns the products sellable at the venue. An unknown venue
// yields an empty menu.
func (s *MenuService) AssembleMenu(ctx context.Context, venueID string, f MenuFilter) ([]ProductView, error) {
	rows, err := s.store.ListVenueMenuRows(ctx, database.ListVenueMenuRowsParams{
		VenueID:     venueID,
		CategoryID:  optionalText(f.CategoryID),
		ProductID:   optionalText(f.ProductID),
		PopularOnly: f.PopularOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("list menu rows: %w", err)
	}
	if len(rows) == 0 {
		return []ProductView{}, nil
	}

	productIDs := make([]string, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		if !seen[r.ProductID] {
			seen[r.ProductID] = true
			productIDs = append(productIDs, r.ProductID)
		}
	}

	addonRows, err := s.store.ListVenueAddonRows(ctx, database.ListVenueAddonRowsParams{
		VenueID:    venueID,
		ProductIds: productIDs,
	})
	if err != nil {
		return nil, fmt.Errorf("list addon rows: %w", err)
	}

	views := groupMenu(rows, addonRows)
	for i := range views {
		views[i].Image = s.mediaURL(views[i].Image)
	}
	return views, nil
}

// PopularMenu is the venue menu restricted to popular products.
func (s *MenuService) PopularMenu(ctx context.Context, venueID string) ([]ProductView, error) {
	return s.AssembleMenu(ctx, venueID, MenuFilter{PopularOnly: true})
}

// CategoryMenu is the venue menu for one category. Unlike an empty menu, a
// category that does not exist is an error.
func (s *MenuService) CategoryMenu(ctx context.Context, venueID, categoryID string) ([]ProductView, error) {
	if _, err := s.store.GetCategory(ctx, categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return s.AssembleMenu(ctx, venueID, MenuFilter{CategoryID: categoryID})
}

// ProductDetails returns a single product as sold at the venue.
func (s *MenuService) ProductDetails(ctx context.Context, venueID, productID string) (*ProductView, error) {
	views, err := s.AssembleMenu(ctx, venueID, MenuFilter{ProductID: productID})
	if err != nil {
		return nil, err
	}
	if len(views) == 0 {
		return nil, ErrProductNotFound
	}
	return &views[0], nil
}

// MediaURL makes a stored /media/ path absolute. Other values pass through.
func (s *MenuService) MediaURL(path string) string {
	return s.mediaURL(path)
}

func (s *MenuService) mediaURL(path string) string {
	if s.mediaBaseURL == "" || !strings.HasPrefix(path, mediaPrefix) {
		return path
	}
	return s.mediaBaseURL + path
}

// groupMenu folds flat overlay rows into one view per product, keeping row
// order. Add-on rows only contain available items, so a group shows up only
// when at least one of its items is sellable.
func groupMenu(rows []database.ListVenueMenuRowsRow, addonRows []database.ListVenueAddonRowsRow) []ProductView {
	views := []ProductView{}
	byProduct := make(map[string]int)

	for _, r := range rows {
		i, ok := byProduct[r.ProductID]
		if !ok {
			i = len(views)
			byProduct[r.ProductID] = i
			views = append(views, ProductView{
				ID:          r.ProductID,
				Name:        r.ProductName,
				Description: r.Description.String,
				Image:       r.Image.String,
				CategoryID:  r.CategoryID,
				SubCategory: r.SubCategory.String,
				Variants:    []VariantView{},
				Addons:      []AddonGroupView{},
			})
		}
		views[i].Variants = append(views[i].Variants, VariantView{
			ID:     r.VariantID,
			Name:   r.VariantName,
			Cost:   formatCost(r.Price),
			Weight: r.Weight.String,
		})
	}

	byGroup := make(map[[2]string]int)
	for _, a := range addonRows {
		i, ok := byProduct[a.ProductID]
		if !ok {
			continue
		}
		key := [2]string{a.ProductID, a.GroupID}
		g, ok := byGroup[key]
		if !ok {
			g = len(views[i].Addons)
			byGroup[key] = g
			views[i].Addons = append(views[i].Addons, AddonGroupView{
				ID:    a.GroupID,
				Name:  a.GroupName,
				Items: []AddonItemView{},
			})
		}
		views[i].Addons[g].Items = append(views[i].Addons[g].Items, AddonItemView{
			ID:   a.ItemID,
			Name: a.ItemName,
			Cost: formatCost(a.Price),
		})
	}

	return views
}

// formatCost renders a price as an integer count of minor units.
func formatCost(minor int64) string {
	return decimal.NewFromInt(minor).String()
}

func optionalText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
