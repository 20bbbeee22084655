package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/jackc/pgx/v5"
)

// Errors returned while pricing a cart.
var (
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidQuantity   = errors.New("quantity must be > 0")
	ErrMissingVariant    = errors.New("variant_id is required")
	ErrItemUnavailable   = errors.New("item unavailable")
	ErrVariantMismatch   = errors.New("variant does not belong to product")
	ErrAddonNotEligible  = errors.New("add-on is not offered for this product")
	ErrBelowMinimumOrder = errors.New("order total is below the minimum order amount")
)

// UnavailableError names the variant or add-on that is not sellable at the
// venue. It matches ErrItemUnavailable with errors.Is.
type UnavailableError struct {
	Kind string // "variant" or "addon"
	ID   string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s %s is unavailable", e.Kind, e.ID)
}

func (e *UnavailableError) Unwrap() error { return ErrItemUnavailable }

// BelowMinimumError carries the venue threshold so the client can adjust the
// cart. It matches ErrBelowMinimumOrder with errors.Is.
type BelowMinimumError struct {
	Minimum int64
	Total   int64
}

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("order total %d is below the minimum order amount %d", e.Total, e.Minimum)
}

func (e *BelowMinimumError) Unwrap() error { return ErrBelowMinimumOrder }

// PricingStore resolves venue overlays.
// Satisfied by *database.Queries; narrow interface for testability.
type PricingStore interface {
	GetVariantForOrder(ctx context.Context, arg database.GetVariantForOrderParams) (database.GetVariantForOrderRow, error)
	GetAddonForOrder(ctx context.Context, arg database.GetAddonForOrderParams) (database.GetAddonForOrderRow, error)
}

// SelectedAddon is an add-on chosen by the client. Name is cosmetic.
type SelectedAddon struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CartLine is one line of a submitted cart. Names are cosmetic and any cost the
// client saw is never read.
type CartLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	VariantID   string          `json:"variant_id"`
	VariantName string          `json:"variant_name"`
	Quantity    int32           `json:"quantity"`
	Addons      []SelectedAddon `json:"addons"`
}

// PricedAddon is an add-on with the overlay price it was sold at.
type PricedAddon struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price"`
}

// PricedLine is a cart line as stored in the order snapshot.
type PricedLine struct {
	ProductID   string        `json:"product_id"`
	ProductName string        `json:"product_name"`
	VariantID   string        `json:"variant_id"`
	VariantName string        `json:"variant_name"`
	Quantity    int32         `json:"quantity"`
	UnitPrice   int64         `json:"unit_price"`
	LineTotal   int64         `json:"line_total"`
	Addons      []PricedAddon `json:"addons"`
}

// PricedCart is the result of PriceCart.
type PricedCart struct {
	Total        int64
	Lines        []PricedLine
	InvoiceLines []InvoiceLine
}

// PriceCart re-derives every price of the cart from the venue overlays. Any
// line that cannot be priced rejects the whole cart. A minOrder of zero
// disables the minimum check.
func PriceCart(ctx context.Context, store PricingStore, venueID string, lines []CartLine, minOrder int64) (*PricedCart, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	cart := &PricedCart{
		Lines:        make([]PricedLine, 0, len(lines)),
		InvoiceLines: []InvoiceLine{},
	}

	for i, line := range lines {
		if line.VariantID == "" {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrMissingVariant)
		}
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrInvalidQuantity)
		}

		variant, err := store.GetVariantForOrder(ctx, database.GetVariantForOrderParams{
			VenueID:   venueID,
			VariantID: line.VariantID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("line[%d]: %w", i, &UnavailableError{Kind: "variant", ID: line.VariantID})
			}
			return nil, fmt.Errorf("line[%d]: get variant: %w", i, err)
		}
		if !variant.IsAvailable {
			return nil, fmt.Errorf("line[%d]: %w", i, &UnavailableError{Kind: "variant", ID: line.VariantID})
		}
		if line.ProductID != "" && line.ProductID != variant.ProductID {
			return nil, fmt.Errorf("line[%d]: %w", i, ErrVariantMismatch)
		}

		priced := PricedLine{
			ProductID:   variant.ProductID,
			ProductName: firstNonEmpty(variant.ProductName, line.ProductName),
			VariantID:   variant.VariantID,
			VariantName: firstNonEmpty(variant.VariantName, line.VariantName),
			Quantity:    line.Quantity,
			UnitPrice:   variant.Price,
			Addons:      []PricedAddon{},
		}

		addonNames := make([]string, 0, len(line.Addons))
		for j, sel := range line.Addons {
			addon, err := store.GetAddonForOrder(ctx, database.GetAddonForOrderParams{
				VenueID:     venueID,
				ProductID:   variant.ProductID,
				AddonItemID: sel.ID,
			})
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return nil, fmt.Errorf("line[%d].addons[%d]: %w", i, j, &UnavailableError{Kind: "addon", ID: sel.ID})
				}
				return nil, fmt.Errorf("line[%d].addons[%d]: get addon: %w", i, j, err)
			}
			if !addon.IsAvailable {
				return nil, fmt.Errorf("line[%d].addons[%d]: %w", i, j, &UnavailableError{Kind: "addon", ID: sel.ID})
			}
			if !addon.Eligible {
				return nil, fmt.Errorf("line[%d].addons[%d]: %w", i, j, ErrAddonNotEligible)
			}

			name := firstNonEmpty(addon.Name, sel.Name)
			priced.UnitPrice += addon.Price
			priced.Addons = append(priced.Addons, PricedAddon{ID: addon.AddonItemID, Name: name, Price: addon.Price})
			addonNames = append(addonNames, name)
		}

		priced.LineTotal = priced.UnitPrice * int64(line.Quantity)
		cart.Total += priced.LineTotal
		cart.Lines = append(cart.Lines, priced)

		// The payment provider rejects zero-amount items.
		if priced.LineTotal > 0 {
			cart.InvoiceLines = append(cart.InvoiceLines, InvoiceLine{
				Label:  invoiceLabel(priced.ProductName, priced.VariantName, addonNames, line.Quantity),
				Amount: priced.LineTotal,
			})
		}
	}

	if minOrder > 0 && cart.Total < minOrder {
		return nil, &BelowMinimumError{Minimum: minOrder, Total: cart.Total}
	}

	return cart, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
