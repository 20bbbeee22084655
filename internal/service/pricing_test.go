package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ezh-cafe/api/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeOverlay is an in-memory PricingStore for one venue. Missing keys behave
// like a missing overlay row.
type fakeOverlay struct {
	venueID  string
	variants map[string]database.GetVariantForOrderRow
	addons   map[string]database.GetAddonForOrderRow
	err      error
}

func (f *fakeOverlay) GetVariantForOrder(ctx context.Context, arg database.GetVariantForOrderParams) (database.GetVariantForOrderRow, error) {
	if f.err != nil {
		return database.GetVariantForOrderRow{}, f.err
	}
	row, ok := f.variants[arg.VariantID]
	if !ok || arg.VenueID != f.venueID {
		return database.GetVariantForOrderRow{}, pgx.ErrNoRows
	}
	return row, nil
}

func (f *fakeOverlay) GetAddonForOrder(ctx context.Context, arg database.GetAddonForOrderParams) (database.GetAddonForOrderRow, error) {
	row, ok := f.addons[arg.AddonItemID]
	if !ok || arg.VenueID != f.venueID {
		return database.GetAddonForOrderRow{}, pgx.ErrNoRows
	}
	return row, nil
}

func coffeeOverlay() *fakeOverlay {
	return &fakeOverlay{
		venueID: "venue-v",
		variants: map[string]database.GetVariantForOrderRow{
			"latte-large": {
				VariantID: "latte-large", VariantName: "Large",
				ProductID: "latte", ProductName: "Latte",
				Price: 35000, IsAvailable: true,
			},
			"latte-small": {
				VariantID: "latte-small", VariantName: "Small",
				ProductID: "latte", ProductName: "Latte",
				Price: 25000, IsAvailable: false,
			},
			"water": {
				VariantID: "water", VariantName: "0.5",
				ProductID: "tap-water", ProductName: "Water",
				Price: 0, IsAvailable: true,
			},
		},
		addons: map[string]database.GetAddonForOrderRow{
			"oat-milk": {AddonItemID: "oat-milk", Name: "Oat Milk", GroupID: "milk", Price: 5000, IsAvailable: true, Eligible: true},
			"syrup":    {AddonItemID: "syrup", Name: "Syrup", GroupID: "extras", Price: 3000, IsAvailable: false, Eligible: true},
			"cheese":   {AddonItemID: "cheese", Name: "Cheese", GroupID: "toppings", Price: 4000, IsAvailable: true, Eligible: false},
			"ice":      {AddonItemID: "ice", Name: "Ice", GroupID: "extras", Price: 0, IsAvailable: true, Eligible: true},
		},
	}
}

func latteLine(qty int32, addons ...string) CartLine {
	line := CartLine{
		ProductID:   "latte",
		ProductName: "Latte",
		VariantID:   "latte-large",
		VariantName: "Large",
		Quantity:    qty,
	}
	for _, id := range addons {
		line.Addons = append(line.Addons, SelectedAddon{ID: id})
	}
	return line
}

func TestPriceCart_LatteWithOatMilk(t *testing.T) {
	cart, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{latteLine(1, "oat-milk")}, 10000)
	require.NoError(t, err)

	assert.Equal(t, int64(40000), cart.Total)
	require.Len(t, cart.InvoiceLines, 1)
	assert.Equal(t, InvoiceLine{Label: "Latte (Large) + Oat Milk x1", Amount: 40000}, cart.InvoiceLines[0])

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, int64(40000), cart.Lines[0].UnitPrice)
	assert.Equal(t, []PricedAddon{{ID: "oat-milk", Name: "Oat Milk", Price: 5000}}, cart.Lines[0].Addons)
}

func TestPriceCart_QuantityMultipliesUnitPrice(t *testing.T) {
	cart, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{latteLine(3, "oat-milk")}, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(120000), cart.Total)
	assert.Equal(t, int64(120000), cart.InvoiceLines[0].Amount)
	assert.Equal(t, "Latte (Large) + Oat Milk x3", cart.InvoiceLines[0].Label)
}

func TestPriceCart_IgnoresClientNames(t *testing.T) {
	line := latteLine(1)
	line.ProductName = "Free Coffee"
	line.VariantName = "Huge"

	cart, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{line}, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(35000), cart.Total)
	assert.Equal(t, "Latte (Large) x1", cart.InvoiceLines[0].Label)
	assert.Equal(t, "Latte", cart.Lines[0].ProductName)
}

func TestPriceCart_ClientNameUsedWhenCatalogNameEmpty(t *testing.T) {
	overlay := coffeeOverlay()
	row := overlay.variants["latte-large"]
	row.VariantName = ""
	overlay.variants["latte-large"] = row

	cart, err := PriceCart(context.Background(), overlay, "venue-v", []CartLine{latteLine(1)}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Latte (Large) x1", cart.InvoiceLines[0].Label)
}

func TestPriceCart_UnavailableVariant(t *testing.T) {
	tests := []struct {
		name      string
		variantID string
	}{
		{"no overlay row", "espresso"},
		{"overlay marked unavailable", "latte-small"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := latteLine(1)
			line.VariantID = tt.variantID

			_, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{latteLine(1), line}, 0)
			require.ErrorIs(t, err, ErrItemUnavailable)

			var unavailable *UnavailableError
			require.ErrorAs(t, err, &unavailable)
			assert.Equal(t, "variant", unavailable.Kind)
			assert.Equal(t, tt.variantID, unavailable.ID)
		})
	}
}

func TestPriceCart_OtherVenueIsUnavailable(t *testing.T) {
	_, err := PriceCart(context.Background(), coffeeOverlay(), "venue-w", []CartLine{latteLine(1)}, 0)
	require.ErrorIs(t, err, ErrItemUnavailable)
}

func TestPriceCart_UnavailableAddon(t *testing.T) {
	for _, id := range []string{"syrup", "caramel"} {
		t.Run(id, func(t *testing.T) {
			_, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{latteLine(1, "oat-milk", id)}, 0)
			require.ErrorIs(t, err, ErrItemUnavailable)

			var unavailable *UnavailableError
			require.ErrorAs(t, err, &unavailable)
			assert.Equal(t, "addon", unavailable.Kind)
			assert.Equal(t, id, unavailable.ID)
			assert.Contains(t, err.Error(), "line[0].addons[1]")
		})
	}
}

func TestPriceCart_AddonNotEligible(t *testing.T) {
	_, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{latteLine(1, "cheese")}, 0)
	assert.ErrorIs(t, err, ErrAddonNotEligible)
}

func TestPriceCart_VariantOfAnotherProduct(t *testing.T) {
	line := latteLine(1)
	line.ProductID = "cappuccino"

	_, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{line}, 0)
	assert.ErrorIs(t, err, ErrVariantMismatch)
}

func TestPriceCart_InvalidQuantity(t *testing.T) {
	for _, qty := range []int32{0, -2} {
		_, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{latteLine(qty)}, 0)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
	}
}

func TestPriceCart_MissingVariant(t *testing.T) {
	line := latteLine(1)
	line.VariantID = ""

	_, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{latteLine(1), line}, 0)
	assert.ErrorIs(t, err, ErrMissingVariant)
	assert.Contains(t, err.Error(), "line[1]")
}

func TestPriceCart_EmptyCart(t *testing.T) {
	_, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", nil, 0)
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestPriceCart_MinimumOrder(t *testing.T) {
	_, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{latteLine(1)}, 50000)
	require.ErrorIs(t, err, ErrBelowMinimumOrder)

	var below *BelowMinimumError
	require.ErrorAs(t, err, &below)
	assert.Equal(t, int64(50000), below.Minimum)
	assert.Equal(t, int64(35000), below.Total)

	cart, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{latteLine(1)}, 35000)
	require.NoError(t, err)
	assert.Equal(t, int64(35000), cart.Total)
}

func TestPriceCart_ZeroAmountLinesNotInvoiced(t *testing.T) {
	water := CartLine{ProductID: "tap-water", VariantID: "water", Quantity: 2, Addons: []SelectedAddon{{ID: "ice"}}}

	cart, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", []CartLine{water, latteLine(1)}, 0)
	require.NoError(t, err)

	assert.Equal(t, int64(35000), cart.Total)
	require.Len(t, cart.Lines, 2)
	assert.Equal(t, int64(0), cart.Lines[0].LineTotal)
	require.Len(t, cart.InvoiceLines, 1)
	for _, l := range cart.InvoiceLines {
		assert.Positive(t, l.Amount)
	}
}

func TestPriceCart_Deterministic(t *testing.T) {
	lines := []CartLine{latteLine(2, "oat-milk"), latteLine(1)}
	first, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", lines, 0)
	require.NoError(t, err)
	second, err := PriceCart(context.Background(), coffeeOverlay(), "venue-v", lines, 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestPriceCart_StoreError(t *testing.T) {
	overlay := coffeeOverlay()
	overlay.err = errors.New("connection reset")

	_, err := PriceCart(context.Background(), overlay, "venue-v", []CartLine{latteLine(1)}, 0)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrItemUnavailable)
	assert.Contains(t, err.Error(), "get variant")
}

func TestInvoiceLabel_TruncatesAndKeepsQuantity(t *testing.T) {
	label := invoiceLabel("Чизкейк Нью-Йорк с малиновым соусом", "Большой", nil, 12)

	assert.LessOrEqual(t, utf8.RuneCountInString(label), MaxLabelLength)
	assert.True(t, strings.HasSuffix(label, "… x12"), label)
}

func TestInvoiceLabel_DropsAddonsThatDoNotFit(t *testing.T) {
	label := invoiceLabel("Cappuccino", "Large", []string{"Oat Milk", "Caramel Syrup"}, 1)

	assert.Equal(t, "Cappuccino (Large) + Oat Milk x1", label)
}

func TestInvoiceLabel_NoVariant(t *testing.T) {
	assert.Equal(t, "Brownie x2", invoiceLabel("Brownie", "", nil, 2))
}

func TestInvoiceLabel_AlwaysWithinLimit(t *testing.T) {
	names := []string{"", "A", "Latte", strings.Repeat("x", 31), strings.Repeat("щ", 40), "Flat White Double Shot Extra Hot"}
	quantities := []int32{1, 9, 10, 999, 2147483647}

	for _, product := range names {
		for _, variant := range names {
			for _, qty := range quantities {
				label := invoiceLabel(product, variant, []string{"Oat Milk", "Vanilla"}, qty)
				suffix := " x" + formatCost(int64(qty))
				if utf8.RuneCountInString(label) > MaxLabelLength {
					t.Fatalf("label %q is longer than %d", label, MaxLabelLength)
				}
				if !strings.HasSuffix(label, suffix) {
					t.Fatalf("label %q lost suffix %q", label, suffix)
				}
			}
		}
	}
}
