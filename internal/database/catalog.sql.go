package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listVenues = `-- name: ListVenues :many
SELECT id, name, cover_image, logo_image, kitchen_categories, rating, cooking_time, status, opening_hours, min_order_amount
FROM venues
ORDER BY name, id
`

func (q *Queries) ListVenues(ctx context.Context) ([]Venue, error) {
	rows, err := q.db.Query(ctx, listVenues)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Venue{}
	for rows.Next() {
		var i Venue
		if err := rows.Scan(
			&i.ID,
			&i.Name,
			&i.CoverImage,
			&i.LogoImage,
			&i.KitchenCategories,
			&i.Rating,
			&i.CookingTime,
			&i.Status,
			&i.OpeningHours,
			&i.MinOrderAmount,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getVenue = `-- name: GetVenue :one
SELECT id, name, cover_image, logo_image, kitchen_categories, rating, cooking_time, status, opening_hours, min_order_amount
FROM venues
WHERE id = $1
`

func (q *Queries) GetVenue(ctx context.Context, id string) (Venue, error) {
	row := q.db.QueryRow(ctx, getVenue, id)
	var i Venue
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.CoverImage,
		&i.LogoImage,
		&i.KitchenCategories,
		&i.Rating,
		&i.CookingTime,
		&i.Status,
		&i.OpeningHours,
		&i.MinOrderAmount,
	)
	return i, err
}

const getCategory = `-- name: GetCategory :one
SELECT id, name, icon, background_color
FROM categories
WHERE id = $1
`

func (q *Queries) GetCategory(ctx context.Context, id string) (Category, error) {
	row := q.db.QueryRow(ctx, getCategory, id)
	var i Category
	err := row.Scan(&i.ID, &i.Name, &i.Icon, &i.BackgroundColor)
	return i, err
}

const listVenueCategories = `-- name: ListVenueCategories :many
SELECT c.id, c.name, c.icon, c.background_color
FROM categories c
WHERE EXISTS (
    SELECT 1
    FROM products p
    JOIN product_variants v ON v.product_id = p.id
    JOIN venue_menu_items vmi ON vmi.variant_id = v.id
    WHERE p.category_id = c.id
      AND vmi.venue_id = $1
      AND vmi.is_available
)
ORDER BY c.name, c.id
`

// ListVenueCategories returns the categories that have at least one variant
// sellable at the venue.
func (q *Queries) ListVenueCategories(ctx context.Context, venueID string) ([]Category, error) {
	rows, err := q.db.Query(ctx, listVenueCategories, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Category{}
	for rows.Next() {
		var i Category
		if err := rows.Scan(&i.ID, &i.Name, &i.Icon, &i.BackgroundColor); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listVenueMenuRows = `-- name: ListVenueMenuRows :many
SELECT p.id, p.name, p.description, p.image, p.category_id, p.sub_category, p.is_popular,
       v.id, v.name, v.weight, vmi.price
FROM venue_menu_items vmi
JOIN product_variants v ON v.id = vmi.variant_id
JOIN products p ON p.id = v.product_id
WHERE vmi.venue_id = $1
  AND vmi.is_available
  AND ($2::text IS NULL OR p.category_id = $2::text)
  AND ($3::text IS NULL OR p.id = $3::text)
  AND (NOT $4::boolean OR p.is_popular)
ORDER BY p.name, p.id, v.position, v.id
`

type ListVenueMenuRowsParams struct {
	VenueID     string      `json:"venue_id"`
	CategoryID  pgtype.Text `json:"category_id"`
	ProductID   pgtype.Text `json:"product_id"`
	PopularOnly bool        `json:"popular_only"`
}

type ListVenueMenuRowsRow struct {
	ProductID   string      `json:"product_id"`
	ProductName string      `json:"product_name"`
	Description pgtype.Text `json:"description"`
	Image       pgtype.Text `json:"image"`
	CategoryID  string      `json:"category_id"`
	SubCategory pgtype.Text `json:"sub_category"`
	IsPopular   bool        `json:"is_popular"`
	VariantID   string      `json:"variant_id"`
	VariantName string      `json:"variant_name"`
	Weight      pgtype.Text `json:"weight"`
	Price       int64       `json:"price"`
}

// ListVenueMenuRows returns one flat row per available variant overlay,
// ordered so rows of the same product are adjacent.
func (q *Queries) ListVenueMenuRows(ctx context.Context, arg ListVenueMenuRowsParams) ([]ListVenueMenuRowsRow, error) {
	rows, err := q.db.Query(ctx, listVenueMenuRows,
		arg.VenueID,
		arg.CategoryID,
		arg.ProductID,
		arg.PopularOnly,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListVenueMenuRowsRow{}
	for rows.Next() {
		var i ListVenueMenuRowsRow
		if err := rows.Scan(
			&i.ProductID,
			&i.ProductName,
			&i.Description,
			&i.Image,
			&i.CategoryID,
			&i.SubCategory,
			&i.IsPopular,
			&i.VariantID,
			&i.VariantName,
			&i.Weight,
			&i.Price,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listVenueAddonRows = `-- name: ListVenueAddonRows :many
SELECT pag.product_id, g.id, g.name, ai.id, ai.name, vai.price
FROM product_addon_groups pag
JOIN addon_groups g ON g.id = pag.group_id
JOIN addon_items ai ON ai.group_id = g.id
JOIN venue_addon_items vai ON vai.addon_item_id = ai.id AND vai.venue_id = $1
WHERE pag.product_id = ANY($2::text[])
  AND vai.is_available
ORDER BY pag.product_id, pag.position, g.id, ai.position, ai.id
`

type ListVenueAddonRowsParams struct {
	VenueID    string   `json:"venue_id"`
	ProductIds []string `json:"product_ids"`
}

type ListVenueAddonRowsRow struct {
	ProductID string `json:"product_id"`
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
	Price     int64  `json:"price"`
}

// ListVenueAddonRows returns the available add-on items of every group linked
// to the given products. Items without an available overlay are excluded.
func (q *Queries) ListVenueAddonRows(ctx context.Context, arg ListVenueAddonRowsParams) ([]ListVenueAddonRowsRow, error) {
	rows, err := q.db.Query(ctx, listVenueAddonRows, arg.VenueID, arg.ProductIds)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListVenueAddonRowsRow{}
	for rows.Next() {
		var i ListVenueAddonRowsRow
		if err := rows.Scan(
			&i.ProductID,
			&i.GroupID,
			&i.GroupName,
			&i.ItemID,
			&i.ItemName,
			&i.Price,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getVariantForOrder = `-- name: GetVariantForOrder :one
SELECT v.id, v.name, p.id, p.name, vmi.price, vmi.is_available
FROM venue_menu_items vmi
JOIN product_variants v ON v.id = vmi.variant_id
JOIN products p ON p.id = v.product_id
WHERE vmi.venue_id = $1 AND vmi.variant_id = $2
`

type GetVariantForOrderParams struct {
	VenueID   string `json:"venue_id"`
	VariantID string `json:"variant_id"`
}

type GetVariantForOrderRow struct {
	VariantID   string `json:"variant_id"`
	VariantName string `json:"variant_name"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       int64  `json:"price"`
	IsAvailable bool   `json:"is_available"`
}

func (q *Queries) GetVariantForOrder(ctx context.Context, arg GetVariantForOrderParams) (GetVariantForOrderRow, error) {
	row := q.db.QueryRow(ctx, getVariantForOrder, arg.VenueID, arg.VariantID)
	var i GetVariantForOrderRow
	err := row.Scan(
		&i.VariantID,
		&i.VariantName,
		&i.ProductID,
		&i.ProductName,
		&i.Price,
		&i.IsAvailable,
	)
	return i, err
}

const getAddonForOrder = `-- name: GetAddonForOrder :one
SELECT ai.id, ai.name, ai.group_id, vai.price, vai.is_available,
       EXISTS (
           SELECT 1 FROM product_addon_groups pag
           WHERE pag.product_id = $2 AND pag.group_id = ai.group_id
       ) AS eligible
FROM venue_addon_items vai
JOIN addon_items ai ON ai.id = vai.addon_item_id
WHERE vai.venue_id = $1 AND vai.addon_item_id = $3
`

type GetAddonForOrderParams struct {
	VenueID     string `json:"venue_id"`
	ProductID   string `json:"product_id"`
	AddonItemID string `json:"addon_item_id"`
}

type GetAddonForOrderRow struct {
	AddonItemID string `json:"addon_item_id"`
	Name        string `json:"name"`
	GroupID     string `json:"group_id"`
	Price       int64  `json:"price"`
	IsAvailable bool   `json:"is_available"`
	Eligible    bool   `json:"eligible"`
}

func (q *Queries) GetAddonForOrder(ctx context.Context, arg GetAddonForOrderParams) (GetAddonForOrderRow, error) {
	row := q.db.QueryRow(ctx, getAddonForOrder, arg.VenueID, arg.ProductID, arg.AddonItemID)
	var i GetAddonForOrderRow
	err := row.Scan(
		&i.AddonItemID,
		&i.Name,
		&i.GroupID,
		&i.Price,
		&i.IsAvailable,
		&i.Eligible,
	)
	return i, err
}
