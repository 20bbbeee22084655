package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const staffColumns = `id, venue_id, email, hashed_password, full_name, role, is_active, created_at`

func scanStaffUser(row rowScanner) (StaffUser, error) {
	var i StaffUser
	err := row.Scan(
		&i.ID,
		&i.VenueID,
		&i.Email,
		&i.HashedPassword,
		&i.FullName,
		&i.Role,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}

const getStaffUserByEmail = `-- name: GetStaffUserByEmail :one
SELECT ` + staffColumns + `
FROM staff_users
WHERE email = $1 AND is_active
`

func (q *Queries) GetStaffUserByEmail(ctx context.Context, email string) (StaffUser, error) {
	return scanStaffUser(q.db.QueryRow(ctx, getStaffUserByEmail, email))
}

const getStaffUserByID = `-- name: GetStaffUserByID :one
SELECT ` + staffColumns + `
FROM staff_users
WHERE id = $1 AND is_active
`

func (q *Queries) GetStaffUserByID(ctx context.Context, id uuid.UUID) (StaffUser, error) {
	return scanStaffUser(q.db.QueryRow(ctx, getStaffUserByID, id))
}

const createStaffUser = `-- name: CreateStaffUser :one
INSERT INTO staff_users (venue_id, email, hashed_password, full_name, role)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (email) DO UPDATE
SET hashed_password = EXCLUDED.hashed_password, full_name = EXCLUDED.full_name, role = EXCLUDED.role
RETURNING ` + staffColumns

type CreateStaffUserParams struct {
	VenueID        pgtype.Text `json:"venue_id"`
	Email          string      `json:"email"`
	HashedPassword string      `json:"hashed_password"`
	FullName       string      `json:"full_name"`
	Role           string      `json:"role"`
}

func (q *Queries) CreateStaffUser(ctx context.Context, arg CreateStaffUserParams) (StaffUser, error) {
	row := q.db.QueryRow(ctx, createStaffUser,
		arg.VenueID,
		arg.Email,
		arg.HashedPassword,
		arg.FullName,
		arg.Role,
	)
	return scanStaffUser(row)
}
