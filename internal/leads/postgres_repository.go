package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgxDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db pgxDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

func newPostgresRepositoryWithDB(db pgxDB) *PostgresRepository {
	if db == nil {
		panic("leads: db required")
	}
	return &PostgresRepository{db: db}
}

const leadColumns = `id, org_id, first_name, last_name, primary_phone, secondary_phone, alternate_phone, phone,
	email, street, city, state, zip, county, property_type, acreage, estimated_value, parcel_id,
	lead_source, status, score, tags, custom_fields, created_at, updated_at`

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lead := req.ToLead(uuid.New().String(), time.Time{})
	custom, err := encodeCustomFields(lead.CustomFields)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO leads (id, org_id, first_name, last_name, primary_phone, secondary_phone, alternate_phone,
			email, street, city, state, zip, county, property_type, acreage, estimated_value, parcel_id,
			lead_source, status, score, tags, custom_fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, query,
		lead.ID,
		lead.OrgID,
		lead.FirstName,
		lead.LastName,
		lead.PrimaryPhone,
		lead.SecondaryPhone,
		lead.AlternatePhone,
		lead.Email,
		lead.Address.Street,
		lead.Address.City,
		lead.Address.State,
		lead.Address.Zip,
		lead.Address.County,
		lead.Property.Type,
		lead.Property.Acreage,
		lead.Property.EstimatedValue,
		lead.Property.ParcelID,
		lead.LeadSource,
		string(lead.Status),
		string(lead.Score),
		tagsOrEmpty(lead.Tags),
		custom,
	).Scan(&lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return nil, fmt.Errorf("leads: insert failed: %w", err)
	}
	return lead, nil
}

// GetByID fetches a lead scoped to the org.
func (r *PostgresRepository) GetByID(ctx context.Context, orgID, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1 AND org_id = $2`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id, orgID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// GetMany returns the requested leads in ids order.
func (r *PostgresRepository) GetMany(ctx context.Context, orgID string, ids []string) ([]Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE org_id = $1 AND id = ANY($2)`
	rows, err := r.db.Query(ctx, query, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("leads: select many failed: %w", err)
	}
	defer rows.Close()

	byID := make(map[string]*Lead, len(ids))
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		byID[lead.ID] = lead
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: rows failed: %w", err)
	}

	out := make([]Lead, 0, len(ids))
	for _, id := range ids {
		lead, ok := byID[id]
		if !ok {
			return nil, ErrLeadNotFound
		}
		out = append(out, *lead)
	}
	return out, nil
}

// ListByOrg returns the org's leads oldest first.
func (r *PostgresRepository) ListByOrg(ctx context.Context, orgID string, filter ListLeadsFilter) ([]*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE org_id = $1 AND ($2 = '' OR status = $2)
		ORDER BY created_at ASC, id ASC OFFSET $3`
	args := []any{orgID, string(filter.Status), filter.Offset}
	if filter.Limit > 0 {
		query += ` LIMIT $4`
		args = append(args, filter.Limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: rows failed: %w", err)
	}
	return out, nil
}

// Update overwrites every mutable column of a lead.
func (r *PostgresRepository) Update(ctx context.Context, lead *Lead) error {
	return updateLead(ctx, r.db, lead)
}

// Delete removes a lead.
func (r *PostgresRepository) Delete(ctx context.Context, orgID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM leads WHERE id = $1 AND org_id = $2`, id, orgID)
	if err != nil {
		return fmt.Errorf("leads: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// ApplyMerge updates the survivor and deletes the merged rows in one transaction.
func (r *PostgresRepository) ApplyMerge(ctx context.Context, orgID string, survivor *Lead, removeIDs []string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("leads: begin merge: %w", err)
	}
	defer tx.Rollback(ctx)

	survivor.OrgID = orgID
	if err := updateLead(ctx, tx, survivor); err != nil {
		return err
	}

	remove := make([]string, 0, len(removeIDs))
	for _, id := range removeIDs {
		if id != survivor.ID {
			remove = append(remove, id)
		}
	}
	if len(remove) > 0 {
		tag, err := tx.Exec(ctx, `DELETE FROM leads WHERE org_id = $1 AND id = ANY($2)`, orgID, remove)
		if err != nil {
			return fmt.Errorf("leads: delete merged: %w", err)
		}
		if int(tag.RowsAffected()) != len(remove) {
			return ErrLeadNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("leads: commit merge: %w", err)
	}
	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func updateLead(ctx context.Context, db execer, lead *Lead) error {
	custom, err := encodeCustomFields(lead.CustomFields)
	if err != nil {
		return err
	}
	query := `
		UPDATE leads SET
			first_name = $3, last_name = $4, primary_phone = $5, secondary_phone = $6, alternate_phone = $7,
			phone = $8, email = $9, street = $10, city = $11, state = $12, zip = $13, county = $14,
			property_type = $15, acreage = $16, estimated_value = $17, parcel_id = $18, lead_source = $19,
			status = $20, score = $21, tags = $22, custom_fields = $23, updated_at = now()
		WHERE id = $1 AND org_id = $2
	`
	tag, err := db.Exec(ctx, query,
		lead.ID,
		lead.OrgID,
		lead.FirstName,
		lead.LastName,
		lead.PrimaryPhone,
		lead.SecondaryPhone,
		lead.AlternatePhone,
		lead.Phone,
		lead.Email,
		lead.Address.Street,
		lead.Address.City,
		lead.Address.State,
		lead.Address.Zip,
		lead.Address.County,
		lead.Property.Type,
		lead.Property.Acreage,
		lead.Property.EstimatedValue,
		lead.Property.ParcelID,
		lead.LeadSource,
		string(lead.Status),
		string(lead.Score),
		tagsOrEmpty(lead.Tags),
		custom,
	)
	if err != nil {
		return fmt.Errorf("leads: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead          Lead
		status, score string
		custom        []byte
	)
	if err := row.Scan(
		&lead.ID,
		&lead.OrgID,
		&lead.FirstName,
		&lead.LastName,
		&lead.PrimaryPhone,
		&lead.SecondaryPhone,
		&lead.AlternatePhone,
		&lead.Phone,
		&lead.Email,
		&lead.Address.Street,
		&lead.Address.City,
		&lead.Address.State,
		&lead.Address.Zip,
		&lead.Address.County,
		&lead.Property.Type,
		&lead.Property.Acreage,
		&lead.Property.EstimatedValue,
		&lead.Property.ParcelID,
		&lead.LeadSource,
		&status,
		&score,
		&lead.Tags,
		&custom,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lead.Status = Status(status)
	lead.Score = Score(score)
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &lead.CustomFields); err != nil {
			return nil, fmt.Errorf("leads: decode custom fields: %w", err)
		}
		if len(lead.CustomFields) == 0 {
			lead.CustomFields = nil
		}
	}
	if len(lead.Tags) == 0 {
		lead.Tags = nil
	}
	return &lead, nil
}

func encodeCustomFields(fields map[string]any) ([]byte, error) {
	if len(fields) == 0 {
		return []byte(`{}`), nil
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("leads: encode custom fields: %w", err)
	}
	return b, nil
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
