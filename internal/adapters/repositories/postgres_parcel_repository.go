package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"parcel-dispatch-service/internal/domain"
	"parcel-dispatch-service/internal/platform/obs"
	"time"
)

const parcelColumns = `
		parcel_id,
		COALESCE(agent_id, ''),
		COALESCE(status, ''),
		sender_address,
		receiver_address,
		fast_delivery,
		created_at,
		delivered_at,
		remarks`

// Postgres-backed implementation of the ParcelStore port.
type PostgresParcelRepository struct{ DB *sql.DB }

func NewPostgresParcelRepository(db *sql.DB) *PostgresParcelRepository {
	return &PostgresParcelRepository{DB: db}
}

func (r *PostgresParcelRepository) AgentExists(ctx context.Context, agentID string) (bool, error) {
	if r.DB == nil {
		return false, errors.New("parcel repository: DB is nil")
	}

	var exists bool
	err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM agents WHERE agent_id = $1);`, agentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("agent exists: query agents table: %w", err)
	}
	return exists, nil
}

// Return the agent's undelivered parcels, oldest first.
func (r *PostgresParcelRepository) ListActiveByAgent(ctx context.Context, agentID string) (_ []*domain.Parcel, err error) {
	defer obs.Time(ctx, "repo.ListActiveByAgent")(&err)

	query := `
	SELECT` + parcelColumns + `
	FROM parcels
	WHERE agent_id = $1
	  AND status IS DISTINCT FROM $2
	ORDER BY created_at, parcel_id;
	`
	return r.queryParcels(ctx, "list active parcels", query, agentID, domain.StatusDelivered.String())
}

func (r *PostgresParcelRepository) ListByAgent(ctx context.Context, agentID string) (_ []*domain.Parcel, err error) {
	defer obs.Time(ctx, "repo.ListByAgent")(&err)

	query := `
	SELECT` + parcelColumns + `
	FROM parcels
	WHERE agent_id = $1
	ORDER BY created_at, parcel_id;
	`
	return r.queryParcels(ctx, "list parcels", query, agentID)
}

func (r *PostgresParcelRepository) GetParcel(ctx context.Context, parcelID string) (*domain.Parcel, error) {
	if r.DB == nil {
		return nil, errors.New("parcel repository: DB is nil")
	}

	query := `
	SELECT` + parcelColumns + `
	FROM parcels
	WHERE parcel_id = $1;
	`
	p, err := scanParcel(r.DB.QueryRowContext(ctx, query, parcelID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get parcel %s: %w", parcelID, domain.ErrParcelNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get parcel %s: %w", parcelID, err)
	}
	return p, nil
}

// SaveStatus writes status, remarks and delivery timestamp if the stored status is still previous.
func (r *PostgresParcelRepository) SaveStatus(ctx context.Context, parcel *domain.Parcel, previous domain.Status) (err error) {
	defer obs.Time(ctx, "repo.SaveStatus")(&err)

	if r.DB == nil {
		return errors.New("parcel repository: DB is nil")
	}

	var deliveredAt any
	if parcel.DeliveredAt != nil {
		deliveredAt = parcel.DeliveredAt.UTC()
	}

	args := []any{parcel.ParcelID, parcel.Status.String(), parcel.Remarks, deliveredAt}

	// A parcel without a recognised status stores NULL or a legacy value.
	guard := `status = $5`
	if previous == domain.StatusNone {
		guard = `(status IS NULL OR status NOT IN ($5, $6, $7))`
		args = append(args, domain.StatusPickedUp.String(), domain.StatusInTransit.String(), domain.StatusDelivered.String())
	} else {
		args = append(args, previous.String())
	}

	query := `
	UPDATE parcels
	SET status = $2,
		remarks = $3,
		delivered_at = $4
	WHERE parcel_id = $1
	  AND ` + guard + `;
	`
	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save status: update parcel %s: %w", parcel.ParcelID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save status: rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	if _, err := r.GetParcel(ctx, parcel.ParcelID); err != nil {
		return fmt.Errorf("save status: %w", err)
	}
	return fmt.Errorf("save status: parcel %s: %w", parcel.ParcelID, domain.ErrConcurrentUpdate)
}

func (r *PostgresParcelRepository) queryParcels(ctx context.Context, op, query string, args ...any) ([]*domain.Parcel, error) {
	if r.DB == nil {
		return nil, errors.New("parcel repository: DB is nil")
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: query parcels table: %w", op, err)
	}
	defer rows.Close()

	parcels := make([]*domain.Parcel, 0, 16)
	for rows.Next() {
		p, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan row: %w", op, err)
		}
		parcels = append(parcels, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: row iteration: %w", op, err)
	}

	return parcels, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParcel(row rowScanner) (*domain.Parcel, error) {
	var (
		p           domain.Parcel
		status      string
		deliveredAt sql.NullTime
	)
	err := row.Scan(
		&p.ParcelID,
		&p.AgentID,
		&status,
		&p.SenderAddress,
		&p.ReceiverAddress,
		&p.FastDelivery,
		&p.CreatedAt,
		&deliveredAt,
		&p.Remarks,
	)
	if err != nil {
		return nil, err
	}

	p.Status = domain.StatusFromStored(status)
	if deliveredAt.Valid {
		t := deliveredAt.Time.In(time.UTC)
		p.DeliveredAt = &t
	}
	return &p, nil
}
