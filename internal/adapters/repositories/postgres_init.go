package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"parcel-dispatch-service/internal/domain"
	"strings"
	"time"
)

// Initialize the Postgres database schema.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createAgentsQuery := `
	CREATE TABLE IF NOT EXISTS agents (
		agent_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	`

	createParcelsQuery := `
	CREATE TABLE IF NOT EXISTS parcels (
		parcel_id TEXT PRIMARY KEY,
		agent_id TEXT REFERENCES agents (agent_id),
		status TEXT,
		sender_address TEXT NOT NULL,
		receiver_address TEXT NOT NULL,
		fast_delivery BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		delivered_at TIMESTAMPTZ,
		remarks TEXT NOT NULL DEFAULT ''
	);
	`

	createGeocodeCacheQuery := `
	CREATE TABLE IF NOT EXISTS geocode_cache (
        address TEXT PRIMARY KEY,
        lat DOUBLE PRECISION NOT NULL,
        lon DOUBLE PRECISION NOT NULL,
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_parcels_agent_created
    ON parcels (agent_id, created_at);
	`

	statements := []string{
		createAgentsQuery,
		createParcelsQuery,
		createGeocodeCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type AgentSeed struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
}

type ParcelSeed struct {
	ParcelID        string     `json:"parcel_id"`
	AgentID         string     `json:"agent_id"`
	Status          string     `json:"status"`
	SenderAddress   string     `json:"sender_address"`
	ReceiverAddress string     `json:"receiver_address"`
	FastDelivery    bool       `json:"fast_delivery"`
	CreatedAt       time.Time  `json:"created_at"`
	DeliveredAt     *time.Time `json:"delivered_at,omitempty"`
	Remarks         string     `json:"remarks"`
}

// Seed is the JSON document accepted by SeedFromJSON.
type Seed struct {
	Agents  []AgentSeed  `json:"agents"`
	Parcels []ParcelSeed `json:"parcels"`
}

// Rows reports how many rows SeedFromJSON will write.
func (s *Seed) Rows() int { return len(s.Agents) + len(s.Parcels) }

// ParseSeed decodes and validates a seed document. Statuses are normalized to their wire names;
// a missing status means "Picked Up", the state parcels are created in.
func ParseSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("seed: parse json: %w", err)
	}

	agents := make(map[string]struct{}, len(seed.Agents))
	for i, a := range seed.Agents {
		id := strings.TrimSpace(a.AgentID)
		if id == "" {
			return nil, fmt.Errorf("seed: agent at index %d: agent_id cannot be empty", i+1)
		}
		seed.Agents[i].AgentID = id
		agents[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(seed.Parcels))
	for i := range seed.Parcels {
		p := &seed.Parcels[i]
		p.ParcelID = strings.TrimSpace(p.ParcelID)
		if p.ParcelID == "" {
			return nil, fmt.Errorf("seed: parcel at index %d: parcel_id cannot be empty", i+1)
		}
		if _, dup := seen[p.ParcelID]; dup {
			return nil, fmt.Errorf("seed: parcel at index %d: duplicate parcel_id %q", i+1, p.ParcelID)
		}
		seen[p.ParcelID] = struct{}{}

		p.AgentID = strings.TrimSpace(p.AgentID)
		if _, ok := agents[p.AgentID]; p.AgentID != "" && !ok {
			return nil, fmt.Errorf("seed: parcel %s: unknown agent_id %q", p.ParcelID, p.AgentID)
		}

		status := domain.StatusPickedUp
		if strings.TrimSpace(p.Status) != "" {
			s, err := domain.ParseStatus(p.Status)
			if err != nil {
				return nil, fmt.Errorf("seed: parcel %s: %w", p.ParcelID, err)
			}
			status = s
		}
		p.Status = status.String()

		if status.IsTerminal() != (p.DeliveredAt != nil) {
			return nil, fmt.Errorf("seed: parcel %s: delivered_at must be set exactly when status is %q", p.ParcelID, domain.StatusDelivered)
		}
		if p.CreatedAt.IsZero() {
			return nil, fmt.Errorf("seed: parcel %s: created_at is required", p.ParcelID)
		}
	}

	return &seed, nil
}

// SeedFromJSON upserts agents and parcels in a single transaction.
// progress, if non-nil, is called once per written row.
func SeedFromJSON(ctx context.Context, db *sql.DB, seed *Seed, progress func()) error {
	if db == nil {
		return errors.New("seed: DB is nil")
	}
	if progress == nil {
		progress = func() {}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("seed: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	agentStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO agents (agent_id, name)
	VALUES ($1, $2)
	ON CONFLICT (agent_id) DO UPDATE
	SET name = EXCLUDED.name;
	`)
	if err != nil {
		return fmt.Errorf("seed agents: prepare insert: %w", err)
	}
	defer agentStmt.Close()

	for _, a := range seed.Agents {
		if _, err := agentStmt.ExecContext(ctx, a.AgentID, a.Name); err != nil {
			return fmt.Errorf("seed agents: insert agent_id=%s: %w", a.AgentID, err)
		}
		progress()
	}

	parcelStmt, err := tx.PrepareContext(ctx, `
	INSERT INTO parcels (
		parcel_id,
		agent_id,
		status,
		sender_address,
		receiver_address,
		fast_delivery,
		created_at,
		delivered_at,
		remarks
	)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (parcel_id) DO UPDATE
	SET agent_id = EXCLUDED.agent_id,
		status = EXCLUDED.status,
		sender_address = EXCLUDED.sender_address,
		receiver_address = EXCLUDED.receiver_address,
		fast_delivery = EXCLUDED.fast_delivery,
		created_at = EXCLUDED.created_at,
		delivered_at = EXCLUDED.delivered_at,
		remarks = EXCLUDED.remarks;
	`)
	if err != nil {
		return fmt.Errorf("seed parcels: prepare insert: %w", err)
	}
	defer parcelStmt.Close()

	for _, p := range seed.Parcels {
		_, err := parcelStmt.ExecContext(ctx,
			p.ParcelID, p.AgentID, p.Status, p.SenderAddress, p.ReceiverAddress,
			p.FastDelivery, p.CreatedAt, p.DeliveredAt, p.Remarks,
		)
		if err != nil {
			return fmt.Errorf("seed parcels: insert parcel_id=%s: %w", p.ParcelID, err)
		}
		progress()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("seed: commit tx: %w", err)
	}

	return nil
}
