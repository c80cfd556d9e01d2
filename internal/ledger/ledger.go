// Package ledger records every archiving attempt in SQLite.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

type Delivery struct {
	ID        uuid.UUID
	ChatID    int64
	Archive   string
	Files     int
	Bytes     int64
	Parts     int
	Checksum  string
	Status    Status
	Error     string
	CreatedAt time.Time
}

// Stats summarizes a chat's delivery history.
type Stats struct {
	Delivered int
	Failed    int
	Bytes     int64
	Last      *Delivery
}

// Record inserts d, assigning an ID and timestamp when they are unset.
func (d *DB) Record(ctx context.Context, del *Delivery) error {
	if del.ID == uuid.Nil {
		del.ID = uuid.New()
	}
	if del.CreatedAt.IsZero() {
		del.CreatedAt = time.Now()
	}

	_, err := d.ExecContext(ctx, `INSERT INTO deliveries
		(id, chat_id, archive, files, bytes, parts, checksum, status, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		del.ID.String(), del.ChatID, del.Archive, del.Files, del.Bytes, del.Parts,
		del.Checksum, string(del.Status), del.Error, del.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

func (d *DB) Stats(ctx context.Context, chatID int64) (Stats, error) {
	var st Stats
	err := d.QueryRowContext(ctx, `SELECT
		COALESCE(SUM(CASE WHEN status = 'delivered' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status = 'delivered' THEN bytes ELSE 0 END), 0)
		FROM deliveries WHERE chat_id = ?`, chatID).Scan(&st.Delivered, &st.Failed, &st.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("delivery stats: %w", err)
	}

	last, err := d.Last(ctx, chatID)
	if err != nil {
		return Stats{}, err
	}
	st.Last = last
	return st, nil
}

// Last returns the chat's most recent delivery, or nil when there is none.
func (d *DB) Last(ctx context.Context, chatID int64) (*Delivery, error) {
	var (
		del     Delivery
		id      string
		status  string
		created int64
	)
	err := d.QueryRowContext(ctx, `SELECT id, chat_id, archive, files, bytes, parts, checksum, status, error, created_at
		FROM deliveries WHERE chat_id = ? ORDER BY created_at DESC LIMIT 1`, chatID).
		Scan(&id, &del.ChatID, &del.Archive, &del.Files, &del.Bytes, &del.Parts, &del.Checksum, &status, &del.Error, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last delivery: %w", err)
	}

	del.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("last delivery: bad id %q: %w", id, err)
	}
	del.Status = Status(status)
	del.CreatedAt = time.Unix(0, created)
	return &del, nil
}

// Prune deletes rows older than the cutoff and returns how many were removed.
func (d *DB) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.ExecContext(ctx, "DELETE FROM deliveries WHERE created_at < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune deliveries: %w", err)
	}
	return res.RowsAffected()
}
