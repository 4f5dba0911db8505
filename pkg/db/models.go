package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// OrderRow is one trigger order. Payload holds the full JSON snapshot; the
// other columns exist for filtering.
type OrderRow struct {
	ID           string
	AgentID      string
	Symbol       string
	Type         string
	Status       string
	Quantity     float64
	TriggerPrice float64
	TriggeredLeg string
	FailReason   string
	Payload      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    *time.Time
}

// AuditRow is one audit trail entry.
type AuditRow struct {
	ID        int64
	Kind      string
	Message   string
	AgentID   string
	RoundID   string
	OrderID   string
	Fields    string
	CreatedAt time.Time
}

// UpsertOrderSQL inserts or replaces the latest snapshot of an order. A
// snapshot older than the stored row is ignored.
const UpsertOrderSQL = `
	INSERT INTO trigger_orders (
		id, agent_id, symbol, type, status, quantity, trigger_price, triggered_leg,
		fail_reason, payload, created_at, updated_at, expires_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		status = excluded.status,
		trigger_price = excluded.trigger_price,
		triggered_leg = excluded.triggered_leg,
		fail_reason = excluded.fail_reason,
		payload = excluded.payload,
		updated_at = excluded.updated_at
	WHERE excluded.updated_at >= trigger_orders.updated_at
`

// InsertAuditSQL appends an audit entry.
const InsertAuditSQL = `
	INSERT INTO order_audit (kind, message, agent_id, round_id, order_id, fields, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Args returns the UpsertOrderSQL arguments for r.
func (r OrderRow) Args() []any {
	var expires any
	if r.ExpiresAt != nil {
		expires = r.ExpiresAt.UTC()
	}
	return []any{
		r.ID, r.AgentID, r.Symbol, r.Type, r.Status, r.Quantity, r.TriggerPrice, r.TriggeredLeg,
		r.FailReason, r.Payload, r.CreatedAt.UTC(), r.UpdatedAt.UTC(), expires,
	}
}

// Args returns the InsertAuditSQL arguments for a.
func (a AuditRow) Args() []any {
	fields := a.Fields
	if fields == "" {
		fields = "{}"
	}
	return []any{a.Kind, a.Message, a.AgentID, a.RoundID, a.OrderID, fields, a.CreatedAt.UTC()}
}

// UpsertOrder writes r directly, outside any batch.
func (d *Database) UpsertOrder(ctx context.Context, r OrderRow) error {
	_, err := d.DB.ExecContext(ctx, UpsertOrderSQL, r.Args()...)
	return err
}

// InsertAudit writes a directly, outside any batch.
func (d *Database) InsertAudit(ctx context.Context, a AuditRow) error {
	_, err := d.DB.ExecContext(ctx, InsertAuditSQL, a.Args()...)
	return err
}

const orderColumns = `id, agent_id, symbol, type, status, quantity, trigger_price, triggered_leg,
	fail_reason, payload, created_at, updated_at, expires_at`

func scanOrder(rows interface{ Scan(...any) error }) (OrderRow, error) {
	var (
		r   OrderRow
		exp sql.NullTime
	)
	if err := rows.Scan(&r.ID, &r.AgentID, &r.Symbol, &r.Type, &r.Status, &r.Quantity, &r.TriggerPrice,
		&r.TriggeredLeg, &r.FailReason, &r.Payload, &r.CreatedAt, &r.UpdatedAt, &exp); err != nil {
		return OrderRow{}, err
	}
	if exp.Valid {
		t := exp.Time
		r.ExpiresAt = &t
	}
	return r, nil
}

func (d *Database) queryOrders(ctx context.Context, query string, args ...any) ([]OrderRow, error) {
	rows, err := d.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var res []OrderRow
	for rows.Next() {
		r, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		res = append(res, r)
	}
	return res, rows.Err()
}

// GetOrder returns the stored snapshot for id.
func (d *Database) GetOrder(ctx context.Context, id string) (OrderRow, error) {
	row := d.DB.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM trigger_orders WHERE id = ?`, id)
	r, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OrderRow{}, ErrNotFound
	}
	return r, err
}

// ListOpenOrders returns orders still armed (pending or active), oldest first.
func (d *Database) ListOpenOrders(ctx context.Context) ([]OrderRow, error) {
	return d.queryOrders(ctx, `SELECT `+orderColumns+` FROM trigger_orders
		WHERE status IN ('pending','active')
		ORDER BY created_at ASC, id ASC`)
}

// CountOrdersByStatus returns row counts keyed by status.
func (d *Database) CountOrdersByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := d.DB.QueryContext(ctx, `SELECT status, COUNT(*) FROM trigger_orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}
