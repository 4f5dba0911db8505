package db

import (
	"context"
	"errors"
	"fmt"
)

// ErrAgentIDRequired guards agent-scoped queries against unscoped reads.
var ErrAgentIDRequired = errors.New("agent_id is required")

// ListOrdersByAgent returns the newest orders owned by agentID.
func (d *Database) ListOrdersByAgent(ctx context.Context, agentID string, limit int) ([]OrderRow, error) {
	if agentID == "" {
		return nil, ErrAgentIDRequired
	}
	if limit <= 0 {
		limit = 100
	}
	return d.queryOrders(ctx, `SELECT `+orderColumns+` FROM trigger_orders
		WHERE agent_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, agentID, limit)
}

// ListAuditByAgent returns the newest audit entries for agentID.
func (d *Database) ListAuditByAgent(ctx context.Context, agentID string, limit int) ([]AuditRow, error) {
	if agentID == "" {
		return nil, ErrAgentIDRequired
	}
	return d.listAudit(ctx, `WHERE agent_id = ?`, agentID, limit)
}

// ListAuditByOrder returns the audit trail of one order, newest first.
func (d *Database) ListAuditByOrder(ctx context.Context, orderID string, limit int) ([]AuditRow, error) {
	return d.listAudit(ctx, `WHERE order_id = ?`, orderID, limit)
}

func (d *Database) listAudit(ctx context.Context, where string, arg any, limit int) ([]AuditRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := d.DB.QueryContext(ctx, `
		SELECT id, kind, message, agent_id, round_id, order_id, fields, created_at
		FROM order_audit `+where+`
		ORDER BY id DESC
		LIMIT ?`, arg, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var res []AuditRow
	for rows.Next() {
		var a AuditRow
		if err := rows.Scan(&a.ID, &a.Kind, &a.Message, &a.AgentID, &a.RoundID, &a.OrderID, &a.Fields, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		res = append(res, a)
	}
	return res, rows.Err()
}
