package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/patruff/moltapp-sub001/internal/order"
	"github.com/patruff/moltapp-sub001/pkg/db"
)

// OrderWriter persists order snapshots through a BatchWriter. It is a
// write-through side effect; nothing reads it on the tick path.
type OrderWriter struct {
	bw *BatchWriter
}

// NewOrderWriter wraps bw.
func NewOrderWriter(bw *BatchWriter) *OrderWriter {
	return &OrderWriter{bw: bw}
}

// SaveOrder enqueues an upsert of v.
func (w *OrderWriter) SaveOrder(v order.View) error {
	row, err := RowFromView(v)
	if err != nil {
		return err
	}
	w.bw.WriteQuery(db.UpsertOrderSQL, row.Args()...)
	return nil
}

// RowFromView flattens a snapshot into its table row.
func RowFromView(v order.View) (db.OrderRow, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return db.OrderRow{}, fmt.Errorf("encode order %s: %w", v.ID, err)
	}
	return db.OrderRow{
		ID:           v.ID,
		AgentID:      v.AgentID,
		Symbol:       v.Symbol,
		Type:         string(v.Type),
		Status:       string(v.Status),
		Quantity:     v.Quantity,
		TriggerPrice: v.TriggerPrice,
		TriggeredLeg: string(v.TriggeredLeg),
		FailReason:   v.FailReason,
		Payload:      string(payload),
		CreatedAt:    v.CreatedAt,
		UpdatedAt:    v.UpdatedAt,
		ExpiresAt:    v.ExpiresAt,
	}, nil
}

// LoadOpenOrders returns the snapshots of every stored order that was
// still armed when last written. Rows whose payload cannot be decoded are
// logged and skipped.
func LoadOpenOrders(ctx context.Context, database *db.Database) ([]order.View, error) {
	rows, err := database.ListOpenOrders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]order.View, 0, len(rows))
	for _, r := range rows {
		var v order.View
		if err := json.Unmarshal([]byte(r.Payload), &v); err != nil {
			log.Printf("⚠️ skip stored order %s: %v", r.ID, err)
			continue
		}
		out = append(out, v)
	}
	return out, nil
}
