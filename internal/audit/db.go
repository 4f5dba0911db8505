package audit

import (
	"encoding/json"
	"fmt"

	"github.com/patruff/moltapp-sub001/internal/persistence"
	"github.com/patruff/moltapp-sub001/pkg/db"
)

// DBSink appends entries to the order_audit table through a batch writer.
type DBSink struct {
	bw *persistence.BatchWriter
}

// NewDBSink wraps bw.
func NewDBSink(bw *persistence.BatchWriter) *DBSink {
	return &DBSink{bw: bw}
}

func (s *DBSink) LogEvent(e Entry) error {
	fields := []byte("{}")
	if len(e.Fields) > 0 {
		var err error
		if fields, err = json.Marshal(e.Fields); err != nil {
			return fmt.Errorf("encode audit fields: %w", err)
		}
	}
	row := db.AuditRow{
		Kind:      string(e.Kind),
		Message:   e.Message,
		AgentID:   e.AgentID,
		RoundID:   e.RoundID,
		OrderID:   e.OrderID,
		Fields:    string(fields),
		CreatedAt: e.At,
	}
	s.bw.WriteQuery(db.InsertAuditSQL, row.Args()...)
	return nil
}
