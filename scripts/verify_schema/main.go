package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/patruff/moltapp-sub001/pkg/config"
	"github.com/patruff/moltapp-sub001/pkg/db"
)

var required = map[string][]string{
	"trigger_orders": {"id", "agent_id", "symbol", "type", "status", "quantity", "trigger_price", "triggered_leg", "fail_reason", "payload", "created_at", "updated_at", "expires_at"},
	"order_audit":    {"id", "kind", "message", "agent_id", "round_id", "order_id", "fields", "created_at"},
}

func main() {
	path := flag.String("db", "", "database path (defaults to DB_PATH)")
	flag.Parse()

	dbPath := *path
	if dbPath == "" {
		cfg, err := config.Load()
		if err != nil {
			log.Fatalf("load config: %v", err)
		}
		dbPath = cfg.DBPath
	}
	fmt.Printf("Verifying database at: %s\n", dbPath)

	database, err := db.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer database.Close()

	missing := 0
	for _, table := range []string{"trigger_orders", "order_audit"} {
		fmt.Printf("\nVerifying %s...\n", table)
		rows, err := database.DB.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
		if err != nil {
			log.Fatalf("Query failed: %v", err)
		}
		have := map[string]bool{}
		for rows.Next() {
			var (
				cid        int
				name, typ  string
				notnull    int
				dflt       any
				primaryKey int
			)
			if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &primaryKey); err != nil {
				log.Fatalf("Scan failed: %v", err)
			}
			have[name] = true
		}
		rows.Close()

		if len(have) == 0 {
			fmt.Printf("❌ %s table MISSING\n", table)
			missing++
			continue
		}
		for _, col := range required[table] {
			if have[col] {
				fmt.Printf("✓ %s.%s\n", table, col)
			} else {
				fmt.Printf("❌ %s.%s MISSING\n", table, col)
				missing++
			}
		}
	}
	if missing > 0 {
		os.Exit(1)
	}
}
