package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/patruff/moltapp-sub001/internal/api"
	"github.com/patruff/moltapp-sub001/pkg/config"
)

// issue_token prints a bearer token for an agent.
//
// Usage:
//   go run ./scripts/issue_token -agent agent-7 [-role operator] [-ttl 72h]
func main() {
	agent := flag.String("agent", "", "agent id (token subject)")
	role := flag.String("role", "", "optional role, e.g. operator")
	ttl := flag.Duration("ttl", 72*time.Hour, "token lifetime")
	flag.Parse()

	if *agent == "" {
		log.Fatal("-agent is required")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config error: %v", err)
	}

	expiresAt := time.Now().Add(*ttl)
	token, err := api.GenerateToken(*agent, *role, cfg.JWTSecret, expiresAt)
	if err != nil {
		log.Fatalf("sign token: %v", err)
	}
	fmt.Println(token)
	log.Printf("expires %s", expiresAt.UTC().Format(time.RFC3339))
}
