package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/patruff/moltapp-sub001/internal/health"
	"github.com/patruff/moltapp-sub001/pkg/config"
	"github.com/patruff/moltapp-sub001/pkg/db"
	marketbinance "github.com/patruff/moltapp-sub001/pkg/market/binance"
)

type HealthStatus struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type HealthReport struct {
	Overall  string         `json:"overall"`
	Services []HealthStatus `json:"services"`
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	fmt.Println("🏥 Trigger Engine Health Check")
	fmt.Println("==============================")
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	report := HealthReport{Overall: "HEALTHY"}
	report.Services = append(report.Services,
		checkConfig(cfg),
		checkDatabase(ctx, cfg),
		checkPriceFeed(ctx, cfg),
		checkAPIServer(ctx, cfg),
		checkEvaluationLoop(ctx, cfg),
	)

	for _, svc := range report.Services {
		if svc.Status == "UNHEALTHY" {
			report.Overall = "UNHEALTHY"
			break
		} else if svc.Status == "DEGRADED" {
			report.Overall = "DEGRADED"
		}
	}

	fmt.Println("Results:")
	fmt.Println("--------")
	for _, svc := range report.Services {
		statusIcon := "✓"
		if svc.Status == "UNHEALTHY" {
			statusIcon = "✗"
		} else if svc.Status == "DEGRADED" {
			statusIcon = "⚠"
		}
		fmt.Printf("%s %-20s %s %s\n", statusIcon, svc.Service, svc.Status, svc.Message)
	}
	fmt.Println()
	fmt.Printf("Overall Status: %s\n", report.Overall)

	if len(os.Args) > 1 && os.Args[1] == "--json" {
		jsonData, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(jsonData))
	}
	if report.Overall == "UNHEALTHY" {
		os.Exit(1)
	}
}

func newStatus(service string) HealthStatus {
	return HealthStatus{Service: service, Status: "HEALTHY", Timestamp: time.Now()}
}

func checkConfig(cfg *config.Config) HealthStatus {
	status := newStatus("Configuration")
	if err := cfg.Validate(); err != nil {
		status.Status = "UNHEALTHY"
		status.Message = err.Error()
		return status
	}
	status.Message = fmt.Sprintf("Port=%s Feed=%s", cfg.Port, cfg.PriceFeed)
	return status
}

func checkDatabase(ctx context.Context, cfg *config.Config) HealthStatus {
	status := newStatus("Database")
	if !cfg.EnablePersistence {
		status.Status = "DEGRADED"
		status.Message = "Persistence disabled"
		return status
	}

	database, err := db.New(cfg.DBPath)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Connection failed: %v", err)
		return status
	}
	defer database.Close()

	counts, err := database.CountOrdersByStatus(ctx)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Query failed: %v", err)
		return status
	}
	status.Message = fmt.Sprintf("Connected (active=%d)", counts["active"])
	return status
}

func checkPriceFeed(ctx context.Context, cfg *config.Config) HealthStatus {
	status := newStatus("Price Feed")
	if cfg.PriceFeed != config.FeedBinance {
		status.Message = "Mock feed"
		return status
	}

	client := marketbinance.NewClient(cfg.BinanceAPIKey, cfg.BinanceTestnet)
	if err := client.Ping(ctx); err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Connection failed: %v", err)
		return status
	}
	network := "MAINNET"
	if cfg.BinanceTestnet {
		network = "TESTNET"
	}
	status.Message = "Connected to " + network
	return status
}

func checkAPIServer(ctx context.Context, cfg *config.Config) HealthStatus {
	status := newStatus("API Server")
	url := fmt.Sprintf("http://localhost:%s/health", cfg.Port)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = err.Error()
		return status
	}
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Not reachable: %v", err)
		return status
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		status.Status = "DEGRADED"
		status.Message = fmt.Sprintf("HTTP %d", resp.StatusCode)
		return status
	}
	status.Message = "Running"
	return status
}

func checkEvaluationLoop(ctx context.Context, cfg *config.Config) HealthStatus {
	status := newStatus("Evaluation Loop")

	conn, err := grpc.NewClient("localhost:"+cfg.GRPCPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = err.Error()
		return status
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	resp, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: health.ServiceName})
	if err != nil {
		status.Status = "UNHEALTHY"
		status.Message = fmt.Sprintf("Not reachable: %v", err)
		return status
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		status.Status = "DEGRADED"
	}
	status.Message = resp.GetStatus().String()
	return status
}
