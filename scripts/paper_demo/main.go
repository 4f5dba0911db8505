package main

import (
	"context"
	"log"
	"time"

	"github.com/patruff/moltapp-sub001/internal/engine"
	"github.com/patruff/moltapp-sub001/internal/events"
	"github.com/patruff/moltapp-sub001/internal/executor"
	"github.com/patruff/moltapp-sub001/internal/order"
)

// paper_demo walks a few trigger scenarios through the engine and the
// paper executor. It touches neither the network nor the database.
//
// Usage:
//   go run ./scripts/paper_demo
func main() {
	log.Println("=== paper demo starting ===")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus()
	eng := engine.New(engine.Config{Bus: bus, HistoryCapacity: 100})
	paper := executor.NewPaperExecutor(executor.PaperConfig{
		FeeRate:        0.001,
		SlippageBps:    5,
		InitialBalance: 10000,
	})
	async := executor.NewAsyncExecutor(paper, eng, bus, 2)
	triggers, unsub := bus.Subscribe(events.EventOrderTriggered, 64)
	defer unsub()
	go async.Run(ctx, triggers)

	agent := "demo-agent"
	place := func(req order.PlaceRequest) order.View {
		req.AgentID = agent
		v, err := eng.Place(ctx, req)
		if err != nil {
			log.Fatalf("place %s: %v", req.Type, err)
		}
		log.Printf("placed %s %s on %s", v.ID[:8], v.Type, v.Symbol)
		return v
	}

	log.Println("[SCENARIO 1] limit buy fills, stop loss protects it")
	place(order.PlaceRequest{Type: order.TypeLimitBuy, Symbol: "TSLAx", Quantity: 1000, LimitPrice: 250})
	place(order.PlaceRequest{Type: order.TypeStopLoss, Symbol: "TSLAx", Quantity: 2, EntryPrice: 250, StopPrice: 240})
	for _, p := range []float64{255, 249.5, 244, 239} {
		eng.ProcessTick("TSLAx", p)
	}

	log.Println("[SCENARIO 2] trailing stop ratchets up then fires")
	place(order.PlaceRequest{Type: order.TypeTrailingStop, Symbol: "NVDAx", Quantity: 1, EntryPrice: 100, TrailPercent: 5})
	for _, p := range []float64{104, 110, 108, 104.4} {
		eng.ProcessTick("NVDAx", p)
	}

	log.Println("[SCENARIO 3] bracket exits on take profit")
	place(order.PlaceRequest{Type: order.TypeBracket, Symbol: "AAPLx", Quantity: 3, EntryPrice: 200, StopPrice: 190, TargetPrice: 215})
	for _, p := range []float64{205, 216} {
		eng.ProcessTick("AAPLx", p)
	}

	time.Sleep(200 * time.Millisecond)
	async.Close()

	for _, v := range eng.History(0) {
		log.Printf("history %s %-13s %-9s leg=%s trigger=%.2f", v.ID[:8], v.Type, v.Status, v.TriggeredLeg, v.TriggerPrice)
	}
	filled, failed, skipped := async.Stats()
	log.Printf("executions filled=%d failed=%d skipped=%d", filled, failed, skipped)
	log.Printf("balance %.2f USDC", paper.Balance(agent))
	for _, pos := range paper.Positions(agent) {
		log.Printf("position %s qty=%.6f avg=%.4f", pos.Symbol, pos.Quantity, pos.AvgPrice)
	}
	log.Println("=== paper demo finished ===")
}
