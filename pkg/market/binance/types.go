package market

// Trade is one public trade from the @trade stream.
type Trade struct {
	Symbol       string
	Price        float64
	Qty          float64
	Time         int64 // trade time, ms
	IsBuyerMaker bool
}

// TickerPrice is the REST /api/v3/ticker/price response.
type TickerPrice struct {
	Symbol string
	Price  float64
}
