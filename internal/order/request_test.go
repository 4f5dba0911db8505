package order

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceRequestValidate(t *testing.T) {
	base := PlaceRequest{AgentID: "agent-1", Symbol: "AAPLx", Quantity: 1}
	with := func(mut func(*PlaceRequest)) PlaceRequest {
		r := base
		mut(&r)
		return r
	}

	tests := []struct {
		name string
		req  PlaceRequest
		ok   bool
	}{
		{"unknown type", with(func(r *PlaceRequest) { r.Type = "market" }), false},
		{"missing agent", with(func(r *PlaceRequest) { r.Type = TypeLimitBuy; r.LimitPrice = 1; r.AgentID = " " }), false},
		{"missing symbol", with(func(r *PlaceRequest) { r.Type = TypeLimitBuy; r.LimitPrice = 1; r.Symbol = "" }), false},
		{"zero quantity", with(func(r *PlaceRequest) { r.Type = TypeLimitBuy; r.LimitPrice = 1; r.Quantity = 0 }), false},
		{"nan quantity", with(func(r *PlaceRequest) { r.Type = TypeLimitBuy; r.LimitPrice = 1; r.Quantity = math.NaN() }), false},
		{"limit buy", with(func(r *PlaceRequest) { r.Type = TypeLimitBuy; r.LimitPrice = 1 }), true},
		{"limit sell without price", with(func(r *PlaceRequest) { r.Type = TypeLimitSell }), false},
		{"stop loss", with(func(r *PlaceRequest) { r.Type = TypeStopLoss; r.StopPrice = 9; r.EntryPrice = 10 }), true},
		{"stop loss without entry", with(func(r *PlaceRequest) { r.Type = TypeStopLoss; r.StopPrice = 9 }), false},
		{"take profit", with(func(r *PlaceRequest) { r.Type = TypeTakeProfit; r.TargetPrice = 12; r.EntryPrice = 10 }), true},
		{"trailing stop", with(func(r *PlaceRequest) { r.Type = TypeTrailingStop; r.EntryPrice = 10; r.TrailPercent = 5 }), true},
		{"trailing stop 100 percent", with(func(r *PlaceRequest) { r.Type = TypeTrailingStop; r.EntryPrice = 10; r.TrailPercent = 100 }), false},
		{"bracket", with(func(r *PlaceRequest) { r.Type = TypeBracket; r.EntryPrice = 10; r.StopPrice = 9; r.TargetPrice = 12 }), true},
		{"bracket inverted", with(func(r *PlaceRequest) { r.Type = TypeBracket; r.EntryPrice = 10; r.StopPrice = 12; r.TargetPrice = 9 }), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidRequest)
			}
		})
	}
}

func TestNewDerivedFields(t *testing.T) {
	exp := t0.Add(time.Hour)
	o, err := New(PlaceRequest{
		Type: TypeTakeProfit, AgentID: "agent-1", Symbol: "NVDAx", AssetID: "mint",
		Quantity: 2, TargetPrice: 115, EntryPrice: 100, ExpiresAt: &exp, RoundID: "r1", Notes: "n",
	}, "id-1", t0, 0)
	require.NoError(t, err)

	tp := o.(*TakeProfit)
	assert.Equal(t, 15.0, tp.TargetProfitPercent)
	assert.Equal(t, StatusActive, tp.Status)
	assert.Equal(t, t0, tp.CreatedAt)
	assert.Equal(t, "r1", tp.RoundID)

	exp = exp.Add(time.Hour)
	assert.Equal(t, t0.Add(time.Hour), *tp.ExpiresAt, "request deadline is copied")
	assert.False(t, tp.Expired(t0))
	assert.False(t, tp.Expired(t0.Add(time.Hour)), "live at exactly the deadline")
	assert.True(t, tp.Expired(t0.Add(time.Hour+time.Nanosecond)))
}

func TestViewRoundTripKeepsTrailingState(t *testing.T) {
	o := mustNew(t, PlaceRequest{Type: TypeTrailingStop, Quantity: 2, EntryPrice: 50, TrailPercent: 5}, 0)
	_, err := Evaluate(o, 80, t0)
	require.NoError(t, err)

	v := ToView(o)
	assert.Equal(t, ActionSell, v.Action)
	back, err := FromView(v)
	require.NoError(t, err)

	ts := back.(*TrailingStop)
	assert.Equal(t, 80.0, ts.HighWaterMark)
	assert.InDelta(t, 76.0, ts.CurrentStopPrice, 1e-9)

	_, err = FromView(View{ID: "x", Type: "market", Status: StatusActive})
	assert.ErrorIs(t, err, ErrUnknownOrderType)
}

func TestCloneIsDeep(t *testing.T) {
	exp := t0.Add(time.Minute)
	o := mustNew(t, PlaceRequest{Type: TypeLimitBuy, Quantity: 1, LimitPrice: 3, ExpiresAt: &exp}, 0)
	c := Clone(o)
	*Common(c).ExpiresAt = t0
	Common(c).Status = StatusCancelled

	assert.Equal(t, exp, *Common(o).ExpiresAt)
	assert.Equal(t, StatusActive, Common(o).Status)
}
