package order

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seedYAML = `
orders:
  - type: stop_loss
    agent_id: agent-grok
    symbol: TSLAx
    asset_id: XsDoVfqeBukxuZHWhdvWHBhgEHjGNst4MLodqsJHzoB
    quantity: 5
    stop_price: 90
    entry_price: 100
  - type: trailing_stop
    agent_id: agent-grok
    symbol: NVDAx
    quantity: 2
    entry_price: 50
    trail_percent: 5
    expires_at: 2026-12-31T00:00:00Z
`

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.yaml")
	require.NoError(t, os.WriteFile(path, []byte(seedYAML), 0o644))

	reqs, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, TypeStopLoss, reqs[0].Type)
	assert.Equal(t, 90.0, reqs[0].StopPrice)
	assert.Equal(t, TypeTrailingStop, reqs[1].Type)
	require.NotNil(t, reqs[1].ExpiresAt)
	assert.Equal(t, 2026, reqs[1].ExpiresAt.Year())
}

func TestParseSeedRejectsInvalidEntry(t *testing.T) {
	_, err := ParseSeed([]byte("orders:\n  - type: limit_buy\n    agent_id: a\n    symbol: AAPLx\n    quantity: 1\n"))
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
