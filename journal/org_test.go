package journal

import (
	"strings"
	"testing"

	"github.com/rustyeddy/papertrader/ledger"
	"github.com/stretchr/testify/assert"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(sampleTrade("TRADE-01JABCDEFGHXYZ", t0))

	assert.Contains(t, result, "** Trade: AAPL sma_crossover_v1 (01JABCDE)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":TRADE_ID: TRADE-01JABCDEFGHXYZ")
	assert.Contains(t, result, ":QUANTITY: 5")
	assert.Contains(t, result, ":ENTRY_PRICE: 100.0500")
	assert.Contains(t, result, ":EXIT_PRICE: 129.9350")
	assert.Contains(t, result, ":OPEN_TIME: 2025-02-02T14:30:00Z")
	assert.Contains(t, result, ":CLOSE_TIME: 2025-02-03T14:30:00Z")
	assert.Contains(t, result, ":NET_PNL: 147.42")
	assert.Contains(t, result, ":PNL_PCT: 29.87")
	assert.Contains(t, result, ":END:")

	assert.Contains(t, result, "*** Thesis")
	assert.Contains(t, result, "*** Execution")
	assert.Contains(t, result, "*** Review")
}

func TestFormatTradeOrgNegativePnL(t *testing.T) {
	t.Parallel()

	tr := sampleTrade("TRADE-LOSS", t0)
	tr.GrossPnL, tr.NetPnL = d("-12.5"), d("-13.75")
	result := FormatTradeOrg(tr)
	assert.Contains(t, result, ":GROSS_PNL: -12.50")
	assert.Contains(t, result, ":NET_PNL: -13.75")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	assert.Empty(t, FormatTradesOrg(nil))

	out := FormatTradesOrg([]ledger.Trade{sampleTrade("TRADE-A", t0), sampleTrade("TRADE-B", t0)})
	assert.Equal(t, 2, strings.Count(out, "** Trade:"))
	assert.Contains(t, out, ":END:\n\n*** Thesis")
	assert.Less(t, strings.Index(out, "TRADE-A"), strings.Index(out, "TRADE-B"))
}

func TestFormatSnapshotsOrg(t *testing.T) {
	t.Parallel()

	out := FormatSnapshotsOrg([]ledger.Snapshot{sampleSnapshot(t0, "1100")})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "| 2025-02-03 14:30 | 500.00 | 600.00 | 1100.00 | 100.00 | 10.00 | 1 |", lines[2])
}

func TestShortID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"TRADE-01HV3K9ZABCDEF", "01HV3K9Z"},
		{"ORD-abc", "abc"},
		{"short", "short"},
		{"nodashbutlong", "nodashbu"},
		{"TRADE-", "TRADE-"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shortID(tt.in), tt.in)
	}
}
