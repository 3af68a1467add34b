package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/papertrader/ledger"
)

// FormatTradeOrg renders a trade as an Org-mode block suitable for pasting into a journal.
// Structured facts go in a PROPERTIES drawer for easy search; the narrative
// sections are left for the reader to fill in.
func FormatTradeOrg(t ledger.Trade) string {
	var b strings.Builder
	fmt.Fprintf(&b, "** Trade: %s %s (%s)\n", t.Symbol, t.StrategyID, shortID(t.ID))
	b.WriteString(":PROPERTIES:\n")
	fmt.Fprintf(&b, ":TRADE_ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":ID: %s\n", t.ID)
	fmt.Fprintf(&b, ":STRATEGY: %s\n", t.StrategyID)
	fmt.Fprintf(&b, ":SYMBOL: %s\n", t.Symbol)
	fmt.Fprintf(&b, ":QUANTITY: %s\n", t.ExitQuantity.String())
	fmt.Fprintf(&b, ":ENTRY_ORDER: %s\n", t.EntryOrderID)
	fmt.Fprintf(&b, ":ENTRY_PRICE: %s\n", t.EntryPrice.StringFixed(4))
	fmt.Fprintf(&b, ":EXIT_ORDER: %s\n", t.ExitOrderID)
	fmt.Fprintf(&b, ":EXIT_PRICE: %s\n", t.ExitPrice.StringFixed(4))
	fmt.Fprintf(&b, ":OPEN_TIME: %s\n", t.EntryTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":CLOSE_TIME: %s\n", t.ExitTime.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, ":GROSS_PNL: %s\n", t.GrossPnL.StringFixed(2))
	fmt.Fprintf(&b, ":NET_PNL: %s\n", t.NetPnL.StringFixed(2))
	fmt.Fprintf(&b, ":PNL_PCT: %s\n", t.PnLPercent.StringFixed(2))
	fmt.Fprintf(&b, ":COMMISSION: %s\n", t.TotalCommission.StringFixed(4))
	fmt.Fprintf(&b, ":SLIPPAGE: %s\n", t.TotalSlippage.StringFixed(4))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []ledger.Trade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// FormatSnapshotsOrg renders snapshots as an Org table.
func FormatSnapshotsOrg(snaps []ledger.Snapshot) string {
	var b strings.Builder
	b.WriteString("| Time | Cash | Positions | Total | P&L | P&L % | Open |\n")
	b.WriteString("|------+------+-----------+-------+-----+-------+------|\n")
	for _, s := range snaps {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %d |\n",
			s.Time.UTC().Format("2006-01-02 15:04"),
			s.Cash.StringFixed(2),
			s.PositionsValue.StringFixed(2),
			s.TotalValue.StringFixed(2),
			s.TotalPnL.StringFixed(2),
			s.TotalPnLPercent.StringFixed(2),
			s.NumPositions)
	}
	return b.String()
}

// shortID drops the TRADE-/ORD- prefix and keeps 8 characters.
func shortID(full string) string {
	if i := strings.IndexByte(full, '-'); i >= 0 && i < len(full)-1 {
		full = full[i+1:]
	}
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
