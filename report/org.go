package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

// RunReport describes one trading session for the Org report.
type RunReport struct {
	RunID      string
	Created    time.Time
	Source     string // market data source
	Currency   string
	Symbols    []string
	Strategies []string
	Iterations int
	Metrics    Metrics

	Notes       []string
	NextActions []string
}

var orgFuncs = template.FuncMap{
	"money":  Money,
	"smoney": SignedMoney,
	"pct":    pct,
	"rate":   func(x float64) string { return fmt.Sprintf("%.2f%%", x*100) },
	"opt":    optional,
	"join":   strings.Join,
	"day": func(t time.Time) string {
		if t.IsZero() {
			return "(n/a)"
		}
		return t.Format("2006-01-02")
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"dec": func(d decimal.Decimal) string { return d.StringFixed(2) },
}

var orgTemplate = template.Must(template.New("run").Funcs(orgFuncs).Parse(RunOrgTemplate))

// WriteOrg renders r as an Org-mode document.
func WriteOrg(w io.Writer, r RunReport) error {
	if r.Currency == "" {
		r.Currency = "USD"
	}
	return orgTemplate.Execute(w, r)
}

// WriteOrgFile renders r to path.
func WriteOrgFile(path string, r RunReport) error {
	var buf bytes.Buffer
	if err := WriteOrg(&buf, r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

const RunOrgTemplate = `
* PAPER RUN: {{join .Strategies ", "}} on {{join .Symbols ", "}}
:PROPERTIES:
:RUN_ID:      {{if .RunID}}{{.RunID}}{{else}}(run-id?){{end}}
:STRATEGIES:  {{join .Strategies " "}}
:SYMBOLS:     {{join .Symbols " "}}
:SOURCE:      {{if .Source}}{{.Source}}{{else}}(source?){{end}}
:ITERATIONS:  {{.Iterations}}
:START_DATE:  {{day .Metrics.Start}}
:END_DATE:    {{day .Metrics.End}}
:START_CAP:   {{dec .Metrics.StartingCapital}}
:END_CAP:     {{dec .Metrics.EndingCapital}}
:NET_PL:      {{dec .Metrics.TotalReturn}}
:RETURN_PCT:  {{dec .Metrics.TotalReturnPercent}}
:MAX_DD_PCT:  {{dec .Metrics.MaxDrawdownPercent}}
:TRADES:      {{.Metrics.Trades}}
:WINS:        {{.Metrics.Wins}}
:LOSSES:      {{.Metrics.Losses}}
:WIN_RATE:    {{rate .Metrics.WinRate}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:          *{{smoney .Metrics.TotalReturn .Currency}}*
- Return:           *{{pct .Metrics.TotalReturnPercent}}*
- Peak Capital:     *{{money .Metrics.PeakCapital .Currency}}*
- Max Drawdown:     *{{money .Metrics.MaxDrawdown .Currency}} ({{pct .Metrics.MaxDrawdownPercent}})*
- Volatility:       *{{opt .Metrics.Volatility "%.2f%%"}}*
- Sharpe:           *{{opt .Metrics.Sharpe "%.2f"}}*
- Sortino:          *{{opt .Metrics.Sortino "%.2f"}}*

** Trade Distribution
| Outcome      | Value |
|--------------+-------|
| Wins         | {{.Metrics.Wins}} |
| Losses       | {{.Metrics.Losses}} |
| Total        | {{.Metrics.Trades}} |
| Win Rate     | {{rate .Metrics.WinRate}} |
| Avg Profit   | {{smoney .Metrics.AverageProfit .Currency}} |
| Largest Win  | {{money .Metrics.LargestWin .Currency}} |
| Largest Loss | {{money .Metrics.LargestLoss .Currency}} |

** Costs
| Cost        | Amount |
|-------------+--------|
| Commissions | {{money .Metrics.Commissions .Currency}} |
| Slippage    | {{money .Metrics.Slippage .Currency}} |

{{- if .Notes }}
** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}

{{- if .NextActions }}
** Notes / Next Actions
{{- range .NextActions }}
- [ ] {{.}}
{{- end }}
{{- end }}
`
