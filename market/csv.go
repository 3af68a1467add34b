package market

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"
)

// ReadCSV reads candle rows:
//
//	time,symbol,open,high,low,close[,volume]
//
// where time is RFC3339 or YYYY-MM-DD. A header row ("time,...") is allowed
// and empty rows are skipped.
func ReadCSV(r io.Reader) ([]Candle, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []Candle
	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}
		c, err := parseCandleRow(row)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, c)
	}
}

// ReadCSVFile is ReadCSV on a file.
func ReadCSVFile(path string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

func parseCandleRow(row []string) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("want at least 6 fields, got %d", len(row))
	}

	ts := strings.TrimSpace(row[0])
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse("2006-01-02", ts)
		if err2 != nil {
			return Candle{}, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}

	sym := strings.ToUpper(strings.TrimSpace(row[1]))
	if sym == "" {
		return Candle{}, fmt.Errorf("empty symbol")
	}

	var vals [4]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[2+i]), 64)
		if err != nil {
			return Candle{}, fmt.Errorf("bad price %q: %w", row[2+i], err)
		}
		vals[i] = v
	}

	var vol int64
	if len(row) > 6 && strings.TrimSpace(row[6]) != "" {
		vol, err = strconv.ParseInt(strings.TrimSpace(row[6]), 10, 64)
		if err != nil {
			return Candle{}, fmt.Errorf("bad volume %q: %w", row[6], err)
		}
	}

	return Candle{
		Symbol: sym,
		Time:   t.UTC(),
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vol,
	}, nil
}

// BySymbol groups candles by symbol.
func BySymbol(cs []Candle) map[string][]Candle {
	out := make(map[string][]Candle)
	for _, c := range cs {
		out[c.Symbol] = append(out[c.Symbol], c)
	}
	return out
}
