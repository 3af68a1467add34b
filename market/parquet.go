package market

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Compile-time interface check.
var _ HistorySource = (*ParquetStore)(nil)

// ParquetStore keeps daily candles on disk, one file per symbol and year:
//
//	<DataDir>/<SYMBOL>/<YYYY>.parquet
type ParquetStore struct {
	DataDir string
}

// NewParquetStore creates a store rooted at dataDir.
func NewParquetStore(dataDir string) *ParquetStore {
	return &ParquetStore{DataDir: dataDir}
}

// candleRecord is the on-disk schema.
type candleRecord struct {
	Symbol    string  `parquet:"symbol"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Open      float64 `parquet:"open"`
	High      float64 `parquet:"high"`
	Low       float64 `parquet:"low"`
	Close     float64 `parquet:"close"`
	Volume    int64   `parquet:"volume"`
}

// WriteCandles merges candles into the store. A candle with the same symbol
// and timestamp as a stored one replaces it.
func (s *ParquetStore) WriteCandles(_ context.Context, candles []Candle) error {
	type key struct {
		symbol string
		year   int
	}
	groups := make(map[key][]candleRecord)
	for _, c := range candles {
		sym := strings.ToUpper(c.Symbol)
		k := key{symbol: sym, year: c.Time.UTC().Year()}
		groups[k] = append(groups[k], candleRecord{
			Symbol:    sym,
			Timestamp: c.Time.UnixMilli(),
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}

	for k, records := range groups {
		path := s.path(k.symbol, k.year)
		existing, err := readParquet(path)
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := writeParquet(path, mergeRecords(existing, records)); err != nil {
			return fmt.Errorf("write candles for %s/%d: %w", k.symbol, k.year, err)
		}
	}
	return nil
}

// History reads candles for symbol with start <= time <= end.
func (s *ParquetStore) History(ctx context.Context, symbol string, start, end time.Time) ([]Candle, error) {
	symbol = strings.ToUpper(symbol)
	var out []Candle
	for year := start.UTC().Year(); year <= end.UTC().Year(); year++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := readParquet(s.path(symbol, year))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read %s/%d: %w", symbol, year, err)
		}
		for _, r := range records {
			ts := time.UnixMilli(r.Timestamp).UTC()
			if ts.Before(start) || ts.After(end) {
				continue
			}
			out = append(out, Candle{
				Symbol: r.Symbol,
				Time:   ts,
				Open:   r.Open,
				High:   r.High,
				Low:    r.Low,
				Close:  r.Close,
				Volume: r.Volume,
			})
		}
	}
	return out, nil
}

// Symbols lists the symbols that have data.
func (s *ParquetStore) Symbols() ([]string, error) {
	entries, err := os.ReadDir(s.DataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *ParquetStore) path(symbol string, year int) string {
	return filepath.Join(s.DataDir, strings.ToUpper(symbol), fmt.Sprintf("%d.parquet", year))
}

func writeParquet(path string, records []candleRecord) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquet(path string) ([]candleRecord, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return parquet.ReadFile[candleRecord](path)
}

func mergeRecords(existing, incoming []candleRecord) []candleRecord {
	seen := make(map[int64]candleRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.Timestamp] = r
	}
	for _, r := range incoming {
		seen[r.Timestamp] = r
	}
	merged := make([]candleRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })
	return merged
}
