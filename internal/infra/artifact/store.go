// Package artifact keeps the fetched series as a CSV file between the fetch and upload stages.
package artifact

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/rs/zerolog/log"

	"github.com/wonny/trendcast/internal/domain/price"
)

// Columns is the artifact header, in file order.
var Columns = []string{"date", "open", "high", "low", "close", "volume"}

// row is one CSV line
type row struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume int64   `csv:"volume"`
}

// Store reads and writes the artifact at a fixed path
type Store struct {
	path string
}

// NewStore creates a Store for path
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the artifact location
func (s *Store) Path() string {
	return s.path
}

// Save writes series to the artifact, replacing any previous file.
// The parent directory is created when missing.
func (s *Store) Save(ctx context.Context, series *price.Series) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("%w: create artifact directory: %v", price.ErrPersistence, err)
	}

	rows := make([]*row, 0, series.Len())
	for _, b := range series.Bars {
		rows = append(rows, &row{
			Date:   b.Date.Format(price.DateLayout),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return "", fmt.Errorf("%w: create artifact: %v", price.ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if err := gocsv.MarshalFile(&rows, tmp); err != nil {
		tmp.Close()
		return "", fmt.Errorf("%w: write artifact: %v", price.ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("%w: close artifact: %v", price.ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return "", fmt.Errorf("%w: move artifact: %v", price.ErrPersistence, err)
	}

	log.Debug().Str("path", s.path).Int("rows", len(rows)).Msg("Artifact written")

	return s.path, nil
}

// Load reads the artifact back into a series.
// The first column is treated as the date whatever its header says,
// so files written with an unnamed index column are accepted.
func (s *Store) Load(ctx context.Context, symbol string) (*price.Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: artifact %s not found", price.ErrDataShape, s.path)
		}
		return nil, fmt.Errorf("%w: read artifact: %v", price.ErrPersistence, err)
	}

	normalized, err := normalizeHeader(raw)
	if err != nil {
		return nil, err
	}

	var rows []*row
	if err := gocsv.UnmarshalBytes(normalized, &rows); err != nil {
		return nil, fmt.Errorf("%w: parse artifact: %v", price.ErrDataShape, err)
	}

	bars := make([]price.Bar, 0, len(rows))
	for i, r := range rows {
		d, err := time.Parse(price.DateLayout, dateOnly(r.Date))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad date %q", price.ErrDataShape, i+2, r.Date)
		}
		bars = append(bars, price.Bar{
			Date:   d,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		})
	}

	return price.NewSeries(symbol, bars)
}

// normalizeHeader renames the first header cell to "date" and checks every column is present.
func normalizeHeader(raw []byte) ([]byte, error) {
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	end := bytes.IndexByte(raw, '\n')
	if end < 0 {
		end = len(raw)
	}

	header, err := csv.NewReader(bytes.NewReader(raw[:end])).Read()
	if err != nil || len(header) == 0 {
		return nil, fmt.Errorf("%w: artifact has no header", price.ErrDataShape)
	}

	header[0] = "date"
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		header[i] = strings.ToLower(strings.TrimSpace(h))
		seen[header[i]] = true
	}

	var missing []string
	for _, c := range Columns {
		if !seen[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: artifact missing columns %s", price.ErrDataShape, strings.Join(missing, ", "))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("%w: %v", price.ErrDataShape, err)
	}
	w.Flush()
	buf.Write(raw[min(end+1, len(raw)):])

	return buf.Bytes(), nil
}

// dateOnly accepts "2024-01-02" and "2024-01-02 00:00:00"
func dateOnly(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > len(price.DateLayout) {
		return s[:len(price.DateLayout)]
	}
	return s
}
