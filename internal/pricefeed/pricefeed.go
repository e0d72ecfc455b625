// Package pricefeed supplies the gold price used to settle trades. The
// default implementation reads a published price-history CSV; a fixed feed
// exists for tests and local development.
package pricefeed

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Feed returns the current price of one gram of gold in the platform
// currency.
type Feed interface {
	PricePerGram(ctx context.Context) (float64, error)
}

// PricePoint is one dated quote.
type PricePoint struct {
	Date  time.Time
	Price float64
}

// ===============================
// FIXED FEED
// ===============================

type fixedFeed struct {
	price float64
}

// NewFixedFeed returns a feed that always quotes the given price.
func NewFixedFeed(price float64) Feed {
	return &fixedFeed{price: price}
}

func (f *fixedFeed) PricePerGram(ctx context.Context) (float64, error) {
	if f.price <= 0 {
		return 0, fmt.Errorf("fixed price must be positive, got %f", f.price)
	}
	return f.price, nil
}

// ===============================
// CSV FEED
// ===============================

// csvFeed serves the most recent quote from a price-history CSV with
// "date,price_per_gram" rows. The file is re-read when its mtime changes.
type csvFeed struct {
	path   string
	logger *zap.Logger

	mu       sync.RWMutex
	points   []PricePoint
	loadedAt time.Time
	modTime  time.Time
}

// NewCSVFeed creates a feed backed by the CSV at path. The file is loaded
// lazily on first quote.
func NewCSVFeed(path string, logger *zap.Logger) Feed {
	return &csvFeed{path: path, logger: logger}
}

// PricePerGram returns the latest quote at or before now.
func (f *csvFeed) PricePerGram(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := f.refresh(); err != nil {
		return 0, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if len(f.points) == 0 {
		return 0, fmt.Errorf("price history %s is empty", f.path)
	}

	now := time.Now()
	// Points are sorted ascending by date; walk back to the latest
	// non-future quote.
	idx := sort.Search(len(f.points), func(i int) bool {
		return f.points[i].Date.After(now)
	})
	if idx == 0 {
		return 0, fmt.Errorf("price history %s has no quote at or before %s", f.path, now.Format("2006-01-02"))
	}
	return f.points[idx-1].Price, nil
}

func (f *csvFeed) refresh() error {
	info, err := os.Stat(f.path)
	if err != nil {
		return fmt.Errorf("stat price history: %w", err)
	}

	f.mu.RLock()
	fresh := !f.loadedAt.IsZero() && info.ModTime().Equal(f.modTime)
	f.mu.RUnlock()
	if fresh {
		return nil
	}

	points, err := loadPriceHistory(f.path)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.points = points
	f.loadedAt = time.Now()
	f.modTime = info.ModTime()
	f.mu.Unlock()

	f.logger.Info("Price history loaded",
		zap.String("path", f.path),
		zap.Int("quotes", len(points)),
	)
	return nil
}

func loadPriceHistory(path string) ([]PricePoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open price history: %w", err)
	}
	defer file.Close()

	points, err := ParsePriceHistory(file)
	if err != nil {
		return nil, fmt.Errorf("parse price history %s: %w", path, err)
	}
	return points, nil
}

// ParsePriceHistory reads "date,price_per_gram" rows. A header row is
// skipped when the first field does not parse as a date. Rows are returned
// sorted ascending by date.
func ParsePriceHistory(r io.Reader) ([]PricePoint, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 2
	reader.TrimLeadingSpace = true

	var points []PricePoint
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++

		date, err := time.Parse("2006-01-02", record[0])
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("row %d: bad date %q", line, record[0])
		}
		price, err := strconv.ParseFloat(record[1], 64)
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("row %d: bad price %q", line, record[1])
		}
		points = append(points, PricePoint{Date: date, Price: price})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}
