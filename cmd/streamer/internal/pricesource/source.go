// Package pricesource fetches price snapshots from the external price generator.
package pricesource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shubham-shewale/fx-platform/pkg/models"
)

var (
	ErrStatus    = errors.New("unexpected price source status")
	ErrMalformed = errors.New("malformed price source response")
)

// ISO 8601 variants the generator may emit; a missing zone is read as local time.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

const maxBodySize = 1 << 20

type Source struct {
	baseURL string
	client  *http.Client
}

// New returns a source for baseURL. Every fetch is bounded by timeout.
func New(baseURL string, timeout time.Duration) *Source {
	return &Source{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type priceDTO struct {
	Instrument string   `json:"instrument"`
	Price      *float64 `json:"price"`
	Timestamp  string   `json:"timestamp"`
}

type responseDTO struct {
	Prices *[]priceDTO `json:"prices"`
}

// Fetch does GET <base>/prices. Non-200 wraps ErrStatus; any other shape wraps ErrMalformed.
func (s *Source) Fetch(ctx context.Context) (models.PriceSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/prices", nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: HTTP %d", ErrStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read prices: %w", err)
	}

	return Parse(body)
}

// Parse decodes a {"prices":[...]} body.
func Parse(body []byte) (models.PriceSnapshot, error) {
	var dto responseDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dto.Prices == nil {
		return nil, fmt.Errorf("%w: missing prices", ErrMalformed)
	}

	snap := make(models.PriceSnapshot, 0, len(*dto.Prices))
	for i, p := range *dto.Prices {
		if p.Instrument == "" || p.Price == nil {
			return nil, fmt.Errorf("%w: entry %d incomplete", ErrMalformed, i)
		}
		ts, err := parseTimestamp(p.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformed, i, err)
		}
		snap = append(snap, models.Price{Symbol: p.Instrument, Price: *p.Price, ObservedAt: ts})
	}
	return snap, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}
