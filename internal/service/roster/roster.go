package roster

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/barberbooking/internal/clock"
	"github.com/Domenick1991/barberbooking/internal/domain"
	"github.com/Domenick1991/barberbooking/internal/logger"
	"github.com/Domenick1991/barberbooking/internal/repository"
	"github.com/Domenick1991/barberbooking/internal/service/calendar"
	"go.uber.org/zap"
)

var requiredColumns = []string{"name", "phone", "address", "user_id", "card_number"}

type Regenerator interface {
	Regenerate(ctx context.Context, now time.Time) (calendar.RegenerateResult, error)
}

type Invalidator interface {
	Invalidate(ctx context.Context)
}

type Result struct {
	Created     int
	Updated     int
	Regenerated calendar.RegenerateResult
}

type Importer struct {
	providers repository.ProviderRepository
	calendar  Regenerator
	directory Invalidator
	clock     clock.Clock
	path      string
	log       *zap.Logger
}

func NewImporter(providers repository.ProviderRepository, cal Regenerator, directory Invalidator, clk clock.Clock, path string, log *zap.Logger) *Importer {
	return &Importer{
		providers: providers,
		calendar:  cal,
		directory: directory,
		clock:     clk,
		path:      path,
		log:       logger.OrNop(log),
	}
}

// Reload imports the configured roster file.
func (i *Importer) Reload(ctx context.Context) (Result, error) {
	f, err := os.Open(i.path)
	if err != nil {
		return Result{}, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return i.Import(ctx, f)
}

// Import upserts every row keyed by user_id, then regenerates the calendar.
// The whole file is parsed before anything is written.
func (i *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	var res Result
	rows, err := Parse(r)
	if err != nil {
		return res, err
	}

	for _, p := range rows {
		p := p
		created, err := i.providers.Upsert(ctx, &p)
		if err != nil {
			return res, fmt.Errorf("upsert provider %d: %w", p.ExternalID, err)
		}
		if created {
			res.Created++
		} else {
			res.Updated++
		}
	}

	if i.directory != nil {
		i.directory.Invalidate(ctx)
	}

	res.Regenerated, err = i.calendar.Regenerate(ctx, i.clock.Now())
	if err != nil {
		return res, err
	}

	i.log.Info("roster imported", zap.Int("created", res.Created), zap.Int("updated", res.Updated))
	return res, nil
}

// Parse reads a roster CSV with the header name,phone,address,user_id,card_number
// in any column order.
func Parse(r io.Reader) ([]domain.Provider, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("roster is empty")
	}
	if err != nil {
		return nil, fmt.Errorf("read roster header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(col, "\ufeff")))] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("roster is missing column %q", col)
		}
	}

	var providers []domain.Provider
	seen := map[int64]int{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read roster: %w", err)
		}
		line, _ := reader.FieldPos(0)

		field := func(name string) string {
			return strings.TrimSpace(record[index[name]])
		}
		externalID, err := strconv.ParseInt(field("user_id"), 10, 64)
		if err != nil || externalID <= 0 {
			return nil, &domain.ValidationError{Field: "user_id", Reason: fmt.Sprintf("line %d: %q", line, field("user_id"))}
		}
		name := field("name")
		if name == "" {
			return nil, &domain.ValidationError{Field: "name", Reason: fmt.Sprintf("line %d: empty", line)}
		}

		p := domain.Provider{
			Name:       name,
			Phone:      field("phone"),
			Address:    field("address"),
			ExternalID: externalID,
			CardNumber: field("card_number"),
		}
		if prev, ok := seen[externalID]; ok {
			providers[prev] = p
			continue
		}
		seen[externalID] = len(providers)
		providers = append(providers, p)
	}
	return providers, nil
}
