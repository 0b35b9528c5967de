package weights

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/iwvelando/pawn-calculator/internal/metrics"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
	"github.com/iwvelando/pawn-calculator/pkg/validation"
	"go.uber.org/zap"
)

const watchRetryDelay = 5 * time.Second

// Provider owns the current weight snapshot. Calculations read it through
// Snapshot; the store listener replaces it.
type Provider struct {
	store    Store
	defaults rates.WeightTable
	logger   *zap.Logger
	metrics  *metrics.Metrics

	mu       sync.RWMutex
	current  rates.WeightTable
	fallback bool

	retryDelay time.Duration
}

// NewProvider returns a provider serving defaults until the store is loaded.
func NewProvider(store Store, defaults rates.WeightTable, logger *zap.Logger, m *metrics.Metrics) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		store:      store,
		defaults:   defaults.Clone(),
		logger:     logger,
		metrics:    m,
		current:    defaults.Clone(),
		fallback:   true,
		retryDelay: watchRetryDelay,
	}
}

// Snapshot returns a copy of the current table.
func (p *Provider) Snapshot() rates.WeightTable {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current.Clone()
}

// UsingDefaults reports whether the provider is serving the defaults because
// the stored document could not be used.
func (p *Provider) UsingDefaults() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.fallback
}

// Load reads the stored document once. A missing document is created from
// the defaults. A malformed document or a store failure leaves the defaults
// in place; the error is returned for reporting only.
func (p *Provider) Load(ctx context.Context) error {
	table, err := p.store.Load(ctx)
	switch {
	case errors.Is(err, ErrNotFound):
		p.logger.Info("weights document not found, creating it with defaults",
			zap.String("op", "weights.Provider.Load"),
		)
		if err := p.store.Save(ctx, p.defaults); err != nil {
			p.useDefaults(metrics.SourceFallback)
			return fmt.Errorf("failed to create weights document: %w", err)
		}
		p.install(p.defaults, metrics.SourceCreate)
		return nil
	case err != nil:
		p.logger.Warn("failed to load weights, using defaults",
			zap.String("op", "weights.Provider.Load"),
			zap.Error(err),
		)
		p.useDefaults(metrics.SourceFallback)
		return err
	}

	return p.accept(table, metrics.SourceLoad)
}

// Start loads the document and keeps the snapshot current until ctx is done.
// It returns once the first load has completed.
func (p *Provider) Start(ctx context.Context) {
	_ = p.Load(ctx)
	go p.watch(ctx)
}

func (p *Provider) watch(ctx context.Context) {
	for {
		err := p.store.Watch(ctx, func(table rates.WeightTable) {
			_ = p.accept(table, metrics.SourceWatch)
		})
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Warn("weights watch failed, retrying",
				zap.String("op", "weights.Provider.watch"),
				zap.Duration("retry_in", p.retryDelay),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(p.retryDelay):
		}
	}
}

// Update validates update merged over the current snapshot, saves it and
// installs the result. It returns the table now in effect.
func (p *Provider) Update(ctx context.Context, update rates.WeightTable) (rates.WeightTable, error) {
	merged := p.Snapshot().Merge(update)
	if err := validation.ValidateWeightTable(merged); err != nil {
		return rates.WeightTable{}, err
	}

	if err := p.store.Save(ctx, update); err != nil {
		return rates.WeightTable{}, fmt.Errorf("failed to save weights: %w", err)
	}

	table, err := p.store.Load(ctx)
	if err != nil {
		return rates.WeightTable{}, fmt.Errorf("failed to reload weights: %w", err)
	}
	if err := p.accept(table, metrics.SourceUpdate); err != nil {
		return rates.WeightTable{}, err
	}
	return p.Snapshot(), nil
}

// accept installs table if it is well formed and falls back to the defaults
// otherwise.
func (p *Provider) accept(table rates.WeightTable, source string) error {
	if err := validation.ValidateWeightTable(table); err != nil {
		p.logger.Warn("weights document is malformed, using defaults",
			zap.String("op", "weights.Provider.accept"),
			zap.String("source", source),
			zap.Error(err),
		)
		p.useDefaults(metrics.SourceFallback)
		return err
	}
	p.install(table, source)
	return nil
}

func (p *Provider) install(table rates.WeightTable, source string) {
	p.mu.Lock()
	p.current = table.Clone()
	p.fallback = false
	p.mu.Unlock()

	p.metrics.WeightsReloaded(source)
	p.logger.Debug("installed weights snapshot",
		zap.String("op", "weights.Provider.install"),
		zap.String("source", source),
		zap.Float64("initial_rate", table.InitialRate),
	)
}

func (p *Provider) useDefaults(source string) {
	p.mu.Lock()
	p.current = p.defaults.Clone()
	p.fallback = true
	p.mu.Unlock()

	p.metrics.WeightsReloaded(source)
}
