// Package alerts watches for sharp traffic drops and notifies the operator.
package alerts

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gsclens/gsclens/internal/config"
	"github.com/gsclens/gsclens/internal/format"
	"github.com/gsclens/gsclens/internal/gsc"
	"github.com/gsclens/gsclens/internal/logging"
	"github.com/gsclens/gsclens/internal/models"
	"github.com/gsclens/gsclens/internal/store"
	"github.com/gsclens/gsclens/internal/telegram"
)

const lastAlertSetting = "alerts.last_sent_unix"

// Service compares the current reporting period against the previous one and
// sends a notification when clicks drop beyond the configured threshold.
type Service struct {
	cfgMu    sync.RWMutex
	cfg      config.AlertsConfig
	client   *gsc.Client
	settings store.Cache
	notifier telegram.Notifier
	logger   *logging.Logger
	now      func() time.Time
	onSent   func()

	done chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithSentCallback registers a callback invoked after each delivered alert,
// used to feed metrics.
func WithSentCallback(fn func()) Option {
	return func(s *Service) { s.onSent = fn }
}

// NewService creates an alert service.
func NewService(cfg config.AlertsConfig, client *gsc.Client, settings store.Cache, notifier telegram.Notifier, logger *logging.Logger, opts ...Option) *Service {
	s := &Service{
		cfg:      cfg,
		client:   client,
		settings: settings,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateConfig swaps in reloaded alert settings. Thresholds, periods and the
// debounce take effect on the next tick; the check interval stays as
// configured at startup.
func (s *Service) UpdateConfig(cfg config.AlertsConfig) {
	s.cfgMu.Lock()
	s.cfg = cfg
	s.cfgMu.Unlock()
}

func (s *Service) config() config.AlertsConfig {
	s.cfgMu.RLock()
	defer s.cfgMu.RUnlock()
	return s.cfg
}

// Start runs the periodic check in a background goroutine.
func (s *Service) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.config().CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.CheckOnce(ctx); err != nil {
					s.logger.Warn("alert check failed", "error", err.Error())
				}
			}
		}
	}()
}

// Stop stops the periodic check.
func (s *Service) Stop() {
	close(s.done)
}

// CheckOnce runs one comparison. The current period is the last PeriodDays
// full days (ending yesterday, since Search Console data lags); the previous
// period is the PeriodDays before that.
func (s *Service) CheckOnce(ctx context.Context) error {
	cfg := s.config()
	if s.debounced(cfg.Debounce) {
		return nil
	}

	end := s.now().UTC().AddDate(0, 0, -1)
	start := end.AddDate(0, 0, -(cfg.PeriodDays - 1))
	prevEnd := start.AddDate(0, 0, -1)
	prevStart := prevEnd.AddDate(0, 0, -(cfg.PeriodDays - 1))

	current, err := s.periodTotals(ctx, start, end)
	if err != nil {
		return err
	}
	previous, err := s.periodTotals(ctx, prevStart, prevEnd)
	if err != nil {
		return err
	}

	if previous.Clicks == 0 {
		return nil
	}

	dropPct := (1 - float64(current.Clicks)/float64(previous.Clicks)) * 100
	if dropPct < cfg.DropThresholdPct {
		return nil
	}

	msg := fmt.Sprintf(
		"*Traffic drop on %s*\nClicks fell %.0f%% vs the previous %d days.\nCurrent: %s clicks, %s impressions\nPrevious: %s clicks, %s impressions\nImpressions %s, CTR %s, position %s",
		s.client.Site(),
		dropPct,
		cfg.PeriodDays,
		format.Number(float64(current.Clicks)),
		format.Number(float64(current.Impressions)),
		format.Number(float64(previous.Clicks)),
		format.Number(float64(previous.Impressions)),
		format.Delta(float64(current.Impressions), float64(previous.Impressions)),
		format.CTRDelta(current.CTR, previous.CTR),
		format.PositionDelta(current.Position, previous.Position),
	)

	if err := s.notifier.Send(msg); err != nil {
		return err
	}

	s.logger.Info("traffic alert sent", "drop_pct", dropPct,
		"current_clicks", current.Clicks, "previous_clicks", previous.Clicks)
	if s.onSent != nil {
		s.onSent()
	}
	return s.settings.SetSetting(lastAlertSetting, strconv.FormatInt(s.now().Unix(), 10))
}

func (s *Service) periodTotals(ctx context.Context, start, end time.Time) (models.Totals, error) {
	rows, err := s.client.PerformanceOverTime(ctx,
		start.Format("2006-01-02"), end.Format("2006-01-02"), "", nil)
	if err != nil {
		return models.Totals{}, err
	}
	return models.Summarize(rows), nil
}

func (s *Service) debounced(debounce time.Duration) bool {
	raw, ok := s.settings.GetSetting(lastAlertSetting)
	if !ok {
		return false
	}
	last, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false
	}
	return s.now().Sub(time.Unix(last, 0)) < debounce
}
