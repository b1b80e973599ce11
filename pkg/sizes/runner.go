package sizes

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/nikixstore/storefront/pkg/notify"
)

// DefaultNightPause is how long the runner sleeps outside its active window.
const DefaultNightPause = 2 * time.Hour

// Schedule bounds when and how often the cache refreshes.
type Schedule struct {
	MinDelay time.Duration
	MaxDelay time.Duration
	// ActiveFrom and ActiveTo are local hours, both inclusive.
	ActiveFrom int
	ActiveTo   int
	NightPause time.Duration
}

// Active reports whether t falls inside the daily window.
func (s Schedule) Active(t time.Time) bool {
	h := t.Hour()
	return h >= s.ActiveFrom && h <= s.ActiveTo
}

// Delay picks the pause before the next refresh. n returns a value in [0, max).
func (s Schedule) Delay(n func(max int64) int64) time.Duration {
	span := int64(s.MaxDelay - s.MinDelay)
	if span <= 0 {
		return s.MinDelay
	}
	return s.MinDelay + time.Duration(n(span+1))
}

// Runner refreshes a Cache on a randomized timer.
type Runner struct {
	cache *Cache
	sched Schedule
	alert notify.Alerter
	log   *slog.Logger

	now    func() time.Time
	randN  func(int64) int64
	sleep  func(context.Context, time.Duration) error
	paused bool
}

// NewRunner returns a runner for cache.
func NewRunner(cache *Cache, sched Schedule, alert notify.Alerter, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if sched.NightPause <= 0 {
		sched.NightPause = DefaultNightPause
	}
	return &Runner{
		cache: cache,
		sched: sched,
		alert: alert,
		log:   log,
		now:   time.Now,
		randN: rand.Int64N,
		sleep: sleepCtx,
	}
}

// Run refreshes until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("size refresh loop started",
		"min_delay", r.sched.MinDelay, "max_delay", r.sched.MaxDelay,
		"active_from", r.sched.ActiveFrom, "active_to", r.sched.ActiveTo)
	for {
		delay := r.Step(ctx)
		if err := r.sleep(ctx, delay); err != nil {
			r.log.Info("size refresh loop stopped")
			return nil
		}
	}
}

// Step runs one iteration and returns how long to wait before the next.
func (r *Runner) Step(ctx context.Context) time.Duration {
	if !r.sched.Active(r.now()) {
		if !r.paused {
			r.alert.Alert(ctx, "Парсинг выключен на ночь")
			r.paused = true
		}
		return r.sched.NightPause
	}
	r.paused = false

	delay := r.sched.Delay(r.randN)
	rep, err := r.cache.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			r.alert.Alert(ctx, fmt.Sprintf("Ошибка обновления размеров: %v\nСледующее через %d минут", err, int(delay.Minutes())))
		}
		return delay
	}

	failed := rep.Failed()
	if len(failed) == 0 {
		r.log.Info("sizes refreshed", "articles", rep.Checked, "took", rep.Took, "next_in", delay)
		return delay
	}
	var b strings.Builder
	b.WriteString("Парсинг закончен")
	for _, article := range failed {
		fmt.Fprintf(&b, "\nОшибка запроса: %s", article)
	}
	fmt.Fprintf(&b, "\nСледующий через %d минут", int(delay.Minutes()))
	r.alert.Alert(ctx, b.String())
	return delay
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
