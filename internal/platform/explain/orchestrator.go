// Package explain generates patient-friendly explanations for classified
// readings. An external Explainer produces the text; the orchestrator
// bounds it with per-call timeouts and an overall batch budget, caches
// successful answers by metric fingerprint, collapses concurrent
// duplicate requests, and substitutes deterministic fallback wording when
// the collaborator is slow or unavailable. It never returns an error:
// every input metric always gets an explanation.
package explain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/aihealth/agent-api/internal/domain/metric"
	"github.com/aihealth/agent-api/internal/platform/i18n"
)

// Explainer is the external text-generation collaborator.
type Explainer interface {
	Explain(ctx context.Context, lang i18n.Language, m metric.HealthMetric) (string, error)
}

const (
	DefaultWorkers      = 4
	DefaultCallTimeout  = 15 * time.Second
	DefaultBatchTimeout = 30 * time.Second
)

// Options tune the orchestrator; zero values fall back to the defaults.
type Options struct {
	Workers      int
	CallTimeout  time.Duration
	BatchTimeout time.Duration
}

// Orchestrator fans metric explanations out to a bounded worker set.
// The cache lives for the process lifetime; only successful collaborator
// answers are cached so transient failures stay retryable.
type Orchestrator struct {
	explainer Explainer
	log       zerolog.Logger

	workers      int
	callTimeout  time.Duration
	batchTimeout time.Duration

	mu    sync.RWMutex
	cache map[string]string
	sf    singleflight.Group
}

func NewOrchestrator(explainer Explainer, opts Options, log zerolog.Logger) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = DefaultBatchTimeout
	}
	return &Orchestrator{
		explainer:    explainer,
		log:          log.With().Str("component", "explain").Logger(),
		workers:      opts.Workers,
		callTimeout:  opts.CallTimeout,
		batchTimeout: opts.BatchTimeout,
		cache:        make(map[string]string),
	}
}

// ExplainAll resolves one explanation per input metric, keyed by metric
// name. The whole batch shares one time budget; metrics still pending
// when it expires get fallback wording.
func (o *Orchestrator) ExplainAll(ctx context.Context, lang i18n.Language, metrics []metric.HealthMetric) map[string]string {
	if len(metrics) == 0 {
		return map[string]string{}
	}

	ctx, cancel := context.WithTimeout(ctx, o.batchTimeout)
	defer cancel()

	texts := make([]string, len(metrics))
	g := new(errgroup.Group)
	g.SetLimit(o.workers)
	for i := range metrics {
		i := i
		g.Go(func() error {
			texts[i] = o.explainOne(ctx, lang, metrics[i])
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]string, len(metrics))
	for i, m := range metrics {
		out[m.Name] = texts[i]
	}
	return out
}

func (o *Orchestrator) explainOne(ctx context.Context, lang i18n.Language, m metric.HealthMetric) string {
	key := m.Fingerprint() + "|" + string(lang)

	o.mu.RLock()
	cached, ok := o.cache[key]
	o.mu.RUnlock()
	if ok {
		return cached
	}

	v, err, _ := o.sf.Do(key, func() (interface{}, error) {
		o.mu.RLock()
		cached, ok := o.cache[key]
		o.mu.RUnlock()
		if ok {
			return cached, nil
		}

		callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		defer cancel()
		text, err := o.explainer.Explain(callCtx, lang, m)
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			return "", errors.New("empty explanation")
		}

		o.mu.Lock()
		o.cache[key] = text
		o.mu.Unlock()
		return text, nil
	})
	if err != nil {
		o.log.Warn().Err(err).Str("metric", m.Name).Msg("explanation failed, using fallback")
		return Fallback(lang, m)
	}
	return v.(string)
}

// Fallback renders the deterministic template for a metric, keyed by its
// classified status.
func Fallback(lang i18n.Language, m metric.HealthMetric) string {
	key := "fallback_unknown"
	switch m.Status {
	case metric.StatusNormal:
		key = "fallback_normal"
	case metric.StatusLow:
		key = "fallback_low"
	case metric.StatusHigh:
		key = "fallback_high"
	case metric.StatusElevated:
		key = "fallback_elevated"
	case metric.StatusCritical:
		key = "fallback_critical"
	}
	return i18n.F(lang, key, m.Name, m.Value, m.Unit)
}
