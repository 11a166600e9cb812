package application

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	dashboard "energy-dashboard/internal/dashboard/domain"
	"energy-dashboard/internal/observability/metrics"
)

// Chain lists the providers by role. Nil entries are skipped.
type Chain struct {
	Live   dashboard.Provider
	Remote dashboard.Provider
	Script dashboard.Provider
	Store  dashboard.Provider
	Demo   dashboard.Provider
}

type step struct {
	provider dashboard.Provider
	tag      dashboard.SourceTag
}

// Resolver walks the provider chain until one yields a valid payload.
type Resolver struct {
	chain    Chain
	logger   logrus.FieldLogger
	now      func() time.Time
	lastGood sync.Map
}

// Option configures the resolver.
type Option func(*Resolver)

// WithClock overrides the clock used for refreshedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// NewResolver constructs a resolver. The demo provider is required.
func NewResolver(chain Chain, logger logrus.FieldLogger, opts ...Option) (*Resolver, error) {
	if chain.Demo == nil {
		return nil, errors.New("resolver: nil demo provider")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	r := &Resolver{chain: chain, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func (r *Resolver) plan(source dashboard.Source) []step {
	switch source {
	case dashboard.SourceDB:
		return []step{{provider: r.chain.Store, tag: dashboard.TagDB}}
	case dashboard.SourceSolax:
		return []step{
			{provider: r.chain.Store, tag: dashboard.TagSolax},
			{provider: r.chain.Live, tag: dashboard.TagSolax},
		}
	case dashboard.SourceLive:
		return []step{
			{provider: r.chain.Live},
			{provider: r.chain.Remote},
			{provider: r.chain.Script},
			{provider: r.chain.Store},
		}
	default:
		return []step{
			{provider: r.chain.Remote},
			{provider: r.chain.Script},
			{provider: r.chain.Store},
			{provider: r.chain.Live},
		}
	}
}

// emptyTag is the tag of the explicit no-data payload; zero means the mode
// falls through to the last-good cache and the demo generator instead.
func emptyTag(source dashboard.Source) dashboard.SourceTag {
	switch source {
	case dashboard.SourceDB:
		return dashboard.TagDB
	case dashboard.SourceSolax:
		return dashboard.TagSolax
	}
	return ""
}

// Load resolves the filters into a payload. It never fails.
func (r *Resolver) Load(ctx context.Context, f dashboard.Filters) dashboard.Payload {
	logger := r.logger.WithFields(logrus.Fields{
		"range":  f.Range,
		"source": f.Source,
	})
	var failures *multierror.Error

	for _, s := range r.plan(f.Source) {
		if s.provider == nil {
			continue
		}
		payload, err := r.try(ctx, s.provider, f)
		if err == nil {
			if s.tag != "" {
				payload.SourceUsed = s.tag
			}
			r.lastGood.Store(f.Key(), payload.Clone())
			return r.serve(payload)
		}
		failures = multierror.Append(failures, err)
		if ctx.Err() != nil {
			logger.WithError(failures.ErrorOrNil()).Debug("dashboard request cancelled")
			tag := emptyTag(f.Source)
			if tag == "" {
				tag = dashboard.TagNone
			}
			return dashboard.Empty(tag, r.now())
		}
	}

	if failures != nil {
		logger.WithError(failures.ErrorOrNil()).Debug("dashboard providers exhausted")
	}
	if tag := emptyTag(f.Source); tag != "" {
		return r.serve(dashboard.Empty(tag, r.now()))
	}
	if cached, ok := r.lastGood.Load(f.Key()); ok {
		logger.Info("serving last good dashboard payload")
		return r.serve(cached.(dashboard.Payload).Clone())
	}
	payload, err := r.try(ctx, r.chain.Demo, f)
	if err != nil {
		logger.WithError(err).Warn("demo provider failed")
		return r.serve(dashboard.Empty(dashboard.TagDemo, r.now()))
	}
	return r.serve(payload)
}

func (r *Resolver) try(ctx context.Context, p dashboard.Provider, f dashboard.Filters) (dashboard.Payload, error) {
	name := string(p.Name())
	start := time.Now()
	payload, err := p.TryLoad(ctx, f)
	if err == nil {
		err = payload.Validate()
	}
	switch {
	case err == nil:
		metrics.ObserveProvider(name, metrics.ResultSuccess, time.Since(start))
	case errors.Is(err, dashboard.ErrSkipped):
		metrics.ObserveProvider(name, metrics.ResultSkipped, time.Since(start))
		return dashboard.Payload{}, err
	case errors.Is(err, dashboard.ErrInvalidPayload):
		metrics.ObserveProvider(name, metrics.ResultInvalid, time.Since(start))
		r.logger.WithField("provider", name).WithError(err).Warn("provider returned invalid payload")
		return dashboard.Payload{}, err
	default:
		metrics.ObserveProvider(name, metrics.ResultError, time.Since(start))
		r.logger.WithField("provider", name).WithError(err).Warn("provider failed")
		return dashboard.Payload{}, err
	}

	out := *payload
	if out.SourceUsed == "" {
		out.SourceUsed = p.Name()
	}
	if out.RefreshedAt.IsZero() {
		out.RefreshedAt = r.now().UTC()
	}
	return out, nil
}

func (r *Resolver) serve(p dashboard.Payload) dashboard.Payload {
	p.SortHistory()
	metrics.IncPayloadServed(string(p.SourceUsed))
	return p
}
