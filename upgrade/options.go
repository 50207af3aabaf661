package upgrade

import (
	"github.com/datatrails/go-datatrails-common/logger"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultProgressInterval = 10_000
)

// Options configure a Runner, Verifier or Driver. Each ignores the options
// that do not apply to it.
type Options struct {
	log              logger.Logger
	registerer       prometheus.Registerer
	metrics          *Metrics
	progressInterval uint32
}

type Option func(*Options)

// WithLogger sets the logger passes write progress to.
func WithLogger(log logger.Logger) Option {
	return func(opts *Options) {
		opts.log = log
	}
}

// WithRegisterer registers the pass metrics with reg. Without it metrics are
// still collected but not exported.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(opts *Options) {
		opts.registerer = reg
	}
}

// WithMetrics shares already registered metrics, so several passes can
// report to the same collectors.
func WithMetrics(m *Metrics) Option {
	return func(opts *Options) {
		opts.metrics = m
	}
}

// WithProgressInterval sets how many blocks are replayed between progress
// log lines.
func WithProgressInterval(blocks uint32) Option {
	return func(opts *Options) {
		opts.progressInterval = blocks
	}
}

func newOptions(opts []Option) Options {
	options := Options{progressInterval: defaultProgressInterval}
	for _, o := range opts {
		o(&options)
	}
	if options.log == nil {
		options.log = logger.Sugar.WithServiceName("historynodes")
	}
	if options.metrics == nil {
		options.metrics = NewMetrics(options.registerer)
	}
	if options.progressInterval == 0 {
		options.progressInterval = defaultProgressInterval
	}
	return options
}
