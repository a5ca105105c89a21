package cmphook

import (
	"fmt"

	"github.com/42atomys/go-cmphook/config"
	"github.com/42atomys/go-cmphook/constmem"
	"github.com/42atomys/go-cmphook/feedback"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Runtime is an installed instrument together with the collaborators it
// reports to. It lives for the duration of the fuzzing process.
type Runtime struct {
	Instrument *Instrument
	Table      *Table
	Feedback   *feedback.CmpMap
	Constants  *constmem.Registry // nil when constants are disabled

	log      *zap.Logger
	ownsLog  bool
	previous *Instrument
}

// Setup builds the feedback map and constant registry described by cfg,
// installs an instrument reporting to them and registers their metrics on
// reg. A nil cfg means config.Default(). A nil log is built from
// cfg.Logging; a nil reg skips metrics registration.
func Setup(cfg *config.Config, log *zap.Logger, reg prometheus.Registerer) (*Runtime, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	ownsLog := false
	if log == nil {
		built, err := cfg.Logging.Build()
		if err != nil {
			return nil, err
		}
		log, ownsLog = built, true
	}

	cmpMap, err := feedback.New(cfg.Feedback.Slots)
	if err != nil {
		return nil, err
	}
	collectors := []prometheus.Collector{feedback.NewCollector(cmpMap)}

	var (
		registry  *constmem.Registry
		constants ConstantReporter
	)
	if cfg.Constants.Enabled {
		registry = constmem.New(constmem.Options{
			Capacity:        cfg.Constants.Capacity,
			MinLen:          cfg.Constants.MinLen,
			MaxLen:          cfg.Constants.MaxLen,
			VerifyReadOnly:  cfg.Constants.VerifyReadOnly,
			RefreshInterval: cfg.Constants.RefreshInterval,
		}, log)
		constants = registry
		collectors = append(collectors, constmem.NewCollector(registry))
	}

	if reg != nil {
		for i, c := range collectors {
			if err := reg.Register(c); err != nil {
				for _, done := range collectors[:i] {
					reg.Unregister(done)
				}
				return nil, fmt.Errorf("failed to register metrics: %w", err)
			}
		}
	}

	in := New(ProgressFunc(func(site CallSite, score int) {
		cmpMap.Update(uint64(site), score)
	}), constants)

	rt := &Runtime{
		Instrument: in,
		Table:      DefaultTable(),
		Feedback:   cmpMap,
		Constants:  registry,
		log:        log,
		ownsLog:    ownsLog,
	}
	rt.previous = Install(in)

	log.Info("comparison instrumentation installed",
		zap.Int("operations", rt.Table.Len()),
		zap.Int("feedback_slots", cfg.Feedback.Slots),
		zap.Bool("constants", cfg.Constants.Enabled),
		zap.Bool("verify_read_only", cfg.Constants.VerifyReadOnly),
	)
	return rt, nil
}

// Invoke dispatches an intercepted call by name on the runtime's instrument.
func (r *Runtime) Invoke(name string, c Call) (int, error) {
	return r.Table.Invoke(r.Instrument, name, c)
}

// Close reinstalls the instrument that was active before Setup and logs
// the final counters.
func (r *Runtime) Close() {
	Install(r.previous)

	fs := r.Feedback.Stats()
	fields := []zap.Field{
		zap.Int("slots_used", fs.Used),
		zap.Uint64("reports", fs.Reports),
		zap.Uint64("improvements", fs.Improvements),
	}
	if r.Constants != nil {
		fields = append(fields, zap.Int("constants", r.Constants.Len()))
	}
	r.log.Info("comparison instrumentation removed", fields...)
	if r.ownsLog {
		_ = r.log.Sync()
	}
}
