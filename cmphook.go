// Package cmphook instruments string and memory comparison routines for
// coverage-guided fuzzing.
//
// Every intercepted operation returns exactly what the emulated library
// function returns, and as a side effect reports how far the two operands
// agreed (the progress score) for the calling site, plus the consumed operand
// windows as candidate constants for the mutation engine.
package cmphook

import (
	"sync/atomic"
)

// CallSite identifies the location an intercepted operation was called from.
// It is usually a return PC, but any stable per-site integer works.
type CallSite uint64

// Predicate selects how two bytes are compared at each offset
type Predicate uint8

const (
	// Exact compares raw byte values.
	Exact Predicate = iota
	// Folded compares bytes after C-locale tolower.
	Folded
)

func (p Predicate) String() string {
	switch p {
	case Exact:
		return "exact"
	case Folded:
		return "folded"
	}
	return "unknown"
}

// Match is the outcome of one Bounded-Match Engine scan.
type Match struct {
	Score int // Offset at which the scan stopped
	Order int // Ordering result of the emulated comparison (0 = equal)
}

// Equal reports whether the emulated comparison considered both sides equal.
func (m Match) Equal() bool {
	return m.Order == 0
}

// ProgressReporter receives the progress score of every comparison.
// Implementations must be safe for concurrent use and must not block.
type ProgressReporter interface {
	ReportProgress(site CallSite, score int)
}

// ConstantReporter receives operand windows that may be interesting literals.
// buf aliases caller memory; implementations that keep it must copy it.
type ConstantReporter interface {
	ReportConstant(buf []byte, verifyReadOnly bool)
}

// ProgressFunc adapts a function to ProgressReporter.
type ProgressFunc func(site CallSite, score int)

// ReportProgress calls f(site, score).
func (f ProgressFunc) ReportProgress(site CallSite, score int) { f(site, score) }

// ConstantFunc adapts a function to ConstantReporter.
type ConstantFunc func(buf []byte, verifyReadOnly bool)

// ReportConstant calls f(buf, verifyReadOnly).
func (f ConstantFunc) ReportConstant(buf []byte, verifyReadOnly bool) { f(buf, verifyReadOnly) }

type nopReporter struct{}

func (nopReporter) ReportProgress(CallSite, int)  {}
func (nopReporter) ReportConstant([]byte, bool) {}

// Instrument binds the comparison primitives to a pair of reporters.
// It holds no mutable state and may be shared by any number of goroutines.
type Instrument struct {
	progress  ProgressReporter
	constants ConstantReporter
}

// New creates an Instrument. Nil reporters discard what they would receive.
func New(progress ProgressReporter, constants ConstantReporter) *Instrument {
	if progress == nil {
		progress = nopReporter{}
	}
	if constants == nil {
		constants = nopReporter{}
	}
	return &Instrument{progress: progress, constants: constants}
}

// Discard is an Instrument that computes results and reports nothing.
var Discard = New(nil, nil)

var installed atomic.Pointer[Instrument]

func init() {
	installed.Store(Discard)
}

// Install makes in the instrument used by the package-level wrappers and
// returns the previously installed one. Install(nil) restores Discard.
func Install(in *Instrument) *Instrument {
	if in == nil {
		in = Discard
	}
	return installed.Swap(in)
}

// Installed returns the instrument used by the package-level wrappers.
func Installed() *Instrument {
	return installed.Load()
}

// Pre-computed C-locale tolower table
var foldLUT = func() (t [256]byte) {
	for i := range t {
		c := byte(i)
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		t[i] = c
	}
	return t
}()

// normalize applies the predicate to a single byte.
func (p Predicate) normalize(c byte) byte {
	if p == Folded {
		return foldLUT[c]
	}
	return c
}
