package kinetix

import "github.com/pkg/errors"

// errEndOfRun is the halt sentinel's private signal to the main loop.
var errEndOfRun = errors.New("end of run")

// SystemEvent is a scheduled callback independent of any particle:
// periodic tickers for the output plugins and the end-of-run sentinel.
// Events live in the sorter's extra slot.
type SystemEvent interface {
	Name() string
	// NextTime returns the next absolute fire time, or false once the
	// event is spent.
	NextTime() (float64, bool)
	// Execute runs at the fire time and advances the internal schedule.
	Execute(s *Sim, t float64) error
}

// Ticker fires at a fixed period, driving output plugin ticks and the
// visualiser handoff.
type Ticker struct {
	Period float64
	next   float64
}

func NewTicker(period, start float64) *Ticker {
	return &Ticker{Period: period, next: start + period}
}

func (tk *Ticker) Name() string { return "Ticker" }

func (tk *Ticker) NextTime() (float64, bool) { return tk.next, true }

func (tk *Ticker) Execute(s *Sim, t float64) error {
	tk.next += tk.Period
	s.tick(t)
	return nil
}

// Halt ends the run at a fixed time. Keeping it in the queue means the
// top heap is never legitimately empty before the end of a run.
type Halt struct {
	At float64
}

func (h *Halt) Name() string { return "Halt" }

func (h *Halt) NextTime() (float64, bool) { return h.At, true }

func (h *Halt) Execute(s *Sim, t float64) error { return errEndOfRun }
