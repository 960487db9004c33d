package poller

import (
	"github.com/anicoll/foxess-integration/internal/pkg/config"
	"github.com/anicoll/foxess-integration/internal/pkg/model"
)

// retryNextSlot makes the next tick 0, which runs every fetch in the window.
const retryNextSlot = -1

type BackoffReason string

const (
	BackoffNone    BackoffReason = ""
	BackoffOffline BackoffReason = "offline"
	BackoffAlarm   BackoffReason = "alarm"
)

// Outcome is how a tick ended; it drives the scheduler transition.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	// OutcomeTransportFailure rewinds one tick so the same window retries without repeating cheaper calls.
	OutcomeTransportFailure
	// OutcomeFailure resets to retryNextSlot so the whole window retries.
	OutcomeFailure
	OutcomeOffline
	OutcomeAlarmFailure
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeTransportFailure:
		return "transport_failure"
	case OutcomeFailure:
		return "failure"
	case OutcomeOffline:
		return "offline"
	case OutcomeAlarmFailure:
		return "alarm_failure"
	case OutcomeFatal:
		return "fatal"
	}
	return "unknown"
}

// Plan is what one tick should fetch.
type Plan struct {
	Tick int
	// Skip means no vendor calls this tick.
	Skip   bool
	Detail bool
	Report bool
	// Full is the tick 0 window that also fetches battery settings and daily generation.
	Full bool
}

// Scheduler owns the per device tick counter and the Idle/Polling/Backoff/Fatal state machine.
// It is not safe for concurrent use; the coordinator serialises ticks.
type Scheduler struct {
	cfg       config.ScheduleConfig
	tick      int
	state     model.SchedulerState
	reason    BackoffReason
	remaining int
}

func NewScheduler(cfg *config.ScheduleConfig) *Scheduler {
	if cfg == nil {
		cfg = config.DefaultSchedule()
	}
	return &Scheduler{
		cfg:   *cfg,
		tick:  retryNextSlot,
		state: model.StateIdle,
	}
}

func (s *Scheduler) Tick() int {
	return s.tick
}

func (s *Scheduler) State() model.SchedulerState {
	return s.state
}

func (s *Scheduler) Reason() BackoffReason {
	return s.reason
}

// Next advances the counter and decides what this tick fetches.
func (s *Scheduler) Next() Plan {
	switch s.state {
	case model.StateFatal:
		return Plan{Tick: s.tick, Skip: true}
	case model.StateBackoff:
		s.remaining--
		if s.remaining > 0 {
			return Plan{Tick: s.tick, Skip: true}
		}
		// backoff over, resync everything
		s.reason = BackoffNone
		s.state = model.StateIdle
		s.tick = retryNextSlot
	}

	s.tick++
	if s.tick%s.cfg.MainWindow != 0 {
		return Plan{Tick: s.tick, Skip: true}
	}
	s.state = model.StatePolling
	detail := s.tick%s.cfg.DetailWindow == 0
	return Plan{
		Tick:   s.tick,
		Detail: detail,
		Report: detail,
		Full:   s.tick == 0,
	}
}

// Finish applies the outcome of the tick returned by the last Next.
func (s *Scheduler) Finish(o Outcome) {
	switch o {
	case OutcomeFatal:
		s.state = model.StateFatal
		return
	case OutcomeOffline:
		s.enterBackoff(BackoffOffline, s.cfg.OfflineBackoff)
		return
	case OutcomeAlarmFailure:
		s.enterBackoff(BackoffAlarm, s.cfg.AlarmBackoff)
		return
	case OutcomeTransportFailure:
		s.tick--
	case OutcomeFailure:
		s.tick = retryNextSlot
	}
	if s.state == model.StatePolling {
		s.state = model.StateIdle
	}
	if s.tick >= s.cfg.Rollover {
		s.tick = retryNextSlot
	}
}

func (s *Scheduler) enterBackoff(reason BackoffReason, ticks int) {
	s.state = model.StateBackoff
	s.reason = reason
	s.remaining = ticks
}
