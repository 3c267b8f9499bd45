package application

import (
	"log/slog"
	"time"

	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
)

type trackerState int

const (
	trackerCreated trackerState = iota
	trackerRunning
	trackerFinished
)

// progressLogInterval throttles progress emission so large imports do
// not flood the log.
const progressLogInterval = 2 * time.Second

// Tracker accumulates counters and recoverable errors for one import
// run. It never fails itself; callers read Success off the final
// report. Not safe for concurrent use: the importer is sequential.
type Tracker struct {
	log           *slog.Logger
	state         trackerState
	groupsTotal   int
	controlsTotal int
	groupsDone    int
	controlsDone  int
	startedAt     time.Time
	lastLogAt     time.Time
	errors        []domain.ImportError
	now           func() time.Time
}

func NewTracker(log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}
	return &Tracker{log: log, now: time.Now}
}

func (t *Tracker) Start(groupsTotal, controlsTotal int) {
	if t.state != trackerCreated {
		return
	}
	t.state = trackerRunning
	t.groupsTotal = groupsTotal
	t.controlsTotal = controlsTotal
	t.startedAt = t.now()
	t.lastLogAt = t.startedAt
}

func (t *Tracker) GroupDone() {
	if t.state != trackerRunning {
		return
	}
	t.groupsDone++
	t.maybeLog()
}

// ControlDone counts one completed control; enhancements count too.
func (t *Tracker) ControlDone() {
	if t.state != trackerRunning {
		return
	}
	t.controlsDone++
	t.maybeLog()
}

func (t *Tracker) Error(kind domain.ImportErrorKind, message, details string) {
	t.errors = append(t.errors, domain.ImportError{Kind: kind, Message: message, Details: details})
}

func (t *Tracker) maybeLog() {
	now := t.now()
	if now.Sub(t.lastLogAt) < progressLogInterval {
		return
	}
	t.lastLogAt = now
	elapsed := now.Sub(t.startedAt).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(t.controlsDone) / elapsed
	}
	t.log.Info("import progress",
		"groups", t.groupsDone,
		"groups_total", t.groupsTotal,
		"controls", t.controlsDone,
		"controls_total", t.controlsTotal,
		"controls_per_sec", rate,
	)
}

func (t *Tracker) Finish(stats domain.ImportStats) domain.ImportReport {
	if t.state == trackerRunning {
		t.state = trackerFinished
	}
	elapsed := t.now().Sub(t.startedAt).Seconds()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(t.controlsDone) / elapsed
	}
	return domain.ImportReport{
		Success:        len(t.errors) == 0,
		GroupsDone:     t.groupsDone,
		GroupsTotal:    t.groupsTotal,
		ControlsDone:   t.controlsDone,
		ControlsTotal:  t.controlsTotal,
		ElapsedSeconds: elapsed,
		ControlsPerSec: rate,
		Stats:          stats,
		Errors:         t.errors,
	}
}
