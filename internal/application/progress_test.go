package application

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FoxxDev-Collab/controlgraph/internal/domain"
)

func TestTrackerReport(t *testing.T) {
	tracker := NewTracker(testLogger())
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return clock }

	tracker.Start(2, 4)
	tracker.ControlDone()
	tracker.ControlDone()
	tracker.GroupDone()
	tracker.Error(domain.ImportErrorLink, "dangling", "ac-1")

	clock = clock.Add(10 * time.Second)
	report := tracker.Finish(domain.ImportStats{Groups: 1, Controls: 2})

	assert.False(t, report.Success)
	assert.Equal(t, 1, report.GroupsDone)
	assert.Equal(t, 2, report.GroupsTotal)
	assert.Equal(t, 2, report.ControlsDone)
	assert.Equal(t, 4, report.ControlsTotal)
	assert.InDelta(t, 10.0, report.ElapsedSeconds, 0.001)
	assert.InDelta(t, 0.2, report.ControlsPerSec, 0.001)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, domain.ImportErrorLink, report.Errors[0].Kind)
}

func TestTrackerSuccessWithoutErrors(t *testing.T) {
	tracker := NewTracker(testLogger())
	tracker.Start(1, 1)
	tracker.ControlDone()
	tracker.GroupDone()
	report := tracker.Finish(domain.ImportStats{Groups: 1, Controls: 1})
	assert.True(t, report.Success)
}

func TestTrackerIgnoresCountsBeforeStart(t *testing.T) {
	tracker := NewTracker(testLogger())
	tracker.ControlDone()
	tracker.GroupDone()
	tracker.Start(1, 1)
	report := tracker.Finish(domain.ImportStats{})
	assert.Equal(t, 0, report.ControlsDone)
	assert.Equal(t, 0, report.GroupsDone)
}

func TestTrackerThrottlesProgressLogs(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	tracker := NewTracker(log)
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return clock }

	tracker.Start(1, 100)
	for i := 0; i < 10; i++ {
		tracker.ControlDone()
	}
	assert.Zero(t, strings.Count(buf.String(), "import progress"))

	clock = clock.Add(3 * time.Second)
	tracker.ControlDone()
	assert.Equal(t, 1, strings.Count(buf.String(), "import progress"))

	// Within the interval again; no extra line.
	tracker.ControlDone()
	assert.Equal(t, 1, strings.Count(buf.String(), "import progress"))
}
