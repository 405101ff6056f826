package main

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-tracking/core/tracking"
	"github.com/trezcool/masomo-tracking/tests"
)

var epoch = time.Date(2021, 1, 11, 8, 0, 0, 0, time.UTC)

type fixture struct {
	agent    *agent
	clock    *testutil.ManualClock
	reporter *testutil.Recorder
	logger   *testutil.Logger
}

func setup() *fixture {
	f := &fixture{
		clock:    testutil.NewManualClock(epoch),
		reporter: new(testutil.Recorder),
		logger:   new(testutil.Logger),
	}
	f.agent = newAgent(f.reporter, f.logger, tracking.Config{Clock: f.clock})
	return f
}

func (f *fixture) send(t *testing.T, lines ...string) {
	for _, line := range lines {
		cmd, ok, err := parseCommand(line)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, f.agent.handle(cmd))
	}
	f.agent.tracker.Wait()
}

func Test_agent_handle(t *testing.T) {
	f := setup()

	f.send(t, "path /dashboard", "login u1")
	assert.Equal(t, tracking.StateTracking, f.agent.tracker.State())

	f.clock.Advance(65 * time.Second)
	f.send(t, "navigate /courses/3")

	f.clock.Advance(5 * time.Second)
	f.send(t, "hidden")
	assert.Equal(t, tracking.StatePaused, f.agent.tracker.State())

	f.clock.Advance(time.Minute)
	f.send(t, "visible")
	f.clock.Advance(10 * time.Second)
	f.send(t, "logout")
	assert.Equal(t, tracking.StateIdle, f.agent.tracker.State())

	pvs := f.reporter.PageViews()
	require.Len(t, pvs, 2)
	assert.Equal(t, tracking.PageView{UserID: "u1", Path: "/dashboard", Timestamp: epoch, Source: tracking.SourcePageLoad}, pvs[0])
	assert.Equal(t, "/courses/3", pvs[1].Path)
	assert.Equal(t, tracking.SourceNavigation, pvs[1].Source)

	assert.Len(t, f.reporter.Heartbeats(), 1)

	sessions := f.reporter.Sessions()
	require.Len(t, sessions, 2)
	assert.Equal(t, int64(70), sessions[0].Duration)
	assert.Equal(t, int64(10), sessions[1].Duration)

	vis, nav := f.agent.signals.Listeners()
	assert.Zero(t, vis)
	assert.Zero(t, nav)
}

func Test_agent_handle_blankUser(t *testing.T) {
	f := setup()
	err := f.agent.handle(command{name: cmdLogin, arg: " "})
	assert.Equal(t, tracking.ErrUserRequired, errors.Cause(err))
}

func Test_agent_run(t *testing.T) {
	f := setup()
	script := strings.Join([]string{
		"# student opens the app",
		"path /home",
		"login u1",
		"",
		"reload",
		"navigate /quiz/7",
	}, "\n")

	require.NoError(t, f.agent.run(context.Background(), strings.NewReader(script)))

	// EOF cleans up
	assert.Equal(t, tracking.StateIdle, f.agent.tracker.State())
	pvs := f.reporter.PageViews()
	require.Len(t, pvs, 2)
	assert.Equal(t, "/home", pvs[0].Path)
	assert.Equal(t, "/quiz/7", pvs[1].Path)
	assert.Empty(t, f.reporter.Sessions()) // too short

	warnings := f.logger.Entries("warn")
	require.Len(t, warnings, 1)
	assert.Equal(t, "line 5: -reload: unknown command", warnings[0].Msg)
}

func Test_agent_run_canceled(t *testing.T) {
	f := setup()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.agent.run(ctx, blockingReader{}))
	assert.Equal(t, tracking.StateIdle, f.agent.tracker.State())
}

// blockingReader never returns.
type blockingReader struct{}

func (blockingReader) Read([]byte) (int, error) {
	select {}
}
