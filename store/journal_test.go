package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quintans/go-trafficlight/trafficlight"
	"github.com/quintans/go-trafficlight/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func transition(lightID string, seq int64, phase trafficlight.Phase) trafficlight.Transition {
	return trafficlight.Transition{
		LightID: lightID,
		Seq:     seq,
		Phase:   phase,
		At:      baseTime.Add(time.Duration(seq) * 5 * time.Second),
		Elapsed: 5 * time.Second,
	}
}

func testJournal(t *testing.T, journal trafficlight.Journal) {
	ctx := context.Background()
	require.NoError(t, journal.Clear(ctx))

	_, err := journal.Last(ctx, "north")
	require.ErrorIs(t, err, trafficlight.ErrTransitionNotFound)
	list, err := journal.List(ctx, "north")
	require.NoError(t, err)
	require.Empty(t, list)

	// out of order on purpose
	require.NoError(t, journal.Append(ctx, transition("north", 2, trafficlight.Red)))
	require.NoError(t, journal.Append(ctx, transition("north", 1, trafficlight.Green)))
	require.NoError(t, journal.Append(ctx, transition("north", 3, trafficlight.Green)))
	require.NoError(t, journal.Append(ctx, transition("south", 1, trafficlight.Green)))

	err = journal.Append(ctx, transition("north", 2, trafficlight.Red))
	require.ErrorIs(t, err, trafficlight.ErrTransitionExists)

	list, err = journal.List(ctx, "north")
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i, got := range list {
		want := transition("north", int64(i+1), got.Phase)
		assert.Equal(t, want.LightID, got.LightID)
		assert.Equal(t, want.Seq, got.Seq)
		assert.True(t, want.At.Equal(got.At), "want %s, got %s", want.At, got.At)
		assert.Equal(t, want.Elapsed, got.Elapsed)
	}
	assert.Equal(t, []trafficlight.Phase{trafficlight.Green, trafficlight.Red, trafficlight.Green}, phases(list))

	last, err := journal.Last(ctx, "north")
	require.NoError(t, err)
	assert.Equal(t, int64(3), last.Seq)
	assert.Equal(t, trafficlight.Green, last.Phase)

	testSimulation(t, journal)

	require.NoError(t, journal.Clear(ctx))
	list, err = journal.List(ctx, "north")
	require.NoError(t, err)
	require.Empty(t, list)
}

// testSimulation runs a light against the journal twice with the same id.
// The second run must carry on the sequence of the first.
func testSimulation(t *testing.T, journal trafficlight.Journal) {
	ctx := context.Background()
	id := "sim-" + uuid.NewString()

	run := func(atLeast int) {
		tl := trafficlight.New(
			trafficlight.IDOption(id),
			trafficlight.TriggerOption(trigger.NewSimpleTrigger(100*time.Millisecond)),
			trafficlight.JournalOption(journal),
			trafficlight.LoggerOption(trafficlight.NopLogger{}),
		)
		require.NoError(t, tl.Simulate(ctx))
		require.Eventually(t, func() bool {
			list, err := journal.List(ctx, id)
			return err == nil && len(list) >= atLeast
		}, 5*time.Second, 50*time.Millisecond)
		require.NoError(t, tl.Close())
	}

	run(3)
	first, err := journal.List(ctx, id)
	require.NoError(t, err)

	run(len(first) + 3)
	all, err := journal.List(ctx, id)
	require.NoError(t, err)

	for i, tr := range all {
		require.Equal(t, int64(i+1), tr.Seq)
	}
	// each run starts red, so the first change of each run is to green
	for i := 1; i < len(first); i++ {
		require.NotEqual(t, all[i-1].Phase, all[i].Phase)
	}
	assert.Equal(t, trafficlight.Green, all[0].Phase)
	assert.Equal(t, trafficlight.Green, all[len(first)].Phase)
}

func phases(list []trafficlight.Transition) []trafficlight.Phase {
	out := make([]trafficlight.Phase, 0, len(list))
	for _, t := range list {
		out = append(out, t.Phase)
	}
	return out
}
