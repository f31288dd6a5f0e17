package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMusicTransitions(t *testing.T) {
	d := NewMusicDescriptor()

	assert.True(t, d.CanTransition(StatusPending, StatusHighlighted))
	assert.True(t, d.CanTransition(StatusPending, StatusUrgent))
	assert.True(t, d.CanTransition(StatusPending, StatusPlayed))
	assert.True(t, d.CanTransition(StatusPending, StatusDiscarded))
	assert.True(t, d.CanTransition(StatusHighlighted, StatusUrgent))
	assert.True(t, d.CanTransition(StatusUrgent, StatusHighlighted))

	// No self loops, no resurrection from terminal states.
	assert.False(t, d.CanTransition(StatusPending, StatusPending))
	assert.False(t, d.CanTransition(StatusHighlighted, StatusPending))
	assert.False(t, d.CanTransition(StatusPlayed, StatusPending))
	assert.False(t, d.CanTransition(StatusDiscarded, StatusUrgent))

	assert.True(t, d.IsTerminal(StatusPlayed))
	assert.True(t, d.IsTerminal(StatusDiscarded))
	assert.False(t, d.IsTerminal(StatusPending))
	assert.False(t, d.IsTerminal(StatusHighlighted))
	assert.False(t, d.IsTerminal(StatusUrgent))

	assert.ElementsMatch(t, []string{StatusPlayed, StatusDiscarded}, d.TerminalStatuses())
	assert.ElementsMatch(t,
		[]string{StatusPending, StatusHighlighted, StatusUrgent, StatusPlayed, StatusDiscarded},
		d.Statuses())
}

func TestKaraokeTransitions(t *testing.T) {
	d := NewKaraokeDescriptor()

	assert.True(t, d.CanTransition(StatusQueued, StatusCalled))
	assert.True(t, d.CanTransition(StatusCalled, StatusOnStage))
	assert.True(t, d.CanTransition(StatusCalled, StatusNoShow))
	assert.True(t, d.CanTransition(StatusOnStage, StatusCompleted))
	assert.True(t, d.CanTransition(StatusOnStage, StatusNoShow))

	// Cancellation is reachable from every non-terminal status.
	for _, from := range []string{StatusQueued, StatusCalled, StatusOnStage} {
		assert.True(t, d.CanTransition(from, StatusCancelled), "from %s", from)
	}

	// Steps cannot be skipped or reversed.
	assert.False(t, d.CanTransition(StatusQueued, StatusOnStage))
	assert.False(t, d.CanTransition(StatusQueued, StatusCompleted))
	assert.False(t, d.CanTransition(StatusOnStage, StatusCalled))
	assert.False(t, d.CanTransition(StatusCompleted, StatusQueued))

	assert.ElementsMatch(t, []string{StatusCompleted, StatusNoShow, StatusCancelled}, d.TerminalStatuses())
}

func TestKnownStatus(t *testing.T) {
	music := NewMusicDescriptor()
	karaoke := NewKaraokeDescriptor()

	assert.True(t, music.KnownStatus(StatusPending))
	assert.True(t, music.KnownStatus(StatusPlayed))
	assert.False(t, music.KnownStatus(StatusQueued))
	assert.False(t, music.KnownStatus("NONSENSE"))

	assert.True(t, karaoke.KnownStatus(StatusNoShow))
	assert.False(t, karaoke.KnownStatus(StatusHighlighted))
}
