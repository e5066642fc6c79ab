// File: backend/internal/outreach/models_test.go
package outreach

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransitionForwardChain(t *testing.T) {
	chain := []ProspectStatus{
		ProspectDiscovered,
		ProspectResearching,
		ProspectReadyToContact,
		ProspectInitialSent,
		ProspectFollowUp1,
		ProspectFollowUp2,
		ProspectFollowUp3,
		ProspectCompleted,
	}
	for i := 0; i < len(chain)-1; i++ {
		assert.True(t, chain[i].CanTransition(chain[i+1]), "%s -> %s", chain[i], chain[i+1])
	}
}

func TestCanTransitionNoSkipping(t *testing.T) {
	assert.False(t, ProspectDiscovered.CanTransition(ProspectReadyToContact))
	assert.False(t, ProspectDiscovered.CanTransition(ProspectInitialSent))
	assert.False(t, ProspectResearching.CanTransition(ProspectInitialSent))
	assert.False(t, ProspectInitialSent.CanTransition(ProspectFollowUp2))
}

func TestCanTransitionNoBackwardMoves(t *testing.T) {
	assert.False(t, ProspectInitialSent.CanTransition(ProspectReadyToContact))
	assert.False(t, ProspectFollowUp2.CanTransition(ProspectFollowUp1))
}

func TestCanTransitionCompletedJump(t *testing.T) {
	// A positive reply can complete the prospect from anywhere in the chain.
	assert.True(t, ProspectInitialSent.CanTransition(ProspectCompleted))
	assert.True(t, ProspectReadyToContact.CanTransition(ProspectCompleted))
	assert.True(t, ProspectFollowUp3.CanTransition(ProspectCompleted))
}

func TestCanTransitionSideBranches(t *testing.T) {
	assert.True(t, ProspectInitialSent.CanTransition(ProspectPaused))
	assert.True(t, ProspectDiscovered.CanTransition(ProspectBlacklisted))
	assert.True(t, ProspectPaused.CanTransition(ProspectInitialSent))
	assert.True(t, ProspectPaused.CanTransition(ProspectBlacklisted))
}

func TestCanTransitionTerminalStates(t *testing.T) {
	assert.False(t, ProspectCompleted.CanTransition(ProspectReadyToContact))
	assert.False(t, ProspectCompleted.CanTransition(ProspectPaused))
	assert.False(t, ProspectBlacklisted.CanTransition(ProspectPaused))
	assert.False(t, ProspectBlacklisted.CanTransition(ProspectCompleted))

	// The one gated escape hatch.
	assert.True(t, ProspectBlacklisted.CanTransition(ProspectReadyToContact))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, ProspectCompleted.IsTerminal())
	assert.True(t, ProspectBlacklisted.IsTerminal())
	assert.False(t, ProspectPaused.IsTerminal())
	assert.False(t, ProspectFollowUp3.IsTerminal())
}

func TestRecalculateZeroSends(t *testing.T) {
	stats := OutreachStats{Replied: 3, LinksAcquired: 1, ResponseRate: 42}
	stats.Recalculate()
	assert.Zero(t, stats.ResponseRate)
	assert.Zero(t, stats.ConversionRate)
}

func TestStatsApply(t *testing.T) {
	var stats OutreachStats
	stats.Apply(StatsDelta{EmailsSent: 4, Replied: 1})
	stats.Apply(StatsDelta{Replied: 1, LinksAcquired: 1})

	assert.Equal(t, 4, stats.EmailsSent)
	assert.Equal(t, 2, stats.Replied)
	assert.InDelta(t, 50.0, stats.ResponseRate, 0.001)
	assert.InDelta(t, 25.0, stats.ConversionRate, 0.001)
}

func TestNextEmailType(t *testing.T) {
	et, ok := NextEmailType(ProspectReadyToContact)
	assert.True(t, ok)
	assert.Equal(t, EmailInitial, et)

	et, ok = NextEmailType(ProspectFollowUp2)
	assert.True(t, ok)
	assert.Equal(t, EmailFollowUp3, et)

	_, ok = NextEmailType(ProspectFollowUp3)
	assert.False(t, ok)
	_, ok = NextEmailType(ProspectDiscovered)
	assert.False(t, ok)
}

func TestStatusAfterSend(t *testing.T) {
	assert.Equal(t, ProspectInitialSent, StatusAfterSend(EmailInitial))
	assert.Equal(t, ProspectFollowUp1, StatusAfterSend(EmailFollowUp1))
	assert.Equal(t, ProspectFollowUp3, StatusAfterSend(EmailFollowUp3))
}
