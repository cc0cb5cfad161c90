package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminal(t *testing.T) {
	assert.True(t, JobStatusCompleted.Terminal())
	assert.True(t, JobStatusFailed.Terminal())
	assert.False(t, JobStatusAwaitingVerification.Terminal())
	assert.False(t, JobStatusPending.Terminal())
	assert.False(t, JobStatusProcessing.Terminal())
}

func TestSyncTerminalParksAtVerification(t *testing.T) {
	assert.True(t, JobStatusAwaitingVerification.SyncTerminal())
	assert.True(t, JobStatusCompleted.SyncTerminal())
	assert.True(t, JobStatusFailed.SyncTerminal())
	assert.False(t, JobStatusPending.SyncTerminal())
	assert.False(t, JobStatusProcessing.SyncTerminal())
}

func TestSeverityRankOrdering(t *testing.T) {
	ordered := []JobStatus{
		JobStatusProcessing,
		JobStatusAwaitingVerification,
		JobStatusPending,
		JobStatusFailed,
		JobStatusCompleted,
	}
	for i := 1; i < len(ordered); i++ {
		assert.Less(t, ordered[i-1].SeverityRank(), ordered[i].SeverityRank())
	}
	assert.Greater(t, JobStatus("surprise").SeverityRank(), JobStatusCompleted.SeverityRank())
}
