package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/answergrid/answergrid/internal/core/ports/driving"
)

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync [source-kind]", syncCmd.Use)
}

func TestSyncCmd_RequiresTenantFlag(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("sync")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant")
}

func TestSyncCmd_RejectsUnknownKind(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("sync", "--tenant", "tn_acme", "carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source kind")
}

func TestSyncCmd_ReconcilesNamedSource(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	fake := &fakeOrchestrator{report: &driving.SyncReport{
		ItemsProcessed: 4,
		ItemsIngested:  2,
		ItemsDeleted:   1,
	}}
	syncOrchestrator = fake

	out, err := execute("sync", "--tenant", "tn_acme", "meeting-notes")
	require.NoError(t, err)
	assert.Equal(t, []string{"tn_acme/meeting-notes"}, fake.sourceCalls)
	assert.Contains(t, out, "4 processed, 2 ingested, 1 deleted, 0 failed")
}

func TestSyncCmd_ReconcilesAllConnectors(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	fake := &fakeOrchestrator{}
	syncOrchestrator = fake

	_, err := execute("sync", "--tenant", "tn_acme")
	require.NoError(t, err)
	assert.Equal(t, []string{"tn_acme/meeting-notes"}, fake.sourceCalls)
}
