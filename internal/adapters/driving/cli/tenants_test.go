package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTenantsCmd_ListsConfiguredTenants(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("tenants")
	require.NoError(t, err)
	assert.Contains(t, out, "tn_acme")
	assert.Contains(t, out, "alias acme")
	assert.Contains(t, out, "meeting-notes")
	assert.Contains(t, out, "webhooks unsigned")
	assert.Contains(t, out, "text-embedding-3-small")
}

func TestTenantsCmd_EmptyDirectory(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	tenantDirectory = &fakeDirectory{}

	out, err := execute("tenants")
	require.NoError(t, err)
	assert.Contains(t, out, "No tenants configured")
}
