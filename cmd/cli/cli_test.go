package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/keyreg/internal/application/dto"
	"github.com/turtacn/keyreg/internal/domain/models"
	"github.com/turtacn/keyreg/pkg/constants"
)

const testFixture = `{
  "keys": [
    {"id": "k1", "name": "api signing", "algorithm": "Ed25519", "purpose": "signing", "status": "active",
     "created_at": "2026-01-01T00:00:00Z", "expires_at": "2026-06-01T00:00:00Z"},
    {"id": "k2", "name": "legacy tls", "algorithm": "RSA-2048", "purpose": "encryption", "status": "active",
     "created_at": "2026-01-02T00:00:00Z", "expires_at": "2026-12-01T00:00:00Z"},
    {"id": "k3", "name": "staging", "algorithm": "Ed25519", "purpose": "signing", "status": "pending",
     "created_at": "2026-01-03T00:00:00Z", "expires_at": "2026-02-01T00:00:00Z"}
  ],
  "transitions": [
    {"id": "k2", "action": "revoke"}
  ]
}`

const testNow = "2026-03-01T00:00:00Z"

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keys.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func listIDs(t *testing.T, out string) []string {
	t.Helper()
	var list dto.ListResponse[dto.KeyResponse]
	require.NoError(t, json.Unmarshal([]byte(out), &list), out)
	ids := make([]string, len(list.Items))
	for i, k := range list.Items {
		ids[i] = k.ID
	}
	return ids
}

func TestQueryCommand(t *testing.T) {
	path := writeFixture(t, testFixture)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{"no filter", nil, []string{"k1", "k2", "k3"}},
		{"status", []string{"--filter", "status=active"}, []string{"k1"}},
		{"algorithm sorted by expiry", []string{"--filter", "algorithm=Ed25519", "--sort", "expiresAt"}, []string{"k3", "k1"}},
		{"descending with limit", []string{"--sort", "expiresAt", "--order", "desc", "--limit", "2"}, []string{"k2", "k1"}},
		{"all sentinel", []string{"--filter", "status=all,purpose=signing"}, []string{"k1", "k3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"query", "-f", path, "--at", testNow}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, listIDs(t, out))
		})
	}
}

func TestQueryCommand_RejectsBadInput(t *testing.T) {
	path := writeFixture(t, testFixture)

	_, err := run(t, "query", "-f", path, "--filter", "colour=red")
	assert.Error(t, err)

	_, err = run(t, "query", "-f", path, "--sort", "colour")
	assert.Error(t, err)

	_, err = run(t, "query")
	assert.Error(t, err, "fixture flag is required")

	_, err = run(t, "query", "-f", writeFixture(t, `{"keys": [{"id": "x"}]}`))
	assert.Error(t, err)
}

func TestBulkCommand(t *testing.T) {
	path := writeFixture(t, testFixture)

	t.Run("prints confirmation without --yes", func(t *testing.T) {
		out, err := run(t, "bulk", "-f", path, "--at", testNow, "revoke", "k1", "k2", "k1")
		require.NoError(t, err)

		var c dto.ConfirmationResponse
		require.NoError(t, json.Unmarshal([]byte(out), &c))
		assert.Equal(t, 2, c.Count)
		assert.Equal(t, "revoke 2 keys?", c.Prompt)
		assert.Equal(t, []string{"k1", "k2"}, c.TargetIDs)
	})

	t.Run("applies with --yes", func(t *testing.T) {
		out, err := run(t, "bulk", "-f", path, "--at", testNow, "--parallel", "4", "--yes", "revoke", "k1", "k2", "ghost")
		require.NoError(t, err)

		var report models.BulkReport
		require.NoError(t, json.Unmarshal([]byte(out), &report))
		assert.Equal(t, 1, report.Applied)
		assert.Equal(t, 2, report.Failed)
		require.Len(t, report.Outcomes, 3)
		assert.Equal(t, constants.BulkOutcomeApplied, report.Outcomes[0].Kind)
		assert.Equal(t, constants.KeyStatusRevoked, report.Outcomes[0].Status)
		assert.Equal(t, "k2", report.Outcomes[1].ID)
		assert.Equal(t, "ghost", report.Outcomes[2].ID)
	})

	t.Run("unknown action", func(t *testing.T) {
		_, err := run(t, "bulk", "-f", path, "destroy", "k1")
		assert.Error(t, err)
	})
}

func TestTickCommand(t *testing.T) {
	path := writeFixture(t, testFixture)

	out, err := run(t, "tick", "-f", path, "--at", testNow)
	require.NoError(t, err)

	var got struct {
		Expired []string `json:"expired"`
		Count   int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, []string{"k3"}, got.Expired)
	assert.Equal(t, 1, got.Count)

	out, err = run(t, "tick", "-f", path, "--at", "2026-01-15T00:00:00Z")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Empty(t, got.Expired)
}

func TestAuditCommand(t *testing.T) {
	path := writeFixture(t, testFixture)

	out, err := run(t, "audit", "-f", path, "--at", testNow, "--actor", "ops", "--filter", "eventType=key.revoked")
	require.NoError(t, err)

	var list dto.ListResponse[models.AuditEvent]
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, "ops", list.Items[0].Actor)
	assert.Equal(t, "k2", list.Items[0].ResourceID)
}
