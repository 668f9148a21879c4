package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jonwraymond/healthops/health"
)

const testConfig = `
service:
  name: checkout
aggregator:
  timeout: 2s
  check_timeout: 1s
observe:
  logging:
    enabled: false
probes:
  - name: primary
    type: sql
    tags: [ready, db]
    params:
      driver: sqlite
      dsn: ":memory:"
      query: SELECT 1
  - name: reports
    type: sql
    tags: [db]
    params:
      driver: sqlite
      dsn: ":memory:"
      query: SELECT * FROM no_such_table
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "healthops.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = Execute(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestVersionCmd(t *testing.T) {
	code, out, _ := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "healthops dev")
}

func TestCheckCmd_Unhealthy(t *testing.T) {
	path := writeConfig(t, testConfig)

	code, out, _ := run(t, "check", "--config", path)
	assert.Equal(t, ExitUnhealthy, code)
	assert.Contains(t, out, "UNHEALTHY: reports is unhealthy")
	assert.Contains(t, out, "primary")
	assert.Contains(t, out, "sqlite query failed")
}

func TestCheckCmd_TagFilter(t *testing.T) {
	path := writeConfig(t, testConfig)

	code, out, _ := run(t, "check", "--config", path, "--tag", "ready")
	assert.Equal(t, ExitHealthy, code)
	assert.Contains(t, out, "HEALTHY: all 1 checks passed")
	assert.NotContains(t, out, "reports")
}

func TestCheckCmd_JSON(t *testing.T) {
	path := writeConfig(t, testConfig)

	code, out, _ := run(t, "check", "-c", path, "-o", "json")
	assert.Equal(t, ExitUnhealthy, code)

	var doc health.ReportDocument
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, health.StatusUnhealthy, doc.Status)
	require.Len(t, doc.Entries, 2)
	assert.Equal(t, "primary", doc.Entries[0].Name)
	assert.Equal(t, health.StatusHealthy, doc.Entries[0].Status)
	assert.Equal(t, "reports", doc.Entries[1].Name)
	assert.NotEmpty(t, doc.Entries[1].Error)
}

func TestCheckCmd_YAML(t *testing.T) {
	path := writeConfig(t, testConfig)

	code, out, _ := run(t, "check", "-c", path, "-o", "yaml", "-t", "ready")
	assert.Equal(t, ExitHealthy, code)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "healthy", doc["status"])
	entries, ok := doc["entries"].([]any)
	require.True(t, ok)
	assert.Len(t, entries, 1)
}

func TestCheckCmd_BadOutput(t *testing.T) {
	path := writeConfig(t, testConfig)

	code, _, errOut := run(t, "check", "-c", path, "-o", "xml")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, `unknown output format "xml"`)
}

func TestCheckCmd_BadConfig(t *testing.T) {
	code, _, errOut := run(t, "check", "-c", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Error:")
}

func TestCheckCmd_LogLevelOverride(t *testing.T) {
	path := writeConfig(t, strings.Replace(testConfig, "enabled: false", "enabled: true", 1))

	code, _, errOut := run(t, "check", "-c", path, "--log-level", "loud")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "observe")
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		status health.Status
		strict bool
		want   int
	}{
		{health.StatusHealthy, false, ExitHealthy},
		{health.StatusHealthy, true, ExitHealthy},
		{health.StatusDegraded, false, ExitHealthy},
		{health.StatusDegraded, true, ExitDegraded},
		{health.StatusUnhealthy, false, ExitUnhealthy},
		{health.StatusUnhealthy, true, ExitUnhealthy},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exitCode(tt.status, tt.strict), "%s strict=%v", tt.status, tt.strict)
	}
}

func TestProbesCmd(t *testing.T) {
	path := writeConfig(t, testConfig)

	code, out, _ := run(t, "probes", "-c", path)
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "primary")
	assert.Contains(t, out, "ready,db")
	assert.Contains(t, out, "reports")
}

func TestProbesCmd_Types(t *testing.T) {
	code, out, _ := run(t, "probes", "--types")
	assert.Equal(t, 0, code)
	for _, typ := range []string{"dns", "http", "memory", "sql", "tcp"} {
		assert.Contains(t, out, typ)
	}
}

func TestExitError(t *testing.T) {
	err := &ExitError{Code: 3}
	assert.Equal(t, "exit status 3", err.Error())

	inner := assert.AnError
	err = &ExitError{Code: 1, Err: inner}
	assert.Equal(t, inner.Error(), err.Error())
	assert.ErrorIs(t, err, inner)
}
