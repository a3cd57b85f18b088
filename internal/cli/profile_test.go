package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileText(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewProfileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "events.csv")})

	err := cmd.Execute()
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "6 rows, 2 devices, 3 sessions")
	assert.Contains(t, out, "cohorts: lost 1, stayed 1, new 0, neither 0 (churn 50.0%)")
	assert.Contains(t, out, "top screens:")
}

func TestProfileJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewProfileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "events.csv")})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(6), data["rows"])
	assert.Equal(t, float64(2), data["devices"])

	screens, ok := data["top_screens"].([]interface{})
	require.True(t, ok)
	require.NotEmpty(t, screens)
	top, ok := screens[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Новая заявка", top["label"])
	assert.Equal(t, float64(3), top["count"])
}

func TestProfileRejectsBadMonths(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewProfileCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{filepath.Join("testdata", "events.csv"), "--curr", "13"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
