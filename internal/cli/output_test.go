package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Empty(t, resp.RunID)
}

func TestOutputFormatter_JSONSuccessRun(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.SuccessRun("0192d7a0-0000-7000-8000-000000000000", map[string]int{"rows": 3})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "0192d7a0-0000-7000-8000-000000000000", resp.RunID)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E101", "taxonomy validation failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E101", resp.Error.Code)
	assert.Equal(t, "taxonomy validation failed", resp.Error.Message)
}

func TestOutputFormatter_TextSuccessRun(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.SuccessRun("abc", "3 sessions")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "run abc")
	assert.Contains(t, buf.String(), "3 sessions")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E101", "taxonomy validation failed", "details here")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E101]")
	assert.Contains(t, buf.String(), "taxonomy validation failed")
	assert.NotContains(t, buf.String(), "details here")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("E101", "taxonomy validation failed", "details here")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "details here")
}

func TestExitError(t *testing.T) {
	base := fmt.Errorf("no such file")
	err := WrapExitError(ExitCommandError, "failed to read taxonomy", base)

	assert.Equal(t, "failed to read taxonomy: no such file", err.Error())
	assert.True(t, errors.Is(err, base))
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	plain := NewExitError(ExitFailure, "pipeline failed")
	assert.Equal(t, "pipeline failed", plain.Error())
	assert.Equal(t, ExitFailure, GetExitCode(plain))

	// Non-exit errors default to generic failure.
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("boom")))
}
