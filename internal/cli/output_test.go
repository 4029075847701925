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
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("E001", "manifest load failed", nil)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "manifest load failed", resp.Error.Message)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	details := map[string]string{"file": "main.cue", "line": "42"}
	err := formatter.Error("E002", "syntax error", details)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	assert.NotNil(t, resp.Error)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Success("3 queries accepted")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "3 queries accepted")
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: false,
	}

	err := formatter.Error("E001", "manifest load failed", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "manifest load failed")
}

func TestOutputFormatter_TextErrorVerbose(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	details := map[string]string{"file": "main.cue"}
	err := formatter.Error("E001", "manifest load failed", details)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E001]")
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("Processing %s", "main.cue")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "Processing main.cue")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	formatter.VerboseLog("Analyzed %d query pipeline(s)", 4)
	assert.Empty(t, out.String())
	assert.Equal(t, "Analyzed 4 query pipeline(s)\n", errOut.String())
	assert.Same(t, errOut, formatter.verboseWriter())

	formatter.ErrWriter = nil
	assert.Same(t, out, formatter.verboseWriter())
}

func TestOutputFormatter_SuccessRun(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, formatter.SuccessRun("run-7", map[string]int{"edits": 2}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-7", resp.RunID)

	buf.Reset()
	require.NoError(t, formatter.Success("x"))
	assert.NotContains(t, buf.String(), "run_id")
}

func TestOutputFormatter_Errors(t *testing.T) {
	errs := []CLIError{
		{Code: "E002", Message: "a.cue:1:10: expected '}'"},
		{Code: "E002", Message: "b.cue:1:10: unexpected ']'"},
	}

	t.Run("json", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, formatter.Errors("Loading failed with 2 error(s)", errs))

		var resp struct {
			Status string     `json:"status"`
			Data   []CLIError `json:"data"`
			Error  *CLIError  `json:"error"`
		}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
		assert.Equal(t, "error", resp.Status)
		require.NotNil(t, resp.Error)
		assert.Equal(t, errs[0].Message, resp.Error.Message)
		assert.Len(t, resp.Data, 2)
	})

	t.Run("text", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "text", Writer: buf}
		require.NoError(t, formatter.Errors("Loading failed with 2 error(s)", errs))
		assert.Equal(t, "✗ Loading failed with 2 error(s)\n\n  a.cue:1:10: expected '}'\n  b.cue:1:10: unexpected ']'\n", buf.String())
	})

	t.Run("empty", func(t *testing.T) {
		buf := &bytes.Buffer{}
		formatter := &OutputFormatter{Format: "json", Writer: buf}
		require.NoError(t, formatter.Errors("none", nil))
		assert.Empty(t, buf.String())
	})
}

func TestCLIResponse_JSON(t *testing.T) {
	resp := CLIResponse{
		Status: "ok",
		Data:   map[string]int{"count": 42},
		RunID:  "run-1",
	}

	data, err := json.Marshal(resp)
	require.NoError(t, err)

	var decoded CLIResponse
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "ok", decoded.Status)
	assert.Equal(t, "run-1", decoded.RunID)
	assert.Contains(t, string(data), `"run_id":"run-1"`)
}

func TestCLIError_JSON(t *testing.T) {
	cliErr := CLIError{
		Code:    "E102",
		Message: "validation failed",
		Details: []string{"project.name: incomplete value"},
	}

	data, err := json.Marshal(cliErr)
	require.NoError(t, err)

	var decoded CLIError
	err = json.Unmarshal(data, &decoded)
	require.NoError(t, err)
	assert.Equal(t, "E102", decoded.Code)
	assert.Equal(t, "validation failed", decoded.Message)
}

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "check failed with 2 error(s)")
	assert.Equal(t, "check failed with 2 error(s)", err.Error())
	assert.Nil(t, err.Unwrap())

	cause := errors.New("disk full")
	wrapped := WrapExitError(ExitCommandError, "recording run", cause)
	assert.Equal(t, "recording run: disk full", wrapped.Error())
	assert.ErrorIs(t, wrapped, cause)
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"exit failure", NewExitError(ExitFailure, "x"), ExitFailure},
		{"command error", NewExitError(ExitCommandError, "x"), ExitCommandError},
		{"wrapped", fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "x")), ExitCommandError},
		{"plain error", errors.New("x"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}
