package cli

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/wheelhouse/internal/wheel"
)

func TestBandFromSlice(t *testing.T) {
	fallback := wheel.DefaultCSPBand

	assert.Equal(t, wheel.Band{Low: 0.05, High: 0.20}, bandFromSlice([]float64{0.05, 0.20}, fallback))
	assert.Equal(t, fallback, bandFromSlice(nil, fallback))
	assert.Equal(t, fallback, bandFromSlice([]float64{0.05}, fallback))
	assert.Equal(t, fallback, bandFromSlice([]float64{0.20, 0.05}, fallback), "inverted bands fall back")
}

func TestVersionCommand(t *testing.T) {
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), Version)
}

func TestOutputJSONMode(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().Bool("json", false, "")
	require.NoError(t, cmd.Flags().Set("json", "true"))
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	output := NewOutput(cmd)
	assert.True(t, output.IsJSON())
	require.NoError(t, output.JSON(map[string]int{"n": 1}))
	assert.JSONEq(t, `{"n":1}`, out.String())
}

func TestRootRequiresValidConfig(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"portfolio", "--config", "does-not-exist.yaml"})

	assert.Error(t, cmd.Execute())
}
