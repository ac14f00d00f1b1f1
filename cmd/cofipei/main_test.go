package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cofipei/internal/core"
)

const payload = `{
	"data": [
		{"category": "Rent", "type": "expense", "value": 1000},
		{"category": "Food", "type": "expense", "value": 200},
		{"category": "Salary", "type": "income", "value": 3000}
	],
	"start_date": "2024-01-01",
	"end_date": "2024-01-31"
}`

func TestRootCommand(t *testing.T) {
	root := newRootCmd()
	assert.Equal(t, "cofipei", root.Use)
	assert.Contains(t, root.Short, "charts")

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"serve", "render"}, names)
}

func runRender(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("CHART_WIDTH", "200")
	t.Setenv("CHART_HEIGHT", "200")
	t.Setenv("LOG_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"render", "--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestRender_Stdout(t *testing.T) {
	out, err := runRender(t, payload)
	require.NoError(t, err)

	var resp core.ChartResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "1200", resp.TotalExpenses.String())
	assert.Equal(t, "3000", resp.TotalIncome.String())
	assert.NotEmpty(t, resp.Image)
}

func TestRender_OutputFile(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "payload.json")
	output := filepath.Join(dir, "chart.png")
	require.NoError(t, os.WriteFile(input, []byte(payload), 0o600))

	out, err := runRender(t, "", "--input", input, "--output", output)
	require.NoError(t, err)

	var resp core.ChartResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Empty(t, resp.Image)
	assert.Equal(t, "2024-01-31", resp.Period.EndDate)

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)
}

func TestRender_ValidationError(t *testing.T) {
	_, err := runRender(t, `{"data": [{"category": "A", "type": "expense", "value": -5}], "start_date": "2024-01-01", "end_date": "2024-01-31"}`)
	require.Error(t, err)

	var ve *core.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestRender_MissingInput(t *testing.T) {
	_, err := runRender(t, "", "--input", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open payload")
}

func TestLoadConfig_PortFlag(t *testing.T) {
	cmd := newServeCmd()
	cmd.Flags().String("config", "", "")

	require.NoError(t, cmd.Flags().Set("port", "9191"))
	cfg, err := loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.Port)

	require.NoError(t, cmd.Flags().Set("port", "70000"))
	_, err = loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid port")
}
