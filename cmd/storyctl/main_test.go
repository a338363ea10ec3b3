package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyforge-api/internal/application/scriptparse"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseCommandText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pilot.txt")
	require.NoError(t, os.WriteFile(path, []byte("SCENE 1: Dawn.\nSCENE 2: Dusk."), 0o644))

	out, err := execute(t, "", "parse", path)
	require.NoError(t, err)
	assert.Contains(t, out, "1. SCENE 1\n   Dawn.")
	assert.Contains(t, out, "2. SCENE 2\n   Dusk.")
	assert.Contains(t, out, "2 scenes")
}

func TestParseCommandJSONFromStdin(t *testing.T) {
	out, err := execute(t, "First beat.\n\nSecond beat.", "parse", "-", "--json")
	require.NoError(t, err)

	var blocks []scriptparse.Block
	require.NoError(t, json.Unmarshal([]byte(out), &blocks))
	assert.Equal(t, []scriptparse.Block{
		{Title: "Scene 1", Description: "First beat."},
		{Title: "Scene 2", Description: "Second beat."},
	}, blocks)
}

func TestParseCommandEmptyScript(t *testing.T) {
	out, err := execute(t, "   \n\n", "parse", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "No scenes found")
}

func TestParseCommandMissingFile(t *testing.T) {
	_, err := execute(t, "", "parse", filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read script")
}

func TestMigrateDryRunListsModels(t *testing.T) {
	out, err := execute(t, "", "migrate", "--dry-run")
	require.NoError(t, err)
	assert.Contains(t, out, "entity.Project")
	assert.Contains(t, out, "entity.Asset")
}
