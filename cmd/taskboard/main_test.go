package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/nhle/taskboard/internal/model"
)

// runCmd executes the root command against a temporary config and data
// directory and returns its output.
func runCmd(t *testing.T, dir string, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--data-dir", filepath.Join(dir, "data"),
	}, args...))

	err := cmd.Execute()
	return buf.String(), err
}

func TestVersionCmd(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "taskboard dev")
	assert.Contains(t, buf.String(), "commit: none")
}

func TestRootCmdHelp(t *testing.T) {
	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())
	for _, sub := range []string{"serve", "migrate", "call", "config", "version"} {
		assert.Contains(t, buf.String(), sub)
	}
}

func TestExecuteReturnsExitCode(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"no-such-command"})
	assert.Equal(t, 1, execute(cmd))

	ok := &cobra.Command{Use: "ok", Run: func(*cobra.Command, []string) {}}
	ok.SetArgs([]string{})
	assert.Equal(t, 0, execute(ok))
}

func TestMigrateCmd(t *testing.T) {
	dir := t.TempDir()

	out, err := runCmd(t, dir, "", "migrate")
	require.NoError(t, err)
	assert.Contains(t, out, "(durable)")
	assert.FileExists(t, filepath.Join(dir, "data", "taskboard.db"))
	assert.DirExists(t, filepath.Join(dir, "data", "notes"))
}

func TestCallCmd(t *testing.T) {
	dir := t.TempDir()

	out, err := runCmd(t, dir, "", "call", "store.status")
	require.NoError(t, err)
	assert.JSONEq(t, `{"durable": true}`, out)

	out, err = runCmd(t, dir, "", "call", "task.create",
		`{"id": "t1", "heading": "From the CLI", "status": "To Do", "created_at": "2024-01-01T00:00:00.000Z", "position": 0}`)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id": "t1"}`, out)

	out, err = runCmd(t, dir, `{"taskId": "t1", "triggerType": "1h"}`, "call", "notifications.create", "-")
	require.NoError(t, err)
	var n model.Notification
	require.NoError(t, json.Unmarshal([]byte(out), &n))
	assert.Equal(t, "t1", n.TaskID)
	assert.Equal(t, "Due in 1 hour", n.Title)

	out, err = runCmd(t, dir, "", "call", "boards.getAll")
	require.NoError(t, err)
	var state model.BoardState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	require.Len(t, state.StandaloneTasks, 1)
	assert.Equal(t, "From the CLI", state.StandaloneTasks[0].Heading)
}

func TestCallCmd_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := runCmd(t, dir, "", "call", "tasks.explode")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown operation")

	_, err = runCmd(t, dir, "", "call", "task.delete")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id is required")

	_, err = runCmd(t, dir, "", "call")
	require.Error(t, err)
}

func TestCallListCmd(t *testing.T) {
	out, err := runCmd(t, t.TempDir(), "", "call", "list")
	require.NoError(t, err)

	ops := strings.Fields(out)
	assert.Len(t, ops, 23)
	assert.Contains(t, ops, "notes.getContent")
	assert.Contains(t, ops, "store.status")
}

func TestConfigInitAndShow(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	out, err := runCmd(t, dir, "", "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)
	assert.FileExists(t, path)

	_, err = runCmd(t, dir, "", "config", "init")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = runCmd(t, dir, "", "config", "init", "--force")
	require.NoError(t, err)

	out, err = runCmd(t, dir, "", "config", "show")
	require.NoError(t, err)
	var cfg model.AppConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, filepath.Join(dir, "data"), cfg.DataDir)
	assert.Equal(t, "taskboard.db", cfg.DatabaseFile)
	assert.Equal(t, "127.0.0.1:7412", cfg.Bridge.Addr)
}

func TestConfigShow_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_file: board.db\nreminders:\n  enabled: false\n"), 0o644))

	cmd := newRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--config", path, "config", "show"})
	require.NoError(t, cmd.Execute())

	var cfg model.AppConfig
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &cfg))
	assert.Equal(t, "board.db", cfg.DatabaseFile)
	assert.False(t, cfg.Reminders.Enabled)
}

func TestServe_StopsWhenContextDone(t *testing.T) {
	dir := t.TempDir()
	opts := &rootOptions{
		configPath: filepath.Join(dir, "config.yaml"),
		dataDir:    filepath.Join(dir, "data"),
	}

	cmd := newServeCmd(opts)
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, runServe(ctx, cmd, opts, "127.0.0.1:0"))
	assert.Contains(t, buf.String(), "Serving")
	assert.Contains(t, buf.String(), "Shut down")
}
