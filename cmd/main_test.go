package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

type result struct {
	stdout string
	err    error
}

func run(t *testing.T, file string, args ...string) result {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp(strings.NewReader(""), &stdout, &stderr)
	app.ExitErrHandler = func(*cli.Context, error) {}

	argv := append([]string{"eventsched", "--file", file, "--log-level", "error"}, args...)
	err := app.Run(argv)
	return result{stdout: stdout.String(), err: err}
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var coder cli.ExitCoder
	require.ErrorAs(t, err, &coder)
	return coder.ExitCode()
}

func Test_CoreCommands(t *testing.T) {
	file := filepath.Join(t.TempDir(), "events.log")

	res := run(t, file, "display_forward")
	require.NoError(t, res.err)
	assert.Equal(t, "No events.\n", res.stdout)

	res = run(t, file, "insert", "Standup", "01/01/2025", "09:00", "5")
	require.NoError(t, res.err)
	id := strings.TrimSpace(res.stdout)
	n, err := strconv.Atoi(id)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, 10000)
	assert.LessOrEqual(t, n, 99999)

	res = run(t, file, "search", id)
	require.NoError(t, res.err)
	assert.Equal(t, id+"|Standup|01/01/2025|09:00|5\n", res.stdout)

	res = run(t, file, "modify", id, "", "02/01/2025", "", "0")
	require.NoError(t, res.err)
	assert.Equal(t, "OK\n", res.stdout)

	res = run(t, file, "search", id)
	require.NoError(t, res.err)
	assert.Equal(t, id+"|Standup|02/01/2025|09:00|5\n", res.stdout)

	res = run(t, file, "generate", "3")
	require.NoError(t, res.err)
	assert.Equal(t, "OK\n", res.stdout)

	res = run(t, file, "count")
	require.NoError(t, res.err)
	assert.Equal(t, "4\n", res.stdout)

	res = run(t, file, "display_reverse")
	require.NoError(t, res.err)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, id+"|Standup|02/01/2025|09:00|5", lines[3])

	res = run(t, file, "delete", id)
	require.NoError(t, res.err)
	assert.Equal(t, "OK\n", res.stdout)

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func Test_NotFound(t *testing.T) {
	file := filepath.Join(t.TempDir(), "events.log")

	tests := []struct {
		args []string
		want string
	}{
		{args: []string{"search", "12345"}, want: "NOTFOUND\n"},
		{args: []string{"modify", "12345", "x", "", "", "0"}, want: "FAIL\n"},
		{args: []string{"delete", "12345"}, want: "FAIL\n"},
	}

	for _, tt := range tests {
		t.Run(tt.args[0], func(t *testing.T) {
			res := run(t, file, tt.args...)
			require.NoError(t, res.err)
			assert.Equal(t, tt.want, res.stdout)
		})
	}
}

func Test_UsageErrors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "events.log")

	tests := []struct {
		name string
		args []string
	}{
		{name: "insert arity", args: []string{"insert", "Standup", "01/01/2025"}},
		{name: "insert seats", args: []string{"insert", "Standup", "01/01/2025", "09:00", "many"}},
		{name: "insert empty name", args: []string{"insert", "", "01/01/2025", "09:00", "5"}},
		{name: "search id", args: []string{"search", "abc"}},
		{name: "count arity", args: []string{"count", "extra"}},
		{name: "negative generate", args: []string{"generate", "--", "-1"}},
		{name: "huge generate", args: []string{"generate", "9223372036854775807"}},
		{name: "name with line break", args: []string{"insert", "Stand\nup", "01/01/2025", "09:00", "5"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := run(t, file, tt.args...)
			assert.Equal(t, 1, exitCode(t, res.err))
			assert.Empty(t, res.stdout)
		})
	}

	_, err := os.Stat(file)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_UnwritableFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "missing", "events.log")

	res := run(t, file, "insert", "Standup", "01/01/2025", "09:00", "5")
	assert.Equal(t, 1, exitCode(t, res.err))
}

func Test_ExportAndImportICS(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.log")
	dst := filepath.Join(dir, "dst.log")
	icsPath := filepath.Join(dir, "events.ics")

	res := run(t, src, "insert", "Standup", "10/01/2025", "09:00", "5")
	require.NoError(t, res.err)

	res = run(t, src, "export_ics", icsPath)
	require.NoError(t, res.err)

	res = run(t, dst, "import_ics", "--from", "01/01/2025", "--days", "31", icsPath)
	require.NoError(t, res.err)
	id := strings.TrimSpace(res.stdout)
	require.NotEmpty(t, id)

	res = run(t, dst, "search", id)
	require.NoError(t, res.err)
	assert.Equal(t, id+"|Standup|10/01/2025|09:00|5\n", res.stdout)
}

func Test_ExportICS_Stdout(t *testing.T) {
	file := filepath.Join(t.TempDir(), "events.log")

	res := run(t, file, "export_ics", "-")
	require.NoError(t, res.err)
	assert.Equal(t, "No events.\n", res.stdout)

	res = run(t, file, "insert", "Standup", "10/01/2025", "09:00", "5")
	require.NoError(t, res.err)

	res = run(t, file, "export_ics", "-")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "BEGIN:VCALENDAR")
	assert.Contains(t, res.stdout, "SUMMARY:Standup")
}

func Test_ImportICS_BadFrom(t *testing.T) {
	file := filepath.Join(t.TempDir(), "events.log")

	res := run(t, file, "import_ics", "--from", "2025-01-01", "-")
	assert.Equal(t, 1, exitCode(t, res.err))
}

func Test_DownloadCSV(t *testing.T) {
	file := filepath.Join(t.TempDir(), "events.log")

	res := run(t, file, "download_csv", "-")
	assert.Equal(t, 1, exitCode(t, res.err))

	res = run(t, file, "insert", "Standup", "01/01/2025", "09:00", "5")
	require.NoError(t, res.err)
	id := strings.TrimSpace(res.stdout)

	res = run(t, file, "download_csv", "-")
	require.NoError(t, res.err)
	assert.Equal(t, "ID,Name,Date,Time,Seats\n"+id+",Standup,01/01/2025,09:00,5\n", res.stdout)
}

func Test_SetupLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(&buf, "WARN")

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
