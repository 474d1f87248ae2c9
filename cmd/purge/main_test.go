package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/purge/internal/engine"
	"github.com/bamsammich/purge/internal/event"
	"github.com/bamsammich/purge/internal/safety"
	"github.com/bamsammich/purge/internal/stats"
)

// isolate points HOME, the working directory and the config dir at fresh
// temp dirs and returns the home.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Chdir(home)
	return home
}

func runCLI(t *testing.T, stdin string, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, streams{in: strings.NewReader(stdin), out: &out, err: &errOut})
	return code, out.String(), errOut.String()
}

func makeTree(t *testing.T, root string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b"), 0o755))
	for _, rel := range []string{"top.txt", "a/mid.txt", "a/b/leaf.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, rel), []byte(rel), 0o644))
	}
}

func TestVersion(t *testing.T) {
	code, out, _ := runCLI(t, "", "--version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "purge dev\n", out)
}

func TestUsageErrors(t *testing.T) {
	isolate(t)

	code, _, errOut := runCLI(t, "")
	assert.Equal(t, exitFatal, code)
	assert.Contains(t, errOut, "requires at least 1 arg")

	code, _, errOut = runCLI(t, "", "-j", "0", "x")
	assert.Equal(t, exitFatal, code)
	assert.Contains(t, errOut, "must be at least 1")

	code, _, _ = runCLI(t, "", "--queue-depth", "lots", "x")
	assert.Equal(t, exitFatal, code)
}

func TestRemovesRelativeTree(t *testing.T) {
	home := isolate(t)
	makeTree(t, filepath.Join(home, "tree"))

	code, _, errOut := runCLI(t, "", "-j", "2", "tree")
	assert.Equal(t, exitOK, code, errOut)
	assert.Contains(t, errOut, "done ✓  files 3  dirs 3")

	_, err := os.Lstat(filepath.Join(home, "tree"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAlreadyGone(t *testing.T) {
	isolate(t)

	code, _, errOut := runCLI(t, "", "never-existed")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, errOut, "files 0")
}

func TestRefusesProtected(t *testing.T) {
	isolate(t)

	code, _, errOut := runCLI(t, "", "/", "/usr")
	assert.Equal(t, exitAllDenied, code)
	assert.Contains(t, errOut, "refusing to remove path")
	assert.Contains(t, errOut, "nothing to remove")
}

func TestConfirmation(t *testing.T) {
	isolate(t)
	outside := filepath.Join(t.TempDir(), "victim")

	t.Run("declined", func(t *testing.T) {
		makeTree(t, outside)
		code, _, errOut := runCLI(t, "n\n", outside)
		assert.Equal(t, exitOK, code)
		assert.Contains(t, errOut, "[y/N]")
		assert.Contains(t, errOut, "nothing to remove")
		assert.DirExists(t, outside)
	})

	t.Run("declined beside a refused path", func(t *testing.T) {
		makeTree(t, outside)
		code, _, errOut := runCLI(t, "n\n", "/", outside)
		assert.Equal(t, exitAllDenied, code)
		assert.Contains(t, errOut, "refusing to remove path")
		assert.DirExists(t, outside)
	})

	t.Run("eof declines", func(t *testing.T) {
		makeTree(t, outside)
		code, _, _ := runCLI(t, "", outside)
		assert.Equal(t, exitOK, code)
		assert.DirExists(t, outside)
	})

	t.Run("confirmed", func(t *testing.T) {
		makeTree(t, outside)
		code, _, errOut := runCLI(t, "yes\n", outside)
		assert.Equal(t, exitOK, code, errOut)
		assert.NoDirExists(t, outside)
	})

	t.Run("force", func(t *testing.T) {
		makeTree(t, outside)
		code, _, errOut := runCLI(t, "", "--force", outside)
		assert.Equal(t, exitOK, code, errOut)
		assert.NotContains(t, errOut, "[y/N]")
		assert.NoDirExists(t, outside)
	})
}

func TestDryRun(t *testing.T) {
	home := isolate(t)
	makeTree(t, filepath.Join(home, "tree"))

	code, _, errOut := runCLI(t, "", "--dry-run", "tree")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, errOut, "dry run: done ✓  files 3")
	assert.FileExists(t, filepath.Join(home, "tree", "a", "b", "leaf.txt"))
}

func TestQuiet(t *testing.T) {
	home := isolate(t)
	makeTree(t, filepath.Join(home, "tree"))

	code, out, errOut := runCLI(t, "", "-q", "tree")
	assert.Equal(t, exitOK, code)
	assert.Empty(t, out)
	assert.Empty(t, errOut)
}

func TestVerboseListsEntries(t *testing.T) {
	home := isolate(t)
	makeTree(t, filepath.Join(home, "tree"))

	code, out, _ := runCLI(t, "", "-v", "tree")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, out, "removed "+filepath.Join(home, "tree", "a", "b", "leaf.txt"))
	assert.Contains(t, out, "removed "+filepath.Join(home, "tree")+"/\n")
}

func TestMetricsFile(t *testing.T) {
	home := isolate(t)
	makeTree(t, filepath.Join(home, "tree"))
	metricsPath := filepath.Join(t.TempDir(), "purge.prom")

	code, _, _ := runCLI(t, "", "--metrics-file", metricsPath, "tree")
	require.Equal(t, exitOK, code)

	data, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "purge_files_removed_total{run=")
	assert.Contains(t, string(data), "} 3\n")
}

func TestLogFile(t *testing.T) {
	home := isolate(t)
	makeTree(t, filepath.Join(home, "tree"))
	logPath := filepath.Join(t.TempDir(), "purge.jsonl")

	code, _, _ := runCLI(t, "", "--log", logPath, "tree")
	require.Equal(t, exitOK, code)

	f, err := os.Open(logPath)
	require.NoError(t, err)
	defer f.Close()

	runIDs := map[string]bool{}
	types := map[string]int{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		id, _ := rec["run"].(string)
		require.NotEmpty(t, id, "every record carries the run id: %s", sc.Text())
		runIDs[id] = true
		if rec["msg"] == "purge.event" {
			typ, _ := rec["type"].(string)
			types[typ]++
		}
	}
	require.NoError(t, sc.Err())
	assert.Len(t, runIDs, 1)
	assert.Equal(t, 3, types["FileRemoved"])
	assert.Equal(t, 3, types["DirRemoved"])
	assert.Equal(t, 1, types["WalkComplete"])
}

func TestLogFileKeepsEveryEntry(t *testing.T) {
	home := isolate(t)
	root := filepath.Join(home, "wide")
	require.NoError(t, os.MkdirAll(root, 0o755))
	const files = 3000 // more than the event buffer holds
	for i := range files {
		name := filepath.Join(root, fmt.Sprintf("f%04d", i))
		require.NoError(t, os.WriteFile(name, nil, 0o644))
	}
	logPath := filepath.Join(t.TempDir(), "purge.jsonl")

	code, _, _ := runCLI(t, "", "-q", "-j", "8", "--log", logPath, "wide")
	require.Equal(t, exitOK, code)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Equal(t, files, strings.Count(string(data), `"type":"FileRemoved"`))
}

func TestTeeEventsRecordShape(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil)).With("run", "run-1")

	in := make(chan event.Event, 2)
	in <- event.Event{Type: event.FileRemoved, Path: "/home/u/tree/a.txt", Size: 42, WorkerID: 3}
	in <- event.Event{Type: event.FileFailed, Path: "/home/u/tree/b.txt", Error: os.ErrPermission}
	close(in)

	var forwarded []event.Type
	for ev := range teeEvents(logger, in) {
		forwarded = append(forwarded, ev.Type)
	}
	assert.Equal(t, []event.Type{event.FileRemoved, event.FileFailed}, forwarded)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var removed, failed map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &removed))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &failed))

	assert.Equal(t, "purge.event", removed["msg"])
	assert.Equal(t, "run-1", removed["run"])
	assert.Equal(t, "FileRemoved", removed["type"])
	assert.Equal(t, "/home/u/tree/a.txt", removed["path"])
	assert.InDelta(t, 42, removed["size"], 0)
	assert.InDelta(t, 3, removed["worker"], 0)
	assert.NotContains(t, removed, "error")

	assert.Equal(t, "FileFailed", failed["type"])
	assert.Equal(t, os.ErrPermission.Error(), failed["error"])
}

func writeUserConfig(t *testing.T, content string) {
	t.Helper()
	dir := filepath.Join(os.Getenv("XDG_CONFIG_HOME"), "purge")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0o644))
}

func TestConfigDefaults(t *testing.T) {
	home := isolate(t)
	writeUserConfig(t, "[defaults]\nquiet = true\njobs = 2\n")

	makeTree(t, filepath.Join(home, "tree"))
	code, _, errOut := runCLI(t, "", "tree")
	assert.Equal(t, exitOK, code)
	assert.Empty(t, errOut, "quiet comes from the config file")

	makeTree(t, filepath.Join(home, "tree"))
	code, _, errOut = runCLI(t, "", "--quiet=false", "tree")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, errOut, "done ✓", "an explicit flag wins over the config")
}

func TestConfigProtected(t *testing.T) {
	home := isolate(t)
	writeUserConfig(t, "[safety]\nprotected = [\"~/keep\"]\n")
	makeTree(t, filepath.Join(home, "keep"))

	code, _, _ := runCLI(t, "", "keep")
	assert.Equal(t, exitAllDenied, code)
	assert.DirExists(t, filepath.Join(home, "keep"))
}

func TestBrokenConfigWarns(t *testing.T) {
	home := isolate(t)
	writeUserConfig(t, "[defaults\n")
	makeTree(t, filepath.Join(home, "tree"))

	code, _, errOut := runCLI(t, "", "tree")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, errOut, "failed to load config")
}

func TestGenDocs(t *testing.T) {
	dir := t.TempDir()

	code, _, errOut := runCLI(t, "", "gen-docs", "--format", "markdown", "--dir", dir)
	require.Equal(t, exitOK, code, errOut)
	assert.FileExists(t, filepath.Join(dir, "purge.md"))

	code, _, _ = runCLI(t, "", "gen-docs", "--dir", dir)
	require.Equal(t, exitOK, code)
	assert.FileExists(t, filepath.Join(dir, "purge.1"))

	code, _, _ = runCLI(t, "", "gen-docs", "--format", "pdf", "--dir", dir)
	assert.Equal(t, exitFatal, code)
}

func TestExitCode(t *testing.T) {
	denied := []safety.Classification{{Input: "/", Verdict: safety.Denied}}

	tests := []struct {
		name string
		res  engine.Result
		want int
	}{
		{"clean", engine.Result{}, exitOK},
		{"fatal", engine.Result{Err: engine.ErrInvalidConfig}, exitFatal},
		{"entry errors", engine.Result{Stats: stats.Snapshot{Errors: 1}}, exitErrors},
		{"interrupted", engine.Result{Interrupted: true}, exitErrors},
		{"all denied", engine.Result{NothingToDo: true, Denied: denied}, exitAllDenied},
		{"declined only", engine.Result{NothingToDo: true, Declined: []string{"/srv"}}, exitOK},
		{"denied and declined", engine.Result{NothingToDo: true, Denied: denied, Declined: []string{"/srv"}}, exitAllDenied},
		{"some denied, rest removed", engine.Result{Denied: denied}, exitOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.res))
		})
	}
}

func TestPrintSummaryCapsFailures(t *testing.T) {
	res := engine.Result{FailuresDropped: 5}
	for i := range 12 {
		res.Failures = append(res.Failures, engine.Failure{
			Op: "unlink", Path: filepath.Join("/x", string(rune('a'+i))), Err: os.ErrPermission,
		})
	}

	var buf bytes.Buffer
	printSummary(&buf, "done ✗", res, false)
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1+maxFailureLines+1)
	assert.Equal(t, "done ✗", lines[0])
	assert.Equal(t, "  unlink /x/a: permission denied", lines[1])
	assert.Equal(t, "  ... and 7 more", lines[len(lines)-1])
}
