package pyreqs

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dotmod/internal/ctxlog"
	"github.com/vk/dotmod/internal/handlers"
	"github.com/vk/dotmod/internal/shell"
)

const pipJSON = `[{"name": "Requests", "version": "2.31.0"}, {"name": "PyYAML", "version": "6.0"}, {"name": "typing_extensions", "version": "4.9.0"}]`

func TestParseRequirements(t *testing.T) {
	src := `# pinned
requests==2.31.0
PyYAML==6.0.1  # mismatch on purpose
numpy>=1.0
-r other.txt
typing-extensions==4.9.0
`
	got, err := ParseRequirements(strings.NewReader(src))

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"requests":          "2.31.0",
		"pyyaml":            "6.0.1",
		"typing-extensions": "4.9.0",
	}, got)
}

func TestCompare(t *testing.T) {
	installed, err := ParseInstalled([]byte(pipJSON))
	require.NoError(t, err)

	results := Compare(map[string]string{
		"requests":          "2.31.0",
		"pyyaml":            "6.0.1",
		"flask":             "3.0.0",
		"typing-extensions": "4.9.0",
	}, installed)

	want := []Result{
		{Package: "flask", Required: "3.0.0", Status: StatusMissing},
		{Package: "pyyaml", Required: "6.0.1", Installed: "6.0", Status: StatusMismatch},
		{Package: "requests", Required: "2.31.0", Installed: "2.31.0", Status: StatusUpToDate},
		{Package: "typing-extensions", Required: "4.9.0", Installed: "4.9.0", Status: StatusUpToDate},
	}
	if diff := cmp.Diff(want, results); diff != "" {
		t.Errorf("Compare mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "MISSING: flask is MISSING (Required: 3.0.0)", results[0].Line())
	assert.Equal(t, "MISMATCH: pyyaml version mismatch (Installed: 6.0, Required: 6.0.1)", results[1].Line())
	assert.Equal(t, []string{"", "Version check complete!", "Missing = 1", "Mismatched = 1", "UpToDate = 2"}, Summary(results))
}

func TestParseInstalled_Invalid(t *testing.T) {
	_, err := ParseInstalled([]byte("not json"))
	assert.Error(t, err)
}

func TestWriteCSV(t *testing.T) {
	out := &bytes.Buffer{}

	require.NoError(t, WriteCSV(out, []Result{
		{Package: "flask", Required: "3.0.0", Status: StatusMissing},
		{Package: "requests", Required: "2.31.0", Installed: "2.31.0", Status: StatusUpToDate},
	}))

	assert.Equal(t, "python_library_name,installed_version,required_version,status\n"+
		"flask,None,3.0.0,MISSING\n"+
		"requests,2.31.0,2.31.0,UPTODATE\n", out.String())
}

func TestCheck_EndToEnd(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests==2.31.0\nflask==3.0.0\n"), 0600))
	csvPath := filepath.Join(dir, "report.csv")

	var ran *shell.Command
	runner := shell.RunnerFunc(func(ctx context.Context, cmd *shell.Command) error {
		ran = cmd
		_, err := cmd.Stdout.Write([]byte(pipJSON))
		return err
	})
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	out := &bytes.Buffer{}

	// --- Act ---
	err := Check(ctx, &handlers.Call{
		Command: "pycheck",
		Args:    []string{"-d", dir, "-o", csvPath, "-pip", "python3 -m pip"},
		Stdout:  out,
		Stderr:  &bytes.Buffer{},
		Runner:  runner,
		Shell:   "sh",
	})

	// --- Assert ---
	require.NoError(t, err)
	require.NotNil(t, ran)
	assert.Equal(t, []string{"-c", "python3 -m pip list --format=json", "pip"}, ran.Args)
	assert.Equal(t, "Results saved to "+csvPath+"\n", out.String(), "a saved report is not printed")

	csvData, err := os.ReadFile(csvPath)
	require.NoError(t, err)
	assert.Contains(t, string(csvData), "flask,None,3.0.0,MISSING")
}

func TestCheck_FlagConflict(t *testing.T) {
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	err := Check(ctx, &handlers.Call{
		Args:   []string{"-f", "a.txt", "-d", "dir"},
		Stderr: &bytes.Buffer{},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot use -f and -d together")
}

func TestCheck_PrintsReportUnlessSaved(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("requests==2.31.0\nflask==3.0.0\n"), 0600))
	runner := shell.RunnerFunc(func(ctx context.Context, cmd *shell.Command) error {
		_, err := cmd.Stdout.Write([]byte(pipJSON))
		return err
	})
	ctx := ctxlog.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	for _, args := range [][]string{
		{"-d", dir},
		{"-d", dir, "-o", "STDOUT"},
	} {
		t.Run(strings.Join(args[2:], " "), func(t *testing.T) {
			out := &bytes.Buffer{}

			err := Check(ctx, &handlers.Call{Args: args, Stdout: out, Stderr: &bytes.Buffer{}, Runner: runner, Shell: "sh"})

			require.NoError(t, err)
			assert.Equal(t, "MISSING: flask is MISSING (Required: 3.0.0)\n"+
				"UPTODATE: requests is up-to-date (2.31.0)\n"+
				"\nVersion check complete!\nMissing = 1\nMismatched = 0\nUpToDate = 1\n", out.String())
			assert.NoFileExists(t, "STDOUT")
		})
	}
}
