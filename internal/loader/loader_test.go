package loader

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/dotmod/internal/registry"
	"github.com/vk/dotmod/internal/session"
	"github.com/vk/dotmod/internal/shell"
)

func TestLoad_ExistingModuleIsReportedPresent(t *testing.T) {
	// --- Arrange ---
	f := newFixture(t, map[string]string{"mod_alpha.sh": alphaSh})

	// --- Act ---
	err := f.loader.Load(f.ctx, "alpha")

	// --- Assert ---
	require.NoError(t, err)
	loaded, err := f.loader.ListLoaded(f.ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []LoadedModule{{Name: "alpha", Path: f.path("mod_alpha.sh"), Present: true}}, loaded)

	// The shell file was sourced once as the import check.
	require.Len(t, f.runner.commands, 1)
	assert.Equal(t, shell.Source("sh", f.path("mod_alpha.sh")).Args, f.runner.commands[0].Args)

	assert.Equal(t, []string{"gg", "greet", "hi"}, f.loader.Session().OwnedBy("alpha"))
}

func TestLoad_MissingBackingFile(t *testing.T) {
	f := newFixture(t, map[string]string{"mod_alpha.sh": alphaSh})
	require.NoError(t, f.loader.Load(f.ctx, "alpha"))

	err := f.loader.Load(f.ctx, "ghost")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, []string{"alpha"}, f.loader.Registry().All())
}

func TestLoad_IsIdempotent(t *testing.T) {
	f := newFixture(t, map[string]string{"mod_alpha.sh": alphaSh})

	require.NoError(t, f.loader.Load(f.ctx, "alpha"))
	require.NoError(t, f.loader.Load(f.ctx, "alpha"))

	assert.Equal(t, []string{"alpha"}, f.loader.Registry().All())
	// Each load imports the file again.
	assert.Len(t, f.runner.commands, 2)
}

func TestLoad_ReloadDropsCommandsRemovedFromFile(t *testing.T) {
	f := newFixture(t, map[string]string{"mod_alpha.sh": alphaSh})
	require.NoError(t, f.loader.Load(f.ctx, "alpha"))

	require.NoError(t, os.WriteFile(f.path("mod_alpha.sh"), []byte("greet() { # says hello\n:\n}\n"), 0644))
	require.NoError(t, f.loader.Load(f.ctx, "alpha"))

	assert.Equal(t, []string{"greet"}, f.loader.Session().OwnedBy("alpha"))
}

func TestLoad_Validation(t *testing.T) {
	f := newFixture(t, nil)

	for _, name := range []string{"", "../etc", "a/b", ".hidden", "a..b"} {
		err := f.loader.Load(f.ctx, name)
		assert.True(t, errors.Is(err, ErrValidation), "name %q: got %v", name, err)
	}
	assert.Equal(t, 0, f.loader.Registry().Len())
}

func TestOperations_RequireSourceDir(t *testing.T) {
	f := newFixture(t, map[string]string{"mod_alpha.sh": alphaSh})
	f.cfg.SourceDir = ""

	err := f.loader.Load(f.ctx, "alpha")
	assert.True(t, errors.Is(err, ErrConfiguration), "load: %v", err)

	err = f.loader.Unload(f.ctx, "alpha")
	assert.True(t, errors.Is(err, ErrConfiguration), "unload: %v", err)

	_, err = f.loader.ListLoaded(f.ctx, "")
	assert.True(t, errors.Is(err, ErrConfiguration), "loaded: %v", err)

	_, err = f.loader.ListAvailable(f.ctx, "")
	assert.True(t, errors.Is(err, ErrConfiguration), "available: %v", err)
}

func TestLoad_SourceFailureIsImportError(t *testing.T) {
	// --- Arrange ---
	f := newFixture(t, map[string]string{"mod_alpha.sh": alphaSh})
	f.runner.fn = func(ctx context.Context, cmd *shell.Command) error {
		_, _ = cmd.Stderr.Write([]byte("mod_alpha.sh: line 3: syntax error\n"))
		return &shell.ExitError{Command: cmd.Path, Code: 2}
	}

	// --- Act ---
	err := f.loader.Load(f.ctx, "alpha")

	// --- Assert ---
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImport))
	assert.Contains(t, err.Error(), "syntax error")
	assert.Equal(t, 0, f.loader.Registry().Len())
	assert.Empty(t, f.loader.Session().Commands())
}

func TestLoad_UnknownHandlerIsImportError(t *testing.T) {
	f := newFixture(t, map[string]string{
		"mod_bad.hcl": `function "x" { handler = "nope.Nope" }`,
	})

	err := f.loader.Load(f.ctx, "bad")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrImport))
	assert.Contains(t, err.Error(), `unknown handler "nope.Nope"`)
	assert.Equal(t, 0, f.loader.Registry().Len())
}

func TestLoad_MalformedManifestIsImportError(t *testing.T) {
	f := newFixture(t, map[string]string{"mod_bad.hcl": `function "x" {`})

	err := f.loader.Load(f.ctx, "bad")

	assert.True(t, errors.Is(err, ErrImport))
	assert.Empty(t, f.runner.commands, "HCL manifests are not sourced")
}

func TestLoad_PrefersFirstExtension(t *testing.T) {
	f := newFixture(t, map[string]string{
		"mod_git.hcl": gitHCL,
		"mod_git.sh":  alphaSh,
	})

	require.NoError(t, f.loader.Load(f.ctx, "git"))

	path, ok := f.loader.PathOf("git")
	require.True(t, ok)
	assert.Equal(t, f.path("mod_git.hcl"), path)
}

func TestLoad_RejectsReentrantCalls(t *testing.T) {
	f := newFixture(t, map[string]string{
		"mod_alpha.sh": alphaSh,
		"mod_beta.sh":  betaSh,
	})
	var inner error
	f.runner.fn = func(ctx context.Context, cmd *shell.Command) error {
		f.runner.fn = nil
		inner = f.loader.Load(ctx, "beta")
		return nil
	}

	require.NoError(t, f.loader.Load(f.ctx, "alpha"))

	assert.True(t, errors.Is(inner, ErrReentrancy), "got %v", inner)
	assert.Equal(t, []string{"alpha"}, f.loader.Registry().All())
}

func TestUnload_NeverLoaded(t *testing.T) {
	f := newFixture(t, map[string]string{"mod_alpha.sh": alphaSh})
	require.NoError(t, f.loader.Load(f.ctx, "alpha"))

	err := f.loader.Unload(f.ctx, "beta")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotLoaded))
	assert.Equal(t, []string{"alpha"}, f.loader.Registry().All())
}

func TestUnload_EmptyName(t *testing.T) {
	f := newFixture(t, nil)

	err := f.loader.Unload(f.ctx, "")

	assert.True(t, errors.Is(err, ErrValidation))
}

func TestUnload_RemovesModuleAndCommands(t *testing.T) {
	f := newFixture(t, map[string]string{"mod_alpha.sh": alphaSh})
	require.NoError(t, f.loader.Load(f.ctx, "alpha"))

	require.NoError(t, f.loader.Unload(f.ctx, "alpha"))

	loaded, err := f.loader.ListLoaded(f.ctx, "")
	require.NoError(t, err)
	assert.Empty(t, loaded)
	assert.Empty(t, f.loader.Session().Commands())
}

func TestUnload_BackingFileDeleted(t *testing.T) {
	// --- Arrange ---
	f := newFixture(t, map[string]string{"mod_alpha.sh": alphaSh})
	require.NoError(t, f.loader.Load(f.ctx, "alpha"))
	require.NoError(t, os.Remove(f.path("mod_alpha.sh")))

	loaded, err := f.loader.ListLoaded(f.ctx, "")
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.False(t, loaded[0].Present)

	// --- Act ---
	err = f.loader.Unload(f.ctx, "alpha")

	// --- Assert ---
	require.NoError(t, err)
	assert.False(t, f.loader.Registry().Contains("alpha"))
	assert.Empty(t, f.loader.Session().Commands())
	assert.Contains(t, f.logs.String(), "level=WARN")
	assert.Contains(t, f.logs.String(), "Backing file of loaded module is missing")
}

func TestUnload_LeavesCommandsTakenOverByOtherModules(t *testing.T) {
	// --- Arrange ---
	f := newFixture(t, map[string]string{
		"mod_alpha.sh": alphaSh,
		"mod_other.sh": "greet() { # a different greeting\n:\n}\n",
	})
	require.NoError(t, f.loader.Load(f.ctx, "alpha"))
	require.NoError(t, f.loader.Load(f.ctx, "other"))
	assert.Contains(t, f.logs.String(), "Command taken over from another module.")

	// --- Act ---
	require.NoError(t, f.loader.Unload(f.ctx, "alpha"))

	// --- Assert ---
	b, ok := f.loader.Session().Lookup("greet")
	require.True(t, ok)
	assert.Equal(t, "other", b.Module)
	assert.Equal(t, []string{"greet"}, f.loader.Session().Commands())
	assert.Contains(t, f.logs.String(), "Command now belongs to another module")
}

func TestDispatch_GoHandlerWithFixedArgs(t *testing.T) {
	f := newFixture(t, map[string]string{"mod_git.hcl": gitHCL})
	require.NoError(t, f.loader.Load(f.ctx, "git"))
	out := &bytes.Buffer{}

	err := f.loader.Session().Dispatch(f.ctx, "say", []string{"hello"}, session.Stdio{Stdout: out})

	require.NoError(t, err)
	assert.Equal(t, "git: hello\n", out.String())
}

func TestDispatch_ShortcutExpandsToBoundCommand(t *testing.T) {
	f := newFixture(t, map[string]string{"mod_git.hcl": gitHCL})
	require.NoError(t, f.loader.Load(f.ctx, "git"))
	out := &bytes.Buffer{}

	err := f.loader.Session().Dispatch(f.ctx, "sayhi", []string{"bob"}, session.Stdio{Stdout: out})

	require.NoError(t, err)
	assert.Equal(t, "git: hi there bob\n", out.String())
	assert.Empty(t, f.runner.commands)
}

func TestDispatch_ShellCommands(t *testing.T) {
	f := newFixture(t, map[string]string{
		"mod_alpha.sh": alphaSh,
		"mod_git.hcl":  gitHCL,
	})
	require.NoError(t, f.loader.Load(f.ctx, "alpha"))
	require.NoError(t, f.loader.Load(f.ctx, "git"))
	stdio := session.Stdio{Stdout: &bytes.Buffer{}}
	sess := f.loader.Session()

	require.NoError(t, sess.Dispatch(f.ctx, "greet", []string{"bob"}, stdio))
	assert.Equal(t, shell.Function("sh", f.path("mod_alpha.sh"), "greet", []string{"bob"}).Args, f.runner.last().Args)

	require.NoError(t, sess.Dispatch(f.ctx, "gg", []string{"TODO"}, stdio))
	assert.Equal(t, shell.Expansion("sh", "gg", "git grep", []string{"TODO"}).Args, f.runner.last().Args)

	require.NoError(t, sess.Dispatch(f.ctx, "st", []string{"-u"}, stdio))
	assert.Equal(t, shell.Script("sh", "st", `git status -sb "$@"`, []string{"-u"}).Args, f.runner.last().Args)
	assert.Equal(t, f.dir, f.runner.last().Dir)

	// "hi" expands to the bound shell function "greet".
	require.NoError(t, sess.Dispatch(f.ctx, "hi", nil, stdio))
	assert.Equal(t, shell.Function("sh", f.path("mod_alpha.sh"), "greet", []string{"world"}).Args, f.runner.last().Args)
}

func TestDispatch_CommandFailurePropagates(t *testing.T) {
	f := newFixture(t, map[string]string{"mod_alpha.sh": alphaSh})
	require.NoError(t, f.loader.Load(f.ctx, "alpha"))
	f.runner.fn = func(ctx context.Context, cmd *shell.Command) error {
		return &shell.ExitError{Command: cmd.Path, Code: 1}
	}

	err := f.loader.Session().Dispatch(f.ctx, "greet", nil, session.Stdio{})

	assert.Equal(t, 1, shell.ExitCode(err))
}

func TestLoad_RelativeSourceDirWithRealShell(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	for _, tc := range []struct {
		name      string
		sourceDir string
		subdir    string
	}{
		{name: "subdirectory", sourceDir: "mods", subdir: "mods"},
		{name: "current directory", sourceDir: ".", subdir: "."},
	} {
		t.Run(tc.name, func(t *testing.T) {
			// --- Arrange ---
			root := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(root, tc.subdir), 0755))
			require.NoError(t, os.WriteFile(filepath.Join(root, tc.subdir, "mod_alpha.sh"), []byte(alphaSh), 0644))
			testChdir(t, root)

			f := newFixture(t, nil)
			f.cfg.SourceDir = tc.sourceDir
			ldr := New(f.cfg, registry.New(), session.New(), f.handlers, shell.NewExecRunner())

			// --- Act ---
			err := ldr.Load(f.ctx, "alpha")

			// --- Assert ---
			require.NoError(t, err)
			path, ok := ldr.PathOf("alpha")
			require.True(t, ok)
			assert.True(t, filepath.IsAbs(path), "recorded path %q must be absolute", path)

			out := &bytes.Buffer{}
			require.NoError(t, ldr.Session().Dispatch(f.ctx, "greet", []string{"bob"}, session.Stdio{Stdout: out, Stderr: &bytes.Buffer{}}))
			assert.Equal(t, "hello bob\n", out.String())
		})
	}
}

// testChdir changes the working directory for the duration of the test,
// restoring it on cleanup (equivalent of testing.T.Chdir for older toolchains).
func testChdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(old); err != nil {
			t.Fatal(err)
		}
	})
}
