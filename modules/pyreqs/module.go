// Package pyreqs compares a pip requirements file against the packages pip
// reports as installed.
package pyreqs

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/vk/dotmod/internal/ctxlog"
	"github.com/vk/dotmod/internal/handlers"
	"github.com/vk/dotmod/internal/shell"
)

// stdoutTarget as the -o value prints the report instead of saving it.
const stdoutTarget = "STDOUT"

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Status is the outcome for one required package.
type Status string

const (
	StatusMissing  Status = "MISSING"
	StatusMismatch Status = "MISMATCH"
	StatusUpToDate Status = "UPTODATE"
)

// Result is the comparison for one required package.
type Result struct {
	Package   string
	Required  string
	Installed string
	Status    Status
}

// Line renders the result for the text report.
func (r Result) Line() string {
	switch r.Status {
	case StatusMissing:
		return fmt.Sprintf("MISSING: %s is MISSING (Required: %s)", r.Package, r.Required)
	case StatusMismatch:
		return fmt.Sprintf("MISMATCH: %s version mismatch (Installed: %s, Required: %s)", r.Package, r.Installed, r.Required)
	default:
		return fmt.Sprintf("UPTODATE: %s is up-to-date (%s)", r.Package, r.Installed)
	}
}

// normalize lower-cases a distribution name and folds "_" and "." into "-".
func normalize(name string) string {
	return strings.NewReplacer("_", "-", ".", "-").Replace(strings.ToLower(strings.TrimSpace(name)))
}

// ParseRequirements reads "package==version" lines. Other lines (comments,
// ranges, options) are skipped.
func ParseRequirements(r io.Reader) (map[string]string, error) {
	required := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		pkg, version, ok := strings.Cut(line, "==")
		if !ok || strings.TrimSpace(pkg) == "" {
			continue
		}
		required[normalize(pkg)] = strings.TrimSpace(version)
	}
	return required, scanner.Err()
}

// ParseInstalled decodes the output of `pip list --format=json`.
func ParseInstalled(data []byte) (map[string]string, error) {
	var entries []struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode pip output: %w", err)
	}
	installed := make(map[string]string, len(entries))
	for _, e := range entries {
		installed[normalize(e.Name)] = e.Version
	}
	return installed, nil
}

// Compare checks every required package, sorted by name.
func Compare(required, installed map[string]string) []Result {
	names := make([]string, 0, len(required))
	for name := range required {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make([]Result, 0, len(names))
	for _, name := range names {
		r := Result{Package: name, Required: required[name], Installed: installed[name]}
		switch have, ok := installed[name]; {
		case !ok:
			r.Status = StatusMissing
		case have != r.Required:
			r.Status = StatusMismatch
		default:
			r.Status = StatusUpToDate
		}
		results = append(results, r)
	}
	return results
}

// Summary renders the closing counts of the text report.
func Summary(results []Result) []string {
	counts := make(map[Status]int)
	for _, r := range results {
		counts[r.Status]++
	}
	return []string{
		"",
		"Version check complete!",
		fmt.Sprintf("Missing = %d", counts[StatusMissing]),
		fmt.Sprintf("Mismatched = %d", counts[StatusMismatch]),
		fmt.Sprintf("UpToDate = %d", counts[StatusUpToDate]),
	}
}

// WriteCSV writes results with one row per package.
func WriteCSV(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"python_library_name", "installed_version", "required_version", "status"}); err != nil {
		return err
	}
	for _, r := range results {
		installed := r.Installed
		if r.Status == StatusMissing {
			installed = "None"
		}
		if err := cw.Write([]string{r.Package, installed, r.Required, string(r.Status)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Check is the "check requirements" command:
//
//	check [-f requirements.txt | -d DIR] [-o out.txt|out.csv|STDOUT] [-pip CMD]
func Check(ctx context.Context, call *handlers.Call) error {
	logger := ctxlog.FromContext(ctx)

	fs := flag.NewFlagSet(call.Command, flag.ContinueOnError)
	fs.SetOutput(call.Stderr)
	file := fs.String("f", "", "Path to requirements.txt.")
	dir := fs.String("d", "", "Directory containing requirements.txt.")
	output := fs.String("o", "", "Save the report to this file (.csv for CSV) instead of printing it; STDOUT prints.")
	pip := fs.String("pip", "pip", "Command used to list installed packages.")
	if err := fs.Parse(call.Args); err != nil {
		return err
	}

	if *file != "" && *dir != "" {
		return errors.New("cannot use -f and -d together")
	}
	path := *file
	switch {
	case *dir != "":
		path = filepath.Join(*dir, "requirements.txt")
	case path == "":
		path = "requirements.txt"
	}

	reqFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("cannot read requirements: %w", err)
	}
	defer reqFile.Close()
	required, err := ParseRequirements(reqFile)
	if err != nil {
		return fmt.Errorf("cannot read requirements: %w", err)
	}
	logger.Debug("Parsed requirements.", "path", path, "packages", len(required))

	stdout := &bytes.Buffer{}
	cmd := shell.Script(call.Shell, "pip", *pip+" list --format=json", nil)
	cmd.Stdout = stdout
	cmd.Stderr = call.Stderr
	if err := call.Runner.Run(ctx, cmd); err != nil {
		return fmt.Errorf("listing installed packages failed: %w", err)
	}
	installed, err := ParseInstalled(stdout.Bytes())
	if err != nil {
		return err
	}

	results := Compare(required, installed)
	lines := make([]string, 0, len(results)+5)
	for _, r := range results {
		lines = append(lines, r.Line())
	}
	lines = append(lines, Summary(results)...)
	report := strings.Join(lines, "\n") + "\n"

	// The report goes to stdout unless it is saved to a file.
	if *output == "" || *output == stdoutTarget {
		_, err := io.WriteString(call.Stdout, report)
		return err
	}

	out, err := os.Create(*output)
	if err != nil {
		return fmt.Errorf("cannot write report: %w", err)
	}
	defer out.Close()
	if strings.EqualFold(filepath.Ext(*output), ".csv") {
		err = WriteCSV(out, results)
	} else {
		_, err = io.WriteString(out, report)
	}
	if err != nil {
		return fmt.Errorf("cannot write report: %w", err)
	}
	fmt.Fprintf(call.Stdout, "Results saved to %s\n", *output)
	return nil
}

// Register registers the handler with the catalog.
func (m *Module) Register(h *handlers.Handlers) {
	h.Register("pyreqs.Check", &handlers.Handler{
		Description: "checks installed Python packages against requirements.txt",
		Fn:          Check,
	})
}
