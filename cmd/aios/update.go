package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/andersonfelipev/aios-core/internal/backup"
	"github.com/andersonfelipev/aios-core/internal/fetch"
	"github.com/andersonfelipev/aios-core/internal/update"
)

// runUpdate handles the `aios update` subcommand
// Returns an exit code (0 = updated or nothing to do, 1 = failure) and an error
func runUpdate(args []string) (int, error) {
	opts, showHelp, verbose, err := parseUpdateArgs(args)
	if err != nil {
		return 1, err
	}

	if showHelp {
		printUpdateHelp()
		return 0, nil
	}

	if opts.Repo == "" {
		return 1, fmt.Errorf("--repo is required\nRun 'aios update --help' for usage")
	}

	// Create context with timeout (5 minutes for potentially slow clones)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	orch, err := update.New(opts, fetch.NewGitFetcher())
	if err != nil {
		return 1, fmt.Errorf("configure update: %w", err)
	}
	if verbose {
		orch = orch.WithLogger(stderrLogger{})
	}

	if !opts.DryRun {
		fmt.Printf("Updating %s from %s (branch %s)...\n", opts.Dir, opts.Repo, opts.Branch)
	}

	result, err := orch.Run(ctx)
	if err != nil {
		printUpdateFailure(result, err)
		return 1, err
	}

	fmt.Print(update.FormatReport(result))
	return 0, nil
}

// parseUpdateArgs turns the raw argument list into run options plus the
// help and verbose modes.
func parseUpdateArgs(args []string) (update.Options, bool, bool, error) {
	showHelp := false
	verbose := false
	opts := update.Options{
		Dir:    "./.aios-core",
		Branch: "main",
	}

	for _, arg := range args {
		switch {
		case arg == "--help" || arg == "-h":
			showHelp = true
		case arg == "--dry-run" || arg == "-n":
			opts.DryRun = true
		case arg == "--force":
			opts.Force = true
		case arg == "--verbose" || arg == "-v":
			verbose = true
		case arg == "--retain-backup":
			opts.BackupPolicy = backup.PolicyRetain
		case arg == "--discard-backup":
			opts.BackupPolicy = backup.PolicyDiscard
		case strings.HasPrefix(arg, "--repo="):
			opts.Repo = strings.TrimPrefix(arg, "--repo=")
		case strings.HasPrefix(arg, "--branch="):
			opts.Branch = strings.TrimPrefix(arg, "--branch=")
		case strings.HasPrefix(arg, "--dir="):
			opts.Dir = strings.TrimPrefix(arg, "--dir=")
		case strings.HasPrefix(arg, "--keep-backups="):
			value := strings.TrimPrefix(arg, "--keep-backups=")
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return opts, false, false, fmt.Errorf("invalid --keep-backups value: %s", value)
			}
			opts.KeepBackups = n
		default:
			return opts, false, false, fmt.Errorf("unknown option: %s\nRun 'aios update --help' for usage", arg)
		}
	}

	return opts, showHelp, verbose, nil
}

// printUpdateFailure explains a failed run before the error line, with
// enough detail to recover by hand.
func printUpdateFailure(result *update.Result, err error) {
	var precond *update.PreconditionError
	if errors.As(err, &precond) {
		fmt.Fprintln(os.Stderr, "Nothing was changed.")
		if errors.Is(err, update.ErrNotInstalled) || errors.Is(err, update.ErrMissingConfig) {
			fmt.Fprintln(os.Stderr, "Is this the right directory? Pass --dir=<path> to point at the installed tree.")
		}
		return
	}

	var fetchErr *fetch.FetchError
	if errors.As(err, &fetchErr) {
		fmt.Fprintln(os.Stderr, "Nothing was changed.")
		for _, hint := range fetchErr.Hints() {
			fmt.Fprintf(os.Stderr, "  - %s\n", hint)
		}
		return
	}

	if result != nil && result.BackupPath != "" {
		fmt.Fprintf(os.Stderr, "The pre-update state was kept at:\n  %s\n", result.BackupPath)
		fmt.Fprintln(os.Stderr, "Restore it by replacing the installed tree with that directory.")
	}
}

// printUpdateHelp prints help for the update command
func printUpdateHelp() {
	fmt.Println("Usage: aios update [options]")
	fmt.Println()
	fmt.Println("Update the installed component tree from the remote source while")
	fmt.Println("preserving values you changed in core-config.yaml.")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -h, --help            Show this help message")
	fmt.Println("  -n, --dry-run         Show the update plan without changing anything")
	fmt.Println("  -v, --verbose         Log run progress to stderr")
	fmt.Println("  --repo=<repo>         Source repository (owner/name or full URL, required)")
	fmt.Println("  --branch=<name>       Branch to update from (default: main)")
	fmt.Println("  --dir=<path>          Installed tree location (default: ./.aios-core)")
	fmt.Println("  --force               Replace the config wholesale, dropping local changes")
	fmt.Println("  --retain-backup       Keep the pre-update backup after success (default)")
	fmt.Println("  --discard-backup      Remove the backup once the update succeeds")
	fmt.Println("  --keep-backups=<n>    How many old backups to retain (default: 5)")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  aios update --repo=team/aios-core --dry-run")
	fmt.Println("  aios update --repo=team/aios-core")
	fmt.Println("  aios update --repo=team/aios-core --branch=next --force")
	fmt.Println()
	fmt.Println("Exit codes:")
	fmt.Println("  0  Update applied (or plan shown in dry-run mode)")
	fmt.Println("  1  Update failed; see the backup path printed for recovery")
	fmt.Println()
}

// stderrLogger prints structured progress lines for --verbose runs.
type stderrLogger struct{}

func (stderrLogger) Debug(msg string, kv ...interface{}) { logLine("DEBUG", msg, kv...) }
func (stderrLogger) Info(msg string, kv ...interface{})  { logLine("INFO", msg, kv...) }
func (stderrLogger) Warn(msg string, kv ...interface{})  { logLine("WARN", msg, kv...) }
func (stderrLogger) Error(msg string, kv ...interface{}) { logLine("ERROR", msg, kv...) }

func logLine(level, msg string, kv ...interface{}) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", level, msg)
	for i := 0; i+1 < len(kv); i += 2 {
		fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
	}
	fmt.Fprintln(os.Stderr, b.String())
}
