package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// Optional .env next to the working directory; real env vars win.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cmd, args := os.Args[1], os.Args[2:]
	if cmd == "-h" || cmd == "-help" || cmd == "help" {
		usage()
		return
	}

	closeLog, err := setupLogger(os.Getenv("FILMKU_LOG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cmd, args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	switch cmd {
	case "list":
		return cmdList(args)
	case "add":
		return cmdAdd(args)
	case "edit":
		return cmdEdit(args)
	case "delete":
		return cmdDelete(args)
	case "login":
		return cmdLogin(args)
	case "logout":
		return cmdLogout(args)
	case "whoami":
		return cmdWhoami(args)
	default:
		usage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func usage() {
	fmt.Fprint(os.Stdout, `Usage: filmku <command> [flags]

Commands:
  list             show the film catalog
  add              add a film (requires sign-in)
  edit             edit one of your films
  delete           delete one of your films
  login            sign in with a Google ID token
  logout           sign out and forget the stored session
  whoami           show the signed-in account

Environment:
  FILMKU_API_URL   catalog service base URL (also -api flag)
  FILMKU_ID_TOKEN  Google ID token for login (also -token flag)
  FILMKU_DB        local database path (default: per-user config dir)
  FILMKU_LOG       log file path (default: no file, stdout/stderr only)

A .env file in the working directory is loaded if present.

Run 'filmku <command> -h' for command flags.
`)
}

// levelRouter is a slog.Handler that routes WARN to stdout and ERROR+ to
// stderr, so scripted use can separate diagnostics from failures.
type levelRouter struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (lr *levelRouter) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelWarn
}

func (lr *levelRouter) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelError {
		return lr.stderr.Handle(ctx, r)
	}
	return lr.stdout.Handle(ctx, r)
}

func (lr *levelRouter) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithAttrs(attrs),
		stderr: lr.stderr.WithAttrs(attrs),
	}
}

func (lr *levelRouter) WithGroup(name string) slog.Handler {
	return &levelRouter{
		stdout: lr.stdout.WithGroup(name),
		stderr: lr.stderr.WithGroup(name),
	}
}

// setupLogger configures structured logging. WARN goes to stdout, ERROR to
// stderr; an interactive CLI stays quiet below that. If logPath is non-empty,
// all output is also written to that file. Returns a cleanup function that
// closes the log file (if opened).
func setupLogger(logPath string) (func(), error) {
	opts := &slog.HandlerOptions{Level: slog.LevelWarn}

	var cleanup func()

	stdoutW := io.Writer(os.Stdout)
	stderrW := io.Writer(os.Stderr)

	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		cleanup = func() { f.Close() }
		stdoutW = io.MultiWriter(os.Stdout, f)
		stderrW = io.MultiWriter(os.Stderr, f)
	}

	handler := &levelRouter{
		stdout: slog.NewTextHandler(stdoutW, opts),
		stderr: slog.NewTextHandler(stderrW, opts),
	}
	slog.SetDefault(slog.New(handler))
	return cleanup, nil
}
