// srma is the terminal client of the Security Risk Management Assistant.
//
// It signs in through the backend's Google token exchange, keeps the
// session in a local SQLite file, and offers the chat view (with file
// attachments) and the administrator user panels.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/tecem/srma/internal/admin"
	"github.com/tecem/srma/internal/auth"
	"github.com/tecem/srma/internal/backend"
	"github.com/tecem/srma/internal/config"
	"github.com/tecem/srma/internal/roles"
	"github.com/tecem/srma/internal/session"
	"github.com/tecem/srma/internal/store"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	kv       store.KV
	session  *session.Manager
	client   *backend.Client
	nav      *terminalNavigator
	auth     *auth.Service
	resolver *roles.Resolver
	admin    *admin.Manager
	in       io.Reader
	out      io.Writer
}

func run(args []string, in io.Reader, out io.Writer) error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var (
		backendURL string
		dbPath     string
		ephemeral  bool
		logLevel   string
	)
	flagSet := pflag.NewFlagSet("srma", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVar(&backendURL, "backend", cfg.BackendURL, "backend base URL")
	flagSet.StringVar(&dbPath, "db", cfg.DBPath, "session database path")
	flagSet.BoolVar(&ephemeral, "ephemeral", false, "keep the session in memory only")
	flagSet.StringVar(&logLevel, "log-level", cfg.LogLevel.String(), "log level (debug, info, warn, error)")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printUsage(out, flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help || flagSet.NArg() == 0 {
		printUsage(out, flagSet)
		return nil
	}

	cfg.BackendURL = backendURL
	cfg.DBPath = dbPath
	if err := cfg.LogLevel.UnmarshalText([]byte(logLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, ephemeral, in, out)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.kv.Close(); closeErr != nil {
			a.logger.Error("Failed to close session store", "error", closeErr)
		}
	}()

	return a.dispatch(ctx, flagSet.Args())
}

func newApp(cfg *config.Config, ephemeral bool, in io.Reader, out io.Writer) (*app, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	var kv store.KV
	if ephemeral {
		kv = store.NewMemory()
	} else {
		sqlite, err := store.NewSQLite(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open session store: %w", err)
		}
		kv = sqlite
	}

	sm := session.NewManager(kv)
	client := backend.New(cfg.BackendURL, cfg.HTTPTimeout, logger)
	navigator := newTerminalNavigator(out)

	return &app{
		cfg:      cfg,
		logger:   logger,
		kv:       kv,
		session:  sm,
		client:   client,
		nav:      navigator,
		auth:     auth.NewService(sm, client, navigator, auth.AdminCredentials{User: cfg.AdminUser, Password: cfg.AdminPassword}, logger),
		resolver: roles.NewResolver(sm, client, navigator, logger),
		admin:    admin.NewManager(client, sm, logger),
		in:       in,
		out:      out,
	}, nil
}

func (a *app) dispatch(ctx context.Context, args []string) error {
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "login":
		return a.runLogin(ctx, rest)
	case "logout":
		if err := a.auth.Logout(ctx); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Sesión cerrada.")
		return nil
	case "whoami":
		return a.runWhoami(ctx)
	case "chat":
		return a.runChat(ctx)
	case "projects":
		return a.runProjects(ctx, rest)
	case "analysis":
		return a.runAnalysis(ctx, rest)
	case "admin":
		return a.runAdmin(ctx, rest)
	default:
		return fmt.Errorf("unknown command %q (try --help)", cmd)
	}
}

func (a *app) runLogin(ctx context.Context, args []string) error {
	var googleToken string
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	fs.StringVar(&googleToken, "google-token", "", "Google ID token (JWT credential)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if googleToken == "" {
		return errors.New("--google-token is required")
	}

	if err := a.auth.EnterLogin(ctx); err != nil {
		return err
	}
	sess, err := a.auth.LoginWithGoogle(ctx, googleToken)
	if err != nil {
		return fmt.Errorf("no se pudo iniciar sesión con Google: %w", err)
	}
	fmt.Fprintf(a.out, "Sesión iniciada como %s.\n", sess.Role)
	return nil
}

func (a *app) runWhoami(ctx context.Context) error {
	res, err := a.resolver.Resolve(ctx)
	if err != nil {
		return err
	}
	if res.Redirected {
		fmt.Fprintln(a.out, "No hay sesión activa.")
		return nil
	}
	if res.Stale {
		fmt.Fprintf(a.out, "%s\n", warnStyle.Render("No se pudo verificar el rol: "+res.Err.Error()))
	}
	fmt.Fprintln(a.out, renderRole(res.Role))
	return nil
}

func printUsage(out io.Writer, fs *pflag.FlagSet) {
	fmt.Fprintf(out, `Security Risk Management Assistant, terminal client.

Usage:
  srma [flags] login --google-token TOKEN
  srma [flags] logout
  srma [flags] whoami
  srma [flags] chat
  srma [flags] projects [new [--name N] [--description D] FILE...]
  srma [flags] analysis [SIM-ID]
  srma [flags] admin login|logout|users|status ID|role ID ROLE|delete ID

Flags:
%s`, fs.FlagUsages())
}
