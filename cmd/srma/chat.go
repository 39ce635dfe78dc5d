package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/tecem/srma/internal/attachment"
	"github.com/tecem/srma/internal/backend"
	"github.com/tecem/srma/internal/chat"
	"github.com/tecem/srma/internal/chatlog"
	"github.com/tecem/srma/internal/domain"
	"github.com/tecem/srma/internal/nav"
	"github.com/tecem/srma/internal/roles"
)

type resolution struct {
	res roles.Result
	err error
}

func (a *app) runChat(ctx context.Context) error {
	sess, err := a.session.Load(ctx)
	if err != nil {
		return err
	}
	if !sess.Authenticated() {
		a.nav.Redirect(nav.Login)
		fmt.Fprintln(a.out, "Inicie sesión con `srma login --google-token TOKEN`.")
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var recorder chat.Recorder
	if a.cfg.ChatLog.Enabled {
		rec, err := chatlog.New(chatlog.Config{Dir: a.cfg.ChatLog.Dir, QueueSize: a.cfg.ChatLog.QueueSize}, a.logger)
		if err != nil {
			return err
		}
		defer func() {
			if closeErr := rec.Close(); closeErr != nil {
				a.logger.Error("Failed to close chat log", "error", closeErr)
			}
		}()
		a.logger.Info("Recording transcript", "path", rec.Path())
		recorder = rec
	}

	cm := chat.NewManager(sess.Role, chat.Options{
		Sender:   a.client,
		Tokens:   a.session,
		Agents:   chat.Agents{Interviewer: a.cfg.AgentID, Evaluator: a.cfg.AgentID},
		Recorder: recorder,
		OnAuthError: func(ctx context.Context) {
			if err := a.session.Clear(ctx); err != nil {
				a.logger.Error("Failed to clear session", "error", err)
			}
			a.nav.Redirect(nav.Login)
		},
		Logger: a.logger,
	})
	defer cm.Close()
	pipeline := attachment.New(cm, a.client, a.session, a.nav, a.logger)

	renderFlags(a.out, sess.Role)
	fmt.Fprintln(a.out)
	renderTranscript(a.out, cm.Messages())

	// The view is usable with the stored role while the backend confirms it.
	resolved := make(chan resolution, 1)
	a.resolver.ResolveAsync(ctx, func(res roles.Result, err error) {
		resolved <- resolution{res: res, err: err}
	})

	lines := make(chan string)
	go scanLines(ctx, a.in, lines)

	for {
		select {
		case <-ctx.Done():
			return nil

		case r := <-resolved:
			if r.err != nil {
				return r.err
			}
			if r.res.Redirected {
				fmt.Fprintln(a.out, errorStyle.Render("Su sesión ha expirado."))
				return nil
			}
			if r.res.Stale {
				fmt.Fprintln(a.out, warnStyle.Render("No se pudo verificar el rol; se mantiene "+string(r.res.Role)+"."))
			}
			if cm.Reseed(r.res.Role) {
				fmt.Fprintln(a.out)
				renderFlags(a.out, r.res.Role)
				renderTranscript(a.out, cm.Messages())
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if quit := a.handleLine(ctx, cm, pipeline, line); quit {
				return nil
			}
			if a.nav.Current() == nav.Login {
				return nil
			}
		}
	}
}

// handleLine runs one REPL input and prints the messages it produced.
func (a *app) handleLine(ctx context.Context, cm *chat.Manager, p *attachment.Pipeline, line string) bool {
	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "/quit" || trimmed == "/salir":
		return true
	case trimmed == "/roles":
		renderFlags(a.out, cm.Role())
		return false
	case trimmed == "/attach" || strings.HasPrefix(trimmed, "/attach "):
		before := len(cm.Messages())
		path, text, _ := strings.Cut(strings.TrimSpace(strings.TrimPrefix(trimmed, "/attach")), " ")
		if err := a.attach(ctx, p, path, text); err != nil {
			a.logger.Debug("attachment failed", "error", err)
			if errors.Is(err, attachment.ErrUploadInFlight) {
				fmt.Fprintln(a.out, warnStyle.Render("Ya hay un archivo subiéndose."))
			}
		}
		a.printSince(cm, before)
		return false
	}

	before := len(cm.Messages())
	if _, err := cm.SendText(ctx, line); err != nil && !errors.Is(err, chat.ErrEmptyInput) {
		a.logger.Debug("send failed", "error", err)
	}
	a.printSince(cm, before)
	return false
}

func (a *app) attach(ctx context.Context, p *attachment.Pipeline, path, text string) error {
	if path == "" {
		fmt.Fprintln(a.out, warnStyle.Render("Uso: /attach <ruta> [mensaje]"))
		return nil
	}
	upload, closeFn, err := openUpload(path)
	if err != nil {
		fmt.Fprintln(a.out, errorStyle.Render("No se pudo abrir el archivo: "+err.Error()))
		return err
	}
	defer closeFn()

	_, err = p.AttachAndSend(ctx, upload, text)
	if err != nil && backend.IsAuthError(err) {
		fmt.Fprintln(a.out, errorStyle.Render("Su sesión ha expirado."))
	}
	return err
}

func (a *app) printSince(cm *chat.Manager, before int) {
	msgs := cm.Messages()
	if before > len(msgs) {
		before = 0
	}
	renderTranscript(a.out, msgs[before:])
}

// openUpload opens a local file and derives its upload name and content type.
func openUpload(path string) (domain.PendingUpload, func(), error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.PendingUpload{}, nil, err
	}
	closeFn := func() { _ = f.Close() }

	info, err := f.Stat()
	if err != nil {
		closeFn()
		return domain.PendingUpload{}, nil, err
	}
	if info.IsDir() {
		closeFn()
		return domain.PendingUpload{}, nil, fmt.Errorf("%s is a directory", path)
	}

	contentType, err := detectContentType(f)
	if err != nil {
		closeFn()
		return domain.PendingUpload{}, nil, err
	}

	return domain.PendingUpload{
		FileName:    filepath.Base(path),
		ContentType: contentType,
		Size:        info.Size(),
		Body:        f,
	}, closeFn, nil
}

func detectContentType(f *os.File) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(f.Name())); ct != "" {
		return ct, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}

func scanLines(ctx context.Context, in io.Reader, lines chan<- string) {
	defer close(lines)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		select {
		case lines <- sc.Text():
		case <-ctx.Done():
			return
		}
	}
}
