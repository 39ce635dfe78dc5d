package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/pflag"

	"github.com/tecem/srma/internal/domain"
	"github.com/tecem/srma/internal/nav"
	"github.com/tecem/srma/internal/view"
)

var errNotAllowed = errors.New("no disponible para su nivel de usuario")

// currentFlags revalidates the role and returns its view flags.
// ok is false when the user was sent to the login view.
func (a *app) currentFlags(ctx context.Context) (domain.Role, view.Flags, bool, error) {
	res, err := a.resolver.Resolve(ctx)
	if err != nil {
		return "", view.Flags{}, false, err
	}
	if res.Redirected {
		fmt.Fprintln(a.out, "No hay sesión activa.")
		return "", view.Flags{}, false, nil
	}
	return res.Role, view.Compose(res.Role), true, nil
}

func (a *app) runProjects(ctx context.Context, args []string) error {
	if len(args) > 0 && args[0] == "new" {
		return a.runNewProject(ctx, args[1:])
	}

	_, flags, ok, err := a.currentFlags(ctx)
	if err != nil || !ok {
		return err
	}
	if !flags.ShowSavedProjects {
		return fmt.Errorf("proyectos: %w", errNotAllowed)
	}

	fmt.Fprintln(a.out, sectionStyle.Render("Proyectos guardados"))
	for _, p := range view.SavedProjects(flags) {
		fmt.Fprintf(a.out, "  • %s\n", p)
	}
	fmt.Fprintln(a.out, sectionStyle.Render("Simulaciones"))
	for _, s := range view.Simulations(flags) {
		fmt.Fprintf(a.out, "  %s  %s %s\n", s.ID, s.Name, mutedStyle.Render("("+s.Date+")"))
	}
	return nil
}

func (a *app) runNewProject(ctx context.Context, args []string) error {
	var name, description string
	fs := pflag.NewFlagSet("projects new", pflag.ContinueOnError)
	fs.StringVar(&name, "name", "", "project name")
	fs.StringVar(&description, "description", "", "project description")
	if err := fs.Parse(args); err != nil {
		return err
	}

	_, flags, ok, err := a.currentFlags(ctx)
	if err != nil || !ok {
		return err
	}
	if !flags.ShowCreateProjectButton {
		return fmt.Errorf("crear proyecto: %w", errNotAllowed)
	}
	a.nav.Redirect(nav.CreateProject)

	draft := view.NewProjectDraft(name, description, fs.Args())
	renderDraft(a.out, draft)
	return nil
}

func (a *app) runAnalysis(ctx context.Context, args []string) error {
	if len(args) > 1 {
		return errors.New("usage: analysis [SIM-ID]")
	}
	id := ""
	if len(args) == 1 {
		id = args[0]
	}

	_, flags, ok, err := a.currentFlags(ctx)
	if err != nil || !ok {
		return err
	}
	if !flags.ShowHotspotColumn {
		return fmt.Errorf("análisis: %w", errNotAllowed)
	}

	sim, err := view.FindSimulation(flags, id)
	if err != nil {
		return err
	}
	a.nav.Redirect(nav.ProjectAnalysis)
	renderSimulation(a.out, sim)
	return nil
}
