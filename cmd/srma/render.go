package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tecem/srma/internal/domain"
	"github.com/tecem/srma/internal/nav"
	"github.com/tecem/srma/internal/view"
)

var (
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	agentStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("114")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
)

// terminalNavigator prints route changes and remembers the latest one.
type terminalNavigator struct {
	*nav.Recorder
	out io.Writer
}

func newTerminalNavigator(out io.Writer) *terminalNavigator {
	return &terminalNavigator{Recorder: nav.NewRecorder(nav.Home), out: out}
}

func (n *terminalNavigator) Redirect(to nav.Route) {
	n.Recorder.Redirect(to)
	fmt.Fprintln(n.out, mutedStyle.Render("→ "+string(to)))
}

func renderMessage(m domain.ChatMessage) string {
	var b strings.Builder
	switch m.Sender {
	case domain.SenderUser:
		b.WriteString(userStyle.Render("Tú"))
	default:
		b.WriteString(agentStyle.Render("Agente"))
	}
	b.WriteString(mutedStyle.Render(fmt.Sprintf(" #%d", m.ID)))
	b.WriteString(": ")
	if strings.HasPrefix(m.Text, "Error") {
		b.WriteString(errorStyle.Render(m.Text))
	} else {
		b.WriteString(m.Text)
	}
	if m.Attachment != nil {
		b.WriteString("\n    ")
		b.WriteString(renderAttachment(*m.Attachment))
	}
	return b.String()
}

func renderAttachment(a domain.AttachmentRef) string {
	label := "📎 " + a.FileName
	switch a.Status {
	case domain.AttachmentSuccess:
		return agentStyle.Render(label+" ✓") + " " + mutedStyle.Render(a.RemoteURL)
	case domain.AttachmentFailed:
		return errorStyle.Render(label + " ✗")
	default:
		return warnStyle.Render(label + " …")
	}
}

func renderTranscript(out io.Writer, msgs []domain.ChatMessage) {
	for _, m := range msgs {
		fmt.Fprintln(out, renderMessage(m))
	}
}

func renderRole(role domain.Role) string {
	return sectionStyle.Render("Rol: ") + string(role)
}

func renderFlags(out io.Writer, role domain.Role) {
	f := view.Compose(role)
	fmt.Fprintln(out, renderRole(role))

	agent := "ninguno"
	switch {
	case f.ShowInterviewerAgent:
		agent = "entrevistador"
	case f.ShowEvaluatorAgent:
		agent = "evaluador"
	}
	fmt.Fprintf(out, "%s %s\n", mutedStyle.Render("Agente:"), agent)

	projects := view.SavedProjects(f)
	fmt.Fprintln(out, sectionStyle.Render("Proyectos guardados"))
	if len(projects) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  No hay proyectos disponibles para su nivel de usuario."))
	}
	for _, p := range projects {
		fmt.Fprintf(out, "  • %s\n", p)
	}
	if f.ShowCreateProjectButton {
		fmt.Fprintln(out, mutedStyle.Render("  (puede crear proyectos en "+string(nav.CreateProject)+")"))
	}
	if f.ShowHotspotColumn {
		fmt.Fprintln(out, sectionStyle.Render("Simulaciones")+mutedStyle.Render(" (habilitadas)"))
	}
}

func renderUsers(out io.Writer, users []domain.ManagedUser) {
	row := func(cols ...string) string {
		widths := []int{10, 28, 14, 10, 12}
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = lipgloss.NewStyle().Width(widths[i]).MaxWidth(widths[i]).Render(c)
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
	}

	fmt.Fprintln(out, headerStyle.Render(row("ID", "Email", "Rol", "Estado", "Registro")))
	for _, u := range users {
		status := agentStyle.Render(u.StatusLabel())
		if !u.Active {
			status = errorStyle.Render(u.StatusLabel())
		}
		fmt.Fprintln(out, row(u.ID, u.Email, string(u.Role), status, u.CreatedAt))
	}
}

func renderSimulation(out io.Writer, sim view.Simulation) {
	fmt.Fprintf(out, "%s %s\n", sectionStyle.Render(sim.Name), mutedStyle.Render(sim.Date))
	for _, c := range sim.Charts {
		level := c.Level()
		badge := lipgloss.NewStyle().Foreground(lipgloss.Color(level.Color)).
			Render(fmt.Sprintf("%d%% %s", c.Risk, level.Label))
		fmt.Fprintf(out, "  %-28s %s\n", c.Title, badge)
	}
}

func renderDraft(out io.Writer, d view.ProjectDraft) {
	fmt.Fprintln(out, sectionStyle.Render(d.Name))
	if d.Description != "" {
		fmt.Fprintln(out, d.Description)
	}
	fmt.Fprintln(out, sectionStyle.Render("Archivos adjuntos"))
	if len(d.Files) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("  (ninguno)"))
	}
	for _, f := range d.Files {
		fmt.Fprintf(out, "  📎 %s\n", f)
	}
}
