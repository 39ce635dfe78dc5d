package view

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

// ErrSimulationNotFound is returned for an unknown simulation id.
var ErrSimulationNotFound = errors.New("simulation not found")

// Chart is one risk chart of a simulation.
type Chart struct {
	ID    string
	Title string
	Risk  int
}

// Level returns the chart's risk band.
func (c Chart) Level() RiskLevel {
	return Risk(c.Risk)
}

// Simulation is a saved risk simulation of a project.
type Simulation struct {
	ID     string
	Name   string
	Date   string
	Charts []Chart
}

var demoSimulations = []Simulation{
	{
		ID: "sim-1", Name: "Simulación Inicial", Date: "2025-06-10",
		Charts: []Chart{
			{ID: "chart1", Title: "Riesgo de Phishing", Risk: 15},
			{ID: "chart2", Title: "Vulnerabilidad de Servidor", Risk: 40},
			{ID: "chart3", Title: "Riesgo de Malware", Risk: 70},
			{ID: "chart4", Title: "Fuga de Datos Interna", Risk: 85},
		},
	},
	{
		ID: "sim-2", Name: "Simulación Post-Parches", Date: "2025-06-12",
		Charts: []Chart{
			{ID: "chart1", Title: "Riesgo de Firewall", Risk: 10},
			{ID: "chart2", Title: "Configuración Insegura", Risk: 25},
			{ID: "chart3", Title: "Acceso No Autorizado", Risk: 55},
			{ID: "chart4", Title: "Análisis de Red", Risk: 65},
		},
	},
	{
		ID: "sim-3", Name: "Simulación Semanal", Date: "2025-06-15",
		Charts: []Chart{
			{ID: "chart1", Title: "Ataques Web", Risk: 5},
			{ID: "chart2", Title: "Conexiones Maliciosas", Risk: 18},
			{ID: "chart3", Title: "Ingeniería Social", Risk: 45},
		},
	},
}

// Simulations lists the simulations visible with the given flags.
// Only the hotspot column shows them.
func Simulations(f Flags) []Simulation {
	if !f.ShowHotspotColumn {
		return nil
	}
	out := make([]Simulation, len(demoSimulations))
	for i, s := range demoSimulations {
		s.Charts = append([]Chart(nil), s.Charts...)
		out[i] = s
	}
	return out
}

// FindSimulation returns the simulation with id, or the first one when id is empty.
func FindSimulation(f Flags, id string) (Simulation, error) {
	sims := Simulations(f)
	if len(sims) == 0 {
		return Simulation{}, ErrSimulationNotFound
	}
	if id == "" {
		return sims[0], nil
	}
	for _, s := range sims {
		if s.ID == id {
			return s, nil
		}
	}
	return Simulation{}, fmt.Errorf("%w: %s", ErrSimulationNotFound, id)
}

// DefaultProjectName is the name a new project starts with.
const DefaultProjectName = "Nombre del Proyecto"

// ProjectDraft is a project being created, before it is sent for analysis.
type ProjectDraft struct {
	Name        string
	Description string
	Files       []string
}

// NewProjectDraft builds a draft; a blank name falls back to DefaultProjectName
// and files are reduced to their base names.
func NewProjectDraft(name, description string, files []string) ProjectDraft {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultProjectName
	}
	d := ProjectDraft{Name: name, Description: strings.TrimSpace(description)}
	for _, f := range files {
		if f = strings.TrimSpace(f); f != "" {
			d.Files = append(d.Files, path.Base(strings.ReplaceAll(f, `\`, "/")))
		}
	}
	return d
}
