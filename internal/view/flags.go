// Package view derives what the landing screen shows for a role.
package view

import "github.com/tecem/srma/internal/domain"

// Flags are the role-gated sections of the landing view.
type Flags struct {
	ShowCreateProjectButton   bool
	ShowSavedProjects         bool
	ShowHotspotColumn         bool
	EnableAddSimulationButton bool
	ShowInterviewerAgent      bool
	ShowEvaluatorAgent        bool
}

// Compose returns the flags for a role. Only professionals manage projects.
func Compose(role domain.Role) Flags {
	professional := role == domain.RoleProfessional
	return Flags{
		ShowCreateProjectButton:   professional,
		ShowSavedProjects:         professional,
		ShowHotspotColumn:         professional,
		EnableAddSimulationButton: professional,
		ShowInterviewerAgent:      role == domain.RoleStandard,
		ShowEvaluatorAgent:        role == domain.RoleProfessional || role == domain.RoleConsultant,
	}
}

var demoProjects = []string{
	"Auditoría de Seguridad de Red",
	"Evaluación de Riesgos de Instalaciones",
	"Evaluación de Protección de Datos",
	"Revisión de Seguridad de la Cadena de Suministro",
}

// SavedProjects lists the projects visible with the given flags.
func SavedProjects(f Flags) []string {
	if !f.ShowSavedProjects {
		return nil
	}
	return append([]string(nil), demoProjects...)
}

// RiskLevel is a banded label for a risk percentage.
type RiskLevel struct {
	Label string
	Color string
}

// Risk bands, inclusive upper bounds.
var (
	RiskLow        = RiskLevel{Label: "Riesgo Bajo", Color: "#4CAF50"}
	RiskLowMedium  = RiskLevel{Label: "Riesgo Bajo-Medio", Color: "#FFEB3B"}
	RiskMediumHigh = RiskLevel{Label: "Riesgo Medio-Alto", Color: "#FF9800"}
	RiskHigh       = RiskLevel{Label: "Riesgo Alto", Color: "#F44336"}
)

// Risk bands a percentage: ≤25 low, ≤50 low-medium, ≤75 medium-high, else high.
func Risk(percent int) RiskLevel {
	switch {
	case percent <= 25:
		return RiskLow
	case percent <= 50:
		return RiskLowMedium
	case percent <= 75:
		return RiskMediumHigh
	default:
		return RiskHigh
	}
}
