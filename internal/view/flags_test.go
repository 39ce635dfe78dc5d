package view

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tecem/srma/internal/domain"
)

func TestComposeProfessionalFromBackendCode(t *testing.T) {
	f := Compose(domain.RoleFromCode("2"))

	assert.True(t, f.ShowCreateProjectButton)
	assert.True(t, f.ShowHotspotColumn)
	assert.True(t, f.ShowSavedProjects)
	assert.True(t, f.EnableAddSimulationButton)
	assert.False(t, f.ShowInterviewerAgent)
	assert.True(t, f.ShowEvaluatorAgent)
	assert.Len(t, SavedProjects(f), 4)
}

func TestComposeOtherRoles(t *testing.T) {
	standard := Compose(domain.RoleStandard)
	assert.True(t, standard.ShowInterviewerAgent)
	assert.False(t, standard.ShowCreateProjectButton)
	assert.Empty(t, SavedProjects(standard))

	consultant := Compose(domain.RoleConsultant)
	assert.True(t, consultant.ShowEvaluatorAgent)
	assert.False(t, consultant.ShowHotspotColumn)

	assert.Equal(t, Flags{}, Compose(domain.RoleGuest))
}

func TestSavedProjectsReturnsCopy(t *testing.T) {
	f := Compose(domain.RoleProfessional)
	p := SavedProjects(f)
	p[0] = "changed"
	assert.Equal(t, "Auditoría de Seguridad de Red", SavedProjects(f)[0])
}

func TestRiskBands(t *testing.T) {
	cases := map[int]RiskLevel{
		0: RiskLow, 25: RiskLow, 26: RiskLowMedium, 50: RiskLowMedium,
		51: RiskMediumHigh, 75: RiskMediumHigh, 76: RiskHigh, 100: RiskHigh,
	}
	for pct, want := range cases {
		assert.Equal(t, want, Risk(pct), "percent %d", pct)
	}
}
