package chat

import "github.com/tecem/srma/internal/domain"

// SeedMessage is an initial transcript entry.
type SeedMessage struct {
	Sender domain.Sender
	Text   string
}

const (
	interviewerGreeting = "¡Hola! Soy el Asistente de Gestión de Riesgos de Seguridad. Ayudaré a evaluar amenazas y vulnerabilidades de seguridad. Por favor, proporcione una descripción general de su red."
	interviewerPrompt   = "Nuestra red incluye firewalls y protocolos de cifrado."
	evaluatorGreeting   = "¡Hola de nuevo! ¿En qué puedo ayudarte con el análisis de esta auditoría?"
	evaluatorPrompt     = "Quisiera explorar los riesgos identificados con diferentes perfiles."
)

// Seed returns the initial transcript for a role. Guests start empty.
func Seed(role domain.Role) []SeedMessage {
	switch role {
	case domain.RoleStandard:
		return []SeedMessage{
			{Sender: domain.SenderAgent, Text: interviewerGreeting},
			{Sender: domain.SenderUser, Text: interviewerPrompt},
		}
	case domain.RoleProfessional, domain.RoleConsultant:
		return []SeedMessage{
			{Sender: domain.SenderAgent, Text: evaluatorGreeting},
			{Sender: domain.SenderUser, Text: evaluatorPrompt},
		}
	default:
		return nil
	}
}

// Agents maps each persona to its backend agent id.
type Agents struct {
	Interviewer string
	Evaluator   string
}

// DefaultAgents uses the single agent the backend exposes today.
func DefaultAgents() Agents {
	return Agents{Interviewer: "0", Evaluator: "0"}
}

// For returns the agent id a role talks to.
func (a Agents) For(role domain.Role) string {
	switch role {
	case domain.RoleProfessional, domain.RoleConsultant:
		return a.Evaluator
	default:
		return a.Interviewer
	}
}
