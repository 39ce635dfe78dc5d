package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ChatAttachment is one entry of the chat call's "adjuntos" array.
type ChatAttachment struct {
	Name      string `json:"name"`
	Extension string `json:"extension"`
	URL       string `json:"url"`
}

// ChatRequest is the body of PUT /agent/chat.
type ChatRequest struct {
	AgentID     string           `json:"idagente"`
	Message     string           `json:"msg"`
	Attachments []ChatAttachment `json:"adjuntos,omitempty"`
}

// ChatResponse is the agent reply. Response is empty when the field was absent.
type ChatResponse struct {
	Response string `json:"response"`
}

// UploadTarget is the signed upload descriptor.
type UploadTarget struct {
	SignedURL string `json:"signedUrl"`
	PublicURL string `json:"publicUrl"`
}

type uploadURLRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

// UserRecord is a row of GET /management/user/.
type UserRecord struct {
	ID    Code   `json:"idusuario"`
	Email string `json:"email"`
	Rol   struct {
		Code Code   `json:"codrol"`
		Name string `json:"rol"`
	} `json:"rol"`
	Status       string `json:"estado"`
	RegisteredAt string `json:"fecregistro"`
}

type userListResponse struct {
	Users []UserRecord `json:"users"`
}

// LoginResponse is the reply of POST /auth/google/token.
type LoginResponse struct {
	Token string `json:"token"`
	Role  Code   `json:"role"`
}

// Profile is the normalized reply of GET /api/user/profile.
type Profile struct {
	RoleCode string
}

// Code is a backend identifier that may arrive as a JSON string or number.
type Code string

// UnmarshalJSON accepts "2", 2 and null.
func (c *Code) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*c = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*c = Code(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("code must be a string or number: %w", err)
	}
	*c = Code(n.String())
	return nil
}

// ParseProfileRole extracts the role code from either the flat {"role": ...}
// or the nested {"rol": {"codrol": ...}} profile shape.
func ParseProfileRole(body []byte) (string, error) {
	var shape struct {
		Role *Code `json:"role"`
		Rol  *struct {
			Code *Code `json:"codrol"`
		} `json:"rol"`
	}
	if err := json.Unmarshal(body, &shape); err != nil {
		return "", fmt.Errorf("%w: %v", ErrRoleUnrecognized, err)
	}
	if shape.Role != nil && *shape.Role != "" {
		return string(*shape.Role), nil
	}
	if shape.Rol != nil && shape.Rol.Code != nil && *shape.Rol.Code != "" {
		return string(*shape.Rol.Code), nil
	}
	return "", ErrRoleUnrecognized
}
