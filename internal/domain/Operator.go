package domain

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Role define o que um operador pode fazer na API de operação.
type Role int

const (
	RoleAdmin  Role = 1
	RoleViewer Role = 2
)

func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "viewer":
		return RoleViewer, nil
	}
	return 0, fmt.Errorf("papel inválido: %q", s)
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleViewer:
		return "viewer"
	}
	return "unknown"
}

// Claims é o conteúdo do token de um operador. O Subject identifica quem
// disparou uma execução manual.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}
