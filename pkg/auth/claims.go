package auth

import "github.com/golang-jwt/jwt/v5"

// ServiceTokenPayload captures the data available when minting a service token.
type ServiceTokenPayload struct {
	Service string
	GuildID string
	JTI     string
}

// ServiceTokenClaims represents the typed JWT presented by collaborator services.
type ServiceTokenClaims struct {
	Service string `json:"service"`
	GuildID string `json:"guild_id,omitempty"`
	jwt.RegisteredClaims
}
