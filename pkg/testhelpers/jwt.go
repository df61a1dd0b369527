// Package testhelpers provides utilities for testing ekaya-mindmap components.
package testhelpers

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// GenerateTestJWT creates an unsigned JWT (alg: none) for use when
// verification is disabled. Empty email or name are omitted.
func GenerateTestJWT(sub, email, name string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"none","typ":"JWT"}`))

	claims := map[string]string{"sub": sub}
	if email != "" {
		claims["email"] = email
	}
	if name != "" {
		claims["name"] = name
	}
	payload, _ := json.Marshal(claims)

	return fmt.Sprintf("%s.%s.", header, base64.RawURLEncoding.EncodeToString(payload))
}

// GenerateTestJWTWithBearer returns token with "Bearer " prefix for Authorization header.
func GenerateTestJWTWithBearer(sub, email, name string) string {
	return "Bearer " + GenerateTestJWT(sub, email, name)
}
