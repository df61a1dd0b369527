package testhelpers

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

func TestGenerateTestJWT(t *testing.T) {
	token := GenerateTestJWT("user-1", "a@example.com", "")

	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[2] != "" {
		t.Fatalf("expected unsigned three-part token, got %q", token)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	var claims map[string]string
	if err := json.Unmarshal(payload, &claims); err != nil {
		t.Fatalf("failed to unmarshal payload: %v", err)
	}
	if claims["sub"] != "user-1" || claims["email"] != "a@example.com" {
		t.Errorf("unexpected claims %v", claims)
	}
	if _, ok := claims["name"]; ok {
		t.Error("expected empty name to be omitted")
	}
}
