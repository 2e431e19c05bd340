package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "civicledger/internal/jwt_token"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestClassifyCommand(t *testing.T) {
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(execute(t, "classify", "power", "outage", "downtown")), &got))
	assert.Equal(t, "Electricity", got["category"])
	assert.Equal(t, "Critical", got["urgency"])
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SIGNING_KEY", "cli-test-key")
	addr := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	token := strings.TrimSpace(execute(t, "token", "--address", addr))
	claims, err := jwttoken.NewJWTService("cli-test-key", "civicledger", "civicledger-api").ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, addr, claims.Subject)
}

func TestSyncRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	rootCmd.SetArgs([]string{"sync", "--window", "5"})
	rootCmd.SetOut(&bytes.Buffer{})
	assert.ErrorContains(t, rootCmd.Execute(), "DATABASE_URL")
}
