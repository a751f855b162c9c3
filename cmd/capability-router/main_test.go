package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/sophia-ai/capability-router/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := execute(t, "token", "--subject", "ci")
	require.NoError(t, err)

	claims, err := service.NewTokenAuthority("cli-secret", time.Minute).Validate(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "ci", claims.Sub)
}

func TestTokenCommand_NoSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := execute(t, "token")
	assert.Error(t, err)
}

func TestRegistryCommand_BuiltIn(t *testing.T) {
	t.Setenv("REGISTRY_FILE", "")

	out, err := execute(t, "registry")
	require.NoError(t, err)

	assert.Contains(t, out, "qdrant_admin")
	assert.Contains(t, out, "vector_search")
	assert.Contains(t, out, "capability records")
}

func TestRegistryCommand_MissingFile(t *testing.T) {
	_, err := execute(t, "registry", "--file", t.TempDir()+"/absent.yaml")
	assert.Error(t, err)
}
