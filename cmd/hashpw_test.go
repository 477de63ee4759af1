package cmd

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashpwCommand(t *testing.T) {
	passwords := []string{"wrong", "mismatch", "testpassword", "testpassword"}
	passwordIndex := 0

	customPasswordReader = func() ([]byte, error) {
		if passwordIndex >= len(passwords) {
			return nil, fmt.Errorf("no more passwords")
		}
		password := passwords[passwordIndex]
		passwordIndex++
		return []byte(password), nil
	}
	t.Cleanup(
		func() {
			customPasswordReader = nil
		},
	)

	out := &bytes.Buffer{}
	hashpwCmd.SetOut(out)

	hashpwCmd.Run(hashpwCmd, nil)

	output := out.String()
	assert.Contains(t, output, "Passwords do not match")

	lines := strings.Split(strings.TrimSpace(output), "\n")
	hash := lines[len(lines)-1]
	require.True(
		t,
		strings.HasPrefix(strings.TrimSpace(hash), "$argon2id$"),
		"expected an argon2id hash, got: %q",
		hash,
	)
}
