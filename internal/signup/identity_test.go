// File: internal/signup/identity_test.go
package signup

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIdentity(t *testing.T) {
	t.Parallel()

	for i := 0; i < 50; i++ {
		id := NewIdentity()

		assert.NotEmpty(t, id.FirstName)
		assert.NotEmpty(t, id.LastName)
		assert.GreaterOrEqual(t, id.BirthDay, 1)
		assert.LessOrEqual(t, id.BirthDay, 28, "day must be valid in every month")
		assert.GreaterOrEqual(t, id.BirthMonth, 1)
		assert.LessOrEqual(t, id.BirthMonth, 12)
		assert.GreaterOrEqual(t, id.BirthYear, 1985)
		assert.LessOrEqual(t, id.BirthYear, 2005)
		assert.Len(t, id.Password, 16)

		assert.Equal(t, strings.ToLower(id.Username), id.Username)
		assert.Contains(t, id.Username, fmt.Sprintf("%02d%d", id.BirthMonth, id.BirthYear))
	}
}

func TestIdentity_RegenerateUsername(t *testing.T) {
	t.Parallel()
	id := NewIdentity()
	original := id.Username

	id.RegenerateUsername()
	assert.NotEqual(t, original, id.Username)
	assert.True(t, strings.HasPrefix(id.Username, original),
		"regenerated username keeps the derived base and appends a suffix")
}

func TestIdentity_Email(t *testing.T) {
	t.Parallel()
	id := Identity{Username: "janedoe071990"}
	assert.Equal(t, "janedoe071990@gmail.com", id.Email("gmail.com"))
}
