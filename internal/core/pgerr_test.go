// AngelaMos | 2026
// pgerr_test.go

package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsNotFound(t *testing.T) {
	malformed := fmt.Errorf("get space: %w", &pgconn.PgError{
		Code:    "22P02",
		Message: `invalid input syntax for type uuid: "not-a-uuid"`,
	})

	assert.True(t, IsNotFound(fmt.Errorf("get post: %w", ErrNotFound)))
	assert.True(t, IsNotFound(malformed))
	assert.True(t, IsInvalidTextError(malformed))
	assert.False(t, IsNotFound(&pgconn.PgError{Code: "23505"}))
	assert.False(t, IsNotFound(errors.New("connection reset")))
	assert.False(t, IsNotFound(nil))
}
