package backend

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamedArgs_EmptyReturnsNil(t *testing.T) {
	assert.Nil(t, namedArgs(nil))
	assert.Nil(t, namedArgs(map[string]any{}))
}

func TestNamedArgs_WrapsEachParameter(t *testing.T) {
	args := namedArgs(map[string]any{"path": "/a/b.go"})
	if assert.Len(t, args, 1) {
		named, ok := args[0].(sql.NamedArg)
		if assert.True(t, ok) {
			assert.Equal(t, "path", named.Name)
			assert.Equal(t, "/a/b.go", named.Value)
		}
	}
}

func TestQuoteRole_WrapsInBackticks(t *testing.T) {
	assert.Equal(t, "`analyst`", quoteRole("analyst"))
}
