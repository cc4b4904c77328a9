package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSingularize(t *testing.T) {
	cases := map[string]string{
		"users":      "user",
		"categories": "category",
		"addresses":  "address",
		"post":       "post",
	}
	for in, want := range cases {
		assert.Equal(t, want, singularize(in), in)
	}
}

func TestTitleCase(t *testing.T) {
	assert.Equal(t, "User", titleCase("user"))
	assert.Equal(t, "UserProfile", titleCase("user_profile"))
	assert.Equal(t, "", titleCase(""))
}

func TestForeignKeyRefs_ExactlyTwoIDColumns(t *testing.T) {
	refs := foreignKeyRefs("follows", []ColumnInfo{
		{Name: "follower_id", Type: "UInt64"},
		{Name: "followee_id", Type: "UInt64"},
	})
	assert.Len(t, refs, 2)
	assert.Equal(t, "follower_id", refs[0].column)
	assert.Equal(t, "follower", refs[0].referent)
}

func TestForeignKeyRefs_WrongCountReturnsNil(t *testing.T) {
	assert.Nil(t, foreignKeyRefs("users", []ColumnInfo{{Name: "org_id", Type: "UInt64"}}))
	assert.Nil(t, foreignKeyRefs("users", nil))
}

func TestPrimaryIDColumn_PrefersIntrospectedPrimaryKey(t *testing.T) {
	table := IntrospectedTable{
		Table:          "users",
		PrimaryKeyCols: []string{"id"},
		Columns:        []ColumnInfo{{Name: "id", Type: "UInt64"}, {Name: "name", Type: "String"}},
	}
	assert.Equal(t, "id", primaryIDColumn(table))
}

func TestPrimaryIDColumn_FallsBackToNamingHeuristic(t *testing.T) {
	table := IntrospectedTable{
		Table:   "users",
		Columns: []ColumnInfo{{Name: "user_id", Type: "UInt64"}, {Name: "name", Type: "String"}},
	}
	assert.Equal(t, "user_id", primaryIDColumn(table))
}

func TestPrimaryIDColumn_DefaultsToID(t *testing.T) {
	table := IntrospectedTable{Table: "events", Columns: []ColumnInfo{{Name: "payload", Type: "String"}}}
	assert.Equal(t, "id", primaryIDColumn(table))
}
