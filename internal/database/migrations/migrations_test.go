package migrations

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrationsAreOrderedAndUnique(t *testing.T) {
	list := List()
	assert.Len(t, list, 5)

	seen := make(map[string]bool)
	for i, m := range list {
		assert.False(t, seen[m.ID], "duplicate migration %s", m.ID)
		seen[m.ID] = true
		assert.NotNil(t, m.Migrate)
		assert.NotNil(t, m.Rollback)
		if i > 0 {
			assert.True(t, strings.Compare(list[i-1].ID, m.ID) < 0, "migration %s out of order", m.ID)
		}
	}
}
