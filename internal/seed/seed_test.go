package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogComplete(t *testing.T) {
	require.Len(t, Catalog, 8)

	seen := map[string]bool{}
	for _, subject := range Catalog {
		assert.NotEmpty(t, subject.ID)
		assert.NotEmpty(t, subject.Name)
		assert.NotEmpty(t, subject.Description)
		assert.NotEmpty(t, subject.Icon)
		assert.False(t, seen[subject.ID], "duplicate subject id %s", subject.ID)
		seen[subject.ID] = true
	}
}
