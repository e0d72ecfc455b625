package repositories

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// The challenge queries are assembled from a shared column list; a missing
// separator would fuse the last column into the FROM keyword and break
// every read of the challenge store.
func TestChallengeQueriesAreWellFormed(t *testing.T) {
	queries := map[string]string{
		"list": listChallengesQuery,
		"get":  getChallengeQuery,
	}

	for name, query := range queries {
		fields := strings.Fields(query)
		assert.Contains(t, fields, "SELECT", name)
		assert.Contains(t, fields, "FROM", name)
		assert.Contains(t, fields, "challenges", name)
		assert.Contains(t, fields, "ends_at", name, "the last column must not fuse into FROM")
	}
}
