// Package cache stores schema-aware SQL generations so repeated questions
// against the same dataset skip the model.
package cache

import (
	"context"
	"encoding/hex"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/ekaya-inc/ekaya-insight/pkg/models"
)

// KeyPrefix namespaces cache entries in a shared Redis.
const KeyPrefix = "insight:gen:"

// QueryCache looks up and stores generated queries.
type QueryCache interface {
	Get(ctx context.Context, key string) (*models.GeneratedQuery, bool, error)
	Set(ctx context.Context, key string, q *models.GeneratedQuery) error
}

// Key derives the cache key for a question against a table and schema. The
// question is lowercased and whitespace-collapsed first so trivially
// different phrasings share an entry.
func Key(dialect, table string, schema *models.TableSchema, question string) string {
	h := murmur3.New128()
	for _, part := range []string{dialect, table, schema.Fingerprint(), normalizeQuestion(question)} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return KeyPrefix + hex.EncodeToString(h.Sum(nil))
}

func normalizeQuestion(q string) string {
	return strings.Join(strings.Fields(strings.ToLower(q)), " ")
}

// NoopCache never hits. Used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) Get(context.Context, string) (*models.GeneratedQuery, bool, error) {
	return nil, false, nil
}

func (NoopCache) Set(context.Context, string, *models.GeneratedQuery) error {
	return nil
}
