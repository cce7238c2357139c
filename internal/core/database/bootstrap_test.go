package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/docingest/internal/core"
)

func TestRenderInitSQL(t *testing.T) {
	script, err := renderInitSQL("documents_collection", 768)
	require.NoError(t, err)

	assert.Contains(t, script, "CREATE EXTENSION IF NOT EXISTS vector;")
	assert.Contains(t, script, `CREATE TABLE IF NOT EXISTS "documents_collection"`)
	assert.Contains(t, script, "vector(768)")
	assert.Contains(t, script, `"documents_collection_embedding_idx"`)
	assert.Contains(t, script, "vector_cosine_ops")
}

func TestRenderInitSQL_SchemaQualified(t *testing.T) {
	script, err := renderInitSQL("kb.articles", 384)
	require.NoError(t, err)

	assert.Contains(t, script, `"kb"."articles"`)
	assert.Contains(t, script, `"articles_embedding_idx"`)
	assert.Contains(t, script, "vector(384)")
}

func TestRenderInitSQL_Invalid(t *testing.T) {
	_, err := renderInitSQL("documents_collection", 0)
	assert.ErrorIs(t, err, core.ErrConfig)

	_, err = renderInitSQL("", 768)
	assert.ErrorIs(t, err, core.ErrConfig)
}
