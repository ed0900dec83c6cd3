package push

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTokens(t *testing.T) {
	provider := StaticTokens(map[string][]string{
		"alice": {"token-1", "token-2"},
	})

	tokens, err := provider(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"token-1", "token-2"}, tokens)

	tokens, err = provider(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, tokens)
}
