package domain

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetSnowflakeNode(t *testing.T) {
	t.Cleanup(func() { require.NoError(t, SetSnowflakeNode(1)) })

	for _, id := range []int64{-1, 1024, 5000} {
		assert.Error(t, SetSnowflakeNode(id), "node %d", id)
	}

	// a rejected id leaves the previous node in place
	require.NoError(t, SetSnowflakeNode(7))
	assert.Error(t, SetSnowflakeNode(1024))

	_, seq := NewTransactionID()
	assert.Equal(t, int64(7), snowflake.ParseInt64(seq).Node())

	require.NoError(t, SetSnowflakeNode(1023))
	_, seq = NewTransactionID()
	assert.Equal(t, int64(1023), snowflake.ParseInt64(seq).Node())
}
