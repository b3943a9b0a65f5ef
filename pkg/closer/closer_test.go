package closer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClose_LIFOOrder(t *testing.T) {
	c := NewCloser()
	var order []string
	for _, name := range []string{"db", "redis", "http"} {
		c.Add(name, func(context.Context) error {
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, c.Close(context.Background()))
	assert.Equal(t, []string{"http", "redis", "db"}, order)
}

func TestClose_CollectsErrorsAndRunsOnce(t *testing.T) {
	c := NewCloser()
	calls := 0
	boom := errors.New("boom")
	c.Add("qdrant", func(context.Context) error {
		calls++
		return boom
	})
	c.Add("kafka", func(context.Context) error {
		calls++
		return nil
	})

	err := c.Close(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "close qdrant")

	assert.Equal(t, err, c.Close(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestClose_ReportsExpiredContext(t *testing.T) {
	c := NewCloser()
	closed := false
	c.Add("minio", func(context.Context) error {
		closed = true
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Close(ctx)
	assert.True(t, closed)
	assert.ErrorIs(t, err, context.Canceled)
}
