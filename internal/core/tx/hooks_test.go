package tx

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAfterCommit_OutsideTransactionRunsNow(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	assert.True(t, ran)
}

func TestAfterCommit_NestedRunsOnceAfterOutermost(t *testing.T) {
	var order []string

	err := Passthrough{}.RunInTransaction(context.Background(), func(ctx context.Context) error {
		err := Passthrough{}.RunInTransaction(ctx, func(ctx context.Context) error {
			AfterCommit(ctx, func() { order = append(order, "inner") })
			return nil
		})
		require.NoError(t, err)
		assert.Empty(t, order)

		AfterCommit(ctx, func() { order = append(order, "outer") })
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "outer"}, order)
}

func TestAfterCommit_DroppedOnRollback(t *testing.T) {
	ran := false
	boom := errors.New("boom")

	err := Passthrough{}.RunInTransaction(context.Background(), func(ctx context.Context) error {
		AfterCommit(ctx, func() { ran = true })
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.False(t, ran)
}
