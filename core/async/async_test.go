package async_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-rustlet/rustlet/core/async"
)

func TestContextCompleteFiresOnce(t *testing.T) {
	t.Parallel()

	var calls int32
	ctx := async.NewContext(async.CompleterFunc(func() {
		atomic.AddInt32(&calls, 1)
	}))

	ctx.Complete()
	ctx.Complete()
	ctx.Complete()

	assert.Equal(t, int32(1), calls)
}

func TestContextCompleteFromMultipleGoroutines(t *testing.T) {
	t.Parallel()

	var calls int32
	ctx := async.NewContext(async.CompleterFunc(func() {
		atomic.AddInt32(&calls, 1)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(c async.Context) {
			defer wg.Done()
			c.Complete()
		}(ctx)
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls)
}

func TestContextZeroValueIsNoop(t *testing.T) {
	t.Parallel()

	var ctx async.Context
	assert.False(t, ctx.Valid())
	assert.NotPanics(t, func() {
		ctx.Complete()
	})
}
