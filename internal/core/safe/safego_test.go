package safe

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGo_RecoversPanic(t *testing.T) {
	before := GetStats()
	recovered := make(chan interface{}, 1)

	GoWithCallback("boom", func() { panic("boom") }, func(r interface{}) { recovered <- r })

	select {
	case r := <-recovered:
		assert.Equal(t, "boom", r)
	case <-time.After(2 * time.Second):
		t.Fatal("panic was not recovered")
	}
	require.Eventually(t, func() bool {
		return GetStats().Panics == before.Panics+1
	}, time.Second, 5*time.Millisecond)
}

func TestWaitGroup(t *testing.T) {
	wg := NewWaitGroup("test")
	var n atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Go(func() { n.Add(1) })
	}
	wg.Go(func() { panic("ignored") })
	wg.Wait()

	assert.Equal(t, int32(10), n.Load())
	assert.GreaterOrEqual(t, GetStats().Total, int64(11))
}
