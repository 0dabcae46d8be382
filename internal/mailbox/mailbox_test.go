package mailbox

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/temoto/oledpod/log2"
)

func TestOverflowDrops(t *testing.T) {
	t.Parallel()

	b := New[int]("test", 3, log2.NewTest(t, log2.LDebug))
	for i := 1; i <= 5; i++ {
		ok := b.TrySend(i)
		assert.Equal(t, i <= 3, ok, "i=%d", i)
	}
	assert.Equal(t, uint64(2), b.Dropped())
	assert.Equal(t, 3, b.Len())

	got := []int{}
	n := b.Drain(func(x int) { got = append(got, x) })
	assert.Equal(t, 3, n)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.Equal(t, 0, b.Drain(func(int) { t.Error("unexpected value") }))
}

func TestConcurrentSenders(t *testing.T) {
	t.Parallel()

	b := New[string]("status", 0, nil)
	wg := sync.WaitGroup{}
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b.TrySend("x")
			}
		}()
	}
	wg.Wait()
	n := b.Drain(func(string) {})
	assert.Equal(t, DefaultSize, n)
	assert.Equal(t, uint64(400-DefaultSize), b.Dropped())
	assert.Equal(t, "status", b.String())
}
