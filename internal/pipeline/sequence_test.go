package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequence(t *testing.T) {
	s := NewSequence(5)
	assert.Equal(t, 5, s.Next())
	assert.Equal(t, 6, s.Next())
	assert.Equal(t, 7, s.Reserve(3))
	assert.Equal(t, 10, s.Next())
	assert.Equal(t, 11, s.Reserve(0))
	assert.Equal(t, 12, s.Next())
}

func TestSequenceConcurrent(t *testing.T) {
	s := NewSequence(1)
	var wg sync.WaitGroup
	seen := make(chan int, 100)
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- s.Next()
		}()
	}
	wg.Wait()
	close(seen)
	unique := map[int]bool{}
	for n := range seen {
		unique[n] = true
	}
	assert.Len(t, unique, 100)
	assert.Equal(t, 101, s.Next())
}
