package service

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLock_SerializesSameKey(t *testing.T) {
	locks := newKeyLock()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("u1|DEVICE_DOWN|DEVICE|42|CRITICAL")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 32, counter)
	assert.Empty(t, locks.entries, "released keys must not linger")
}

func TestKeyLock_DistinctKeysDoNotBlock(t *testing.T) {
	locks := newKeyLock()

	unlockA := locks.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()
	<-done
}
