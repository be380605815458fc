package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDedupGuardSuppressesWithinTTL(t *testing.T) {
	guard := NewDedupGuard(time.Minute)

	assert.False(t, guard.Seen("whatsapp|SM001"))
	assert.True(t, guard.Seen("whatsapp|SM001"))
	assert.False(t, guard.Seen("whatsapp|SM002"))
}

func TestDedupGuardExpires(t *testing.T) {
	guard := NewDedupGuard(10 * time.Millisecond)

	assert.False(t, guard.Seen("whatsapp|SM001"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, guard.Seen("whatsapp|SM001"))
}

func TestDedupGuardStaysBounded(t *testing.T) {
	guard := NewDedupGuard(time.Hour)

	for i := 0; i < dedupMaxEntries*2; i++ {
		guard.Seen(fmt.Sprintf("whatsapp|SM%06d", i))
	}
	assert.LessOrEqual(t, len(guard.seen), dedupMaxEntries+1)
}
