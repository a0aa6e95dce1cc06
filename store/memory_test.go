package store_test

import (
	"testing"

	"github.com/quintans/go-trafficlight/store/memory"
)

func TestMemStore(t *testing.T) {
	store := memory.New()
	testJournal(t, store)
}
