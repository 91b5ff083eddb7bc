package drivers

import (
	"fmt"
	"sync"

	"github.com/nfits/fitsfile/driver"
)

// handleTable mints sequential driver.Handle values and maps them back to
// a driver-private value. Every concrete driver in this package owns one
// instance rather than sharing a single global table, mirroring how each
// backend.Fs in the teacher keeps its own remote object cache.
type handleTable struct {
	mu   sync.Mutex
	next driver.Handle
	vals map[driver.Handle]interface{}
}

func newHandleTable() *handleTable {
	return &handleTable{vals: make(map[driver.Handle]interface{})}
}

func (t *handleTable) put(v interface{}) driver.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	h := t.next
	t.vals[h] = v
	return h
}

func (t *handleTable) lookup(h driver.Handle) (interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.vals[h]
	if !ok {
		return nil, fmt.Errorf("unknown handle %d", h)
	}
	return v, nil
}

func (t *handleTable) drop(h driver.Handle) (interface{}, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.vals[h]
	if !ok {
		return nil, fmt.Errorf("unknown handle %d", h)
	}
	delete(t.vals, h)
	return v, nil
}
