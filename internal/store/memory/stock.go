package memory

import (
	"context"
	"sync"

	"inventoryledger/backend/internal/store"
)

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free and returns its unlock func. Entries are
// dropped once nobody holds or waits for them.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &keyedEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

type cellKey struct {
	productID   string
	warehouseID string
}

// stagedStock records stock changes without applying them. Each Adjust checks
// against the committed quantity plus what is already staged; commitLocked
// repeats the check because other orders may have committed in between.
type stagedStock struct {
	s      *Store
	deltas map[cellKey]int
	order  []cellKey
}

var _ store.StockWriter = (*stagedStock)(nil)

func newStagedStock(s *Store) *stagedStock {
	return &stagedStock{s: s, deltas: make(map[cellKey]int)}
}

func (w *stagedStock) Adjust(_ context.Context, productID string, warehouseID string, delta int) error {
	w.s.mu.RLock()
	err := w.s.checkCellLocked(productID, warehouseID)
	current := w.s.stock[productID][warehouseID]
	w.s.mu.RUnlock()
	if err != nil {
		return err
	}

	key := cellKey{productID: productID, warehouseID: warehouseID}
	pending, seen := w.deltas[key]
	if current+pending+delta < 0 {
		return insufficient(productID, warehouseID, current+pending, -delta)
	}
	if !seen {
		w.order = append(w.order, key)
	}
	w.deltas[key] = pending + delta
	return nil
}

// commitLocked applies every staged change or none. Caller holds s.mu.
func (w *stagedStock) commitLocked() error {
	for _, key := range w.order {
		current := w.s.stock[key.productID][key.warehouseID]
		if delta := w.deltas[key]; current+delta < 0 {
			return insufficient(key.productID, key.warehouseID, current, -delta)
		}
	}
	for _, key := range w.order {
		delta := w.deltas[key]
		if delta == 0 {
			continue
		}
		w.s.setCellLocked(key.productID, key.warehouseID, w.s.stock[key.productID][key.warehouseID]+delta)
	}
	return nil
}
