package dataset

import "sync/atomic"

// Holder publishes the loaded dataset to concurrent readers. It is empty
// until the first Set, which is how readiness is reported.
type Holder struct {
	ds atomic.Pointer[Dataset]
}

func NewHolder(ds *Dataset) *Holder {
	h := &Holder{}
	if ds != nil {
		h.ds.Store(ds)
	}
	return h
}

func (h *Holder) Set(ds *Dataset) {
	h.ds.Store(ds)
}

// Get returns the current dataset, or nil before one is loaded.
func (h *Holder) Get() *Dataset {
	return h.ds.Load()
}

func (h *Holder) Ready() bool {
	return h.ds.Load() != nil
}
