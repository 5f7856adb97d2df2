// Package pool implements the fixed-capacity, optionally-growable object
// pool ("arena pool") that the reorderers and the scatter-gather list use
// to allocate reorder nodes, fragment nodes and payload-state records
// without per-operation heap traffic.
package pool

import (
	"fmt"
	"sync"
)

// InitFunc is called once on every item the pool ever allocates, including
// items allocated by growth, before it is handed out for the first time.
type InitFunc func(item interface{})

// Config configures a Pool at creation time.
type Config struct {
	// Name identifies the pool in log messages.
	Name string

	// ItemCount is the number of items allocated up front.
	ItemCount int

	// GrowCount is the number of items allocated each time the pool runs
	// dry and growth is still allowed. Zero disables growth.
	GrowCount int

	// MaxGrow bounds the number of successful grow operations. Zero means
	// growth is uncapped as long as GrowCount is positive.
	MaxGrow int

	// ThreadSafe serializes every operation with an internal lock.
	ThreadSafe bool

	// NewItem allocates a single new item. Required.
	NewItem func() interface{}

	// Init is called once per item, right after NewItem. Optional.
	Init InitFunc
}

// Pool is a named, bounded cache of reusable items.
type Pool struct {
	name      string
	newItem   func() interface{}
	init      InitFunc
	growCount int
	maxGrow   int
	growsLeft int
	growable  bool

	threadSafe bool
	mutex      sync.Mutex

	free        []interface{}
	capacity    int
	outstanding int
}

// New allocates a Pool and its initial ItemCount items.
func New(cfg Config) (*Pool, error) {
	if cfg.ItemCount <= 0 {
		return nil, fmt.Errorf("pool %s: item count must be positive", cfg.Name)
	}
	if cfg.NewItem == nil {
		return nil, fmt.Errorf("pool %s: NewItem is required", cfg.Name)
	}

	p := &Pool{
		name:       cfg.Name,
		newItem:    cfg.NewItem,
		init:       cfg.Init,
		growCount:  cfg.GrowCount,
		maxGrow:    cfg.MaxGrow,
		growsLeft:  cfg.MaxGrow,
		growable:   cfg.GrowCount > 0,
		threadSafe: cfg.ThreadSafe,
		free:       make([]interface{}, 0, cfg.ItemCount),
	}

	p.allocate(cfg.ItemCount)

	return p, nil
}

// NewUsingExistingBuffer creates a pool that allocates its items directly
// from a caller-owned buffer. Growth is always disabled: the caller sized
// buf for exactly itemCount items (see BufferSizeFor).
//
// newItemAt must slice item i out of buf and return it as the pool's
// opaque item type; it is called exactly itemCount times, once per slot.
func NewUsingExistingBuffer(name string, itemCount int, buf []byte, newItemAt func(buf []byte, i int) interface{}, init InitFunc) (*Pool, error) {
	if itemCount <= 0 {
		return nil, fmt.Errorf("pool %s: item count must be positive", name)
	}

	p := &Pool{
		name:     name,
		init:     init,
		growable: false,
		free:     make([]interface{}, 0, itemCount),
	}

	for i := 0; i < itemCount; i++ {
		item := newItemAt(buf, i)
		if init != nil {
			init(item)
		}
		p.free = append(p.free, item)
		p.capacity++
	}

	return p, nil
}

// BufferSizeFor returns the exact number of bytes NewUsingExistingBuffer
// needs for itemCount items of itemSize bytes each, per spec §4.1's
// requirement that the library expose this computation rather than make
// the caller guess at internal bookkeeping overhead. The arena pool here
// carries no per-item bookkeeping of its own (bookkeeping lives in the
// Pool struct, not in the buffer), so the size is exactly the payload.
func BufferSizeFor(itemSize, itemCount int) int {
	return itemSize * itemCount
}

func (p *Pool) allocate(n int) {
	for i := 0; i < n; i++ {
		item := p.newItem()
		if p.init != nil {
			p.init(item)
		}
		p.free = append(p.free, item)
		p.capacity++
	}
}

func (p *Pool) lock() {
	if p.threadSafe {
		p.mutex.Lock()
	}
}

func (p *Pool) unlock() {
	if p.threadSafe {
		p.mutex.Unlock()
	}
}

// ErrEmpty is returned by Get when the pool has no free item and cannot
// grow further.
type ErrEmpty struct {
	Name string
}

func (e *ErrEmpty) Error() string {
	return fmt.Sprintf("pool %s: no free items and growth exhausted", e.Name)
}

// Get reserves and returns a free item, growing the pool first if it is
// empty, growth is enabled, and the grow cap has not been reached.
func (p *Pool) Get() (interface{}, error) {
	p.lock()
	defer p.unlock()

	if len(p.free) == 0 {
		if !p.growable || (p.maxGrow > 0 && p.growsLeft <= 0) {
			return nil, &ErrEmpty{Name: p.name}
		}

		p.allocate(p.growCount)
		if p.maxGrow > 0 {
			p.growsLeft--
		}
	}

	last := len(p.free) - 1
	item := p.free[last]
	p.free[last] = nil
	p.free = p.free[:last]
	p.outstanding++

	return item, nil
}

// Put releases an item back to the pool. Putting an item that was not
// previously returned by Get is undefined, per spec §4.1.
func (p *Pool) Put(item interface{}) {
	p.lock()
	defer p.unlock()

	p.free = append(p.free, item)
	if p.outstanding > 0 {
		p.outstanding--
	}
}

// PutAll appends items to the free list and resets the outstanding count
// to zero. The pool keeps no record of handed-out items, so only the
// items passed in are returned; any other item still held elsewhere is
// not recovered.
func (p *Pool) PutAll(items []interface{}) {
	p.lock()
	defer p.unlock()

	p.free = append(p.free, items...)
	p.outstanding = 0
}

// FreeCount returns the number of items currently available to Get.
func (p *Pool) FreeCount() int {
	p.lock()
	defer p.unlock()

	return len(p.free)
}

// Capacity returns the total number of items the pool has ever allocated,
// including growth.
func (p *Pool) Capacity() int {
	p.lock()
	defer p.unlock()

	return p.capacity
}

// ForEach calls fn once for every item in the pool, but only when every
// allocated item is currently free (FreeCount == Capacity), per spec §4.1.
func (p *Pool) ForEach(fn func(item interface{})) error {
	p.lock()
	defer p.unlock()

	if len(p.free) != p.capacity {
		return fmt.Errorf("pool %s: ForEach requires every item to be free (%d/%d free)",
			p.name, len(p.free), p.capacity)
	}

	for _, item := range p.free {
		fn(item)
	}

	return nil
}
