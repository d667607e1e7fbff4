package framecache

import (
	"container/list"

	"github.com/forPelevin/fadecut/internal/types"
)

const DefaultCapacity = 100

// Cache holds decoded preview frames keyed by frame index. When full it evicts
// the entry inserted first; lookups do not refresh an entry's position.
// It is not safe for concurrent use.
type Cache struct {
	capacity int
	order    *list.List
	items    map[int]*list.Element
}

type entry struct {
	key   int
	frame types.Frame
}

func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[int]*list.Element, capacity),
	}
}

func (c *Cache) Get(key int) (types.Frame, bool) {
	el, ok := c.items[key]
	if !ok {
		return types.Frame{}, false
	}
	return el.Value.(entry).frame, true
}

// Put stores frame under key, replacing an existing value in place.
func (c *Cache) Put(key int, frame types.Frame) {
	if el, ok := c.items[key]; ok {
		el.Value = entry{key: key, frame: frame}
		return
	}
	for c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		delete(c.items, oldest.Value.(entry).key)
	}
	c.items[key] = c.order.PushBack(entry{key: key, frame: frame})
}

func (c *Cache) Len() int { return c.order.Len() }

func (c *Cache) Cap() int { return c.capacity }
