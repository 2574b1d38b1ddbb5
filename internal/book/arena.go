package book

import "gungnir/internal/common"

// Orders are stored in a slab of slots addressed by stable integer handles.
// Handles survive appends (unlike pointers into a growing slice) and freed
// slots are recycled through a free list, so cancel and partial-consume are
// O(1) without aliasing live orders.
type handle int32

const none handle = -1

type slot struct {
	order common.Order
	prev  handle
	next  handle
}

type arena struct {
	slots []slot
	free  []handle
}

func (a *arena) alloc(o common.Order) handle {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[h] = slot{order: o, prev: none, next: none}
		return h
	}
	a.slots = append(a.slots, slot{order: o, prev: none, next: none})
	return handle(len(a.slots) - 1)
}

func (a *arena) release(h handle) {
	a.slots[h] = slot{prev: none, next: none}
	a.free = append(a.free, h)
}

func (a *arena) order(h handle) *common.Order {
	return &a.slots[h].order
}
