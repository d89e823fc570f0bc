// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package common

import (
	"unsafe"

	"golang.org/x/exp/slices"
)

// SortedMap implements a memory map for the key-value pairs.
// Its elements are sorted on insertion by the key. Keys need not be
// comparable by Go's == operator, which allows byte-slice keys such as
// DbSortKey.
type SortedMap[K any, V any] struct {
	list       []MapEntry[K, V]
	comparator Comparator[K]
}

// NewSortedMap creates a new instance.
func NewSortedMap[K any, V any](capacity int, comparator Comparator[K]) *SortedMap[K, V] {
	return &SortedMap[K, V]{
		list:       make([]MapEntry[K, V], 0, capacity),
		comparator: comparator,
	}
}

// ForEach calls the callback for each key-value pair in key order.
func (m *SortedMap[K, V]) ForEach(callback func(K, V)) {
	for _, entry := range m.list {
		callback(entry.Key, entry.Val)
	}
}

// Get returns a value from the table or false.
func (m *SortedMap[K, V]) Get(key K) (val V, exists bool) {
	if index, exists := m.findItem(key); exists {
		return m.list[index].Val, true
	}
	return
}

// Put associates a key to a value.
func (m *SortedMap[K, V]) Put(key K, val V) {
	index, exists := m.findItem(key)
	if exists {
		m.list[index].Val = val
		return
	}
	m.list = slices.Insert(m.list, index, MapEntry[K, V]{key, val})
}

// Remove deletes the key from the map and returns whether an element was removed.
func (m *SortedMap[K, V]) Remove(key K) (exists bool) {
	index, exists := m.findItem(key)
	if !exists {
		return false
	}
	m.list = slices.Delete(m.list, index, index+1)
	return true
}

// GetEntries exposes the entries of this map in key order. The slice is a
// view on the internal state and must not be modified nor retained across
// updates of the map.
func (m *SortedMap[K, V]) GetEntries() []MapEntry[K, V] {
	return m.list
}

// Seek returns the position of the first entry whose key is not less than
// the given key.
func (m *SortedMap[K, V]) Seek(key K) int {
	index, _ := m.findItem(key)
	return index
}

func (m *SortedMap[K, V]) Size() int {
	return len(m.list)
}

func (m *SortedMap[K, V]) Clear() {
	m.list = m.list[:0]
}

// findItem finds a key in the list using binary search. If the key is
// present its index is returned together with true. Otherwise the returned
// index is the position at which the key would have to be inserted to keep
// the list sorted.
func (m *SortedMap[K, V]) findItem(key K) (index int, exists bool) {
	start, end := 0, len(m.list)
	for start < end {
		mid := int(uint(start+end) >> 1)
		res := m.comparator.Compare(&m.list[mid].Key, &key)
		if res == 0 {
			return mid, true
		}
		if res < 0 {
			start = mid + 1
		} else {
			end = mid
		}
	}
	return start, false
}

func (m *SortedMap[K, V]) GetMemoryFootprint() *MemoryFootprint {
	selfSize := unsafe.Sizeof(*m)
	entrySize := unsafe.Sizeof(MapEntry[K, V]{})
	return NewMemoryFootprint(selfSize + uintptr(cap(m.list))*entrySize)
}
