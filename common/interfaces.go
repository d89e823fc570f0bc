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

import "fmt"

type MemoryFootprintProvider interface {
	GetMemoryFootprint() *MemoryFootprint
}

// Comparator defines a total order on values of type K.
type Comparator[K any] interface {
	// Compare returns a negative number if a < b, zero if a == b, and a
	// positive number if a > b.
	Compare(a, b *K) int
}

// MapEntry is a key/value pair, used by ordered containers to expose their
// content as a slice.
type MapEntry[K any, V any] struct {
	Key K
	Val V
}

func (e MapEntry[K, V]) String() string {
	return fmt.Sprintf("%v: %v", e.Key, e.Val)
}
