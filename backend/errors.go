// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package backend

import "github.com/radixdlt/radixdlt-scrypto-sub020/common"

const (
	// ErrUnknownPartition is reported when accessing a partition not
	// declared by the database's schema.
	ErrUnknownPartition = common.ConstError("unknown partition")

	// ErrIterationNotAllowed is reported when listing the entries of a
	// partition which the schema declares as not iterable.
	ErrIterationNotAllowed = common.ConstError("iteration not allowed")

	// ErrIncompatibleConfiguration is reported when opening a database that
	// has already been initialized with a different configuration.
	ErrIncompatibleConfiguration = common.ConstError("already initialized with an incompatible configuration")

	// ErrClosed is reported for operations on closed databases.
	ErrClosed = common.ConstError("database closed")
)
