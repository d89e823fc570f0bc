// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package interrupt

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
)

const ErrCanceled = common.ConstError("interrupted")

// IsCancelled reports whether the given context has been canceled.
func IsCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// Register derives a context that is canceled on SIGTERM or SIGINT. Long
// running tools check it between commits, so a database is never left with a
// partially applied commit.
func Register(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(signals)
		select {
		case <-signals:
			log.Println("interrupted, stopping after the current commit")
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
