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
	"os"
	"sync/atomic"

	"github.com/inconshreveable/log15"
)

var logLevel atomic.Int32

func init() {
	logLevel.Store(int32(log15.LvlInfo))
	log15.Root().SetHandler(log15.FilterHandler(func(r *log15.Record) bool {
		return r.Lvl <= log15.Lvl(logLevel.Load())
	}, log15.StreamHandler(os.Stderr, log15.LogfmtFormat())))
}

// NewLogger creates a logger tagged with the given module name. All loggers
// share the root handler, so SetLogLevel applies to all of them.
func NewLogger(module string, ctx ...any) log15.Logger {
	return log15.New(append([]any{"module", module}, ctx...)...)
}

// SetLogLevel changes the verbosity of all loggers. Levels are named as by
// log15: "crit", "error", "warn", "info", "debug".
func SetLogLevel(level string) error {
	lvl, err := log15.LvlFromString(level)
	if err != nil {
		return err
	}
	logLevel.Store(int32(lvl))
	return nil
}
