// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Run with `go run ./tools/substate-cli`

func main() {
	app := &cli.App{
		Name:      "Substate Toolbox",
		HelpName:  "substate",
		Usage:     "A set of utilities to inspect and edit substate database directories",
		Copyright: "(c) 2024 Fantom Foundation",
		Flags:     []cli.Flag{&configFlag},
		Commands: []*cli.Command{
			&getInfoCommand,
			&getCommand,
			&listCommand,
			&putCommand,
			&syncCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
