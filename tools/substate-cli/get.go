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

	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"github.com/urfave/cli/v2"
)

var getCommand = cli.Command{
	Action: get,
	Name:   "get",
	Usage:  "prints the value of a single substate",
	Flags: []cli.Flag{
		&variantFlag,
		&dbDirectoryFlag,
		&nodeFlag,
		&partitionFlag,
		&kindFlag,
		&keyFlag,
		&codecFlag,
	},
}

func get(ctx *cli.Context) (err error) {
	address, err := parseAddress(ctx)
	if err != nil {
		return err
	}
	format, err := parseValueFormat(ctx.String(codecFlag.Name))
	if err != nil {
		return err
	}
	dir := ctx.String(dbDirectoryFlag.Name)
	db, err := open(ctx, variantOf(ctx, &variantFlag), dir)
	if err != nil {
		return err
	}
	defer closeDatabase(db, dir, &err)

	mapper := dbkey.SpreadPrefixKeyMapper{}
	value, version, found, err := db.GetSubstate(
		mapper.ToDbPartitionKey(address.node, address.partition),
		mapper.ToDbSortKey(address.key),
	)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("substate %v/%d/%v not found", address.node, address.partition, address.key)
	}
	text, err := format.Format(value)
	if err != nil {
		return err
	}
	fmt.Printf("%s (version %d)\n", text, version)
	return nil
}
