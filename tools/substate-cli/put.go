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
	"log"

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/codec"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"github.com/urfave/cli/v2"
)

var (
	valueFlag = cli.StringFlag{
		Name:  "value",
		Usage: "the value, hex encoded for the raw codec",
	}
	deleteFlag = cli.BoolFlag{
		Name:  "delete",
		Usage: "delete the substate instead of writing a value",
	}
)

var putCommand = cli.Command{
	Action: put,
	Name:   "put",
	Usage:  "writes or deletes a single substate, bypassing any transaction",
	Flags: []cli.Flag{
		&variantFlag,
		&dbDirectoryFlag,
		&nodeFlag,
		&partitionFlag,
		&kindFlag,
		&keyFlag,
		&valueFlag,
		&deleteFlag,
		&codecFlag,
	},
}

func put(ctx *cli.Context) (err error) {
	address, err := parseAddress(ctx)
	if err != nil {
		return err
	}
	remove := ctx.Bool(deleteFlag.Name)
	var value []byte
	if !remove {
		if !ctx.IsSet(valueFlag.Name) {
			return fmt.Errorf("either --%s or --%s is required", valueFlag.Name, deleteFlag.Name)
		}
		format, err := parseValueFormat(ctx.String(codecFlag.Name))
		if err != nil {
			return err
		}
		if value, err = format.Parse(ctx.String(valueFlag.Name)); err != nil {
			return fmt.Errorf("invalid value: %w", err)
		}
	}

	dir := ctx.String(dbDirectoryFlag.Name)
	db, err := open(ctx, variantOf(ctx, &variantFlag), dir)
	if err != nil {
		return err
	}
	defer closeDatabase(db, dir, &err)

	mapper := dbkey.SpreadPrefixKeyMapper{}
	if remove {
		log.Printf("Deleting %v/%d/%v ...", address.node, address.partition, address.key)
		return backend.DeleteMapped(db, mapper, address.node, address.partition, address.key)
	}
	log.Printf("Writing %v/%d/%v ...", address.node, address.partition, address.key)
	return backend.PutMapped[[]byte](db, mapper, codec.Raw{}, address.node, address.partition, address.key, value)
}
