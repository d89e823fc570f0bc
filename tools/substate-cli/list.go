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

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/codec"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"github.com/urfave/cli/v2"
)

var (
	limitFlag = cli.IntFlag{
		Name:  "limit",
		Usage: "the maximum number of listed substates, unlimited if zero",
	}
	fromFlag = cli.StringFlag{
		Name:  "from",
		Usage: "the first listed substate key, in the format of --key",
	}
)

var listCommand = cli.Command{
	Action: list,
	Name:   "list",
	Usage:  "lists the substates of a partition in database order",
	Flags: []cli.Flag{
		&variantFlag,
		&dbDirectoryFlag,
		&nodeFlag,
		&partitionFlag,
		&kindFlag,
		&limitFlag,
		&fromFlag,
		&codecFlag,
	},
}

func list(ctx *cli.Context) (err error) {
	node, err := parseNodeId(ctx.String(nodeFlag.Name))
	if err != nil {
		return err
	}
	partition, err := parsePartition(ctx.Uint(partitionFlag.Name))
	if err != nil {
		return err
	}
	kind, err := common.ParseSubstateKeyKind(ctx.String(kindFlag.Name))
	if err != nil {
		return err
	}
	limit := ctx.Int(limitFlag.Name)
	format, err := parseValueFormat(ctx.String(codecFlag.Name))
	if err != nil {
		return err
	}
	var from common.SubstateKey
	if ctx.IsSet(fromFlag.Name) {
		if from, err = parseSubstateKey(kind, ctx.String(fromFlag.Name)); err != nil {
			return err
		}
	}

	dir := ctx.String(dbDirectoryFlag.Name)
	db, err := open(ctx, variantOf(ctx, &variantFlag), dir)
	if err != nil {
		return err
	}
	defer closeDatabase(db, dir, &err)

	mapper := dbkey.SpreadPrefixKeyMapper{}
	var iter *backend.MappedIterator[[]byte]
	if from == nil {
		iter, err = backend.ListMapped[[]byte](db, mapper, codec.Raw{}, node, partition, kind)
	} else {
		iter, err = backend.ListMappedFrom[[]byte](db, mapper, codec.Raw{}, node, partition, from)
	}
	if err != nil {
		return err
	}
	defer iter.Release()
	count := 0
	for iter.Next() {
		if limit > 0 && count >= limit {
			break
		}
		text, err := format.Format(iter.Value())
		if err != nil {
			return err
		}
		fmt.Printf("%s = %s (version %d)\n", formatSubstateKey(iter.Key()), text, iter.Version())
		count++
	}
	if err := iter.Err(); err != nil {
		return err
	}
	fmt.Printf("%d substates\n", count)
	return nil
}
