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
	"encoding/binary"
	"fmt"
	"log"

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/dbkey"
	"github.com/urfave/cli/v2"
)

var getInfoCommand = cli.Command{
	Action: getInfo,
	Name:   "info",
	Usage:  "prints summary information about a substate database directory",
	Flags: []cli.Flag{
		&variantFlag,
		&dbDirectoryFlag,
	},
}

func getInfo(ctx *cli.Context) (err error) {
	dir := ctx.String(dbDirectoryFlag.Name)
	log.Printf("Opening database in %v ...", dir)
	db, err := open(ctx, variantOf(ctx, &variantFlag), dir)
	if err != nil {
		return err
	}
	defer closeDatabase(db, dir, &err)

	partitions, err := backend.ListPartitions(db, dbkey.SpreadPrefixKeyMapper{})
	if err != nil {
		return err
	}
	fmt.Printf("Partitions: %d\n", len(partitions))
	for _, partition := range partitions {
		fmt.Printf("  %v/%d\n", partition.Node, partition.Partition)
	}

	log.Printf("Computing content hash ...")
	hash, entries, err := computeContentHash(db)
	if err != nil {
		return err
	}
	fmt.Printf("Entries: %d\n", entries)
	fmt.Printf("Content hash: %v\n", hash)
	fmt.Printf("Memory footprint:\n%v", db.GetMemoryFootprint())
	return nil
}

// computeContentHash hashes all entries of a database in order. Databases
// with equal content have equal hashes.
func computeContentHash(db backend.SubstateDatabase) (common.Hash, int, error) {
	var hash common.Hash
	keys, err := db.ListPartitionKeys()
	if err != nil {
		return hash, 0, err
	}
	count := 0
	for _, key := range keys {
		iter, err := db.ListEntries(key)
		if err != nil {
			return hash, 0, err
		}
		for iter.Next() {
			hash = common.Blake2b256(hash[:], lengthPrefixed(key), lengthPrefixed(iter.Key()), lengthPrefixed(iter.Value()))
			count++
		}
		err = iter.Err()
		iter.Release()
		if err != nil {
			return hash, 0, err
		}
	}
	return hash, count, nil
}

func lengthPrefixed(data []byte) []byte {
	return append(binary.AppendUvarint(nil, uint64(len(data))), data...)
}
