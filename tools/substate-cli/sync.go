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
	"context"
	"fmt"
	"log"
	"time"

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common/interrupt"
	"github.com/urfave/cli/v2"
)

var (
	cpuProfilingFlag = cli.StringFlag{
		Name:  "cpu-profile",
		Usage: "enable the recording of a CPU profile",
	}
	dbSourceDirFlag = cli.StringFlag{
		Name:     "src-dir",
		Usage:    "the source of the synchronization",
		Required: true,
	}
	dbTargetDirFlag = cli.StringFlag{
		Name:     "trg-dir",
		Usage:    "the target of the synchronization",
		Required: true,
	}
	targetVariantFlag = cli.StringFlag{
		Name:  "trg-variant",
		Usage: "the database variant of the target, defaults to the source variant",
	}
)

var syncCommand = cli.Command{
	Action: sync,
	Name:   "sync",
	Usage:  "syncs one substate database directory to contain the content of another",
	Flags: []cli.Flag{
		&variantFlag,
		&dbSourceDirFlag,
		&targetVariantFlag,
		&dbTargetDirFlag,
		&cpuProfilingFlag,
	},
}

func sync(ctx *cli.Context) (err error) {
	profileTarget := ctx.String(cpuProfilingFlag.Name)
	if len(profileTarget) != 0 {
		if err := StartCPUProfile(profileTarget); err != nil {
			return err
		}
		defer StopCPUProfile()
	}

	srcVariant := variantOf(ctx, &variantFlag)
	trgVariant := ctx.String(targetVariantFlag.Name)
	if trgVariant == "" {
		trgVariant = srcVariant
	}

	srcDir := ctx.String(dbSourceDirFlag.Name)
	log.Printf("Opening source database in %v ...", srcDir)
	source, err := open(ctx, srcVariant, srcDir)
	if err != nil {
		return err
	}
	defer closeDatabase(source, srcDir, &err)

	trgDir := ctx.String(dbTargetDirFlag.Name)
	log.Printf("Opening target database in %v ...", trgDir)
	target, err := open(ctx, trgVariant, trgDir)
	if err != nil {
		return err
	}
	defer closeDatabase(target, trgDir, &err)

	sourceHash, _, err := computeContentHash(source)
	if err != nil {
		return
	}
	fmt.Printf("Source content hash: %v\n", sourceHash)

	log.Printf("Synching databases ...")
	start := time.Now()
	if err = syncDatabases(interrupt.Register(ctx.Context), source, target); err != nil {
		return err
	}
	log.Printf("Synching complete")
	log.Printf("Synching took %.1f seconds", time.Since(start).Seconds())

	targetHash, _, err := computeContentHash(target)
	if err != nil {
		return
	}
	fmt.Printf("Target content hash: %v\n", targetHash)

	if sourceHash != targetHash {
		return fmt.Errorf("sync failed, hashes are not equivalent")
	}
	return nil
}

// syncDatabases replaces the content of target with the content of source,
// one partition per commit. It stops between commits if ctx is canceled.
func syncDatabases(ctx context.Context, source, target backend.SubstateDatabase) error {
	sourceKeys, err := source.ListPartitionKeys()
	if err != nil {
		return err
	}
	targetKeys, err := target.ListPartitionKeys()
	if err != nil {
		return err
	}

	stale := common.NewSortedMap[common.DbPartitionKey, bool](len(targetKeys), common.DbPartitionKeyComparator{})
	for _, key := range targetKeys {
		stale.Put(key, true)
	}
	for _, key := range sourceKeys {
		if interrupt.IsCancelled(ctx) {
			return interrupt.ErrCanceled
		}
		stale.Remove(key)
		entries, err := source.ListEntries(key)
		if err != nil {
			return err
		}
		updates := common.DatabaseUpdates{}
		updates.AppendReset(key)
		for entries.Next() {
			updates.AppendSet(key, append(common.DbSortKey{}, entries.Key()...), append([]byte{}, entries.Value()...))
		}
		err = entries.Err()
		entries.Release()
		if err != nil {
			return err
		}
		if err := target.Commit(&updates); err != nil {
			return err
		}
	}

	if stale.Size() == 0 {
		return nil
	}
	updates := common.DatabaseUpdates{}
	stale.ForEach(func(key common.DbPartitionKey, _ bool) {
		updates.AppendReset(key)
	})
	return target.Commit(&updates)
}
