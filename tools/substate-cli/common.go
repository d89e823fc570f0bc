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
	"os"
	"runtime/pprof"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/radixdlt/radixdlt-scrypto-sub020/common"
	"github.com/radixdlt/radixdlt-scrypto-sub020/state"
	"github.com/urfave/cli/v2"
)

var (
	configFlag = cli.StringFlag{
		Name:  "config",
		Usage: "a config file providing database parameters, overridden by SUBSTATE_* environment variables",
	}
	variantFlag = cli.StringFlag{
		Name:  "variant",
		Usage: "the database variant, one of go-ldb, go-bolt",
		Value: string(state.LevelDbVariant),
	}
	dbDirectoryFlag = cli.StringFlag{
		Name:     "dir",
		Usage:    "the targeted directory",
		Required: true,
	}
	nodeFlag = cli.StringFlag{
		Name:     "node",
		Usage:    "the hex encoded node id",
		Required: true,
	}
	partitionFlag = cli.UintFlag{
		Name:     "partition",
		Usage:    "the partition number",
		Required: true,
	}
	kindFlag = cli.StringFlag{
		Name:  "kind",
		Usage: "the kind of substate keys of the partition, one of field, map, sorted",
		Value: common.FieldKind.String(),
	}
	keyFlag = cli.StringFlag{
		Name:     "key",
		Usage:    "the substate key: a number for fields, hex for map keys, <prefix>:<hex> for sorted keys",
		Required: true,
	}
)

// open opens the database of the given variant in a directory. Further
// parameters are taken from the config file and the environment. An empty
// variant selects the configured one.
func open(ctx *cli.Context, variant, dir string) (backend.SubstateDatabase, error) {
	params, err := loadParameters(ctx.String(configFlag.Name), variant, dir)
	if err != nil {
		return nil, err
	}
	return state.OpenDatabase(params)
}

// loadParameters layers the command line arguments over the environment and
// the optional config file. Commits are synced unless configured otherwise.
func loadParameters(configFile, variant, dir string) (state.Parameters, error) {
	v, err := state.GetViper(state.BuildFlagSet(), configFile)
	if err != nil {
		return state.Parameters{}, fmt.Errorf("failed to read configuration: %w", err)
	}
	params, err := state.LoadParameters(v)
	if err != nil {
		return state.Parameters{}, err
	}
	switch {
	case variant != "":
		params.Variant = state.Variant(variant)
	case !v.IsSet(state.VariantKey):
		params.Variant = state.LevelDbVariant
	}
	params.Directory = dir
	if !v.IsSet(state.SyncKey) {
		params.Sync = true
	}
	return params, nil
}

// variantOf is the variant selected by the given flag, empty if the flag
// was not provided.
func variantOf(ctx *cli.Context, flag *cli.StringFlag) string {
	if !ctx.IsSet(flag.Name) {
		return ""
	}
	return ctx.String(flag.Name)
}

// closeDatabase closes a database, reporting the failure through err unless
// there is already an error to report.
func closeDatabase(db backend.SubstateDatabase, dir string, err *error) {
	log.Printf("Closing database in %v ...", dir)
	if closeError := db.Close(); closeError != nil {
		if *err == nil {
			*err = closeError
		} else {
			log.Printf("Failure closing DB: %v", closeError)
		}
	}
}

func parseNodeId(s string) (common.NodeId, error) {
	data, err := hexutil.Decode(s)
	if err != nil {
		return common.NodeId{}, fmt.Errorf("invalid node id %q: %w", s, err)
	}
	return common.NodeIdFromBytes(data)
}

func parsePartition(n uint) (common.PartitionNumber, error) {
	if n > 255 {
		return 0, fmt.Errorf("invalid partition number %d", n)
	}
	return common.PartitionNumber(n), nil
}

func parseSubstateKey(kind common.SubstateKeyKind, s string) (common.SubstateKey, error) {
	switch kind {
	case common.FieldKind:
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid field key %q: %w", s, err)
		}
		return common.FieldKey(n), nil
	case common.MapKind:
		data, err := hexutil.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("invalid map key %q: %w", s, err)
		}
		return common.MapKey(data), nil
	case common.SortedKind:
		prefix, key, found := strings.Cut(s, ":")
		if !found {
			return nil, fmt.Errorf("invalid sorted key %q, expected <prefix>:<hex>", s)
		}
		n, err := strconv.ParseUint(prefix, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid sort prefix in %q: %w", s, err)
		}
		data, err := hexutil.Decode(key)
		if err != nil {
			return nil, fmt.Errorf("invalid sorted key %q: %w", s, err)
		}
		return common.NewSortedKey(uint16(n), data), nil
	}
	return nil, fmt.Errorf("unsupported key kind %v", kind)
}

// formatSubstateKey is the inverse of parseSubstateKey.
func formatSubstateKey(key common.SubstateKey) string {
	switch k := key.(type) {
	case common.FieldKey:
		return strconv.Itoa(int(k))
	case common.MapKey:
		return hexutil.Encode(k)
	case common.SortedKey:
		return fmt.Sprintf("%d:%s", k.SortPrefix(), hexutil.Encode(k.Key))
	}
	return key.String()
}

// substateAddress collects the address flags shared by the get and put
// commands.
type substateAddress struct {
	node      common.NodeId
	partition common.PartitionNumber
	key       common.SubstateKey
}

func parseAddress(ctx *cli.Context) (substateAddress, error) {
	node, err := parseNodeId(ctx.String(nodeFlag.Name))
	if err != nil {
		return substateAddress{}, err
	}
	partition, err := parsePartition(ctx.Uint(partitionFlag.Name))
	if err != nil {
		return substateAddress{}, err
	}
	kind, err := common.ParseSubstateKeyKind(ctx.String(kindFlag.Name))
	if err != nil {
		return substateAddress{}, err
	}
	key, err := parseSubstateKey(kind, ctx.String(keyFlag.Name))
	if err != nil {
		return substateAddress{}, err
	}
	return substateAddress{node: node, partition: partition, key: key}, nil
}

func StartCPUProfile(profileName string) error {
	f, err := os.Create(profileName)
	if err != nil {
		return fmt.Errorf("could not create CPU profile: %s", err)
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		return fmt.Errorf("could not start CPU profile: %s", err)
	}
	return nil
}

func StopCPUProfile() {
	pprof.StopCPUProfile()
}
