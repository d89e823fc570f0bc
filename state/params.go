// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package state

import (
	"strings"

	"github.com/radixdlt/radixdlt-scrypto-sub020/backend"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	VariantKey    = "variant"
	DirectoryKey  = "directory"
	PartitionsKey = "partitions"
	LogLevelKey   = "log-level"
	SyncKey       = "sync"
)

// BuildFlagSet creates the command line flags covering all Parameters.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("state", pflag.ContinueOnError)
	fs.String(VariantKey, string(MemoryVariant), "database variant, one of memory, go-ldb, go-bolt, avax-memdb")
	fs.String(DirectoryKey, "", "directory of persistent databases")
	fs.StringSlice(PartitionsKey, nil, "accepted partitions as <number>:<kind>[:iterable]; all partitions if empty")
	fs.String(LogLevelKey, "info", "log level, one of crit, error, warn, info, debug")
	fs.Bool(SyncKey, false, "sync every commit to disk")
	return fs
}

// GetViper creates a viper environment reading the given flags, environment
// variables prefixed by SUBSTATE_, and an optional config file.
func GetViper(fs *pflag.FlagSet, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("substate")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// LoadParameters reads the state parameters from a viper environment.
func LoadParameters(v *viper.Viper) (Parameters, error) {
	params := Parameters{
		Variant:   Variant(v.GetString(VariantKey)),
		Directory: v.GetString(DirectoryKey),
		LogLevel:  v.GetString(LogLevelKey),
		Sync:      v.GetBool(SyncKey),
	}
	var partitions []string
	for _, declaration := range v.GetStringSlice(PartitionsKey) {
		if declaration = strings.TrimSpace(declaration); declaration != "" {
			partitions = append(partitions, declaration)
		}
	}
	if len(partitions) == 0 {
		return params, nil
	}
	schema := &backend.Schema{}
	for _, declaration := range partitions {
		partition, err := backend.ParsePartitionSchema(declaration)
		if err != nil {
			return Parameters{}, err
		}
		schema.Partitions = append(schema.Partitions, partition)
	}
	if err := schema.Check(); err != nil {
		return Parameters{}, err
	}
	params.Schema = schema
	return params, nil
}
