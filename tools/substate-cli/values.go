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
	"strconv"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/radixdlt/radixdlt-scrypto-sub020/codec"
	"github.com/urfave/cli/v2"
)

var codecFlag = cli.StringFlag{
	Name:  "codec",
	Usage: "the encoding of substate values, one of raw, msgpack, rlp, cbor",
	Value: "raw",
}

// valueFormat converts between substate values and their command line
// representation.
type valueFormat interface {
	Parse(string) ([]byte, error)
	Format([]byte) (string, error)
}

func parseValueFormat(name string) (valueFormat, error) {
	switch name {
	case "raw":
		return rawFormat{}, nil
	case "msgpack":
		return typedFormat{codec.Msgpack[any]{}}, nil
	case "rlp":
		return typedFormat{codec.Rlp[any]{}}, nil
	case "cbor":
		return typedFormat{codec.Cbor[any]{}}, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// rawFormat shows values as hex strings.
type rawFormat struct{}

func (rawFormat) Parse(s string) ([]byte, error) {
	return hexutil.Decode(s)
}

func (rawFormat) Format(value []byte) (string, error) {
	return hexutil.Encode(value), nil
}

// typedFormat decodes values with a codec. Parsed values are encoded as
// unsigned integers if they are numeric, as strings otherwise.
type typedFormat struct {
	codec codec.Codec[any]
}

func (f typedFormat) Parse(s string) ([]byte, error) {
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return f.codec.Encode(n)
	}
	return f.codec.Encode(s)
}

func (f typedFormat) Format(value []byte) (string, error) {
	decoded, err := f.codec.Decode(value)
	if err != nil {
		return "", err
	}
	if data, ok := decoded.([]byte); ok {
		return hexutil.Encode(data), nil
	}
	return fmt.Sprintf("%v", decoded), nil
}
