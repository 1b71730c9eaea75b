// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math/big"
)

// BigInt stores an arbitrary precision unsigned integer as a decimal string
//
//nolint:recvcheck
type BigInt struct {
	*big.Int
}

// NewBigInt returns a BigInt holding a copy of the provided value
func NewBigInt(v *big.Int) BigInt {
	if v == nil {
		return BigInt{Int: new(big.Int)}
	}
	return BigInt{Int: new(big.Int).Set(v)}
}

// Big returns a copy of the underlying value, treating nil as zero
func (b BigInt) Big() *big.Int {
	if b.Int == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(b.Int)
}

func (BigInt) GormDataType() string {
	return "string"
}

func (b BigInt) Value() (driver.Value, error) {
	if b.Int == nil {
		return "0", nil
	}
	return b.String(), nil
}

func (b *BigInt) Scan(val any) error {
	var v string
	switch tmp := val.(type) {
	case string:
		v = tmp
	case []byte:
		v = string(tmp)
	case nil:
		b.Int = new(big.Int)
		return nil
	default:
		return fmt.Errorf(
			"value was not expected type, wanted string, got %T",
			val,
		)
	}
	if v == "" {
		b.Int = new(big.Int)
		return nil
	}
	tmpInt, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return fmt.Errorf("failed to set big.Int value from string: %s", v)
	}
	b.Int = tmpInt
	return nil
}

// ErrBlobKeyNotFound is returned by blob operations when a key is missing
var ErrBlobKeyNotFound = errors.New("blob key not found")

// ErrTxnWrongType is returned when a transaction has the wrong type
var ErrTxnWrongType = errors.New("invalid transaction type")

// ErrNilTxn is returned when a nil transaction is provided where a valid transaction is required
var ErrNilTxn = errors.New("nil transaction")

// ErrBlobStoreUnavailable is returned when blob store cannot be accessed
var ErrBlobStoreUnavailable = errors.New("blob store unavailable")

// ErrRecordNotFound is returned by metadata lookups that match no rows
var ErrRecordNotFound = errors.New("record not found")

// BlobItem represents a value returned by an iterator
type BlobItem interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
}

// BlobIterator provides key iteration over the blob store.
//
// Items returned by Item() must only be accessed while the transaction used
// to create the iterator is still active.
type BlobIterator interface {
	Rewind()
	Seek(prefix []byte)
	Valid() bool
	ValidForPrefix(prefix []byte) bool
	Next()
	Item() BlobItem
	Close()
	Err() error
}

// BlobIteratorOptions configures blob iterator creation
type BlobIteratorOptions struct {
	Prefix  []byte
	Reverse bool
}

// Txn is a simple transaction handle for commit/rollback only.
// Database layer (Txn) coordinates metadata and blob operations separately.
type Txn interface {
	Commit() error
	Rollback() error
}
