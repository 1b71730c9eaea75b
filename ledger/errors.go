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

package ledger

import (
	"errors"
)

// ErrorKind classifies ledger errors by how a caller is expected to react
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	// KindAuthorization errors are fatal to the call and never retried
	KindAuthorization
	// KindPrecondition errors mean the caller observed stale state
	KindPrecondition
	// KindResource errors need a different amount or more funds
	KindResource
	// KindLookup errors are caller programming errors
	KindLookup
	// KindInvalid errors are malformed calls
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthorization:
		return "authorization"
	case KindPrecondition:
		return "precondition"
	case KindResource:
		return "resource"
	case KindLookup:
		return "lookup"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Error is a ledger error with a stable code. Errors are compared by
// identity, so components declare them once as package-level sentinels
type Error struct {
	Kind ErrorKind
	Code string
}

func NewError(kind ErrorKind, code string) *Error {
	return &Error{Kind: kind, Code: code}
}

func (e *Error) Error() string {
	return e.Code
}

// KindOf returns the kind of the first ledger error in the chain
func KindOf(err error) ErrorKind {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first ledger error in the chain, or an
// empty string
func CodeOf(err error) string {
	var lerr *Error
	if errors.As(err, &lerr) {
		return lerr.Code
	}
	return ""
}

var (
	ErrUnknownSelector           = NewError(KindInvalid, "UnknownSelector")
	ErrInvalidCalldata           = NewError(KindInvalid, "InvalidCalldata")
	ErrNonPayable                = NewError(KindInvalid, "NonPayable")
	ErrReceiveRejected           = NewError(KindInvalid, "ReceiveRejected")
	ErrCallDepthExceeded         = NewError(KindInvalid, "CallDepthExceeded")
	ErrReadOnly                  = NewError(KindInvalid, "ReadOnly")
	ErrInsufficientNativeBalance = NewError(KindResource, "InsufficientNativeBalance")
	ErrContractNotFound          = NewError(KindLookup, "ContractNotFound")
)
