package errors

import (
	"encoding/json"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// Category classifies an error for machine handling on the oracle side.
// Rejected means the ledger refused the transition and no state changed.
type Category uint8

const (
	CategoryInternal Category = iota
	CategoryRejected
	CategoryUnauthorized
	CategoryResourceExceeded
)

func (c Category) String() string {
	switch c {
	case CategoryRejected:
		return "rejected"
	case CategoryUnauthorized:
		return "unauthorized"
	case CategoryResourceExceeded:
		return "resource_exceeded"
	default:
		return "internal"
	}
}

// Code is the type representing a namespace error code.
type Code[MT any] struct {
	Code     uint16
	Name     string
	Category Category
}

// New creates a new error with the given code and the message.
// Message text is matched by substring on the oracle side, don't rephrase it.
func (c Code[MT]) New(msg string, args ...any) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: fmt.Errorf(msg, args...),
	}
}

// Wrap creates a new Error with the given code and the cause error
func (c Code[MT]) Wrap(cause error) TypedError[MT] {
	return &ErrorImpl[MT]{
		code:  c,
		cause: cause,
	}
}

func (c Code[MT]) String() string {
	return fmt.Sprintf("%s (%d)", c.Name, c.Code)
}

// Is reports whether err carries this code.
func (c Code[MT]) Is(err error) bool {
	typed, ok := err.(Error)
	if !ok {
		return false
	}
	return typed.Code() == c.Code
}

type Error interface {
	error
	Log() *log.Entry
	Code() uint16
	CodeName() string
	Category() Category
	Message() string
	Metadata() map[string]string
}

type TypedError[MT any] interface {
	Error
	WithMetadata(MT) TypedError[MT]
}

// ErrorImpl is the default concrete implementation of TypedError.
type ErrorImpl[MT any] struct {
	code     Code[MT]
	cause    error
	metadata MT
}

func (e *ErrorImpl[MT]) Log() *log.Entry {
	return log.WithField("name", e.code.Name).
		WithField("code", e.code.Code).
		WithField("category", e.code.Category.String()).
		WithField("metadata", e.metadata)
}

func (e *ErrorImpl[MT]) Metadata() map[string]string {
	// convert any metadata to map[string]string
	metadata := make(map[string]string)
	buf, err := json.Marshal(e.metadata)
	if err == nil {
		var genericMap map[string]any
		if err := json.Unmarshal(buf, &genericMap); err == nil {
			for k, v := range genericMap {
				vStr := ""
				if v != nil {
					vStr = fmt.Sprintf("%v", v)
				}
				metadata[k] = vStr
			}
		}
	}
	return metadata
}

func (e *ErrorImpl[MT]) Category() Category {
	return e.code.Category
}

func (e *ErrorImpl[MT]) Code() uint16 {
	return e.code.Code
}

func (e *ErrorImpl[MT]) CodeName() string {
	return e.code.Name
}

// Message returns the bare cause text without the code prefix. This is the
// string transported back to oracles and fed to their retry classifier.
func (e *ErrorImpl[MT]) Message() string {
	return e.cause.Error()
}

// Error() implements the error interface.
func (e *ErrorImpl[MT]) Error() string {
	return fmt.Sprintf("%s: %s", e.code.String(), e.cause.Error())
}

func (e *ErrorImpl[MT]) WithMetadata(metadata MT) TypedError[MT] {
	e.metadata = metadata
	return e
}

type ChainMetadata struct {
	ChainID uint8 `json:"chain_id"`
}

type OracleMetadata struct {
	Account string `json:"account"`
}

type ReceiptMetadata struct {
	ChainID uint8  `json:"chain_id"`
	Index   uint64 `json:"index"`
}

type TeleportMetadata struct {
	TeleportID uint64 `json:"teleport_id"`
}

type DepositMetadata struct {
	Account   string `json:"account"`
	Requested string `json:"requested"`
	Available string `json:"available"`
}

type QuantityMetadata struct {
	Expected string `json:"expected"`
	Got      string `json:"got"`
}

type FeeMetadata struct {
	FixedFee      string `json:"fixed_fee"`
	VariableRatio string `json:"variable_ratio"`
}

var INTERNAL_ERROR = Code[map[string]any]{0, "INTERNAL_ERROR", CategoryInternal}
var UNAUTHORIZED = Code[OracleMetadata]{1, "UNAUTHORIZED", CategoryUnauthorized}
var ALREADY_INITIALIZED = Code[any]{2, "ALREADY_INITIALIZED", CategoryRejected}
var NOT_INITIALIZED = Code[any]{3, "NOT_INITIALIZED", CategoryRejected}
var DUPLICATE_CHAIN_ID = Code[ChainMetadata]{4, "DUPLICATE_CHAIN_ID", CategoryRejected}
var CHAIN_NOT_FOUND = Code[ChainMetadata]{5, "CHAIN_NOT_FOUND", CategoryRejected}
var ALREADY_ORACLE = Code[OracleMetadata]{6, "ALREADY_ORACLE", CategoryRejected}
var NOT_ORACLE = Code[OracleMetadata]{7, "NOT_ORACLE", CategoryRejected}
var FROZEN = Code[any]{8, "FROZEN", CategoryRejected}
var WRONG_TOKEN = Code[QuantityMetadata]{9, "WRONG_TOKEN", CategoryRejected}
var BELOW_MINIMUM = Code[QuantityMetadata]{10, "BELOW_MINIMUM", CategoryRejected}
var NO_DEPOSIT = Code[DepositMetadata]{11, "NO_DEPOSIT", CategoryRejected}

var INSUFFICIENT_DEPOSIT = Code[DepositMetadata]{
	12,
	"INSUFFICIENT_DEPOSIT",
	CategoryRejected,
}

var TELEPORT_NOT_FOUND = Code[TeleportMetadata]{13, "TELEPORT_NOT_FOUND", CategoryRejected}
var ALREADY_SIGNED = Code[TeleportMetadata]{14, "ALREADY_SIGNED", CategoryRejected}

var DUPLICATE_SIGNATURE = Code[TeleportMetadata]{
	15,
	"DUPLICATE_SIGNATURE",
	CategoryRejected,
}

var ALREADY_CLAIMED = Code[TeleportMetadata]{16, "ALREADY_CLAIMED", CategoryRejected}
var QUANTITY_MISMATCH = Code[QuantityMetadata]{17, "QUANTITY_MISMATCH", CategoryRejected}
var RECEIPT_COMPLETED = Code[ReceiptMetadata]{18, "RECEIPT_COMPLETED", CategoryRejected}

var RECEIPT_OUT_OF_ORDER = Code[ReceiptMetadata]{
	19,
	"RECEIPT_OUT_OF_ORDER",
	CategoryRejected,
}

var ALREADY_APPROVED = Code[ReceiptMetadata]{20, "ALREADY_APPROVED", CategoryRejected}
var NOT_CONFIRMED = Code[ReceiptMetadata]{21, "NOT_CONFIRMED", CategoryRejected}
var INVALID_FEE = Code[FeeMetadata]{22, "INVALID_FEE", CategoryRejected}
var INVALID_THRESHOLD = Code[any]{23, "INVALID_THRESHOLD", CategoryRejected}
var NOT_EXPIRED = Code[TeleportMetadata]{24, "NOT_EXPIRED", CategoryRejected}

var RESOURCE_EXCEEDED = Code[map[string]any]{
	25,
	"RESOURCE_EXCEEDED",
	CategoryResourceExceeded,
}

var RECEIPT_NOT_FOUND = Code[ReceiptMetadata]{26, "RECEIPT_NOT_FOUND", CategoryRejected}
var NO_ORACLES = Code[any]{27, "NO_ORACLES", CategoryRejected}
