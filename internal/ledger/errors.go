package ledger

import (
	"errors"
	"fmt"
)

// Program errors returned by the message feed program
var (
	ErrAccountNotNew       = errors.New("account not new")
	ErrAccountDataTooSmall = errors.New("account data too small")
	ErrInvalidAccount      = errors.New("invalid account")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidKey          = errors.New("invalid key")
	ErrMissingSigner       = errors.New("missing signer")
	ErrInvalidBlockhash    = errors.New("blockhash not found")
	ErrStaleTail           = errors.New("message is not the tail of the feed")
	ErrDuplicate           = errors.New("transaction already processed")
	ErrMempoolFull         = errors.New("mempool full")
	ErrAccountNotFound     = errors.New("account not found")
)

// JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603

	CodeAccountNotNew       = -32001
	CodeAccountDataTooSmall = -32002
	CodeInvalidAccount      = -32003
	CodeInvalidInput        = -32004
	CodeInvalidKey          = -32005
	CodeMissingSigner       = -32006
	CodeInvalidBlockhash    = -32007
	CodeStaleTail           = -32008
	CodeDuplicate           = -32009
	CodeMempoolFull         = -32010
)

var programErrors = map[int]error{
	CodeAccountNotNew:       ErrAccountNotNew,
	CodeAccountDataTooSmall: ErrAccountDataTooSmall,
	CodeInvalidAccount:      ErrInvalidAccount,
	CodeInvalidInput:        ErrInvalidInput,
	CodeInvalidKey:          ErrInvalidKey,
	CodeMissingSigner:       ErrMissingSigner,
	CodeInvalidBlockhash:    ErrInvalidBlockhash,
	CodeStaleTail:           ErrStaleTail,
	CodeDuplicate:           ErrDuplicate,
	CodeMempoolFull:         ErrMempoolFull,
}

// RPCError is the error object of a JSON-RPC response
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Unwrap maps program error codes back to their sentinel so callers can
// use errors.Is on errors that crossed the wire.
func (e *RPCError) Unwrap() error {
	return programErrors[e.Code]
}

// NewRPCError converts err into an RPCError, keeping the program error code
// when err wraps one of the sentinels.
func NewRPCError(err error) *RPCError {
	var rpcErr *RPCError
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	for code, sentinel := range programErrors {
		if errors.Is(err, sentinel) {
			return &RPCError{Code: code, Message: err.Error()}
		}
	}
	return &RPCError{Code: CodeInternalError, Message: err.Error()}
}
