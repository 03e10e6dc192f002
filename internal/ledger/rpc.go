package ledger

import "encoding/json"

// JSON-RPC methods served by the node
const (
	MethodGetAccountInfo     = "getAccountInfo"
	MethodGetRecentBlockhash = "getRecentBlockhash"
	MethodGetSlot            = "getSlot"
	MethodSendTransaction    = "sendTransaction"
	MethodGetSignatureStatus = "getSignatureStatus"
)

// WebsocketPath is where the node serves slot notifications
const WebsocketPath = "/websocket"

// Request is a JSON-RPC 2.0 request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Context tells the caller at which slot a result was read
type Context struct {
	Slot uint64 `json:"slot"`
}

// AccountInfo is the wire form of an account. Data is base64.
type AccountInfo struct {
	Data string `json:"data"`
	Slot uint64 `json:"slot"`
}

// AccountInfoResult is returned by getAccountInfo. Value is nil when the
// account does not exist.
type AccountInfoResult struct {
	Context Context      `json:"context"`
	Value   *AccountInfo `json:"value"`
}

// BlockhashResult is returned by getRecentBlockhash
type BlockhashResult struct {
	Context   Context `json:"context"`
	Blockhash string  `json:"blockhash"`
}

// SignatureStatus reports the outcome of a processed transaction. A nil
// status means the node has not processed the signature yet.
type SignatureStatus struct {
	Slot uint64    `json:"slot"`
	Err  *RPCError `json:"err,omitempty"`
}

// Notification is pushed to websocket subscribers after each block
type Notification struct {
	Slot      uint64      `json:"slot"`
	Blockhash string      `json:"blockhash"`
	Accounts  []PublicKey `json:"accounts,omitempty"`
}
