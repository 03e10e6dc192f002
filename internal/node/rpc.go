package node

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/cors"

	"github.com/n0ko/message-feed/internal/ledger"
)

const maxRequestBytes = 1 << 20

// FeedConfig is served at /config.json so clients can find the feed
type FeedConfig struct {
	FirstMessage ledger.PublicKey `json:"firstMessage"`
	URL          string           `json:"url"`
}

// Handler returns the HTTP handler serving JSON-RPC, config.json, health and
// websocket notifications.
func (n *Node) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", n.serveRPC)
	mux.HandleFunc("/config.json", n.serveConfig)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc(ledger.WebsocketPath, n.hub.serveWS)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: n.cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	return corsMiddleware.Handler(mux)
}

func (n *Node) serveConfig(w http.ResponseWriter, r *http.Request) {
	url := n.cfg.PublicURL
	if url == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		url = scheme + "://" + r.Host
	}
	writeJSON(w, http.StatusOK, FeedConfig{FirstMessage: n.first, URL: url})
}

func (n *Node) serveRPC(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req ledger.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusOK, ledger.Response{
			JSONRPC: "2.0",
			Error:   &ledger.RPCError{Code: ledger.CodeParseError, Message: err.Error()},
		})
		return
	}

	resp := ledger.Response{JSONRPC: "2.0", ID: req.ID}
	result, rpcErr := n.dispatch(req)
	if rpcErr != nil {
		resp.Error = rpcErr
		n.logger.Debug().Str("method", req.Method).Int("code", rpcErr.Code).Msg(rpcErr.Message)
	} else {
		raw, err := json.Marshal(result)
		if err != nil {
			resp.Error = &ledger.RPCError{Code: ledger.CodeInternalError, Message: err.Error()}
		} else {
			resp.Result = raw
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (n *Node) dispatch(req ledger.Request) (any, *ledger.RPCError) {
	switch req.Method {
	case ledger.MethodGetAccountInfo:
		key, rpcErr := stringParam(req.Params)
		if rpcErr != nil {
			return nil, rpcErr
		}
		pk, err := ledger.ParsePublicKey(key)
		if err != nil {
			return nil, ledger.NewRPCError(err)
		}
		return n.accountInfo(pk)

	case ledger.MethodGetRecentBlockhash:
		latest := n.chain.Latest()
		return ledger.BlockhashResult{
			Context:   ledger.Context{Slot: latest.Height},
			Blockhash: latest.Hash,
		}, nil

	case ledger.MethodGetSlot:
		return n.chain.Latest().Height, nil

	case ledger.MethodSendTransaction:
		encoded, rpcErr := stringParam(req.Params)
		if rpcErr != nil {
			return nil, rpcErr
		}
		tx, err := ledger.DecodeTransaction(encoded)
		if err != nil {
			return nil, ledger.NewRPCError(err)
		}
		sig, err := n.Submit(tx)
		if err != nil {
			return nil, ledger.NewRPCError(err)
		}
		return sig, nil

	case ledger.MethodGetSignatureStatus:
		sig, rpcErr := stringParam(req.Params)
		if rpcErr != nil {
			return nil, rpcErr
		}
		status, err := n.store.Status(sig)
		if err != nil {
			return nil, ledger.NewRPCError(err)
		}
		return status, nil

	default:
		return nil, &ledger.RPCError{
			Code:    ledger.CodeMethodNotFound,
			Message: fmt.Sprintf("method %q not found", req.Method),
		}
	}
}

func (n *Node) accountInfo(pk ledger.PublicKey) (any, *ledger.RPCError) {
	data, err := n.store.Account(pk)
	if err != nil {
		return nil, ledger.NewRPCError(err)
	}
	slot := n.chain.Latest().Height
	res := ledger.AccountInfoResult{Context: ledger.Context{Slot: slot}}
	if data != nil {
		res.Value = &ledger.AccountInfo{
			Data: base64.StdEncoding.EncodeToString(data),
			Slot: slot,
		}
	}
	return res, nil
}

// stringParam extracts the single string positional parameter
func stringParam(raw json.RawMessage) (string, *ledger.RPCError) {
	var params []string
	if err := json.Unmarshal(raw, &params); err != nil || len(params) != 1 {
		return "", &ledger.RPCError{Code: ledger.CodeInvalidParams, Message: "expected one string parameter"}
	}
	return params[0], nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
