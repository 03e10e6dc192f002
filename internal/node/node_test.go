package node

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/n0ko/message-feed/internal/ledger"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RPCAddr = "127.0.0.1:0"
	cfg.SlotInterval = 10 * time.Millisecond
	cfg.MempoolSize = 4
	return cfg
}

func newTestNode(t *testing.T, db dbm.DB) *Node {
	t.Helper()
	n, err := New(testConfig(), db, zerolog.Nop(), nil)
	require.NoError(t, err)
	return n
}

func newKeypair(t *testing.T) *ledger.Keypair {
	t.Helper()
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)
	return kp
}

func postTx(t *testing.T, n *Node, prev ledger.PublicKey, text string, poster *ledger.Keypair) (*ledger.Transaction, *ledger.Keypair) {
	t.Helper()
	message := newKeypair(t)
	tx, err := ledger.NewPostTransaction(n.chain.Latest().Hash, prev, text, message, poster)
	require.NoError(t, err)
	return tx, message
}

func readMessage(t *testing.T, n *Node, pk ledger.PublicKey) ledger.MessageData {
	t.Helper()
	data, err := n.Store().Account(pk)
	require.NoError(t, err)
	require.NotNil(t, data, "account %s missing", pk)
	msg, err := ledger.DecodeMessageData(data)
	require.NoError(t, err)
	return msg
}

func TestGenesisAndReload(t *testing.T) {
	db := dbm.NewMemDB()
	n := newTestNode(t, db)

	first := readMessage(t, n, n.FirstMessage())
	assert.Equal(t, "Welcome to the message feed", first.Text)
	assert.True(t, first.IsTail())

	for i := 0; i < 3; i++ {
		_, err := n.ProduceBlock()
		require.NoError(t, err)
	}
	require.NoError(t, n.Store().Verify())

	reopened := newTestNode(t, db)
	assert.Equal(t, n.FirstMessage(), reopened.FirstMessage())
	assert.Equal(t, uint64(3), reopened.chain.Latest().Height)
	assert.True(t, reopened.chain.IsRecent(n.chain.Latest().Hash))
}

func TestPostLinksNewTail(t *testing.T) {
	n := newTestNode(t, dbm.NewMemDB())
	poster := newKeypair(t)

	tx, message := postTx(t, n, n.FirstMessage(), "hello ledger", poster)
	sig, err := n.Submit(tx)
	require.NoError(t, err)

	block, err := n.ProduceBlock()
	require.NoError(t, err)
	assert.Equal(t, []string{sig}, block.Transactions)

	head := readMessage(t, n, n.FirstMessage())
	assert.Equal(t, message.Public, head.Next)

	tail := readMessage(t, n, message.Public)
	assert.Equal(t, "hello ledger", tail.Text)
	assert.Equal(t, poster.Public, tail.From)
	assert.True(t, tail.IsTail())

	status, err := n.Store().Status(sig)
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Nil(t, status.Err)
	assert.Equal(t, block.Height, status.Slot)
}

func TestConcurrentPostsOnSameTail(t *testing.T) {
	n := newTestNode(t, dbm.NewMemDB())
	poster := newKeypair(t)

	first, _ := postTx(t, n, n.FirstMessage(), "first", poster)
	second, _ := postTx(t, n, n.FirstMessage(), "second", poster)
	_, err := n.Submit(first)
	require.NoError(t, err)
	_, err = n.Submit(second)
	require.NoError(t, err)

	_, err = n.ProduceBlock()
	require.NoError(t, err)

	status, err := n.Store().Status(second.ID())
	require.NoError(t, err)
	require.NotNil(t, status)
	require.NotNil(t, status.Err)
	assert.ErrorIs(t, status.Err, ledger.ErrStaleTail)

	head := readMessage(t, n, n.FirstMessage())
	assert.Equal(t, first.Post.New, head.Next)
}

func TestChainedPostsInOneBlock(t *testing.T) {
	n := newTestNode(t, dbm.NewMemDB())
	poster := newKeypair(t)

	a, aKey := postTx(t, n, n.FirstMessage(), "a", poster)
	b, bKey := postTx(t, n, aKey.Public, "b", poster)
	_, err := n.Submit(a)
	require.NoError(t, err)
	_, err = n.Submit(b)
	require.NoError(t, err)

	_, err = n.ProduceBlock()
	require.NoError(t, err)

	assert.Equal(t, bKey.Public, readMessage(t, n, aKey.Public).Next)
	assert.Equal(t, "b", readMessage(t, n, bKey.Public).Text)
}

func TestSubmitRejects(t *testing.T) {
	n := newTestNode(t, dbm.NewMemDB())
	poster := newKeypair(t)

	stale, err := ledger.NewPostTransaction("unknown", n.FirstMessage(), "hi", newKeypair(t), poster)
	require.NoError(t, err)
	_, err = n.Submit(stale)
	assert.ErrorIs(t, err, ledger.ErrInvalidBlockhash)

	tampered, _ := postTx(t, n, n.FirstMessage(), "hi", poster)
	tampered.Post.Text = "bye"
	_, err = n.Submit(tampered)
	assert.ErrorIs(t, err, ledger.ErrMissingSigner)

	tx, _ := postTx(t, n, n.FirstMessage(), "hi", poster)
	_, err = n.Submit(tx)
	require.NoError(t, err)
	_, err = n.Submit(tx)
	assert.ErrorIs(t, err, ledger.ErrDuplicate)

	for i := 0; i < testConfig().MempoolSize-1; i++ {
		extra, _ := postTx(t, n, n.FirstMessage(), "fill", poster)
		_, err = n.Submit(extra)
		require.NoError(t, err)
	}
	overflow, _ := postTx(t, n, n.FirstMessage(), "overflow", poster)
	_, err = n.Submit(overflow)
	assert.ErrorIs(t, err, ledger.ErrMempoolFull)

	_, err = n.ProduceBlock()
	require.NoError(t, err)
	_, err = n.Submit(tx)
	assert.ErrorIs(t, err, ledger.ErrDuplicate)
}

func TestApplyPostValidation(t *testing.T) {
	n := newTestNode(t, dbm.NewMemDB())
	first := n.FirstMessage()
	now := time.Now()

	o := newOverlay(n.Store())
	err := applyPost(o, ledger.PostMessage{Prev: newKeypair(t).Public, New: newKeypair(t).Public, Text: "x"}, now)
	assert.ErrorIs(t, err, ledger.ErrInvalidAccount)

	err = applyPost(o, ledger.PostMessage{Prev: first, New: first, Text: "x"}, now)
	assert.ErrorIs(t, err, ledger.ErrInvalidAccount)

	err = applyPost(o, ledger.PostMessage{Prev: first, New: newKeypair(t).Public, Text: ""}, now)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	taken := newKeypair(t).Public
	o.writes[taken] = ledger.MessageData{Text: "occupied"}.Encode()
	err = applyPost(o, ledger.PostMessage{Prev: first, New: taken, Text: "x"}, now)
	assert.ErrorIs(t, err, ledger.ErrAccountNotNew)
	assert.Len(t, o.writes, 1)
}

func TestRPCClientRoundTrip(t *testing.T) {
	n := newTestNode(t, dbm.NewMemDB())
	srv := httptest.NewServer(n.Handler())
	defer srv.Close()

	ctx := context.Background()
	client := ledger.NewClient(srv.URL)

	account, err := client.GetAccountInfo(ctx, n.FirstMessage())
	require.NoError(t, err)
	msg, err := account.Message()
	require.NoError(t, err)
	assert.Equal(t, "Welcome to the message feed", msg.Text)

	_, err = client.GetAccountInfo(ctx, newKeypair(t).Public)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	blockhash, err := client.GetRecentBlockhash(ctx)
	require.NoError(t, err)
	assert.Equal(t, n.chain.Latest().Hash, blockhash)

	message := newKeypair(t)
	tx, err := ledger.NewPostTransaction(blockhash, n.FirstMessage(), "over the wire", message, newKeypair(t))
	require.NoError(t, err)
	sig, err := client.SendTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.ID(), sig)

	status, err := client.GetSignatureStatus(ctx, sig)
	require.NoError(t, err)
	assert.Nil(t, status)

	_, err = client.SendTransaction(ctx, tx)
	assert.ErrorIs(t, err, ledger.ErrDuplicate)

	_, err = n.ProduceBlock()
	require.NoError(t, err)

	cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.NoError(t, client.ConfirmTransaction(cctx, sig))

	slot, err := client.GetSlot(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), slot)

	resp, err := http.Get(srv.URL + "/config.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	var conf FeedConfig
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&conf))
	assert.Equal(t, n.FirstMessage(), conf.FirstMessage)
	assert.Equal(t, srv.URL, conf.URL)
}

func TestRPCErrors(t *testing.T) {
	n := newTestNode(t, dbm.NewMemDB())
	req := ledger.Request{JSONRPC: "2.0", ID: "1", Method: "nope"}
	_, rpcErr := n.dispatch(req)
	require.NotNil(t, rpcErr)
	assert.Equal(t, ledger.CodeMethodNotFound, rpcErr.Code)

	req = ledger.Request{JSONRPC: "2.0", ID: "2", Method: ledger.MethodGetAccountInfo, Params: json.RawMessage(`[1, 2]`)}
	_, rpcErr = n.dispatch(req)
	require.NotNil(t, rpcErr)
	assert.Equal(t, ledger.CodeInvalidParams, rpcErr.Code)

	req = ledger.Request{JSONRPC: "2.0", ID: "3", Method: ledger.MethodGetAccountInfo, Params: json.RawMessage(`["zzz"]`)}
	_, rpcErr = n.dispatch(req)
	require.NotNil(t, rpcErr)
	assert.Equal(t, ledger.CodeInvalidKey, rpcErr.Code)
}

func TestServeStreamsNotificationsAndStops(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	n := newTestNode(t, dbm.NewMemDB())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Serve(ctx, ln) }()

	subCtx, subCancel := context.WithCancel(context.Background())
	client := ledger.NewClient("http://" + ln.Addr().String())
	notes, err := client.Subscribe(subCtx)
	require.NoError(t, err)

	select {
	case note, ok := <-notes:
		require.True(t, ok)
		assert.NotEmpty(t, note.Blockhash)
		assert.Positive(t, note.Slot)
	case <-time.After(2 * time.Second):
		t.Fatal("no notification received")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("node did not stop")
	}

	subCancel()
	for range notes {
	}
}
