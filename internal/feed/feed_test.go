package feed

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/n0ko/message-feed/internal/ledger"
)

// fakeConn keeps message accounts in memory and applies posts on send
type fakeConn struct {
	mu        sync.Mutex
	accounts  map[ledger.PublicKey]ledger.MessageData
	statuses  map[string]error
	failGet   map[ledger.PublicKey]error
	blockhash string
	sent      []*ledger.Transaction
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		accounts:  make(map[ledger.PublicKey]ledger.MessageData),
		statuses:  make(map[string]error),
		failGet:   make(map[ledger.PublicKey]error),
		blockhash: "hash",
	}
}

func (c *fakeConn) GetAccountInfo(_ context.Context, key ledger.PublicKey) (*ledger.Account, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.failGet[key]; err != nil {
		return nil, err
	}
	data, ok := c.accounts[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ledger.ErrAccountNotFound, key)
	}
	return &ledger.Account{PublicKey: key, Data: data.Encode()}, nil
}

func (c *fakeConn) GetRecentBlockhash(context.Context) (string, error) {
	return c.blockhash, nil
}

func (c *fakeConn) SendTransaction(_ context.Context, tx *ledger.Transaction) (string, error) {
	if err := tx.Verify(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, tx)

	prev, ok := c.accounts[tx.Post.Prev]
	switch {
	case !ok:
		c.statuses[tx.ID()] = ledger.ErrInvalidAccount
	case !prev.IsTail():
		c.statuses[tx.ID()] = ledger.ErrStaleTail
	default:
		prev.Next = tx.Post.New
		c.accounts[tx.Post.Prev] = prev
		c.accounts[tx.Post.New] = ledger.MessageData{From: tx.Post.From, Created: time.Unix(1700000000, 0), Text: tx.Post.Text}
		c.statuses[tx.ID()] = nil
	}
	return tx.ID(), nil
}

func (c *fakeConn) ConfirmTransaction(_ context.Context, sig string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err, ok := c.statuses[sig]
	if !ok {
		return errors.New("unknown signature")
	}
	return err
}

// chain seeds a feed of texts and returns the message keys in order
func (c *fakeConn) chain(t *testing.T, texts ...string) []ledger.PublicKey {
	t.Helper()
	keys := make([]ledger.PublicKey, len(texts))
	for i := range texts {
		kp, err := ledger.NewKeypair()
		require.NoError(t, err)
		keys[i] = kp.Public
	}
	for i, text := range texts {
		data := ledger.MessageData{Created: time.Unix(int64(1700000000+i), 0), Text: text}
		if i+1 < len(keys) {
			data.Next = keys[i+1]
		}
		c.accounts[keys[i]] = data
	}
	return keys
}

func texts(messages []Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.Text
	}
	return out
}

func TestGetFirstMessage(t *testing.T) {
	kp, err := ledger.NewKeypair()
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/config.json":
			fmt.Fprintf(w, `{"firstMessage": %q, "url": "http://ledger:8899"}`, kp.Public.String())
		case "/no-url.json":
			fmt.Fprintf(w, `{"firstMessage": %q}`, kp.Public.String())
		case "/bad.json":
			w.Write([]byte("not json"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	cfg, err := GetFirstMessage(ctx, srv.URL+"/config.json")
	require.NoError(t, err)
	assert.Equal(t, kp.Public, cfg.FirstMessage)
	assert.Equal(t, "http://ledger:8899", cfg.URL)

	_, err = GetFirstMessage(ctx, srv.URL+"/no-url.json")
	assert.Error(t, err)

	_, err = GetFirstMessage(ctx, srv.URL+"/bad.json")
	assert.Error(t, err)

	_, err = GetFirstMessage(ctx, srv.URL+"/missing.json")
	assert.Error(t, err)
}

func TestRefreshMessageFeed(t *testing.T) {
	conn := newFakeConn()
	keys := conn.chain(t, "one", "two", "three")
	ctx := context.Background()

	messages, err := RefreshMessageFeed(ctx, conn, nil, keys[0])
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two", "three"}, texts(messages))
	assert.Equal(t, keys[2], messages[2].PublicKey)
	assert.Equal(t, int64(1700000001), messages[1].Created.Unix())

	again, err := RefreshMessageFeed(ctx, conn, messages, keys[0])
	require.NoError(t, err)
	assert.Equal(t, messages, again)
}

func TestRefreshMessageFeedExtendsWithoutTouchingExisting(t *testing.T) {
	conn := newFakeConn()
	keys := conn.chain(t, "one", "two")
	ctx := context.Background()

	messages, err := RefreshMessageFeed(ctx, conn, nil, keys[0])
	require.NoError(t, err)
	messages[0].Text = "edited locally"

	poster, err := ledger.NewKeypair()
	require.NoError(t, err)
	_, err = PostMessage(ctx, conn, poster, "three", keys[1])
	require.NoError(t, err)

	messages, err = RefreshMessageFeed(ctx, conn, messages, ledger.PublicKey{})
	require.NoError(t, err)
	assert.Equal(t, []string{"edited locally", "two", "three"}, texts(messages))
	assert.Equal(t, poster.Public, messages[2].From)
}

func TestRefreshMessageFeedBatchLimit(t *testing.T) {
	conn := newFakeConn()
	all := make([]string, MaxRefreshBatch+10)
	for i := range all {
		all[i] = fmt.Sprintf("m%d", i)
	}
	keys := conn.chain(t, all...)
	ctx := context.Background()

	messages, err := RefreshMessageFeed(ctx, conn, nil, keys[0])
	require.NoError(t, err)
	assert.Len(t, messages, MaxRefreshBatch+1)

	messages, err = RefreshMessageFeed(ctx, conn, messages, keys[0])
	require.NoError(t, err)
	assert.Equal(t, all, texts(messages))
}

func TestRefreshMessageFeedErrors(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()

	_, err := RefreshMessageFeed(ctx, conn, nil, ledger.PublicKey{})
	assert.ErrorIs(t, err, ErrNoFirstMessage)

	keys := conn.chain(t, "one", "two", "three")
	boom := errors.New("boom")
	conn.failGet[keys[2]] = boom

	messages, err := RefreshMessageFeed(ctx, conn, nil, keys[0])
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"one", "two"}, texts(messages))

	missing, err := ledger.NewKeypair()
	require.NoError(t, err)
	_, err = RefreshMessageFeed(ctx, conn, nil, missing.Public)
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestPostMessage(t *testing.T) {
	ctx := context.Background()
	conn := newFakeConn()
	keys := conn.chain(t, "hello")
	poster, err := ledger.NewKeypair()
	require.NoError(t, err)

	key, err := PostMessage(ctx, conn, poster, "  hi there \n", keys[0])
	require.NoError(t, err)
	require.Len(t, conn.sent, 1)
	tx := conn.sent[0]
	assert.Equal(t, "hi there", tx.Post.Text)
	assert.Equal(t, key, tx.Post.New)
	assert.Equal(t, poster.Public, tx.Post.From)
	assert.Equal(t, "hash", tx.RecentBlockhash)

	_, err = PostMessage(ctx, conn, poster, "late", keys[0])
	assert.ErrorIs(t, err, ledger.ErrStaleTail)

	_, err = PostMessage(ctx, conn, poster, "   ", key)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = PostMessage(ctx, conn, poster, strings.Repeat("x", ledger.MaxTextLength+1), key)
	assert.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = PostMessage(ctx, conn, poster, "orphan", ledger.PublicKey{})
	assert.ErrorIs(t, err, ledger.ErrInvalidAccount)
	assert.Len(t, conn.sent, 2)
}
