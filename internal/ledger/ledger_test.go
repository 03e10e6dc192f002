package ledger

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKeypair(t *testing.T) *Keypair {
	t.Helper()
	kp, err := NewKeypair()
	require.NoError(t, err)
	return kp
}

func TestPublicKeyText(t *testing.T) {
	kp := newKeypair(t)

	parsed, err := ParsePublicKey(kp.Public.String())
	require.NoError(t, err)
	assert.Equal(t, kp.Public, parsed)

	_, err = ParsePublicKey("not-a-key")
	assert.ErrorIs(t, err, ErrInvalidKey)

	data, err := json.Marshal(struct {
		Key PublicKey `json:"key"`
	}{kp.Public})
	require.NoError(t, err)
	assert.Contains(t, string(data), kp.Public.String())

	assert.True(t, PublicKey{}.IsZero())
	assert.False(t, kp.Public.IsZero())
}

func TestKeypairFromSeedIsDeterministic(t *testing.T) {
	seed := make([]byte, 32)
	seed[0] = 7

	a, err := KeypairFromSeed(seed)
	require.NoError(t, err)
	b, err := KeypairFromSeed(seed)
	require.NoError(t, err)
	assert.Equal(t, a.Public, b.Public)

	_, err = KeypairFromSeed([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestMessageDataLayout(t *testing.T) {
	next := newKeypair(t).Public
	from := newKeypair(t).Public
	created := time.Unix(1700000000, 0)

	data := MessageData{Next: next, From: from, Created: created, Text: "hello"}.Encode()
	assert.Len(t, data, messageHeaderSize+len("hello"))
	assert.Equal(t, next[:], data[:PublicKeyLength])

	decoded, err := DecodeMessageData(data)
	require.NoError(t, err)
	assert.Equal(t, next, decoded.Next)
	assert.Equal(t, from, decoded.From)
	assert.True(t, created.Equal(decoded.Created))
	assert.Equal(t, "hello", decoded.Text)
	assert.False(t, decoded.IsTail())

	_, err = DecodeMessageData(data[:10])
	assert.ErrorIs(t, err, ErrAccountDataTooSmall)
}

func TestValidateText(t *testing.T) {
	assert.NoError(t, ValidateText("gm"))
	assert.ErrorIs(t, ValidateText("   "), ErrInvalidInput)
	assert.ErrorIs(t, ValidateText(strings.Repeat("x", MaxTextLength+1)), ErrInvalidInput)
	assert.ErrorIs(t, ValidateText("\xff\xfe"), ErrInvalidInput)
}

func TestTransactionSignAndVerify(t *testing.T) {
	message := newKeypair(t)
	poster := newKeypair(t)
	prev := newKeypair(t).Public

	tx, err := NewPostTransaction("hash", prev, "hello", message, poster)
	require.NoError(t, err)
	require.NoError(t, tx.Verify())
	assert.Equal(t, tx.Signatures[0].String(), tx.ID())

	encoded, err := tx.Encode()
	require.NoError(t, err)
	decoded, err := DecodeTransaction(encoded)
	require.NoError(t, err)
	require.NoError(t, decoded.Verify())
	assert.Equal(t, tx.Post, decoded.Post)

	decoded.Post.Text = "tampered"
	assert.ErrorIs(t, decoded.Verify(), ErrMissingSigner)

	decoded.Signatures = decoded.Signatures[:1]
	assert.ErrorIs(t, decoded.Verify(), ErrMissingSigner)

	_, err = NewPostTransaction("", prev, "hello", message, poster)
	assert.ErrorIs(t, err, ErrInvalidBlockhash)

	_, err = DecodeTransaction("%%%")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestRPCErrorRoundTrip(t *testing.T) {
	rpcErr := NewRPCError(errors.Join(errors.New("prev"), ErrStaleTail))
	assert.Equal(t, CodeStaleTail, rpcErr.Code)

	data, err := json.Marshal(rpcErr)
	require.NoError(t, err)
	var decoded RPCError
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.ErrorIs(t, &decoded, ErrStaleTail)

	internal := NewRPCError(errors.New("boom"))
	assert.Equal(t, CodeInternalError, internal.Code)
	assert.Nil(t, internal.Unwrap())
}

func TestWebsocketURL(t *testing.T) {
	u, err := websocketURL("http://localhost:8081")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8081/websocket", u)

	u, err = websocketURL("https://feed.example.com/rpc/")
	require.NoError(t, err)
	assert.Equal(t, "wss://feed.example.com/rpc/websocket", u)
}
