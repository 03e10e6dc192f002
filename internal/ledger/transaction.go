package ledger

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
)

// PostMessage links a new message account after Prev
type PostMessage struct {
	Prev PublicKey `json:"prev"`
	New  PublicKey `json:"new"`
	From PublicKey `json:"from"`
	Text string    `json:"text"`
}

// Transaction carries a single post instruction. It must be signed by the
// new message account and by the poster, in that order.
type Transaction struct {
	RecentBlockhash string      `json:"recentBlockhash"`
	Post            PostMessage `json:"post"`
	Signatures      []Signature `json:"signatures"`
}

// NewPostTransaction builds and signs a transaction posting text after prev
func NewPostTransaction(blockhash string, prev PublicKey, text string, message, poster *Keypair) (*Transaction, error) {
	if err := ValidateText(text); err != nil {
		return nil, err
	}
	if blockhash == "" {
		return nil, fmt.Errorf("%w: empty blockhash", ErrInvalidBlockhash)
	}

	tx := &Transaction{
		RecentBlockhash: blockhash,
		Post: PostMessage{
			Prev: prev,
			New:  message.Public,
			From: poster.Public,
			Text: text,
		},
	}
	msg := tx.SigningBytes()
	tx.Signatures = []Signature{message.Sign(msg), poster.Sign(msg)}
	return tx, nil
}

// SigningBytes returns the canonical bytes covered by the signatures
func (tx *Transaction) SigningBytes() []byte {
	var buf bytes.Buffer
	writeField := func(b []byte) {
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(b)))
		buf.Write(n[:])
		buf.Write(b)
	}
	writeField([]byte(tx.RecentBlockhash))
	writeField(tx.Post.Prev[:])
	writeField(tx.Post.New[:])
	writeField(tx.Post.From[:])
	writeField([]byte(tx.Post.Text))
	return buf.Bytes()
}

// ID returns the transaction signature used to track its status
func (tx *Transaction) ID() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return tx.Signatures[0].String()
}

// Verify checks that both required signers signed the transaction
func (tx *Transaction) Verify() error {
	if len(tx.Signatures) != 2 {
		return fmt.Errorf("%w: want 2 signatures, got %d", ErrMissingSigner, len(tx.Signatures))
	}
	msg := tx.SigningBytes()
	if !tx.Post.New.Verify(msg, tx.Signatures[0]) {
		return fmt.Errorf("%w: message account %s", ErrMissingSigner, tx.Post.New)
	}
	if !tx.Post.From.Verify(msg, tx.Signatures[1]) {
		return fmt.Errorf("%w: poster %s", ErrMissingSigner, tx.Post.From)
	}
	return nil
}

// Encode returns the wire form of the transaction
func (tx *Transaction) Encode() (string, error) {
	data, err := json.Marshal(tx)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeTransaction parses the wire form produced by Encode
func DecodeTransaction(s string) (*Transaction, error) {
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: transaction is not base64: %v", ErrInvalidInput, err)
	}
	var tx Transaction
	if err := json.Unmarshal(data, &tx); err != nil {
		return nil, fmt.Errorf("%w: malformed transaction: %v", ErrInvalidInput, err)
	}
	return &tx, nil
}
