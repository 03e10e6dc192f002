package ledger

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextLength is the largest message text, in bytes, the program accepts
const MaxTextLength = 280

const messageHeaderSize = 2*PublicKeyLength + 8

// Account is the state stored at an address
type Account struct {
	PublicKey PublicKey
	Data      []byte
	Slot      uint64
}

// MessageData is the layout of a message account:
// next(32) | from(32) | created(8, big endian unix seconds) | text
type MessageData struct {
	Next    PublicKey
	From    PublicKey
	Created time.Time
	Text    string
}

// IsTail reports whether no message has been linked after this one
func (d MessageData) IsTail() bool {
	return d.Next.IsZero()
}

// Encode serializes the message into account data
func (d MessageData) Encode() []byte {
	buf := make([]byte, messageHeaderSize+len(d.Text))
	copy(buf[0:], d.Next[:])
	copy(buf[PublicKeyLength:], d.From[:])
	binary.BigEndian.PutUint64(buf[2*PublicKeyLength:], uint64(d.Created.Unix()))
	copy(buf[messageHeaderSize:], d.Text)
	return buf
}

// DecodeMessageData parses message account data
func DecodeMessageData(data []byte) (MessageData, error) {
	var d MessageData
	if len(data) < messageHeaderSize {
		return d, fmt.Errorf("%w: %d bytes", ErrAccountDataTooSmall, len(data))
	}
	copy(d.Next[:], data[0:PublicKeyLength])
	copy(d.From[:], data[PublicKeyLength:2*PublicKeyLength])
	d.Created = time.Unix(int64(binary.BigEndian.Uint64(data[2*PublicKeyLength:messageHeaderSize])), 0).UTC()
	d.Text = string(data[messageHeaderSize:])
	return d, nil
}

// Message decodes the account data as a message
func (a *Account) Message() (MessageData, error) {
	return DecodeMessageData(a.Data)
}

// ValidateText checks that text can be stored in a message account
func ValidateText(text string) error {
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: empty message", ErrInvalidInput)
	}
	if len(text) > MaxTextLength {
		return fmt.Errorf("%w: message is %d bytes, limit is %d", ErrInvalidInput, len(text), MaxTextLength)
	}
	if !utf8.ValidString(text) {
		return fmt.Errorf("%w: message is not valid utf-8", ErrInvalidInput)
	}
	return nil
}
