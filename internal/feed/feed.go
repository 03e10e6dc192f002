package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/n0ko/message-feed/internal/ledger"
)

const (
	// MaxRefreshBatch bounds the number of messages fetched by one refresh
	MaxRefreshBatch = 100

	configTimeout  = 10 * time.Second
	confirmTimeout = 30 * time.Second
)

// ErrNoFirstMessage is returned when a refresh has neither loaded messages
// nor a first message to start from.
var ErrNoFirstMessage = errors.New("no first message")

// Config is the feed location published by the node as config.json
type Config struct {
	FirstMessage ledger.PublicKey `json:"firstMessage"`
	URL          string           `json:"url"`
}

// Message is one entry of the feed
type Message struct {
	PublicKey ledger.PublicKey `json:"publicKey"`
	From      ledger.PublicKey `json:"from"`
	Created   time.Time        `json:"created"`
	Text      string           `json:"text"`
}

// Conn is the subset of the ledger client the feed needs
type Conn interface {
	GetAccountInfo(ctx context.Context, key ledger.PublicKey) (*ledger.Account, error)
	GetRecentBlockhash(ctx context.Context) (string, error)
	SendTransaction(ctx context.Context, tx *ledger.Transaction) (string, error)
	ConfirmTransaction(ctx context.Context, sig string) error
}

// GetFirstMessage fetches config.json from configURL
func GetFirstMessage(ctx context.Context, configURL string) (Config, error) {
	var cfg Config

	ctx, cancel := context.WithTimeout(ctx, configTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, configURL, nil)
	if err != nil {
		return cfg, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return cfg, fmt.Errorf("failed to fetch %s: %w", configURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return cfg, fmt.Errorf("failed to fetch %s: %s", configURL, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("malformed config from %s: %w", configURL, err)
	}
	if cfg.FirstMessage.IsZero() {
		return cfg, fmt.Errorf("config from %s has no firstMessage", configURL)
	}
	if cfg.URL == "" {
		return cfg, fmt.Errorf("config from %s has no url", configURL)
	}
	return cfg, nil
}

func loadMessage(ctx context.Context, conn Conn, key ledger.PublicKey) (Message, ledger.PublicKey, error) {
	account, err := conn.GetAccountInfo(ctx, key)
	if err != nil {
		return Message{}, ledger.PublicKey{}, err
	}
	data, err := account.Message()
	if err != nil {
		return Message{}, ledger.PublicKey{}, fmt.Errorf("message %s: %w", key, err)
	}
	return Message{
		PublicKey: key,
		From:      data.From,
		Created:   data.Created,
		Text:      data.Text,
	}, data.Next, nil
}

// RefreshMessageFeed extends messages with everything posted after its last
// entry. When messages is empty the walk starts at first. Existing entries
// are never modified. On error the messages loaded so far are returned along
// with the error.
func RefreshMessageFeed(ctx context.Context, conn Conn, messages []Message, first ledger.PublicKey) ([]Message, error) {
	if len(messages) == 0 {
		if first.IsZero() {
			return messages, ErrNoFirstMessage
		}
		msg, _, err := loadMessage(ctx, conn, first)
		if err != nil {
			return messages, err
		}
		messages = append(messages, msg)
	}

	for i := 0; i < MaxRefreshBatch; i++ {
		tail := messages[len(messages)-1]
		account, err := conn.GetAccountInfo(ctx, tail.PublicKey)
		if err != nil {
			return messages, err
		}
		data, err := account.Message()
		if err != nil {
			return messages, fmt.Errorf("message %s: %w", tail.PublicKey, err)
		}
		if data.IsTail() {
			return messages, nil
		}

		msg, _, err := loadMessage(ctx, conn, data.Next)
		if err != nil {
			return messages, err
		}
		log.Debug().Str("message", msg.PublicKey.String()).Msg("loaded message")
		messages = append(messages, msg)
	}
	return messages, nil
}

// PostMessage posts text after prev and waits for the ledger to confirm it.
// It returns the public key of the new message account.
func PostMessage(ctx context.Context, conn Conn, poster *ledger.Keypair, text string, prev ledger.PublicKey) (ledger.PublicKey, error) {
	text = strings.TrimSpace(text)
	if err := ledger.ValidateText(text); err != nil {
		return ledger.PublicKey{}, err
	}
	if prev.IsZero() {
		return ledger.PublicKey{}, fmt.Errorf("%w: no previous message", ledger.ErrInvalidAccount)
	}

	message, err := ledger.NewKeypair()
	if err != nil {
		return ledger.PublicKey{}, err
	}
	blockhash, err := conn.GetRecentBlockhash(ctx)
	if err != nil {
		return ledger.PublicKey{}, fmt.Errorf("failed to get recent blockhash: %w", err)
	}
	tx, err := ledger.NewPostTransaction(blockhash, prev, text, message, poster)
	if err != nil {
		return ledger.PublicKey{}, err
	}

	sig, err := conn.SendTransaction(ctx, tx)
	if err != nil {
		return ledger.PublicKey{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	log.Info().Str("signature", sig).Str("message", message.Public.String()).Msg("sent post")

	cctx, cancel := context.WithTimeout(ctx, confirmTimeout)
	defer cancel()
	if err := conn.ConfirmTransaction(cctx, sig); err != nil {
		return ledger.PublicKey{}, err
	}
	return message.Public, nil
}
