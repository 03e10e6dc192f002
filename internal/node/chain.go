package node

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

// recentBlockhashes is how many blocks back a transaction's blockhash may be
const recentBlockhashes = 150

const genesisPrevHash = "0"

// Block is one slot of the ledger
type Block struct {
	Height       uint64   `json:"height"`
	Time         int64    `json:"time"`
	PrevHash     string   `json:"prev_hash"`
	Hash         string   `json:"hash"`
	Transactions []string `json:"transactions"`
}

// calculateHash computes the SHA256 hash of a block over its height, time,
// previous hash and transaction signatures.
func calculateHash(b Block) string {
	data := fmt.Sprintf("%d%d%s%s",
		b.Height,
		b.Time,
		b.PrevHash,
		strings.Join(b.Transactions, ","),
	)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// validateBlock verifies that current correctly follows previous
func validateBlock(current, previous Block) error {
	if current.Height != previous.Height+1 {
		return fmt.Errorf("invalid height: expected %d, got %d", previous.Height+1, current.Height)
	}
	if current.PrevHash != previous.Hash {
		return fmt.Errorf("invalid prev hash: expected %s, got %s", previous.Hash, current.PrevHash)
	}
	if expected := calculateHash(current); current.Hash != expected {
		return fmt.Errorf("invalid hash: expected %s, got %s", expected, current.Hash)
	}
	return nil
}

func (b Block) marshal() ([]byte, error) {
	return json.Marshal(b)
}

func unmarshalBlock(data []byte) (*Block, error) {
	var b Block
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// Chain tracks the tip of the ledger and the recent blockhashes
type Chain struct {
	mu     sync.RWMutex
	latest Block
	recent []string
}

func newGenesisBlock(now time.Time, txs []string) Block {
	b := Block{
		Height:       0,
		Time:         now.UnixNano(),
		PrevHash:     genesisPrevHash,
		Transactions: txs,
	}
	b.Hash = calculateHash(b)
	return b
}

// newChain builds a chain whose tip is latest, remembering recent hashes
func newChain(latest Block, recent []string) *Chain {
	c := &Chain{latest: latest}
	for _, h := range recent {
		c.remember(h)
	}
	return c
}

func (c *Chain) remember(hash string) {
	c.recent = append(c.recent, hash)
	if len(c.recent) > recentBlockhashes {
		c.recent = c.recent[len(c.recent)-recentBlockhashes:]
	}
}

// Latest returns the tip of the chain
func (c *Chain) Latest() Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest
}

// Next builds the block following the tip without appending it
func (c *Chain) Next(now time.Time, txs []string) Block {
	c.mu.RLock()
	latest := c.latest
	c.mu.RUnlock()

	b := Block{
		Height:       latest.Height + 1,
		Time:         now.UnixNano(),
		PrevHash:     latest.Hash,
		Transactions: txs,
	}
	b.Hash = calculateHash(b)
	return b
}

// Append makes b the new tip after validating it against the current tip
func (c *Chain) Append(b Block) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := validateBlock(b, c.latest); err != nil {
		return fmt.Errorf("invalid block: %w", err)
	}
	c.latest = b
	c.remember(b.Hash)
	return nil
}

// IsRecent reports whether hash is one of the last recentBlockhashes blocks
func (c *Chain) IsRecent(hash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for i := len(c.recent) - 1; i >= 0; i-- {
		if c.recent[i] == hash {
			return true
		}
	}
	return false
}
