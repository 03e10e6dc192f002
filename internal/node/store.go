package node

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	dbm "github.com/tendermint/tm-db"

	"github.com/n0ko/message-feed/internal/ledger"
)

var (
	heightKey       = []byte("height")
	firstMessageKey = []byte("first")
)

func accountKey(pk ledger.PublicKey) []byte {
	return append([]byte("acct/"), pk[:]...)
}

func blockKey(height uint64) []byte {
	key := make([]byte, len("block/")+8)
	copy(key, "block/")
	binary.BigEndian.PutUint64(key[len("block/"):], height)
	return key
}

func statusKey(sig string) []byte {
	return []byte("sig/" + sig)
}

// Store persists ledger state in a tm-db database
type Store struct {
	mtx sync.RWMutex
	db  dbm.DB
}

// NewStore wraps db
func NewStore(db dbm.DB) *Store {
	return &Store{db: db}
}

// Account returns the data stored at pk, or nil if there is none
func (s *Store) Account(pk ledger.PublicKey) ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.db.Get(accountKey(pk))
}

// Height returns the latest committed height and whether any block exists
func (s *Store) Height() (uint64, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	bz, err := s.db.Get(heightKey)
	if err != nil {
		return 0, false, err
	}
	if len(bz) != 8 {
		return 0, false, nil
	}
	return binary.BigEndian.Uint64(bz), true, nil
}

// Block loads the block at height
func (s *Store) Block(height uint64) (*Block, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	bz, err := s.db.Get(blockKey(height))
	if err != nil {
		return nil, err
	}
	if bz == nil {
		return nil, fmt.Errorf("block %d not found", height)
	}
	return unmarshalBlock(bz)
}

// FirstMessage returns the genesis message account
func (s *Store) FirstMessage() (ledger.PublicKey, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	var pk ledger.PublicKey
	bz, err := s.db.Get(firstMessageKey)
	if err != nil {
		return pk, err
	}
	if len(bz) != ledger.PublicKeyLength {
		return pk, fmt.Errorf("first message not found")
	}
	copy(pk[:], bz)
	return pk, nil
}

// Status returns the recorded outcome of a transaction, or nil
func (s *Store) Status(sig string) (*ledger.SignatureStatus, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	bz, err := s.db.Get(statusKey(sig))
	if err != nil || bz == nil {
		return nil, err
	}
	var status ledger.SignatureStatus
	if err := json.Unmarshal(bz, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// commit is everything a block changes
type commit struct {
	block    Block
	accounts map[ledger.PublicKey][]byte
	statuses map[string]ledger.SignatureStatus
	first    *ledger.PublicKey
}

// Commit writes a block and its state changes atomically
func (s *Store) Commit(c commit) error {
	blockBz, err := c.block.marshal()
	if err != nil {
		return fmt.Errorf("marshalling block: %w", err)
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	b := s.db.NewBatch()
	defer b.Close()

	for pk, data := range c.accounts {
		if err := b.Set(accountKey(pk), data); err != nil {
			return err
		}
	}
	for sig, status := range c.statuses {
		bz, err := json.Marshal(status)
		if err != nil {
			return fmt.Errorf("marshalling status: %w", err)
		}
		if err := b.Set(statusKey(sig), bz); err != nil {
			return err
		}
	}
	if c.first != nil {
		if err := b.Set(firstMessageKey, c.first[:]); err != nil {
			return err
		}
	}
	if err := b.Set(blockKey(c.block.Height), blockBz); err != nil {
		return err
	}
	var h [8]byte
	binary.BigEndian.PutUint64(h[:], c.block.Height)
	if err := b.Set(heightKey, h[:]); err != nil {
		return err
	}

	return b.WriteSync()
}

// Verify walks every stored block and checks the hash links
func (s *Store) Verify() error {
	height, ok, err := s.Height()
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("empty ledger")
	}

	prev, err := s.Block(0)
	if err != nil {
		return err
	}
	if prev.PrevHash != genesisPrevHash || prev.Hash != calculateHash(*prev) {
		return fmt.Errorf("invalid genesis block")
	}
	for h := uint64(1); h <= height; h++ {
		cur, err := s.Block(h)
		if err != nil {
			return err
		}
		if err := validateBlock(*cur, *prev); err != nil {
			return fmt.Errorf("block %d invalid: %w", h, err)
		}
		prev = cur
	}
	return nil
}
