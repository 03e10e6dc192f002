package node

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	dbm "github.com/tendermint/tm-db"
	"golang.org/x/sync/errgroup"

	"github.com/n0ko/message-feed/internal/ledger"
)

const shutdownTimeout = 5 * time.Second

// Node is a single-node ledger holding the message feed
type Node struct {
	cfg     Config
	store   *Store
	chain   *Chain
	hub     *hub
	metrics *Metrics
	logger  zerolog.Logger
	now     func() time.Time

	first ledger.PublicKey

	mu      sync.Mutex
	mempool []*ledger.Transaction
	pending map[string]struct{}
}

// New opens a node over db, writing the genesis block if db is empty
func New(cfg Config, db dbm.DB, logger zerolog.Logger, metrics *Metrics) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if metrics == nil {
		metrics = NopMetrics()
	}

	n := &Node{
		cfg:     cfg,
		store:   NewStore(db),
		hub:     newHub(metrics, logger),
		metrics: metrics,
		logger:  logger,
		now:     time.Now,
		pending: make(map[string]struct{}),
	}

	height, ok, err := n.store.Height()
	if err != nil {
		return nil, fmt.Errorf("failed to read height: %w", err)
	}
	if !ok {
		if err := n.genesis(); err != nil {
			return nil, fmt.Errorf("failed to write genesis: %w", err)
		}
	} else if err := n.loadChain(height); err != nil {
		return nil, err
	}

	first, err := n.store.FirstMessage()
	if err != nil {
		return nil, err
	}
	n.first = first
	n.metrics.Height.Set(float64(n.chain.Latest().Height))
	return n, nil
}

func (n *Node) genesis() error {
	kp, err := ledger.NewKeypair()
	if err != nil {
		return err
	}
	now := n.now()
	block := newGenesisBlock(now, nil)

	err = n.store.Commit(commit{
		block: block,
		accounts: map[ledger.PublicKey][]byte{
			kp.Public: ledger.MessageData{
				From:    kp.Public,
				Created: now,
				Text:    n.cfg.GenesisText,
			}.Encode(),
		},
		first: &kp.Public,
	})
	if err != nil {
		return err
	}
	n.chain = newChain(block, []string{block.Hash})
	n.logger.Info().Str("first_message", kp.Public.String()).Str("hash", block.Hash).Msg("wrote genesis block")
	return nil
}

func (n *Node) loadChain(height uint64) error {
	start := uint64(0)
	if height >= recentBlockhashes {
		start = height - recentBlockhashes + 1
	}
	recent := make([]string, 0, height-start+1)
	var latest *Block
	for h := start; h <= height; h++ {
		b, err := n.store.Block(h)
		if err != nil {
			return fmt.Errorf("failed to load block %d: %w", h, err)
		}
		recent = append(recent, b.Hash)
		latest = b
	}
	n.chain = newChain(*latest, recent)
	n.logger.Info().Uint64("height", height).Msg("loaded ledger")
	return nil
}

// FirstMessage returns the genesis message account
func (n *Node) FirstMessage() ledger.PublicKey {
	return n.first
}

// Store exposes committed state
func (n *Node) Store() *Store {
	return n.store
}

// Submit validates tx and queues it for the next block
func (n *Node) Submit(tx *ledger.Transaction) (string, error) {
	if err := tx.Verify(); err != nil {
		return "", err
	}
	if !n.chain.IsRecent(tx.RecentBlockhash) {
		return "", fmt.Errorf("%w: %s", ledger.ErrInvalidBlockhash, tx.RecentBlockhash)
	}
	if err := ledger.ValidateText(tx.Post.Text); err != nil {
		return "", err
	}

	id := tx.ID()
	status, err := n.store.Status(id)
	if err != nil {
		return "", err
	}
	if status != nil {
		return "", fmt.Errorf("%w: %s", ledger.ErrDuplicate, id)
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.pending[id]; ok {
		return "", fmt.Errorf("%w: %s", ledger.ErrDuplicate, id)
	}
	if len(n.mempool) >= n.cfg.MempoolSize {
		return "", ledger.ErrMempoolFull
	}
	n.mempool = append(n.mempool, tx)
	n.pending[id] = struct{}{}
	n.metrics.MempoolSize.Set(float64(len(n.mempool)))

	n.logger.Debug().Str("signature", id).Str("prev", tx.Post.Prev.String()).Msg("queued transaction")
	return id, nil
}

// ProduceBlock applies the queued transactions and commits a block. An empty
// mempool still produces a block so blockhashes keep advancing.
func (n *Node) ProduceBlock() (*Block, error) {
	n.mu.Lock()
	txs := n.mempool
	n.mempool = nil
	n.metrics.MempoolSize.Set(0)
	n.mu.Unlock()

	now := n.now()
	o := newOverlay(n.store)
	ids := make([]string, 0, len(txs))
	statuses := make(map[string]ledger.SignatureStatus, len(txs))
	var committed int
	var touched []ledger.PublicKey

	height := n.chain.Latest().Height + 1
	for _, tx := range txs {
		id := tx.ID()
		ids = append(ids, id)
		status := ledger.SignatureStatus{Slot: height}
		if err := applyPost(o, tx.Post, now); err != nil {
			status.Err = ledger.NewRPCError(err)
			n.metrics.Transactions.With("status", "failed").Add(1)
			n.logger.Info().Err(err).Str("signature", id).Msg("transaction failed")
		} else {
			committed++
			touched = append(touched, tx.Post.Prev, tx.Post.New)
			n.metrics.Transactions.With("status", "committed").Add(1)
			n.metrics.Messages.Add(1)
		}
		statuses[id] = status
	}

	block := n.chain.Next(now, ids)
	if err := n.store.Commit(commit{block: block, accounts: o.writes, statuses: statuses}); err != nil {
		return nil, fmt.Errorf("failed to commit block %d: %w", block.Height, err)
	}
	if err := n.chain.Append(block); err != nil {
		return nil, err
	}

	n.mu.Lock()
	for _, id := range ids {
		delete(n.pending, id)
	}
	n.mu.Unlock()

	n.metrics.Height.Set(float64(block.Height))
	if len(txs) > 0 {
		n.logger.Info().Uint64("height", block.Height).Int("txs", len(txs)).Int("committed", committed).Msg("committed block")
	}

	n.hub.broadcast(ledger.Notification{
		Slot:      block.Height,
		Blockhash: block.Hash,
		Accounts:  touched,
	})
	return &block, nil
}

func (n *Node) produce(ctx context.Context) error {
	ticker := time.NewTicker(n.cfg.SlotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := n.ProduceBlock(); err != nil {
				return err
			}
		}
	}
}

// Run listens on the configured addresses and serves until ctx is done
func (n *Node) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", n.cfg.RPCAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", n.cfg.RPCAddr, err)
	}
	return n.Serve(ctx, ln)
}

// Serve runs the RPC server on ln, the block producer and, if configured,
// the metrics server. It returns once all of them have stopped.
func (n *Node) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           n.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	n.logger.Info().Str("addr", ln.Addr().String()).Str("first_message", n.first.String()).Msg("serving rpc")

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		n.hub.close()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	g.Go(func() error {
		return n.produce(ctx)
	})

	if n.cfg.MetricsAddr != "" {
		metricsSrv := &http.Server{
			Addr:              n.cfg.MetricsAddr,
			Handler:           promhttp.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		n.logger.Info().Str("addr", n.cfg.MetricsAddr).Msg("serving metrics")
		g.Go(func() error {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return metricsSrv.Shutdown(sctx)
		})
	}

	return g.Wait()
}
