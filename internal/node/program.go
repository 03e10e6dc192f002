package node

import (
	"fmt"
	"time"

	"github.com/n0ko/message-feed/internal/ledger"
)

// overlay stages account writes of a block on top of the committed store so
// later transactions in the same block see earlier ones.
type overlay struct {
	store  *Store
	writes map[ledger.PublicKey][]byte
}

func newOverlay(store *Store) *overlay {
	return &overlay{
		store:  store,
		writes: make(map[ledger.PublicKey][]byte),
	}
}

func (o *overlay) get(pk ledger.PublicKey) ([]byte, error) {
	if data, ok := o.writes[pk]; ok {
		return data, nil
	}
	return o.store.Account(pk)
}

// applyPost runs the post instruction. Nothing is written unless every check
// passes.
func applyPost(o *overlay, post ledger.PostMessage, created time.Time) error {
	if err := ledger.ValidateText(post.Text); err != nil {
		return err
	}
	if post.New.IsZero() || post.Prev == post.New {
		return fmt.Errorf("%w: new message account %s", ledger.ErrInvalidAccount, post.New)
	}

	prevData, err := o.get(post.Prev)
	if err != nil {
		return err
	}
	if prevData == nil {
		return fmt.Errorf("%w: previous message %s does not exist", ledger.ErrInvalidAccount, post.Prev)
	}
	prev, err := ledger.DecodeMessageData(prevData)
	if err != nil {
		return err
	}
	if !prev.IsTail() {
		return fmt.Errorf("%w: %s is followed by %s", ledger.ErrStaleTail, post.Prev, prev.Next)
	}

	existing, err := o.get(post.New)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: %s", ledger.ErrAccountNotNew, post.New)
	}

	prev.Next = post.New
	o.writes[post.Prev] = prev.Encode()
	o.writes[post.New] = ledger.MessageData{
		From:    post.From,
		Created: created,
		Text:    post.Text,
	}.Encode()
	return nil
}
