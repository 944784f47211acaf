package cart

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/gateway"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/google/uuid"
)

// Gateway is the slice of the remote store the cart needs.
type Gateway interface {
	ListCartItems(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error)
	InsertCartItem(ctx context.Context, in gateway.CartItemInsert) (uuid.UUID, error)
	UpdateCartItem(ctx context.Context, id, userID uuid.UUID, quantity int) error
	DeleteCartItem(ctx context.Context, id, userID uuid.UUID) error
	DeleteCartItems(ctx context.Context, userID uuid.UUID) error
}

var (
	// ErrClosed is returned for operations on, or results arriving after, a torn-down store.
	ErrClosed = pkgerrors.New(pkgerrors.CodeUnauthorized, "cart session ended")

	errSignInRequired = pkgerrors.New(pkgerrors.CodeUnauthorized, "You need to be signed in to add items to cart").
				WithDetails(map[string]any{"title": "Please sign in"})
)

const (
	opLoad        = "load"
	opAdd         = "add"
	opSetQuantity = "set_quantity"
	opRemove      = "remove"
	opClear       = "clear"
)

// Store is the authoritative in-memory view of one user's cart. Mutations are
// serialized; each successful write is followed by a full reload from the gateway.
type Store struct {
	gw      Gateway
	logg    *logger.Logger
	metrics *metrics.CartMetrics
	userID  uuid.UUID

	opMu sync.Mutex

	mu         sync.RWMutex
	items      []Item
	loading    bool
	stale      bool
	closed     bool
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc

	lastUsed atomic.Int64
}

// NewStore builds a store for userID. uuid.Nil yields a signed-out store whose
// cart is always empty and whose additions are refused.
func NewStore(gw Gateway, userID uuid.UUID, logg *logger.Logger, m *metrics.CartMetrics) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		gw:      gw,
		logg:    logg,
		metrics: m,
		userID:  userID,
		items:   []Item{},
		stale:   userID != uuid.Nil,
		ctx:     ctx,
		cancel:  cancel,
	}
	s.touch()
	return s
}

// UserID returns the owner of the cart.
func (s *Store) UserID() uuid.UUID {
	return s.userID
}

// View returns the current cart with totals recomputed from the items.
func (s *Store) View() View {
	s.touch()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newView(s.items, s.loading)
}

// Current reloads the cart from the gateway and returns the fresh view. Rows can
// change behind the store (price edits, deleted products), so reads never trust
// the cached items.
func (s *Store) Current(ctx context.Context) (View, error) {
	if err := s.Load(ctx); err != nil {
		return View{}, err
	}
	return s.View(), nil
}

// Load replaces the in-memory items with the gateway's rows.
func (s *Store) Load(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.record(opLoad, s.load(ctx))
}

// Add puts qty of productID in the cart. An existing line for the product is
// incremented instead of inserting a second row.
func (s *Store) Add(ctx context.Context, productID uuid.UUID, qty int) (*Notice, error) {
	if s.userID == uuid.Nil {
		return nil, s.record(opAdd, errSignInRequired)
	}
	if qty < 1 {
		return nil, s.record(opAdd, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1"))
	}

	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.isStale() {
		if err := s.load(ctx); err != nil {
			return nil, s.record(opAdd, err)
		}
	}
	if existing, ok := s.lineFor(productID); ok {
		notice, err := s.setQuantity(ctx, existing.ID, existing.Quantity+qty)
		if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return notice, s.record(opAdd, err)
		}
		// The line vanished behind the store; setQuantity reloaded, so insert
		// unless the product is somehow back in the view.
		if _, still := s.lineFor(productID); still {
			return nil, s.record(opAdd, err)
		}
	}

	opCtx, done, gen, err := s.begin(ctx)
	if err != nil {
		return nil, s.record(opAdd, err)
	}
	defer done()

	_, err = s.gw.InsertCartItem(opCtx, gateway.CartItemInsert{UserID: s.userID, ProductID: productID, Quantity: qty})
	if !s.current(gen) {
		return nil, s.record(opAdd, ErrClosed)
	}
	if err != nil {
		s.warn(ctx, "cart add failed", err)
		return nil, s.record(opAdd, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to add item to cart"))
	}

	s.reloadAfterWrite(ctx)
	notice := noticeAdded
	return &notice, s.record(opAdd, nil)
}

// SetQuantity sets a line's quantity; anything below 1 removes the line.
func (s *Store) SetQuantity(ctx context.Context, itemID uuid.UUID, qty int) (*Notice, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	op := opSetQuantity
	if qty < 1 {
		op = opRemove
	}
	notice, err := s.setQuantity(ctx, itemID, qty)
	return notice, s.record(op, err)
}

// Remove deletes a line.
func (s *Store) Remove(ctx context.Context, itemID uuid.UUID) (*Notice, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	notice, err := s.remove(ctx, itemID)
	return notice, s.record(opRemove, err)
}

// Clear deletes every line. The in-memory view becomes empty without a reload.
func (s *Store) Clear(ctx context.Context) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.record(opClear, s.clear(ctx))
}

// Locked is the cart as seen by a caller holding the store's mutation lock.
type Locked struct {
	s *Store
}

// View returns the cart view.
func (l *Locked) View() View {
	return l.s.View()
}

// Clear empties the cart.
func (l *Locked) Clear(ctx context.Context) error {
	return l.s.record(opClear, l.s.clear(ctx))
}

// Exclusive runs fn while no other mutation can touch the cart. The view is
// reloaded first so fn sees current names and prices.
func (s *Store) Exclusive(ctx context.Context, fn func(ctx context.Context, cart *Locked) error) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if s.Closed() {
		return ErrClosed
	}
	if err := s.record(opLoad, s.load(ctx)); err != nil {
		return err
	}
	return fn(ctx, &Locked{s: s})
}

// Close tears the store down. In-flight gateway calls are cancelled and their
// results discarded.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.generation++
	s.items = []Item{}
	s.loading = false
	s.cancel()
}

// Closed reports whether Close has run.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Store) load(ctx context.Context) error {
	if s.userID == uuid.Nil {
		s.mu.Lock()
		s.items = []Item{}
		s.stale = false
		s.mu.Unlock()
		return nil
	}

	opCtx, done, gen, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	s.setLoading(gen, true)
	rows, err := s.gw.ListCartItems(opCtx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen {
		return ErrClosed
	}
	s.loading = false
	if err != nil {
		s.stale = true
		s.warn(ctx, "cart load failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to load cart")
	}
	s.items = itemsFromRows(rows)
	s.stale = false
	return nil
}

func (s *Store) setQuantity(ctx context.Context, itemID uuid.UUID, qty int) (*Notice, error) {
	if qty < 1 {
		return s.remove(ctx, itemID)
	}

	opCtx, done, gen, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	err = s.gw.UpdateCartItem(opCtx, itemID, s.userID, qty)
	if !s.current(gen) {
		return nil, ErrClosed
	}
	if err != nil {
		s.warn(ctx, "cart quantity update failed", err)
		s.resyncOnMissing(ctx, err)
		return nil, mutationError(err, "Failed to update quantity")
	}

	s.reloadAfterWrite(ctx)
	return nil, nil
}

func (s *Store) remove(ctx context.Context, itemID uuid.UUID) (*Notice, error) {
	opCtx, done, gen, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()

	err = s.gw.DeleteCartItem(opCtx, itemID, s.userID)
	if !s.current(gen) {
		return nil, ErrClosed
	}
	if err != nil {
		s.warn(ctx, "cart remove failed", err)
		s.resyncOnMissing(ctx, err)
		return nil, mutationError(err, "Failed to remove item")
	}

	s.reloadAfterWrite(ctx)
	notice := noticeRemoved
	return &notice, nil
}

func (s *Store) clear(ctx context.Context) error {
	if s.userID == uuid.Nil {
		return nil
	}

	opCtx, done, gen, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	err = s.gw.DeleteCartItems(opCtx, s.userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.generation != gen {
		return ErrClosed
	}
	if err != nil {
		s.warn(ctx, "cart clear failed", err)
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "Failed to clear cart")
	}
	s.items = []Item{}
	s.stale = false
	return nil
}

// reloadAfterWrite refreshes the view after a successful write. A failed reload
// leaves the previous items in place and marks the view stale.
func (s *Store) reloadAfterWrite(ctx context.Context) {
	if err := s.load(ctx); err != nil && !errors.Is(err, ErrClosed) {
		s.warn(ctx, "cart reload after write failed", err)
	}
}

// resyncOnMissing reloads when the gateway no longer has a row the view holds.
// If that reload fails too the store is left stale so the next access retries.
func (s *Store) resyncOnMissing(ctx context.Context, err error) {
	if !errors.Is(err, gateway.ErrNotFound) {
		return
	}
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
	s.reloadAfterWrite(ctx)
}

// begin derives a context cancelled by either the caller or Close, and captures
// the generation the result must still match.
func (s *Store) begin(ctx context.Context) (context.Context, func(), uint64, error) {
	s.touch()
	s.mu.RLock()
	closed, gen, storeCtx := s.closed, s.generation, s.ctx
	s.mu.RUnlock()
	if closed {
		return nil, nil, 0, ErrClosed
	}

	opCtx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(storeCtx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}, gen, nil
}

func (s *Store) current(gen uint64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.closed && s.generation == gen
}

func (s *Store) setLoading(gen uint64, loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation == gen {
		s.loading = loading
	}
}

func (s *Store) lineFor(productID uuid.UUID) (Item, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return Item{}, false
}

func (s *Store) isStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

func (s *Store) touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

func (s *Store) idleSince() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

func (s *Store) record(op string, err error) error {
	switch {
	case err == nil:
		s.metrics.IncMutation(op, metrics.CartResultSuccess)
	case errors.Is(err, ErrClosed):
		s.metrics.IncMutation(op, metrics.CartResultDiscarded)
	default:
		s.metrics.IncMutation(op, metrics.CartResultError)
	}
	return err
}

func (s *Store) warn(ctx context.Context, msg string, err error) {
	if s.logg == nil {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"user_id": s.userID.String(),
		"error":   err.Error(),
	})
	s.logg.Warn(ctx, msg)
}

func mutationError(err error, msg string) error {
	if errors.Is(err, gateway.ErrNotFound) {
		return pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "cart item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
