package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/donMuregi/tepstore/internal/domain"
	"github.com/donMuregi/tepstore/internal/event"
	"github.com/donMuregi/tepstore/internal/repository"
	apperrors "github.com/donMuregi/tepstore/pkg/errors"
	"github.com/donMuregi/tepstore/pkg/logger"
)

// CartService manages cart identity and mutation. Reads never create a
// cart; the first write does.
type CartService struct {
	carts   repository.CartRepository
	catalog repository.CatalogRepository
	events  event.Publisher
	log     *slog.Logger
}

func NewCartService(carts repository.CartRepository, catalog repository.CatalogRepository, events event.Publisher, log *slog.Logger) *CartService {
	return &CartService{carts: carts, catalog: catalog, events: events, log: log}
}

// Get returns the actor's cart priced at current catalog values. Actors with
// no cart, and anonymous actors with no session, get an empty view without
// anything being persisted.
func (s *CartService) Get(ctx context.Context, actor Actor) (domain.CartView, error) {
	owner, err := actor.CartOwner()
	if err != nil {
		return domain.NewCartView(nil, nil), nil
	}
	cart, err := s.carts.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCartView(nil, nil), nil
		}
		return domain.CartView{}, err
	}
	return s.priceCart(ctx, cart)
}

// AddItem adds quantity of an item to the actor's cart, creating the cart on
// first write. Adding an item already in the cart sums quantities on the
// existing line.
func (s *CartService) AddItem(ctx context.Context, actor Actor, item domain.ItemRef, quantity int) (domain.CartView, error) {
	if quantity < 1 {
		return domain.NewCartView(nil, nil), apperrors.InvalidQuantity("quantity must be at least 1")
	}
	owner, err := actor.CartOwner()
	if err != nil {
		return domain.CartView{}, err
	}
	if _, err := s.catalog.Lookup(ctx, item); err != nil {
		return domain.CartView{}, err
	}

	cart, err := s.carts.GetOrCreate(ctx, owner)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.carts.AddLine(ctx, cart.ID, item, quantity); err != nil {
		return domain.CartView{}, err
	}

	logger.FromContext(ctx).Info("cart item added",
		slog.String("actor", actor.String()),
		slog.String("cart_id", cart.ID.String()),
		slog.String("item", item.Key()),
		slog.Int("quantity", quantity))
	s.events.CartUpdated(ctx, cart.ID.String())

	return s.refresh(ctx, owner)
}

// UpdateLine sets a line's quantity. A quantity of zero or less removes the
// line instead of failing.
func (s *CartService) UpdateLine(ctx context.Context, actor Actor, lineID uuid.UUID, quantity int) (domain.CartView, error) {
	owner, err := actor.CartOwner()
	if err != nil {
		return domain.CartView{}, err
	}
	cart, err := s.carts.GetByOwner(ctx, owner)
	if err != nil {
		return domain.CartView{}, err
	}

	if quantity <= 0 {
		err = s.carts.RemoveLine(ctx, cart.ID, lineID)
	} else {
		err = s.carts.UpdateLineQuantity(ctx, cart.ID, lineID, quantity)
	}
	if err != nil {
		return domain.CartView{}, err
	}
	s.events.CartUpdated(ctx, cart.ID.String())
	return s.refresh(ctx, owner)
}

// RemoveLine deletes a single line from the actor's cart.
func (s *CartService) RemoveLine(ctx context.Context, actor Actor, lineID uuid.UUID) (domain.CartView, error) {
	owner, err := actor.CartOwner()
	if err != nil {
		return domain.CartView{}, err
	}
	cart, err := s.carts.GetByOwner(ctx, owner)
	if err != nil {
		return domain.CartView{}, err
	}
	if err := s.carts.RemoveLine(ctx, cart.ID, lineID); err != nil {
		return domain.CartView{}, err
	}
	s.events.CartUpdated(ctx, cart.ID.String())
	return s.refresh(ctx, owner)
}

// Clear removes every line from the actor's cart. Clearing a cart that does
// not exist is a no-op.
func (s *CartService) Clear(ctx context.Context, actor Actor) (domain.CartView, error) {
	owner, err := actor.CartOwner()
	if err != nil {
		return domain.CartView{}, err
	}
	cart, err := s.carts.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCartView(nil, nil), nil
		}
		return domain.CartView{}, err
	}
	if err := s.carts.Clear(ctx, cart.ID); err != nil {
		return domain.CartView{}, err
	}
	s.events.CartUpdated(ctx, cart.ID.String())
	return domain.NewCartView(cart, nil), nil
}

// MergeGuestCart absorbs the session cart identified by sessionToken into
// the account's cart. Missing or empty guest carts make this a no-op;
// quantities for matching items are summed, the rest of the guest lines move
// over.
func (s *CartService) MergeGuestCart(ctx context.Context, sessionToken, accountID string) error {
	if sessionToken == "" {
		return nil
	}
	err := s.carts.Merge(ctx, domain.SessionOwner(sessionToken), domain.AccountOwner(accountID))
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return err
	}
	logger.FromContext(ctx).Info("guest cart merged", slog.String("account_id", accountID))
	return nil
}

func (s *CartService) refresh(ctx context.Context, owner domain.CartOwner) (domain.CartView, error) {
	cart, err := s.carts.GetByOwner(ctx, owner)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return domain.NewCartView(nil, nil), nil
		}
		return domain.CartView{}, err
	}
	return s.priceCart(ctx, cart)
}

// priceCart resolves each line against the catalog at read time. Lines whose
// item has since gone missing or inactive stay visible but unavailable.
func (s *CartService) priceCart(ctx context.Context, cart *domain.Cart) (domain.CartView, error) {
	priced := make([]domain.PricedLine, 0, len(cart.Lines))
	for _, line := range cart.Lines {
		info, err := s.catalog.Lookup(ctx, line.Item)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				priced = append(priced, domain.PricedLine{CartLine: line, InStock: false})
				continue
			}
			return domain.CartView{}, err
		}
		priced = append(priced, domain.PricedLine{
			CartLine:  line,
			Name:      info.Name,
			UnitPrice: info.UnitPrice,
			LineTotal: info.UnitPrice * int64(line.Quantity),
			InStock:   info.InStock,
		})
	}
	return domain.NewCartView(cart, priced), nil
}
