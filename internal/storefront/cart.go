// Package storefront implements the cart and wishlist attached to the
// inventory catalog. State lives in Redis keyed per user; quantities are
// availability-checked against the product stock cache on add, since the
// storefront must never promise stock the ledger says is gone.
package storefront

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/store"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product_id is required")
	ErrUnavailable     = errors.New("requested quantity exceeds available stock")
)

func cartKey(userID string) string     { return "cart:" + userID }
func wishlistKey(userID string) string { return "wishlist:" + userID }

// Service owns cart and wishlist state.
type Service struct {
	products store.ProductStore
	rdb      *redis.Client
	ttl      time.Duration
	log      *zap.Logger
}

func NewService(products store.ProductStore, rdb *redis.Client, ttl time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{products: products, rdb: rdb, ttl: ttl, log: log}
}

// GetCart returns the user's cart, empty if none exists.
func (s *Service) GetCart(ctx context.Context, userID string) (*model.Cart, error) {
	cart := &model.Cart{UserID: userID}
	data, err := s.rdb.Get(ctx, cartKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return cart, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if err := json.Unmarshal(data, cart); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

// AddItem puts quantity units of a product into the cart, merging with any
// existing line. The combined line quantity must not exceed the product's
// currently available units.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*model.Cart, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	p, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}
	if p.IsDeleted {
		return nil, store.ErrNotFound
	}

	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	total := quantity
	idx := -1
	for i, item := range cart.Items {
		if item.ProductID == productID {
			total += item.Quantity
			idx = i
			break
		}
	}
	if total > p.AvailableQty {
		return nil, fmt.Errorf("%w: %d requested, %d available", ErrUnavailable, total, p.AvailableQty)
	}

	if idx >= 0 {
		cart.Items[idx].Quantity = total
		cart.Items[idx].Name = p.Name
	} else {
		cart.Items = append(cart.Items, model.CartItem{ProductID: productID, Name: p.Name, Quantity: total})
	}
	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// RemoveItem drops a product's line from the cart. Removing an absent line
// is a no-op.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*model.Cart, error) {
	cart, err := s.GetCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			break
		}
	}
	if err := s.saveCart(ctx, cart); err != nil {
		return nil, err
	}
	return cart, nil
}

// ClearCart removes the user's cart entirely.
func (s *Service) ClearCart(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, cartKey(userID)).Err(); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *Service) saveCart(ctx context.Context, cart *model.Cart) error {
	cart.UpdatedAt = time.Now()
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.rdb.Set(ctx, cartKey(cart.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}

// GetWishlist returns the user's wishlist, empty if none exists.
func (s *Service) GetWishlist(ctx context.Context, userID string) (*model.Wishlist, error) {
	wl := &model.Wishlist{UserID: userID}
	data, err := s.rdb.Get(ctx, wishlistKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return wl, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load wishlist: %w", err)
	}
	if err := json.Unmarshal(data, wl); err != nil {
		return nil, fmt.Errorf("decode wishlist: %w", err)
	}
	return wl, nil
}

// AddToWishlist saves a product id; duplicates are ignored.
func (s *Service) AddToWishlist(ctx context.Context, userID, productID string) (*model.Wishlist, error) {
	if productID == "" {
		return nil, ErrInvalidProduct
	}
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}

	wl, err := s.GetWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, id := range wl.ProductIDs {
		if id == productID {
			return wl, nil
		}
	}
	wl.ProductIDs = append(wl.ProductIDs, productID)
	if err := s.saveWishlist(ctx, wl); err != nil {
		return nil, err
	}
	return wl, nil
}

// RemoveFromWishlist drops a product id; removing an absent id is a no-op.
func (s *Service) RemoveFromWishlist(ctx context.Context, userID, productID string) (*model.Wishlist, error) {
	wl, err := s.GetWishlist(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i, id := range wl.ProductIDs {
		if id == productID {
			wl.ProductIDs = append(wl.ProductIDs[:i], wl.ProductIDs[i+1:]...)
			break
		}
	}
	if err := s.saveWishlist(ctx, wl); err != nil {
		return nil, err
	}
	return wl, nil
}

func (s *Service) saveWishlist(ctx context.Context, wl *model.Wishlist) error {
	wl.UpdatedAt = time.Now()
	data, err := json.Marshal(wl)
	if err != nil {
		return fmt.Errorf("encode wishlist: %w", err)
	}
	if err := s.rdb.Set(ctx, wishlistKey(wl.UserID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save wishlist: %w", err)
	}
	return nil
}
