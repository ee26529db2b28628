// Package basket keeps the per-session cart in a redis hash. The basket is
// advisory: Add checks stock read-only, nothing is held until checkout.
package basket

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/catalog"
	"github.com/dkravets/go-shop-checkout.git/internal/inventory"
	"github.com/dkravets/go-shop-checkout.git/internal/pricing"
	"github.com/dkravets/go-shop-checkout.git/internal/redisx"
)

// Line is what the hash stores per product: quantity plus the unit price
// snapshotted when the product was first added.
type Line struct {
	ProductID string          `json:"product_id"`
	Qty       int             `json:"qty"`
	Price     decimal.Decimal `json:"price"`
}

// LineView joins a basket line against live product data for display.
// Qty is capped by what is actually still in stock.
type LineView struct {
	ProductID string          `json:"product_id"`
	Title     string          `json:"title"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
	Available int             `json:"available"`
}

type Store struct {
	Redis   *redis.Client
	Catalog *catalog.Repo
	Log     *zap.Logger
}

// Add merges quantity into the session's line for the product. The product
// must exist, be active, and have enough stock for the resulting quantity.
func (s *Store) Add(ctx context.Context, session, productID string, qty int) error {
	if qty <= 0 {
		return &inventory.InsufficientStockError{ProductID: productID, Requested: qty}
	}
	p, err := s.Catalog.Get(ctx, productID)
	if err != nil {
		if err == catalog.ErrNotFound {
			return &inventory.UnavailableProductsError{Titles: []string{productID}}
		}
		return err
	}
	if !p.IsActive || p.Stock == 0 {
		return &inventory.UnavailableProductsError{Titles: []string{p.Title}}
	}

	key := fmt.Sprintf(redisx.KeyBasket, session)
	line := Line{
		ProductID: productID,
		Qty:       qty,
		Price:     pricing.FinalUnitPrice(p, time.Now()),
	}
	if raw, err := s.Redis.HGet(ctx, key, productID).Result(); err == nil {
		var existing Line
		if err := json.Unmarshal([]byte(raw), &existing); err == nil {
			line.Qty += existing.Qty
			line.Price = existing.Price // keep the first snapshot
		}
	} else if err != redis.Nil {
		return err
	}

	if p.Stock < line.Qty {
		return &inventory.InsufficientStockError{
			ProductID: p.ID, Title: p.Title, Available: p.Stock, Requested: line.Qty,
		}
	}

	if err := s.Redis.HSet(ctx, key, productID, string(mustJSON(line))).Err(); err != nil {
		return err
	}
	s.Redis.Expire(ctx, key, redisx.TTLBasket)
	s.invalidateView(ctx, session)
	s.Log.Debug("basket add", zap.String("session", session),
		zap.String("product_id", productID), zap.Int("qty", line.Qty))
	return nil
}

// Remove decrements the line; at zero or below the line is dropped.
func (s *Store) Remove(ctx context.Context, session, productID string, qty int) error {
	key := fmt.Sprintf(redisx.KeyBasket, session)
	raw, err := s.Redis.HGet(ctx, key, productID).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	var line Line
	if err := json.Unmarshal([]byte(raw), &line); err != nil {
		return err
	}
	line.Qty -= qty
	if line.Qty <= 0 {
		if err := s.Redis.HDel(ctx, key, productID).Err(); err != nil {
			return err
		}
	} else {
		if err := s.Redis.HSet(ctx, key, productID, string(mustJSON(line))).Err(); err != nil {
			return err
		}
	}
	s.invalidateView(ctx, session)
	return nil
}

// Lines returns the raw basket contents, snapshot prices included.
func (s *Store) Lines(ctx context.Context, session string) ([]Line, error) {
	raw, err := s.Redis.HGetAll(ctx, fmt.Sprintf(redisx.KeyBasket, session)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Line, 0, len(raw))
	for _, v := range raw {
		var line Line
		if err := json.Unmarshal([]byte(v), &line); err != nil {
			return nil, err
		}
		out = append(out, line)
	}
	return out, nil
}

// Snapshot joins the basket against live product data. The result is cached
// for a short TTL per session and invalidated by any Add/Remove.
func (s *Store) Snapshot(ctx context.Context, session string) ([]LineView, error) {
	viewKey := fmt.Sprintf(redisx.KeyBasketView, session)
	if cached, err := s.Redis.Get(ctx, viewKey).Result(); err == nil {
		var views []LineView
		if err := json.Unmarshal([]byte(cached), &views); err == nil {
			return views, nil
		}
	}

	lines, err := s.Lines(ctx, session)
	if err != nil {
		return nil, err
	}
	views := make([]LineView, 0, len(lines))
	if len(lines) > 0 {
		ids := make([]string, 0, len(lines))
		for _, ln := range lines {
			ids = append(ids, ln.ProductID)
		}
		products, err := s.Catalog.GetMany(ctx, ids)
		if err != nil {
			return nil, err
		}
		now := time.Now()
		for _, ln := range lines {
			p, ok := products[ln.ProductID]
			if !ok || !p.IsActive {
				continue
			}
			qty := ln.Qty
			if qty > p.Stock {
				qty = p.Stock
			}
			unit := pricing.FinalUnitPrice(p, now)
			views = append(views, LineView{
				ProductID: p.ID,
				Title:     p.Title,
				Qty:       qty,
				UnitPrice: unit,
				Total:     pricing.LineTotal(unit, qty),
				Available: p.Stock,
			})
		}
	}

	s.Redis.Set(ctx, viewKey, string(mustJSON(views)), redisx.TTLBasketView)
	return views, nil
}

// Clear drops the basket, used once an order has been initialised from it.
func (s *Store) Clear(ctx context.Context, session string) error {
	if err := s.Redis.Del(ctx,
		fmt.Sprintf(redisx.KeyBasket, session),
		fmt.Sprintf(redisx.KeyBasketView, session)).Err(); err != nil {
		return err
	}
	s.Log.Debug("basket cleared", zap.String("session", session))
	return nil
}

func (s *Store) invalidateView(ctx context.Context, session string) {
	s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyBasketView, session))
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
