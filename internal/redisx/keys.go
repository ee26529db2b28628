package redisx

import "time"

const (
	// Session basket hash: basket:{session_id}, field product_id -> line json
	KeyBasket = "basket:%s"

	// Cached basket snapshot: basket:view:{session_id} -> json
	KeyBasketView = "basket:view:%s"

	// Dedup for consumed events: dedup:{consumer}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	// Baskets are session-scoped, not durable; the TTL is refreshed on
	// every write and the hash dies with an abandoned session.
	TTLBasket = 24 * time.Hour

	// Snapshot cache only has to absorb read bursts between edits.
	TTLBasketView = 30 * time.Second

	TTLDedup = 48 * time.Hour
)
