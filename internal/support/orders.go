package support

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"support-assistant/backend/internal/store"
)

var (
	sampleProducts = []string{
		"iPhone 14 Mobile Cover", "Samsung Galaxy Cover", "OnePlus Case Black",
		"Mobile Screen Protector", "Phone Charger Cable", "Bluetooth Earphones",
		"Power Bank 10000mAh", "Phone Stand", "Car Phone Holder",
	}
	sampleStatuses  = []string{"delivered", "in_transit", "processing"}
	samplePayments  = []string{"UPI", "Card", "COD", "Wallet"}
	sampleLocations = []string{"Mumbai", "Delhi", "Bangalore"}
)

// OrderGenerator fabricates plausible orders for ids the store has never seen.
type OrderGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewOrderGenerator draws from rng, or a time-seeded source when nil.
func NewOrderGenerator(rng *rand.Rand) *OrderGenerator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &OrderGenerator{rng: rng}
}

// Generate returns a random order with the given id.
func (g *OrderGenerator) Generate(orderID string) *store.Order {
	g.mu.Lock()
	defer g.mu.Unlock()
	return &store.Order{
		OrderID:       orderID,
		ProductName:   sampleProducts[g.rng.Intn(len(sampleProducts))],
		Amount:        99 + g.rng.Intn(801),
		Status:        sampleStatuses[g.rng.Intn(len(sampleStatuses))],
		PaymentMethod: samplePayments[g.rng.Intn(len(samplePayments))],
		DeliveryDate:  fmt.Sprintf("2025-08-%d", 15+g.rng.Intn(11)),
		UserLocation:  sampleLocations[g.rng.Intn(len(sampleLocations))],
	}
}
