package utils

import (
	"fmt"
	"math/rand"
	"time"
)

const orderRefSuffixLength = 6
const letterBytes = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOrderRef builds the merchant order id handed to the payment
// gateway. The timestamp keeps refs sortable; the random suffix keeps
// them unguessable. Uniqueness is still enforced by the bookings
// table, not here.
func GenerateOrderRef() string {
	seededRand := rand.New(rand.NewSource(time.Now().UnixNano()))

	b := make([]byte, orderRefSuffixLength)
	for i := range b {
		b[i] = letterBytes[seededRand.Intn(len(letterBytes))]
	}

	return fmt.Sprintf("ord_%d_%s", time.Now().Unix(), string(b))
}
