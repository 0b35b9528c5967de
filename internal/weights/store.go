// Package weights keeps the weight table in a shared document store and
// serves snapshots of it to the calculator.
package weights

import (
	"context"
	"errors"

	"github.com/iwvelando/pawn-calculator/pkg/rates"
)

// ErrNotFound is returned by Store.Load when no weight document exists.
var ErrNotFound = errors.New("weight document not found")

// Store is a backend holding one weight document.
type Store interface {
	// Load returns the stored table, or ErrNotFound.
	Load(ctx context.Context) (rates.WeightTable, error)
	// Save merges update into the stored table, creating it when absent.
	Save(ctx context.Context, update rates.WeightTable) error
	// Watch calls fn with the stored table after every change until ctx is
	// done. It returns nil when ctx ends and an error if watching fails.
	Watch(ctx context.Context, fn func(rates.WeightTable)) error
}

// DocumentPath returns the path of the weight document for appID.
func DocumentPath(appID string) string {
	return "artifacts/" + appID + "/public/data/config/weights"
}
