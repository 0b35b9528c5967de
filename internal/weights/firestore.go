package weights

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/iwvelando/pawn-calculator/pkg/rates"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps the document at DocumentPath in Cloud Firestore and
// watches it with a snapshot listener.
type FirestoreStore struct {
	doc    *firestore.DocumentRef
	logger *zap.Logger
}

// NewFirestoreStore returns a store for appID's document.
func NewFirestoreStore(client *firestore.Client, appID string, logger *zap.Logger) *FirestoreStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FirestoreStore{doc: client.Doc(DocumentPath(appID)), logger: logger}
}

// Load reads the document.
func (s *FirestoreStore) Load(ctx context.Context) (rates.WeightTable, error) {
	snap, err := s.doc.Get(ctx)
	if status.Code(err) == codes.NotFound {
		return rates.WeightTable{}, ErrNotFound
	}
	if err != nil {
		return rates.WeightTable{}, fmt.Errorf("failed to read %s: %w", s.doc.Path, err)
	}
	return decodeSnapshot(snap)
}

// Save merges update into the document field by field.
func (s *FirestoreStore) Save(ctx context.Context, update rates.WeightTable) error {
	if _, err := s.doc.Set(ctx, updateFields(update), firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to save %s: %w", s.doc.Path, err)
	}
	return nil
}

// Watch listens to document snapshots. The first snapshot is the current
// document.
func (s *FirestoreStore) Watch(ctx context.Context, fn func(rates.WeightTable)) error {
	iter := s.doc.Snapshots(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return fmt.Errorf("failed to watch %s: %w", s.doc.Path, err)
		}
		if !snap.Exists() {
			continue
		}

		table, err := decodeSnapshot(snap)
		if err != nil {
			s.logger.Warn("failed to decode weights snapshot",
				zap.String("op", "weights.FirestoreStore.Watch"),
				zap.Error(err),
			)
			continue
		}
		fn(table)
	}
}

func decodeSnapshot(snap *firestore.DocumentSnapshot) (rates.WeightTable, error) {
	var table rates.WeightTable
	if err := snap.DataTo(&table); err != nil {
		return rates.WeightTable{}, fmt.Errorf("failed to decode %s: %w", snap.Ref.Path, err)
	}
	return table, nil
}

// updateFields lists only the parts of update that carry data, so a merge
// leaves everything else untouched.
func updateFields(update rates.WeightTable) map[string]any {
	fields := make(map[string]any)
	if update.InitialRate != 0 {
		fields["initialRate"] = update.InitialRate
	}
	for name, table := range update.Tables() {
		if len(table) == 0 {
			continue
		}
		entries := make(map[string]any, len(table))
		for key, multiplier := range table {
			entries[key] = multiplier
		}
		fields[name] = entries
	}
	return fields
}
