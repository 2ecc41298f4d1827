package cart

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tutoring/core"
)

// Merge folds source into target then deletes source, atomically.
// Lines matching one of target's (same service, product & metadata) add their quantity to it; the others are moved.
func (svc *Service) Merge(ctx context.Context, target, source Cart) error {
	if source.ID == 0 || source.ID == target.ID {
		return nil
	}

	var moved, combined int
	err := svc.tx.WithinTx(ctx, func(exec core.DBExecutor) error {
		moved, combined = 0, 0

		targetItems, err := svc.repo.QueryItems(ctx, target.ID, exec)
		if err != nil {
			return errors.Wrap(err, "querying target items")
		}
		sourceItems, err := svc.repo.QueryItems(ctx, source.ID, exec)
		if err != nil {
			return errors.Wrap(err, "querying source items")
		}

		now := NowFunc().UTC()
		for _, it := range sourceItems {
			if idx := matchIndex(targetItems, it); idx >= 0 {
				match := targetItems[idx]
				match.Quantity += it.Quantity
				match.UpdatedAt = now
				if targetItems[idx], err = svc.repo.UpdateItem(ctx, match, exec); err != nil {
					return errors.Wrap(err, "combining item")
				}
				if err = svc.repo.DeleteItem(ctx, it.ID, exec); err != nil {
					return errors.Wrap(err, "deleting combined item")
				}
				combined++
				continue
			}

			it.CartID = target.ID
			it.UpdatedAt = now
			if it, err = svc.repo.UpdateItem(ctx, it, exec); err != nil {
				return errors.Wrap(err, "moving item")
			}
			targetItems = append(targetItems, it)
			moved++
		}

		return errors.Wrap(svc.repo.DeleteCart(ctx, source.ID, exec), "deleting merged cart")
	})
	if err != nil {
		return err
	}

	svc.logger.Info("guest cart merged", map[string]interface{}{
		"source": source.ID, "target": target.ID, "moved": moved, "combined": combined,
	})
	svc.recorder.CartMerged(moved, combined)
	return nil
}

func matchIndex(items []Item, it Item) int {
	for i := range items {
		if items[i].Matches(it) {
			return i
		}
	}
	return -1
}
