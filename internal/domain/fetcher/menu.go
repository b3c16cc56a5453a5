package fetcher

import (
	"context"
	"errors"

	"github.com/Skobyn/alexaLunchDad-sub000/internal/domain/menu"
	apperrors "github.com/Skobyn/alexaLunchDad-sub000/pkg/errors"
	"github.com/Skobyn/alexaLunchDad-sub000/pkg/util"
)

const sourceMenu = "menu"

// FetchMenu returns the menu for date (YYYY-MM-DD). A date the provider has
// no menu for yields an empty record with a message, not an error, and that
// record is not cached.
func (f *Fetcher) FetchMenu(ctx context.Context, date string) (menu.Record, error) {
	if _, err := util.ParseDate(date); err != nil {
		return menu.Record{}, apperrors.Wrap(apperrors.CodeInvalidInput, "date must be formatted as YYYY-MM-DD", err)
	}

	key := MenuKey(f.cfg.SourceID, date)
	if rec, ok := lookup[menu.Record](ctx, f, sourceMenu, key, f.cfg.MenuTTL); ok {
		return rec, nil
	}

	var rec menu.Record
	err := f.retry(ctx, sourceMenu, func(ctx context.Context) error {
		fetched, err := f.menu.FetchMenu(ctx, f.cfg.SourceID, date)
		if err != nil {
			return err
		}
		rec = fetched
		return nil
	})
	if err != nil {
		var retryErr *RetryError
		if errors.As(err, &retryErr) && retryErr.Kind == KindNotFound {
			f.logger.Info("no menu published", "date", date)
			return menu.NoMenu(date, f.now()), nil
		}
		return menu.Record{}, f.menuFailure(date, err)
	}

	rec = f.completeMenu(date, rec)
	store(ctx, f, key, rec, f.cfg.MenuTTL)
	f.logger.Info("menu fetched", "date", date, "items", len(rec.Items))
	return rec, nil
}

func (f *Fetcher) completeMenu(date string, rec menu.Record) menu.Record {
	rec.Date = date
	if rec.FetchedAt.IsZero() {
		rec.FetchedAt = f.now()
	}
	if rec.Items == nil {
		rec.Items = []menu.Item{}
	}
	if len(rec.Items) == 0 && rec.Message == "" {
		rec.Message = menu.NoMenuMessage
	}
	return rec
}

func (f *Fetcher) menuFailure(date string, err error) error {
	var retryErr *RetryError
	if !errors.As(err, &retryErr) {
		return apperrors.Wrap(apperrors.CodeExhaustedRetries, "menu fetch failed", err)
	}
	switch {
	case retryErr.Exhausted:
		f.logger.Error("menu fetch exhausted retries", "date", date, "attempts", retryErr.Attempts, "error", retryErr.Err)
		return apperrors.Wrap(apperrors.CodeExhaustedRetries, "menu provider unavailable", err)
	case retryErr.Kind == KindDataContract:
		f.logger.Error("menu response unusable", "date", date, "error", retryErr.Err)
		return apperrors.Wrap(apperrors.CodeDataContract, "menu provider returned an unusable response", err)
	case retryErr.Kind == KindCanceled:
		return retryErr.Err
	default:
		f.logger.Error("menu request rejected", "date", date, "kind", retryErr.Kind.String(), "error", retryErr.Err)
		return apperrors.Wrap(apperrors.CodeUpstreamRejected, "menu provider rejected the request", err)
	}
}
