package postgres

import (
	"context"

	"github.com/policlinic/backoffice/internal/cache"
	"github.com/policlinic/backoffice/internal/domain/user"
	ierr "github.com/policlinic/backoffice/internal/errors"
	"github.com/policlinic/backoffice/internal/logger"
	"github.com/policlinic/backoffice/internal/postgres"
)

type userDirectory struct {
	db     *postgres.DB
	logger *logger.Logger
	cache  cache.Cache
}

// NewUserDirectory creates a user directory backed by postgres. Lookups are
// cached since staff records change rarely.
func NewUserDirectory(db *postgres.DB, logger *logger.Logger, cache cache.Cache) user.Directory {
	return &userDirectory{
		db:     db,
		logger: logger,
		cache:  cache,
	}
}

func (r *userDirectory) Get(ctx context.Context, id string) (*user.User, error) {
	if u := r.getCache(ctx, id); u != nil {
		return u, nil
	}

	var u user.User
	err := r.db.GetQuerier(ctx).GetContext(ctx, &u, `
		SELECT id, username, full_name, role
		FROM users WHERE id = $1`, id)
	if err != nil {
		if isNoRows(err) {
			return nil, ierr.WithError(err).
				WithHintf("User %s not found", id).
				Mark(ierr.ErrNotFound)
		}
		return nil, dbError(err, "Failed to get user")
	}

	r.setCache(ctx, &u)
	return &u, nil
}

// caching
func (r *userDirectory) setCache(ctx context.Context, u *user.User) {
	span := cache.StartCacheSpan(ctx, "user", "set", map[string]interface{}{
		"user_id": u.ID,
	})
	defer cache.FinishSpan(span)

	key := cache.GenerateKey(cache.PrefixUser, u.ID)
	r.cache.Set(ctx, key, u, 0)
	r.logger.Debugw("cache set", "key", key)
}

func (r *userDirectory) getCache(ctx context.Context, id string) *user.User {
	span := cache.StartCacheSpan(ctx, "user", "get", map[string]interface{}{
		"user_id": id,
	})
	defer cache.FinishSpan(span)

	key := cache.GenerateKey(cache.PrefixUser, id)
	if value, found := r.cache.Get(ctx, key); found {
		if u, ok := value.(*user.User); ok {
			r.logger.Debugw("cache hit", "key", key)
			cache.SetSpanSuccess(span)
			return u
		}
	}
	r.logger.Debugw("cache miss", "key", key)
	return nil
}
