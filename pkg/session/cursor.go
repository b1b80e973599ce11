// Package session stores per-user browsing cursors.
//
// A cursor is a pointer into a result set, never a snapshot of it: the list
// is recomputed from the watch mode on every read.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Back modes name the screen the back button returns to.
const (
	BackRoot              = "0"
	BackSearchSeason      = "search_from_season"
	BackSearchSize        = "search_from_size"
	BackSearchArticle     = "search_from_art"
	BackBasketFromCatalog = "go_to_basket_from_catalog"
	BackBasketFromMenu    = "go_to_basket_from_menu"
	BackSame              = "same"
)

// ErrUnavailable wraps Redis failures of the cursor store.
var ErrUnavailable = errors.New("session store unavailable")

// Cursor is one user's position in the list they are paging through.
type Cursor struct {
	Position  int
	Brand     string
	WatchMode string
	BackMode  string
}

// Empty reports whether the user has not started browsing.
func (c Cursor) Empty() bool {
	return c.WatchMode == ""
}

// Store keeps cursors in Redis hashes keyed index:{user}.
type Store struct {
	rdb *redis.Client
}

// NewStore returns a cursor store over rdb.
func NewStore(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func cursorKey(userID int64) string {
	return "index:" + strconv.FormatInt(userID, 10)
}

// SetCursor overwrites the user's cursor. GetCursor returns cur unchanged.
func (s *Store) SetCursor(ctx context.Context, userID int64, cur Cursor) error {
	key := cursorKey(userID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, map[string]any{
			"current_index": cur.Position,
			"brand":         cur.Brand,
			"watch_mode":    cur.WatchMode,
			"back_mode":     cur.BackMode,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// GetCursor returns the user's cursor, or a zero Cursor when none is stored.
func (s *Store) GetCursor(ctx context.Context, userID int64) (Cursor, error) {
	fields, err := s.rdb.HGetAll(ctx, cursorKey(userID)).Result()
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if len(fields) == 0 {
		return Cursor{}, nil
	}
	pos, err := strconv.Atoi(fields["current_index"])
	if err != nil || pos < 0 {
		pos = 0
	}
	return Cursor{
		Position:  pos,
		Brand:     fields["brand"],
		WatchMode: fields["watch_mode"],
		BackMode:  fields["back_mode"],
	}, nil
}
