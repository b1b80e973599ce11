// Package dropgate controls access to limited drop products.
//
// The drop description and the set of unlocked users live in the store and
// are mirrored into Redis for per-view checks. A Redis failure degrades to the
// store; the store is always written first.
package dropgate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nikixstore/storefront/pkg/models"
	"github.com/nikixstore/storefront/pkg/notify"
	"github.com/redis/go-redis/v9"
)

const (
	infoKey   = "drop_info"
	accessKey = "drop_access"
)

// Store persists the drop description and access grants.
type Store interface {
	DropInfo(ctx context.Context) (models.DropInfo, error)
	SaveDropInfo(ctx context.Context, info models.DropInfo) error
	DropAccessUsers(ctx context.Context) ([]int64, error)
	GrantDropAccess(ctx context.Context, userID int64) error
	ClearDropAccess(ctx context.Context) error
}

// Gate decides who may see drop products and at what price.
type Gate struct {
	store Store
	rdb   *redis.Client
	alert notify.Alerter
	log   *slog.Logger
}

// New returns a Gate over store with rdb as its read mirror.
func New(store Store, rdb *redis.Client, alert notify.Alerter, log *slog.Logger) *Gate {
	if log == nil {
		log = slog.Default()
	}
	return &Gate{store: store, rdb: rdb, alert: alert, log: log}
}

// Warm copies the drop description and access set from the store into Redis.
func (g *Gate) Warm(ctx context.Context) error {
	info, err := g.store.DropInfo(ctx)
	if err != nil {
		return fmt.Errorf("load drop info: %w", err)
	}
	users, err := g.store.DropAccessUsers(ctx)
	if err != nil {
		return fmt.Errorf("load drop access: %w", err)
	}
	members := make([]any, len(users))
	for i, u := range users {
		members[i] = u
	}
	_, err = g.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, infoKey, encodeInfo(info))
		pipe.Del(ctx, accessKey)
		if len(members) > 0 {
			pipe.SAdd(ctx, accessKey, members...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("mirror drop state: %w", err)
	}
	g.log.Info("drop gate warmed", "users", len(users))
	return nil
}

// Info returns the current drop description.
func (g *Gate) Info(ctx context.Context) (models.DropInfo, error) {
	fields, err := g.rdb.HGetAll(ctx, infoKey).Result()
	if err == nil && len(fields) > 0 {
		return models.DropInfo{
			ID:        models.DropInfoID,
			Password:  fields["password"],
			StartDate: fields["start_date"],
			StopDate:  fields["stop_date"],
		}, nil
	}
	if err != nil {
		g.log.WarnContext(ctx, "drop info cache failed, using store", "error", err)
	}
	return g.store.DropInfo(ctx)
}

// SetPassword replaces the drop password.
func (g *Gate) SetPassword(ctx context.Context, password string) error {
	return g.update(ctx, func(info *models.DropInfo) { info.Password = strings.TrimSpace(password) })
}

// SetStartDate replaces the announced drop start.
func (g *Gate) SetStartDate(ctx context.Context, date string) error {
	return g.update(ctx, func(info *models.DropInfo) { info.StartDate = strings.TrimSpace(date) })
}

// SetStopDate replaces the announced end of the drop price.
func (g *Gate) SetStopDate(ctx context.Context, date string) error {
	return g.update(ctx, func(info *models.DropInfo) { info.StopDate = strings.TrimSpace(date) })
}

func (g *Gate) update(ctx context.Context, change func(*models.DropInfo)) error {
	info, err := g.store.DropInfo(ctx)
	if err != nil {
		return fmt.Errorf("load drop info: %w", err)
	}
	change(&info)
	if err := g.store.SaveDropInfo(ctx, info); err != nil {
		return fmt.Errorf("save drop info: %w", err)
	}
	if err := g.rdb.HSet(ctx, infoKey, encodeInfo(info)).Err(); err != nil {
		// readers fall back to the store, but a stale mirror would win
		g.rdb.Del(ctx, infoKey)
		g.log.WarnContext(ctx, "drop info mirror failed", "error", err)
	}
	return nil
}

// Open starts a new drop cycle: it stores the password and dates and revokes
// every previous grant.
func (g *Gate) Open(ctx context.Context, password, start, stop string) error {
	err := g.update(ctx, func(info *models.DropInfo) {
		info.Password = strings.TrimSpace(password)
		info.StartDate = strings.TrimSpace(start)
		info.StopDate = strings.TrimSpace(stop)
	})
	if err != nil {
		return err
	}
	return g.ClearAllAccess(ctx)
}

// CheckAccess reports whether userID has unlocked the current drop.
func (g *Gate) CheckAccess(ctx context.Context, userID int64) (bool, error) {
	ok, err := g.rdb.SIsMember(ctx, accessKey, userID).Result()
	if err == nil {
		return ok, nil
	}
	g.log.WarnContext(ctx, "drop access cache failed, using store", "user_id", userID, "error", err)
	users, err := g.store.DropAccessUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("load drop access: %w", err)
	}
	for _, u := range users {
		if u == userID {
			return true, nil
		}
	}
	return false, nil
}

// GrantAccess unlocks the current drop for userID.
func (g *Gate) GrantAccess(ctx context.Context, userID int64) error {
	if err := g.store.GrantDropAccess(ctx, userID); err != nil {
		return fmt.Errorf("grant drop access: %w", err)
	}
	if err := g.rdb.SAdd(ctx, accessKey, userID).Err(); err != nil {
		g.log.WarnContext(ctx, "drop access mirror failed", "user_id", userID, "error", err)
	}
	return nil
}

// Unlock grants access when password matches the current drop password.
// An unset password never matches.
func (g *Gate) Unlock(ctx context.Context, userID int64, password string) (bool, error) {
	info, err := g.Info(ctx)
	if err != nil {
		return false, err
	}
	if info.Password == "" || strings.TrimSpace(password) != info.Password {
		return false, nil
	}
	if err := g.GrantAccess(ctx, userID); err != nil {
		return false, err
	}
	return true, nil
}

// ClearAllAccess revokes access for everyone.
func (g *Gate) ClearAllAccess(ctx context.Context) error {
	if err := g.store.ClearDropAccess(ctx); err != nil {
		return fmt.Errorf("clear drop access: %w", err)
	}
	if err := g.rdb.Del(ctx, accessKey).Err(); err != nil {
		g.alert.Alert(ctx, fmt.Sprintf("Не удалось сбросить доступ к дропу в кэше: %v", err))
		return fmt.Errorf("clear drop access mirror: %w", err)
	}
	return nil
}

// IsGated reports whether product must be hidden from userID.
func (g *Gate) IsGated(ctx context.Context, product models.Product, userID int64) (bool, error) {
	if !product.Drop() {
		return false, nil
	}
	ok, err := g.CheckAccess(ctx, userID)
	if err != nil {
		return true, err
	}
	return !ok, nil
}

func encodeInfo(info models.DropInfo) map[string]any {
	return map[string]any{
		"password":   info.Password,
		"start_date": info.StartDate,
		"stop_date":  info.StopDate,
	}
}
