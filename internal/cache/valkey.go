package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ValkeyClient caches read-only listing responses (event lists, free-slot
// availability). Cached values are display data only: write decisions
// always re-condition against Postgres.
type ValkeyClient struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	TTL      time.Duration
}

func NewValkeyClient(cfg Config) (*ValkeyClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           0,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}

	return &ValkeyClient{client: rdb, ttl: ttl}, nil
}

func eventsListKey(page, pageSize int) string {
	return fmt.Sprintf("events:list:%d:%d", page, pageSize)
}

func availabilityKey(businessID int64, serviceID, date string) string {
	return fmt.Sprintf("availability:%d:%s:%s", businessID, serviceID, date)
}

// GetEventsListRaw returns the cached raw JSON for an events page.
func (v *ValkeyClient) GetEventsListRaw(ctx context.Context, page, pageSize int) ([]byte, error) {
	data, err := v.client.Get(ctx, eventsListKey(page, pageSize)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	return data, nil
}

// SetEventsListRaw stores an events page with the configured TTL.
func (v *ValkeyClient) SetEventsListRaw(ctx context.Context, page, pageSize int, raw []byte) {
	v.client.Set(ctx, eventsListKey(page, pageSize), raw, v.ttl)
}

// GetAvailabilityRaw returns the cached free-slot listing for one
// business/service/day, if present.
func (v *ValkeyClient) GetAvailabilityRaw(ctx context.Context, businessID int64, serviceID, date string) ([]byte, error) {
	data, err := v.client.Get(ctx, availabilityKey(businessID, serviceID, date)).Bytes()
	if err != nil {
		return nil, fmt.Errorf("cache lookup failed: %w", err)
	}
	return data, nil
}

// SetAvailabilityRaw stores a free-slot listing. Short TTL: a stale list
// only costs the client a slot_conflict on submit.
func (v *ValkeyClient) SetAvailabilityRaw(ctx context.Context, businessID int64, serviceID, date string, raw []byte) {
	v.client.Set(ctx, availabilityKey(businessID, serviceID, date), raw, v.ttl)
}

// InvalidateAvailability drops the cached listing for one day after a
// window was taken or freed.
func (v *ValkeyClient) InvalidateAvailability(ctx context.Context, businessID int64, serviceID, date string) {
	v.client.Del(ctx, availabilityKey(businessID, serviceID, date))
}

func (v *ValkeyClient) Close() error {
	return v.client.Close()
}
