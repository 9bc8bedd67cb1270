package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"askstory/auth/internal/model"
)

const departmentsKey = "auth:departments"

// Departments is a read-through cache for the department reference data.
// With a nil redis client every lookup is a miss and every store is a no-op,
// so the service works unchanged without redis configured.
type Departments struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewDepartments(client *redis.Client, ttl time.Duration) *Departments {
	return &Departments{redis: client, ttl: ttl}
}

func (c *Departments) Get(ctx context.Context) ([]model.Department, bool) {
	if c == nil || c.redis == nil {
		return nil, false
	}
	value, err := c.redis.Get(ctx, departmentsKey).Result()
	if err != nil {
		return nil, false
	}
	var departments []model.Department
	if err := json.Unmarshal([]byte(value), &departments); err != nil {
		return nil, false
	}
	return departments, true
}

func (c *Departments) Set(ctx context.Context, departments []model.Department) {
	if c == nil || c.redis == nil {
		return
	}
	data, err := json.Marshal(departments)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, departmentsKey, data, c.ttl).Err()
}
