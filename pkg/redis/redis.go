package redis

import (
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/KendrickOdei/fastTix-sub000/config"
)

var (
	once   sync.Once
	client redis.UniversalClient
)

// GetClient returns the shared redis client, constructed once from config.
func GetClient() redis.UniversalClient {
	once.Do(func() {
		c := config.Get()

		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    c.Redis.Addresses,
			Password: c.Redis.Password,
			DB:       c.Redis.DB,
		})
	})

	return client
}
