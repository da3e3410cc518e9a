package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/edupulse/result-notify-service/environments"
	"github.com/edupulse/result-notify-service/internal/domain"
	"github.com/edupulse/result-notify-service/pkg/logger"
)

type Client struct {
	client valkey.Client
}

const (
	deliveredKeyPrefix = "delivered:"
	deliveredTTL       = 24 * time.Hour
)

func NewRedisClient(cfg environments.RedisConfig) (*Client, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)},
		Password:    cfg.Password,
		SelectDB:    cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Infof("Connected to Redis (via Valkey client)")

	return &Client{client: client}, nil
}

// CacheDelivery stores a successful delivery's gateway id under the record
// id. Best-effort; callers log and move on when this fails.
func (c *Client) CacheDelivery(ctx context.Context, recordID, gatewayMessageID string, sentAt time.Time) error {
	cache := domain.DeliveryCache{
		GatewayMessageID: gatewayMessageID,
		SentAt:           sentAt,
	}

	data, err := json.Marshal(cache)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}

	key := deliveredKeyPrefix + recordID

	err = c.client.Do(ctx, c.client.B().Set().Key(key).Value(string(data)).Ex(deliveredTTL).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to cache delivery: %w", err)
	}

	logger.Debugf("Cached delivery %s -> %s", recordID, gatewayMessageID)
	return nil
}

func (c *Client) GetCachedDelivery(ctx context.Context, recordID string) (*domain.DeliveryCache, error) {
	key := deliveredKeyPrefix + recordID

	result := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
	if result.Error() != nil {
		if valkey.IsValkeyNil(result.Error()) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cached delivery: %w", result.Error())
	}

	data, err := result.ToString()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached delivery: %w", err)
	}

	var cache domain.DeliveryCache
	if err := json.Unmarshal([]byte(data), &cache); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}

	return &cache, nil
}

func (c *Client) GetAllCachedDeliveries(ctx context.Context) (map[string]*domain.DeliveryCache, error) {
	pattern := deliveredKeyPrefix + "*"

	var keys []string
	var cursor uint64
	for {
		result := c.client.Do(ctx, c.client.B().Scan().Cursor(cursor).Match(pattern).Count(100).Build())
		if result.Error() != nil {
			return nil, fmt.Errorf("failed to scan cache keys: %w", result.Error())
		}

		scanResult, err := result.AsScanEntry()
		if err != nil {
			return nil, fmt.Errorf("failed to parse scan result: %w", err)
		}

		keys = append(keys, scanResult.Elements...)
		cursor = scanResult.Cursor

		if cursor == 0 {
			break
		}
	}

	deliveries := make(map[string]*domain.DeliveryCache)

	for _, key := range keys {
		getResult := c.client.Do(ctx, c.client.B().Get().Key(key).Build())
		if getResult.Error() != nil {
			continue
		}

		data, err := getResult.ToString()
		if err != nil {
			continue
		}

		var cache domain.DeliveryCache
		if err := json.Unmarshal([]byte(data), &cache); err != nil {
			continue
		}

		deliveries[key[len(deliveredKeyPrefix):]] = &cache
	}

	return deliveries, nil
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Do(ctx, c.client.B().Ping().Build()).Error()
}

func (c *Client) Close() error {
	c.client.Close()
	return nil
}
