package awsapi

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/moolen/flare/internal/logging"
)

// TaskDefinitionCacheConfig holds cache configuration
type TaskDefinitionCacheConfig struct {
	MaxEntries int // Max cached task definitions (default: 256)
}

// DefaultTaskDefinitionCacheConfig returns default cache configuration
func DefaultTaskDefinitionCacheConfig() TaskDefinitionCacheConfig {
	return TaskDefinitionCacheConfig{
		MaxEntries: 256,
	}
}

// TaskDefinitionCacheStats represents cache statistics
type TaskDefinitionCacheStats struct {
	Items   int     // Number of items in cache
	Hits    uint64  // Cache hits
	Misses  uint64  // Cache misses
	HitRate float64 // Hit rate (0.0-1.0)
}

// TaskDefinitionCache provides LRU caching for DescribeTaskDefinition
// calls. Revision-qualified task definitions are immutable, so entries
// never expire; a bare family name resolves to the newest revision and
// is never cached.
type TaskDefinitionCache struct {
	api    ECSAPI
	lru    *lru.Cache[string, *ecstypes.TaskDefinition]
	logger *logging.Logger

	// Metrics (atomic)
	hits   uint64
	misses uint64
}

// NewTaskDefinitionCache creates a new cache with the specified configuration
func NewTaskDefinitionCache(api ECSAPI, config TaskDefinitionCacheConfig, logger *logging.Logger) (*TaskDefinitionCache, error) {
	if config.MaxEntries <= 0 {
		return nil, fmt.Errorf("MaxEntries must be positive, got %d", config.MaxEntries)
	}

	lruCache, err := lru.New[string, *ecstypes.TaskDefinition](config.MaxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	tc := &TaskDefinitionCache{
		api:    api,
		lru:    lruCache,
		logger: logger,
	}
	tc.logger.Debug("Task definition cache initialized: maxEntries=%d", config.MaxEntries)
	return tc, nil
}

// Describe returns the task definition for a family:revision pair or a
// full ARN, serving repeated lookups from the cache. Lookups by bare
// family name always go to the API.
func (tc *TaskDefinitionCache) Describe(ctx context.Context, taskDef string) (*ecstypes.TaskDefinition, error) {
	key, cacheable := cacheKey(taskDef)
	if cacheable {
		if def, ok := tc.lru.Get(key); ok {
			atomic.AddUint64(&tc.hits, 1)
			tc.logger.Debug("Task definition cache HIT: key=%s", key)
			return def, nil
		}
	}
	atomic.AddUint64(&tc.misses, 1)

	out, err := tc.api.DescribeTaskDefinition(ctx, &ecs.DescribeTaskDefinitionInput{
		TaskDefinition: aws.String(taskDef),
	})
	if err != nil {
		return nil, err
	}

	def := out.TaskDefinition
	if def != nil && cacheable {
		tc.lru.Add(key, def)
		tc.logger.Debug("Task definition cache PUT: key=%s", key)
	}
	return def, nil
}

// Stats returns cache statistics
func (tc *TaskDefinitionCache) Stats() TaskDefinitionCacheStats {
	hits := atomic.LoadUint64(&tc.hits)
	misses := atomic.LoadUint64(&tc.misses)
	total := hits + misses

	hitRate := 0.0
	if total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return TaskDefinitionCacheStats{
		Items:   tc.lru.Len(),
		Hits:    hits,
		Misses:  misses,
		HitRate: hitRate,
	}
}

// cacheKey canonicalizes an ARN or family:revision reference to the
// family:revision form. The second return is false for bare family
// names, which must not be cached.
func cacheKey(taskDef string) (string, bool) {
	if idx := strings.LastIndex(taskDef, "/"); idx >= 0 {
		taskDef = taskDef[idx+1:]
	}
	if !strings.Contains(taskDef, ":") {
		return "", false
	}
	return taskDef, true
}
