package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// AttemptMetaKey returns the cache key for an attempt's session metadata
// (secret, option salts, question order, progress).
func (r *CacheKeyStruct) AttemptMetaKey(attemptID string) string {
	return fmt.Sprintf("attempt_meta:%s", attemptID)
}

var CacheKey = NewCacheKeyStruct()
