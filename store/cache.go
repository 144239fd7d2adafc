package store

import (
	"time"

	"gorm.io/gorm"
)

// GetCacheEntry retrieves a valid (unexpired) cache entry.
func GetCacheEntry(db *gorm.DB, key string) (*ProviderCache, error) {
	var entry ProviderCache
	err := db.Where("key = ? AND expires_at > ?", key, time.Now()).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// SetCacheEntry upserts a cache entry with the given TTL.
func SetCacheEntry(db *gorm.DB, key string, value []byte, ttl time.Duration) error {
	entry := ProviderCache{
		Key:       key,
		Value:     value,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}
	return db.Save(&entry).Error
}

// CleanupCache removes expired entries.
func CleanupCache(db *gorm.DB) error {
	return db.Where("expires_at < ?", time.Now()).Delete(&ProviderCache{}).Error
}
