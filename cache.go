package main

import (
	"errors"
	"strconv"
	"sync"

	gocache "github.com/patrickmn/go-cache"
)

// ErrCacheMiss is returned when a user is not found in the cache
var ErrCacheMiss = errors.New("cache miss")

// userCache is the single "users" cache region. Entries never expire; they
// live until overwritten or until the whole region is cleared.
//
// Ids and usernames share the region under distinct prefixes, so a username
// that looks like a number cannot shadow an id entry.
//
// gen moves on every explicit put and every clear. A read-through fill that
// started under an older generation is dropped instead of being stored.
type userCache struct {
	c *gocache.Cache

	mu  sync.Mutex
	gen uint64
}

func newUserCache() *userCache {
	// cleanup interval <= 0 disables the janitor goroutine
	return &userCache{c: gocache.New(gocache.NoExpiration, 0)}
}

func idKey(id int64) string { return "id:" + strconv.FormatInt(id, 10) }

func usernameKey(username string) string { return "username:" + username }

// get returns a cached view for key, or ErrCacheMiss
func (uc *userCache) get(key string) (UserResponse, error) {
	v, ok := uc.c.Get(key)
	if !ok {
		return UserResponse{}, ErrCacheMiss
	}
	return v.(UserResponse), nil
}

// generation returns the current generation, to be handed back to fill
func (uc *userCache) generation() uint64 {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.gen
}

// put stores a view under key, replacing any previous entry
func (uc *userCache) put(key string, v UserResponse) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.gen++
	uc.c.Set(key, v, gocache.NoExpiration)
}

// fill stores a view loaded from the store, but only if no put or clear
// happened since gen was read. Reports whether the view was stored.
func (uc *userCache) fill(key string, v UserResponse, gen uint64) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if gen != uc.gen {
		return false
	}
	uc.c.Set(key, v, gocache.NoExpiration)
	return true
}

// clear drops every entry in the region
func (uc *userCache) clear() {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	uc.gen++
	uc.c.Flush()
}

func (uc *userCache) count() int {
	return uc.c.ItemCount()
}
