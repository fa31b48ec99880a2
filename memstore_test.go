package main

import (
	"context"
	"io"
	"sort"
	"sync"
	"sync/atomic"
)

// memStore is an in-memory userStore that enforces the same unique
// constraints as the users table.
type memStore struct {
	mu     sync.Mutex
	users  map[int64]User
	nextID int64

	findByIDCalls       atomic.Int64
	findByUsernameCalls atomic.Int64

	// err, when set, is returned by every call
	err error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[int64]User), nextID: 1}
}

// conflict reports a username clash with any other row before looking at
// emails, like the username-first order of the service check.
func (m *memStore) conflict(u User) error {
	for _, other := range m.users {
		if other.ID != u.ID && other.Username == u.Username {
			return ErrUsernameExists
		}
	}
	for _, other := range m.users {
		if other.ID != u.ID && other.Email == u.Email {
			return ErrEmailExists
		}
	}
	return nil
}

func (m *memStore) Insert(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return User{}, m.err
	}
	u.ID = 0
	if err := m.conflict(u); err != nil {
		return User{}, err
	}
	u.ID = m.nextID
	m.nextID++
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) FindByID(_ context.Context, id int64) (User, error) {
	m.findByIDCalls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return User{}, m.err
	}
	u, ok := m.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (m *memStore) findBy(match func(User) bool) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return User{}, m.err
	}
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (m *memStore) FindByUsername(_ context.Context, username string) (User, error) {
	m.findByUsernameCalls.Add(1)
	return m.findBy(func(u User) bool { return u.Username == username })
}

func (m *memStore) FindByEmail(_ context.Context, email string) (User, error) {
	return m.findBy(func(u User) bool { return u.Email == email })
}

func (m *memStore) FindAll(_ context.Context) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) Update(_ context.Context, u User) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return User{}, m.err
	}
	if _, ok := m.users[u.ID]; !ok {
		return User{}, ErrUserNotFound
	}
	if err := m.conflict(u); err != nil {
		return User{}, err
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) Delete(_ context.Context, u User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if _, ok := m.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, u.ID)
	return nil
}

// blockingStore holds the first FindByID or FindByUsername call (picked by
// onUsername) after it has read the row, until release is closed. started is
// closed once that call has read the row.
type blockingStore struct {
	*memStore
	onUsername bool

	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func newBlockingStore(m *memStore, onUsername bool) *blockingStore {
	return &blockingStore{
		memStore:   m,
		onUsername: onUsername,
		started:    make(chan struct{}),
		release:    make(chan struct{}),
	}
}

func (b *blockingStore) hold() {
	first := false
	b.once.Do(func() { first = true })
	if !first {
		return
	}
	close(b.started)
	<-b.release
}

func (b *blockingStore) FindByID(ctx context.Context, id int64) (User, error) {
	u, err := b.memStore.FindByID(ctx, id)
	if !b.onUsername {
		b.hold()
	}
	return u, err
}

func (b *blockingStore) FindByUsername(ctx context.Context, username string) (User, error) {
	u, err := b.memStore.FindByUsername(ctx, username)
	if b.onUsername {
		b.hold()
	}
	return u, err
}

// missCounter is a Logger that counts "cache miss" lines, so a test can wait
// until every reader has missed and is about to join the in-flight load.
type missCounter struct {
	Logger
	misses atomic.Int64
}

func newMissCounter() *missCounter {
	return &missCounter{Logger: discardLogger()}
}

func (m *missCounter) Debug(ctx context.Context, msg string, args ...any) {
	if msg == "cache miss" {
		m.misses.Add(1)
	}
	m.Logger.Debug(ctx, msg, args...)
}

func discardLogger() Logger {
	return newLogger(io.Discard, "debug", "text")
}
