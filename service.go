package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"golang.org/x/sync/singleflight"
)

// userService orchestrates uniqueness validation, store access and the
// users cache. Writes hit the store first and then adjust the cache; reads
// try the cache first and fill it after a store hit.
type userService struct {
	store  userStore
	cache  *userCache
	logger Logger

	// inflight dedupe collapses concurrent misses for the same cache key
	inflight singleflight.Group
}

func newUserService(store userStore, cache *userCache, logger Logger) *userService {
	return &userService{store: store, cache: cache, logger: logger}
}

// CreateUser inserts a new user. The cache is not populated, so the first
// read after a create always goes to the store.
func (s *userService) CreateUser(ctx context.Context, req UserRequest) (UserResponse, error) {
	if _, err := s.validateNewUsernameAndEmail(ctx, "", req.Username, req.Email); err != nil {
		return UserResponse{}, err
	}

	u, err := s.store.Insert(ctx, User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
	})
	if err != nil {
		return UserResponse{}, err
	}

	s.logger.Info(ctx, "user created", "id", u.ID, "username", u.Username)
	return toUserResponse(u), nil
}

// GetAllUsers always scans the store.
func (s *userService) GetAllUsers(ctx context.Context) ([]UserResponse, error) {
	users, err := s.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	return out, nil
}

func (s *userService) GetUserByID(ctx context.Context, id int64) (UserResponse, error) {
	return s.cached(ctx, idKey(id), func(ctx context.Context) (User, error) {
		s.logger.Info(ctx, "getting user by id", "id", id)
		return s.findUserByID(ctx, id)
	})
}

func (s *userService) GetUserByUsername(ctx context.Context, username string) (UserResponse, error) {
	return s.cached(ctx, usernameKey(username), func(ctx context.Context) (User, error) {
		s.logger.Info(ctx, "getting user by username", "username", username)
		u, err := s.store.FindByUsername(ctx, username)
		if errors.Is(err, ErrUserNotFound) {
			return User{}, &notFoundError{msg: fmt.Sprintf("User with username %s not found", username)}
		}
		return u, err
	})
}

// UpdateUser replaces the four mutable fields and refreshes the entry under
// the new username. The id-keyed entry is left as it is: a view cached by
// GetUserByID before the update keeps being served until the region is
// cleared.
func (s *userService) UpdateUser(ctx context.Context, id int64, req UserRequest) (UserResponse, error) {
	u, err := s.findUserByID(ctx, id)
	if err != nil {
		return UserResponse{}, err
	}

	if _, err := s.validateNewUsernameAndEmail(ctx, u.Username, req.Username, req.Email); err != nil {
		return UserResponse{}, err
	}

	u.FirstName = req.FirstName
	u.LastName = req.LastName
	u.Username = req.Username
	u.Email = req.Email

	u, err = s.store.Update(ctx, u)
	if err != nil {
		return UserResponse{}, err
	}

	view := toUserResponse(u)
	s.cache.put(usernameKey(u.Username), view)

	s.logger.Info(ctx, "user updated", "id", u.ID, "username", u.Username)
	return view, nil
}

// DeleteUser removes the user and clears the whole cache region.
func (s *userService) DeleteUser(ctx context.Context, id int64) (MessageResponse, error) {
	u, err := s.findUserByID(ctx, id)
	if err != nil {
		return MessageResponse{}, err
	}

	if err := s.store.Delete(ctx, u); err != nil {
		return MessageResponse{}, err
	}
	s.cache.clear()

	s.logger.Info(ctx, "user deleted", "id", id)
	return MessageResponse{Message: fmt.Sprintf("User with id %d was deleted", id)}, nil
}

// cached serves key from the cache, or loads it, stores the view under key
// and returns it.
//
// Concurrent misses for the same key in the same cache generation share one
// load. The load runs detached from any single caller's cancellation; each
// caller still gives up on its own ctx. A put or clear starts a new
// generation, so later readers never join a load that began before it.
func (s *userService) cached(ctx context.Context, key string, load func(context.Context) (User, error)) (UserResponse, error) {
	if v, err := s.cache.get(key); err == nil {
		s.logger.Debug(ctx, "cache hit", "key", key)
		return v, nil
	}
	s.logger.Debug(ctx, "cache miss", "key", key)

	gen := s.cache.generation()
	loadCtx := context.WithoutCancel(ctx)

	ch := s.inflight.DoChan(strconv.FormatUint(gen, 10)+"/"+key, func() (any, error) {
		u, err := load(loadCtx)
		if err != nil {
			return UserResponse{}, err
		}
		view := toUserResponse(u)
		if !s.cache.fill(key, view, gen) {
			s.logger.Debug(loadCtx, "cache fill dropped", "key", key)
		}
		return view, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return UserResponse{}, res.Err
		}
		return res.Val.(UserResponse), nil
	case <-ctx.Done():
		return UserResponse{}, ctx.Err()
	}
}

// validateNewUsernameAndEmail checks that newUsername and newEmail are free.
// With an empty currentUsername it is the create check; otherwise they may
// belong to the current user. Username conflicts are reported before email
// conflicts.
func (s *userService) validateNewUsernameAndEmail(ctx context.Context, currentUsername, newUsername, newEmail string) (*User, error) {
	byUsername, err := s.findOptional(ctx, s.store.FindByUsername, newUsername)
	if err != nil {
		return nil, err
	}
	byEmail, err := s.findOptional(ctx, s.store.FindByEmail, newEmail)
	if err != nil {
		return nil, err
	}

	if currentUsername == "" {
		if byUsername != nil {
			return nil, ErrUsernameExists
		}
		if byEmail != nil {
			return nil, ErrEmailExists
		}
		return nil, nil
	}

	current, err := s.findOptional(ctx, s.store.FindByUsername, currentUsername)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, &notFoundError{msg: "Not user found by username: " + currentUsername}
	}
	if byUsername != nil && byUsername.ID != current.ID {
		return nil, ErrUsernameExists
	}
	if byEmail != nil && byEmail.ID != current.ID {
		return nil, ErrEmailExists
	}
	return current, nil
}

func (s *userService) findOptional(ctx context.Context, find func(context.Context, string) (User, error), key string) (*User, error) {
	u, err := find(ctx, key)
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *userService) findUserByID(ctx context.Context, id int64) (User, error) {
	u, err := s.store.FindByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return User{}, &notFoundError{msg: fmt.Sprintf("User with id %d not found", id)}
	}
	return u, err
}
