package router

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/referral-service/internal/database"
	"github.com/iliyamo/referral-service/internal/model"
	"github.com/iliyamo/referral-service/internal/repository"
)

// memStore backs every repository interface the app wires together.
type memStore struct {
	mu       sync.Mutex
	nextUser uint64
	nextDoc  uint64
	byLogin  map[string]*model.User
	docs     []model.Document
}

func newMemStore() *memStore { return &memStore{byLogin: map[string]*model.User{}} }

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx database.DBTX) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(ctx, nil)
}

func (s *memStore) UpsertTx(_ context.Context, _ database.DBTX, u *model.User) (bool, error) {
	if existing, ok := s.byLogin[u.Login]; ok {
		existing.PasswordHash, existing.GenderID = u.PasswordHash, u.GenderID
		existing.LastName, existing.FirstName = u.LastName, u.FirstName
		u.ID = existing.ID
		return false, nil
	}
	s.nextUser++
	u.ID = s.nextUser
	cp := *u
	s.byLogin[u.Login] = &cp
	return true, nil
}

func (s *memStore) InsertTx(_ context.Context, _ database.DBTX, d *model.Document) error {
	s.nextDoc++
	d.ID = s.nextDoc
	s.docs = append(s.docs, *d)
	return nil
}

// seed inserts a user directly, the way an admin is provisioned.
func (s *memStore) seed(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUser++
	u.ID = s.nextUser
	cp := u
	s.byLogin[u.Login] = &cp
	return u
}

func (s *memStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byLogin {
		if u.ID == id {
			return *u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *memStore) GetByLogin(_ context.Context, login string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.byLogin[login]; ok {
		return *u, nil
	}
	return model.User{}, repository.ErrNotFound
}

func (s *memStore) List(_ context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.User, 0, len(s.byLogin))
	for _, u := range s.byLogin {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) ListByUser(_ context.Context, userID uint64) ([]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []json.RawMessage{}
	for _, d := range s.docs {
		if d.UserID == userID {
			out = append(out, d.Data)
		}
	}
	return out, nil
}

func (s *memStore) ListAllByUser(_ context.Context) (map[uint64][]json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uint64][]json.RawMessage{}
	for _, d := range s.docs {
		out[d.UserID] = append(out[d.UserID], d.Data)
	}
	return out, nil
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}
