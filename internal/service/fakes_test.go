package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/referral-service/internal/database"
	"github.com/iliyamo/referral-service/internal/model"
	"github.com/iliyamo/referral-service/internal/queue"
)

// memStore mimics the users/documents tables, including the atomic
// insert-or-update on the unique login and transaction rollback.
type memStore struct {
	mu        sync.Mutex
	nextUser  uint64
	nextDoc   uint64
	users     map[string]*model.User
	docs      []model.Document
	failDocs  error
	failBegin error
}

func newMemStore() *memStore { return &memStore{users: map[string]*model.User{}} }

func (s *memStore) InTx(ctx context.Context, fn func(ctx context.Context, tx database.DBTX) error) error {
	if s.failBegin != nil {
		return s.failBegin
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	usersBefore := make(map[string]model.User, len(s.users))
	for k, u := range s.users {
		usersBefore[k] = *u
	}
	docsBefore, nextUser, nextDoc := len(s.docs), s.nextUser, s.nextDoc
	if err := fn(ctx, nil); err != nil {
		s.users = map[string]*model.User{}
		for k, u := range usersBefore {
			u := u
			s.users[k] = &u
		}
		s.docs, s.nextUser, s.nextDoc = s.docs[:docsBefore], nextUser, nextDoc
		return err
	}
	return nil
}

func (s *memStore) UpsertTx(_ context.Context, _ database.DBTX, u *model.User) (bool, error) {
	if existing, ok := s.users[u.Login]; ok {
		existing.PasswordHash, existing.GenderID, existing.TypeID = u.PasswordHash, u.GenderID, u.TypeID
		existing.LastName, existing.FirstName = u.LastName, u.FirstName
		u.ID = existing.ID
		return false, nil
	}
	s.nextUser++
	u.ID = s.nextUser
	cp := *u
	s.users[u.Login] = &cp
	return true, nil
}

func (s *memStore) InsertTx(_ context.Context, _ database.DBTX, d *model.Document) error {
	if s.failDocs != nil {
		return s.failDocs
	}
	s.nextDoc++
	d.ID = s.nextDoc
	s.docs = append(s.docs, *d)
	return nil
}

func (s *memStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *memStore) docCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

// plainHasher is a deterministic stand-in for bcrypt.
type plainHasher struct{ err error }

func (h plainHasher) Hash(p string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + p, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.ReferralProcessedEvent
	err    error
}

func (p *recordingPublisher) PublishReferralProcessed(_ context.Context, ev queue.ReferralProcessedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.Out = io.Discard
	return l
}

var errDown = errors.New("db down")
