package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/referral-service/internal/database"
	"github.com/iliyamo/referral-service/internal/model"
	"github.com/iliyamo/referral-service/internal/queue"
)

// TxRunner runs fn inside a single database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, tx database.DBTX) error) error
}

type UserWriter interface {
	UpsertTx(ctx context.Context, tx database.DBTX, u *model.User) (created bool, err error)
}

type DocumentWriter interface {
	InsertTx(ctx context.Context, tx database.DBTX, d *model.Document) error
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// EventPublisher delivers referral events. Failures never fail a referral.
type EventPublisher interface {
	PublishReferralProcessed(ctx context.Context, ev queue.ReferralProcessedEvent) error
}

// Result describes a committed referral.
type Result struct {
	UserID     uint64
	DocumentID uint64
	Created    bool
}

// Processor turns validated referrals into a user upsert plus a document
// insert. Both writes share one transaction.
type Processor struct {
	Tx        TxRunner
	Users     UserWriter
	Documents DocumentWriter
	Hasher    PasswordHasher
	Events    EventPublisher // optional
	Log       *logrus.Logger
}

func NewProcessor(tx TxRunner, users UserWriter, docs DocumentWriter, hasher PasswordHasher, events EventPublisher, log *logrus.Logger) *Processor {
	if tx == nil || users == nil || docs == nil || hasher == nil || log == nil {
		panic("nil dependency passed to NewProcessor")
	}
	return &Processor{Tx: tx, Users: users, Documents: docs, Hasher: hasher, Events: events, Log: log}
}

// Process stores ref. Invalid input returns a *ValidationError or
// ErrMalformedPayload before anything is written; store failures return a
// *PersistenceError and leave no partial state.
func (p *Processor) Process(ctx context.Context, ref Referral) (Result, error) {
	ref.Login = NormalizeLogin(ref.Login)
	if err := ref.Validate(); err != nil {
		return Result{}, err
	}
	hash, err := p.Hasher.Hash(ref.Password)
	if err != nil {
		return Result{}, errors.Wrap(err, "hash password")
	}

	user := model.User{
		Login:        ref.Login,
		PasswordHash: hash,
		GenderID:     ref.Gender,
		TypeID:       model.TypeReferred,
		LastName:     ref.LastName,
		FirstName:    ref.FirstName,
	}
	var res Result
	err = p.Tx.InTx(ctx, func(ctx context.Context, tx database.DBTX) error {
		created, err := p.Users.UpsertTx(ctx, tx, &user)
		if err != nil {
			return &PersistenceError{Op: "upsert user", Err: err}
		}
		doc := model.Document{UserID: user.ID, TypeID: ref.DocumentTypeID, Data: ref.Document}
		if err := p.Documents.InsertTx(ctx, tx, &doc); err != nil {
			return &PersistenceError{Op: "insert document", Err: err}
		}
		res = Result{UserID: user.ID, DocumentID: doc.ID, Created: created}
		return nil
	})
	if err != nil {
		var pe *PersistenceError
		if !errors.As(err, &pe) {
			// begin or commit failed
			err = &PersistenceError{Op: "transaction", Err: err}
		}
		return Result{}, err
	}

	p.Log.WithFields(logrus.Fields{
		"user_id":     res.UserID,
		"document_id": res.DocumentID,
		"created":     res.Created,
	}).Info("referral processed")

	if p.Events != nil {
		ev := queue.ReferralProcessedEvent{
			UserID:         res.UserID,
			Login:          ref.Login,
			Created:        res.Created,
			DocumentID:     res.DocumentID,
			DocumentTypeID: ref.DocumentTypeID,
			ProcessedAt:    time.Now().UTC().Format(time.RFC3339),
		}
		if err := p.Events.PublishReferralProcessed(ctx, ev); err != nil {
			p.Log.WithError(err).WithField("user_id", res.UserID).Warn("publish referral event failed")
		}
	}
	return res, nil
}
