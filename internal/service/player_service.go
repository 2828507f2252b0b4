package service

import (
	"context"
	"errors"
	"fmt"

	"super_clicker/internal/domain"
	"super_clicker/internal/logger"
	"super_clicker/internal/metrics"
	"super_clicker/internal/moderation"
	"super_clicker/internal/store"
)

var ErrForbidden = errors.New("forbidden")

// StatusPublisher pushes account status changes to connected players.
type StatusPublisher interface {
	PublishStatus(userID int64, st domain.AccountStatus, events []moderation.Event)
}

type nopPublisher struct{}

func (nopPublisher) PublishStatus(int64, domain.AccountStatus, []moderation.Event) {}

// Publishers fans a status change out to several publishers.
type Publishers []StatusPublisher

func (p Publishers) PublishStatus(userID int64, st domain.AccountStatus, events []moderation.Event) {
	for _, pub := range p {
		pub.PublishStatus(userID, st, events)
	}
}

// Caller identifies who is making a request.
type Caller struct {
	UserID  int64
	IsAdmin bool
}

// PlayerService is the server side of record persistence. It owns the
// authoritative account status: player saves never loosen a restriction.
type PlayerService struct {
	store     store.Store
	locks     *store.Locks
	engine    *moderation.Engine
	detector  *moderation.Detector
	audit     *AuditService
	publisher StatusPublisher
}

func NewPlayerService(st store.Store, locks *store.Locks, engine *moderation.Engine, detector *moderation.Detector, audit *AuditService, publisher StatusPublisher) *PlayerService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &PlayerService{
		store:     st,
		locks:     locks,
		engine:    engine,
		detector:  detector,
		audit:     audit,
		publisher: publisher,
	}
}

// Get returns the record with expired restrictions cleared. The cleared
// status is written back.
func (s *PlayerService) Get(ctx context.Context, userID int64) (*domain.PlayerRecord, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	rec, err := s.store.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	st, events := s.engine.Reconcile(rec.AccountStatus)
	if len(events) == 0 {
		return rec, nil
	}
	rec.AccountStatus = st
	if err := s.store.Store(ctx, rec); err != nil {
		logger.Warn("failed to persist reconciled status", "user_id", userID, "error", err)
	}
	s.record(ctx, userID, 0, "expiry", events)
	s.publisher.PublishStatus(userID, rec.AccountStatus, events)
	return rec, nil
}

// Save stores a record sent by a client. Players may only save their own
// record and their account status is merged into the stored one; admins push
// the record as is, subject to warning escalation.
func (s *PlayerService) Save(ctx context.Context, caller Caller, userID int64, incoming *domain.PlayerRecord) (*domain.PlayerRecord, error) {
	if !caller.IsAdmin && caller.UserID != userID {
		metrics.PlayerSaves.WithLabelValues("forbidden").Inc()
		return nil, ErrForbidden
	}
	if incoming == nil {
		return nil, fmt.Errorf("empty record")
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	existing, err := s.store.Fetch(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		existing = nil
	case err != nil:
		metrics.PlayerSaves.WithLabelValues("error").Inc()
		return nil, err
	}

	rec := incoming.Clone()
	rec.UserID = userID

	var events []moderation.Event
	source := "client_merge"
	actor := int64(0)
	if caller.IsAdmin {
		source, actor = "admin_push", caller.UserID
		rec.AccountStatus, events = s.engine.Enforce(rec.AccountStatus)
	} else {
		rec, events = s.mergePlayerSave(existing, rec)
	}

	now := s.engine.Now()
	rec.LastSaved = domain.TimePtr(now)
	if err := s.store.Store(ctx, rec); err != nil {
		metrics.PlayerSaves.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.PlayerSaves.WithLabelValues("ok").Inc()

	if len(events) > 0 {
		s.record(ctx, userID, actor, source, events)
	}
	if len(events) > 0 || caller.IsAdmin {
		s.publisher.PublishStatus(userID, rec.AccountStatus, events)
	}
	return rec, nil
}

func (s *PlayerService) mergePlayerSave(existing, rec *domain.PlayerRecord) (*domain.PlayerRecord, []moderation.Event) {
	now := s.engine.Now()
	var server domain.AccountStatus
	if existing != nil {
		server = existing.AccountStatus
	}

	status, events := s.engine.MergeClientStatus(server, rec.AccountStatus)

	// A restricted player's progress does not move.
	if existing != nil && !moderation.CanAct(status, now).Allowed {
		kept := existing.Clone()
		kept.AccountStatus = status
		return kept, events
	}

	rec.AccountStatus = status
	if v := s.detector.ObserveState(rec.Coins, rec.Level, rec.ClickPower); v.AutoBan {
		var ban []moderation.Event
		rec.AccountStatus, ban = s.engine.AutoBan(rec.AccountStatus, v.Reason)
		if len(ban) > 0 {
			logger.Warn("implausible record rejected", "user_id", rec.UserID, "reason", v.Reason)
			events = append(events, ban...)
		}
	}
	return rec, events
}

func (s *PlayerService) record(ctx context.Context, userID, actorID int64, source string, events []moderation.Event) {
	for _, ev := range events {
		metrics.ModerationActions.WithLabelValues(string(ev.Kind), source).Inc()
	}
	if s.audit != nil {
		s.audit.LogEvents(ctx, userID, actorID, events)
	}
}
