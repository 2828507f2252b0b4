package service

import (
	"context"
	"errors"
	"fmt"

	"super_clicker/internal/admin"
	"super_clicker/internal/domain"
	"super_clicker/internal/metrics"
	"super_clicker/internal/moderation"
	"super_clicker/internal/store"
)

// Moderation actions accepted by Apply.
const (
	ActionBan      = "ban"
	ActionUnban    = "unban"
	ActionFreeze   = "freeze"
	ActionUnfreeze = "unfreeze"
	ActionWarn     = "warn"
	ActionRetry    = "retry"
)

var (
	ErrUnknownAction = errors.New("unknown moderation action")
	// ErrInvalidRequest covers a missing reason or a bad duration.
	ErrInvalidRequest = errors.New("invalid moderation request")
)

// ActionRequest carries the moderation dialog fields.
type ActionRequest struct {
	Reason   string `json:"reason"`
	Detail   string `json:"detail"`
	Duration string `json:"duration"`
}

// ModerationService runs admin moderation actions through a fresh
// admin.Workflow per request, then audits and pushes the result.
type ModerationService struct {
	store     store.Store
	locks     *store.Locks
	engine    *moderation.Engine
	audit     *AuditService
	publisher StatusPublisher
}

func NewModerationService(st store.Store, locks *store.Locks, engine *moderation.Engine, audit *AuditService, publisher StatusPublisher) *ModerationService {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	return &ModerationService{store: st, locks: locks, engine: engine, audit: audit, publisher: publisher}
}

// NewWorkflow returns a workflow over the authoritative store, for callers
// that keep a target across several steps (the admin bot). It shares the
// per-user locks with PlayerService.
func (s *ModerationService) NewWorkflow() *admin.Workflow {
	return admin.New(s.store, s.engine, s.locks)
}

// Apply loads userID and applies action on behalf of adminID.
func (s *ModerationService) Apply(ctx context.Context, adminID, userID int64, action string, req ActionRequest) (*domain.PlayerRecord, error) {
	w := s.NewWorkflow()
	if _, err := w.Search(ctx, userID); err != nil {
		return nil, err
	}
	res, err := s.Run(ctx, w, adminID, action, req)
	if err != nil {
		return nil, err
	}
	return res.Record, nil
}

// Run applies action to the workflow's loaded target.
func (s *ModerationService) Run(ctx context.Context, w *admin.Workflow, adminID int64, action string, req ActionRequest) (admin.Result, error) {
	reason := admin.ComposeReason(req.Reason, req.Detail)

	var (
		res admin.Result
		err error
	)
	switch action {
	case ActionBan, ActionFreeze:
		d, perr := admin.ParseDuration(req.Duration)
		if perr != nil {
			return admin.Result{}, fmt.Errorf("%w: %w", ErrInvalidRequest, perr)
		}
		if reason == "" {
			return admin.Result{}, fmt.Errorf("%w: reason is required", ErrInvalidRequest)
		}
		if action == ActionBan {
			res, err = w.ApplyBan(ctx, reason, d)
		} else {
			res, err = w.ApplyFreeze(ctx, reason, d)
		}
	case ActionUnban:
		res, err = w.ApplyUnban(ctx)
	case ActionUnfreeze:
		res, err = w.ApplyUnfreeze(ctx)
	case ActionWarn:
		if reason == "" {
			return admin.Result{}, fmt.Errorf("%w: reason is required", ErrInvalidRequest)
		}
		res, err = w.ApplyWarn(ctx, reason, adminID)
	case ActionRetry:
		res, err = w.Retry(ctx)
	default:
		return admin.Result{}, ErrUnknownAction
	}
	if err != nil {
		if errors.Is(err, admin.ErrNotCommitted) {
			metrics.ModerationPushFailures.WithLabelValues(action).Inc()
		}
		return admin.Result{}, err
	}

	s.afterCommit(ctx, adminID, res)
	return res, nil
}

// afterCommit audits, counts and pushes a committed workflow result.
func (s *ModerationService) afterCommit(ctx context.Context, adminID int64, res admin.Result) {
	if res.Record == nil || len(res.Events) == 0 {
		return
	}
	for _, ev := range res.Events {
		metrics.ModerationActions.WithLabelValues(string(ev.Kind), "admin").Inc()
	}
	if s.audit != nil {
		s.audit.LogEvents(ctx, res.Record.UserID, adminID, res.Events)
	}
	s.publisher.PublishStatus(res.Record.UserID, res.Record.AccountStatus, res.Events)
}
