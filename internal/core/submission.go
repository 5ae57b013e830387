package core

import (
	"context"
	"time"

	"github.com/JonMunkholm/richway/internal/logging"
	"github.com/JonMunkholm/richway/internal/metrics"
)

// SubmitInput is the registration form. No field is required and any JSON
// value is accepted; see FormValue.
type SubmitInput struct {
	Name  FormValue `json:"name"`
	Email FormValue `json:"email"`
	Phone FormValue `json:"phone"`
	City  FormValue `json:"city"`
}

// SubmitResult is returned to the registrant.
type SubmitResult struct {
	Success bool   `json:"success"`
	Name    string `json:"name"`
	UserID  string `json:"userId"`
}

// SubmissionService registers members.
type SubmissionService struct {
	store      Store
	bestEffort bool
	sender     Sender
	compose    ComposeFunc
	tasks      *Dispatcher
	ids        IDSource
	now        func() time.Time
}

// Option customizes a SubmissionService.
type Option func(*SubmissionService)

// WithIDSource replaces the random member id generator.
func WithIDSource(ids IDSource) Option {
	return func(s *SubmissionService) { s.ids = ids }
}

// WithClock replaces time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *SubmissionService) { s.now = now }
}

// NewSubmissionService wires a service around the active store. Welcome
// emails are composed by compose, delivered by sender and run on tasks.
func NewSubmissionService(store Store, sender Sender, compose ComposeFunc, tasks *Dispatcher, opts ...Option) *SubmissionService {
	s := &SubmissionService{
		store:   store,
		sender:  sender,
		compose: compose,
		tasks:   tasks,
		ids:     NewIDGenerator(),
		now:     time.Now,
	}
	if be, ok := store.(BestEffortStore); ok {
		s.bestEffort = be.BestEffort()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit stores a new member and schedules the welcome email.
//
// A store error is returned unchanged so the caller can report its message,
// except for best-effort stores where it is only logged. Email delivery is
// never awaited and its failure is invisible to the caller.
func (s *SubmissionService) Submit(ctx context.Context, in SubmitInput) (*SubmitResult, error) {
	rec := Record{
		Name:   string(in.Name),
		Email:  string(in.Email),
		Phone:  string(in.Phone),
		City:   string(in.City),
		UserID: s.ids.Next(),
		Time:   s.now(),
	}
	logger := logging.WithFields(ctx, "user_id", rec.UserID, "store", s.store.Backend())

	start := time.Now()
	err := s.store.Append(ctx, rec)
	metrics.ObserveAppend(s.store.Backend(), time.Since(start), err)

	outcome := "stored"
	if err != nil {
		if !s.bestEffort {
			metrics.RecordSubmission("failed")
			logger.Error("record append failed", "error", err)
			return nil, err
		}
		outcome = "unstored"
		logger.Error("record append failed, continuing", "error", err)
	}
	metrics.RecordSubmission(outcome)

	s.tasks.Go(ctx, "welcome_email", func(ctx context.Context) error {
		msg, err := s.compose(ctx, rec)
		if err != nil {
			return err
		}
		if err := s.sender.Send(ctx, msg); err != nil {
			return err
		}
		logging.FromContext(ctx).Info("welcome email sent", "to", rec.Email, "user_id", rec.UserID)
		return nil
	})

	logger.Info("member registered", "outcome", outcome)
	return &SubmitResult{Success: true, Name: rec.Name, UserID: rec.UserID}, nil
}
