package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ilham-education/ilham-backend/internal/models"
	"github.com/ilham-education/ilham-backend/internal/repository/repotest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type publishedEvent struct {
	RoutingKey string
	Body       []byte
}

// recordingPublisher keeps every published event in memory.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, routingKey string, event interface{}) error {
	if p.err != nil {
		return p.err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{RoutingKey: routingKey, Body: body})
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) byKey(key string) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if e.RoutingKey == key {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	repos  *repotest.Repositories
	events *recordingPublisher
	logger zerolog.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return &fixture{
		repos:  repotest.New(),
		events: &recordingPublisher{},
		logger: zerolog.Nop(),
	}
}

func (f *fixture) user(t *testing.T, email, role string) *models.User {
	t.Helper()
	now := time.Now()
	u := &models.User{
		ID:         uuid.New().String(),
		Email:      email,
		Role:       role,
		IsVerified: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.repos.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) student(t *testing.T, name string) *models.Student {
	t.Helper()
	u := f.user(t, uuid.New().String()+"@student.test", models.RoleStudent)
	now := time.Now()
	s := &models.Student{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		Email:     u.Email,
		FullName:  name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.repos.Students.Create(context.Background(), s))
	return s
}

func (f *fixture) university(t *testing.T, name string) *models.University {
	t.Helper()
	now := time.Now()
	u := &models.University{
		ID:        uuid.New().String(),
		Name:      name,
		Country:   "Malaysia",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.repos.Universities.Create(context.Background(), u))
	return u
}

func (f *fixture) applications() ApplicationService {
	r := f.repos
	return NewApplicationService(r.Tx, r.Applications, r.History, r.Students, r.Universities, r.Notifications, f.events, f.logger)
}

func (f *fixture) billing(policy SettlementPolicy) BillingService {
	r := f.repos
	return NewBillingService(r.Tx, r.Invoices, r.Payments, r.Applications, r.Students, r.Reminders, policy, f.logger)
}

func (f *fixture) notifications(t *testing.T, studentID string) []models.Notification {
	t.Helper()
	n, err := f.repos.Notifications.GetByStudent(context.Background(), studentID)
	require.NoError(t, err)
	return n
}

func asError[T error](t *testing.T, err error) T {
	t.Helper()
	var target T
	require.Error(t, err)
	require.True(t, errors.As(err, &target), "unexpected error type %T: %v", err, err)
	return target
}
