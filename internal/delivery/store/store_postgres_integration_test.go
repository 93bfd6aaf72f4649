//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"dlvery/internal/delivery/models"
	"dlvery/internal/delivery/store"
	id "dlvery/pkg/domain"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.Postgres
	store    *store.PostgresStore
	now      time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.StartPostgres(s.T(), store.Schema)
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "deliveries"))
	s.now = time.Now().UTC().Truncate(time.Microsecond)
}

func (s *PostgresStoreSuite) newDelivery(agent string, scheduled time.Time) *models.Delivery {
	d, err := models.NewDelivery(id.DeliveryID(uuid.New()), "Ada", "1 Main St", models.PriorityPerishable, scheduled, agent, s.now)
	s.Require().NoError(err)
	return d
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	d := s.newDelivery("agent1", s.now)
	s.Require().NoError(s.store.Create(ctx, d))

	got, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.Number, got.Number)
	s.Equal(models.StatusAssigned, got.Status)
	s.Equal(models.PriorityPerishable, got.Priority)
	s.True(d.ScheduledAt.Equal(got.ScheduledAt))
	s.Require().NotNil(got.AssignedAt)
	s.Nil(got.DeliveredAt)

	s.ErrorIs(s.store.Create(ctx, d), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestMissingScheduleRoundTripsAsZero() {
	ctx := context.Background()
	d := s.newDelivery("", time.Time{})
	s.Require().NoError(s.store.Create(ctx, d))

	got, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.True(got.ScheduledAt.IsZero())
}

func (s *PostgresStoreSuite) TestListFilters() {
	ctx := context.Background()
	today := s.newDelivery("agent1", s.now)
	tomorrow := s.newDelivery("agent1", s.now.Add(24*time.Hour))
	other := s.newDelivery("agent2", s.now)
	for _, d := range []*models.Delivery{today, tomorrow, other} {
		s.Require().NoError(s.store.Create(ctx, d))
	}

	got, err := s.store.List(ctx, store.Query{
		Agent:         "agent1",
		Statuses:      []models.Status{models.StatusAssigned, models.StatusPending},
		ScheduledFrom: s.now.Add(-time.Minute),
		ScheduledTo:   s.now.Add(time.Hour),
	})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(today.ID, got[0].ID)
}

func (s *PostgresStoreSuite) TestConditionalUpdate() {
	ctx := context.Background()
	d := s.newDelivery("agent1", s.now)
	s.Require().NoError(s.store.Create(ctx, d))

	next := *d
	s.Require().NoError(next.Transition(models.TransitionRequest{To: models.StatusInTransit}, s.now))
	s.Require().NoError(s.store.UpdateStatus(ctx, &next, models.StatusAssigned))

	s.ErrorIs(s.store.UpdateStatus(ctx, &next, models.StatusAssigned), sentinel.ErrInvalidState)

	missing := s.newDelivery("", s.now)
	s.ErrorIs(s.store.UpdateStatus(ctx, missing, models.StatusPending), sentinel.ErrNotFound)

	delivered := next
	s.Require().NoError(delivered.Transition(models.TransitionRequest{
		To: models.StatusDelivered, SignatureRef: "signatures/x.png", CustomerName: "Ada",
	}, s.now))
	s.Require().NoError(s.store.UpdateStatus(ctx, &delivered, models.StatusInTransit))

	got, err := s.store.FindByID(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusDelivered, got.Status)
	s.Equal("signatures/x.png", got.SignatureRef)
	s.NotNil(got.DeliveredAt)
}
