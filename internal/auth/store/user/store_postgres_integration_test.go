//go:build integration

package user_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"dlvery/internal/auth/models"
	"dlvery/internal/auth/store/user"
	id "dlvery/pkg/domain"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/testutil/containers"
)

type PostgresUserStoreSuite struct {
	suite.Suite
	postgres *containers.Postgres
	store    *user.PostgresUserStore
}

func TestPostgresUserStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresUserStoreSuite))
}

func (s *PostgresUserStoreSuite) SetupSuite() {
	s.postgres = containers.StartPostgres(s.T(), user.Schema)
	s.store = user.NewPostgres(s.postgres.DB)
}

func (s *PostgresUserStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "users"))
}

func (s *PostgresUserStoreSuite) newUser(username, email string) *models.User {
	u, err := models.NewUser(id.NewUserID(), username, email, "Test User", id.RoleInventoryTeam, "$2a$04$hash", time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	return u
}

func (s *PostgresUserStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	u := s.newUser("stock1", "stock1@example.com")
	s.Require().NoError(s.store.Create(ctx, u))

	found, err := s.store.FindByUsername(ctx, "stock1")
	s.Require().NoError(err)
	s.Equal(u.ID, found.ID)
	s.Equal(id.RoleInventoryTeam, found.Role)
	s.Equal(u.PasswordHash, found.PasswordHash)
	s.True(found.CreatedAt.Equal(u.CreatedAt))

	byEmail, err := s.store.FindByEmail(ctx, "STOCK1@example.com")
	s.Require().NoError(err)
	s.Equal(u.ID, byEmail.ID)

	u.RecordLogin(time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(s.store.UpdateLastLogin(ctx, u))
	again, err := s.store.FindByID(ctx, u.ID)
	s.Require().NoError(err)
	s.Require().NotNil(again.LastLoginAt)
	s.True(again.LastLoginAt.Equal(*u.LastLoginAt))
}

func (s *PostgresUserStoreSuite) TestUniqueConstraints() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newUser("stock1", "stock1@example.com")))

	s.ErrorIs(s.store.Create(ctx, s.newUser("stock1", "x@example.com")), sentinel.ErrConflict)
	s.ErrorIs(s.store.Create(ctx, s.newUser("stock2", "stock1@example.com")), sentinel.ErrConflict)

	_, err := s.store.FindByID(ctx, id.NewUserID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresUserStoreSuite) TestUpdateAndListByRole() {
	ctx := context.Background()
	u := s.newUser("stock1", "stock1@example.com")
	s.Require().NoError(s.store.Create(ctx, u))
	s.Require().NoError(s.store.Create(ctx, s.newUser("stock2", "stock2@example.com")))

	u.FullName = "Sam Stock"
	u.Email = "sam@example.com"
	s.Require().NoError(s.store.Update(ctx, u))
	found, err := s.store.FindByEmail(ctx, "sam@example.com")
	s.Require().NoError(err)
	s.Equal("Sam Stock", found.FullName)

	u.Email = "stock2@example.com"
	s.ErrorIs(s.store.Update(ctx, u), sentinel.ErrConflict)

	staff, err := s.store.ListByRole(ctx, id.RoleInventoryTeam)
	s.Require().NoError(err)
	s.Require().Len(staff, 2)
	s.Equal("stock1", staff[0].Username)

	agents, err := s.store.ListByRole(ctx, id.RoleDeliveryAgent)
	s.Require().NoError(err)
	s.Empty(agents)
}
