package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,SignatureStore,EventPublisher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"dlvery/internal/delivery/categorize"
	"dlvery/internal/delivery/events"
	"dlvery/internal/delivery/models"
	"dlvery/internal/delivery/service/mocks"
	"dlvery/internal/delivery/store"
	"dlvery/internal/signature"
	sigstore "dlvery/internal/signature/store"
	id "dlvery/pkg/domain"
	dErrors "dlvery/pkg/domain-errors"
	"dlvery/pkg/platform/sentinel"
	"dlvery/pkg/requestcontext"
)

// =============================================================================
// Delivery Service Test Suite
// =============================================================================
// Store behavior is covered by the store suites; these tests pin orchestration:
// error translation, the order of validation, upload and conditional update,
// and what gets published.

type ServiceSuite struct {
	suite.Suite
	ctrl       *gomock.Controller
	store      *mocks.MockStore
	signatures *mocks.MockSignatureStore
	publisher  *mocks.MockEventPublisher
	service    *Service
	ctx        context.Context
	now        time.Time
	fixedID    id.DeliveryID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.signatures = mocks.NewMockSignatureStore(s.ctrl)
	s.publisher = mocks.NewMockEventPublisher(s.ctrl)
	s.now = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.fixedID = id.DeliveryID(uuid.MustParse("abcdef01-2345-6789-abcd-ef0123456789"))

	var err error
	s.service, err = New(s.store, s.signatures,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithEventPublisher(s.publisher),
		WithIDGenerator(func() id.DeliveryID { return s.fixedID }),
	)
	s.Require().NoError(err)
	s.service.newAttempt = func() string { return "attempt-1" }
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) delivery(status models.Status, agent string, scheduled time.Time) *models.Delivery {
	d, err := models.NewDelivery(id.NewDeliveryID(), "Ada", "1 Main St", models.PriorityStandard, scheduled, agent, s.now)
	s.Require().NoError(err)
	d.Status = status
	return d
}

func (s *ServiceSuite) asAgent(name string) context.Context {
	return requestcontext.WithIdentity(s.ctx, requestcontext.Identity{
		UserID:   id.NewUserID(),
		Username: name,
		Role:     id.RoleDeliveryAgent,
	})
}

// =============================================================================
// Constructor
// =============================================================================

func (s *ServiceSuite) TestNew() {
	s.Run("nil delivery store", func() {
		_, err := New(nil, s.signatures)
		s.ErrorContains(err, "delivery store is required")
	})

	s.Run("nil signature store", func() {
		_, err := New(s.store, nil)
		s.ErrorContains(err, "signature store is required")
	})
}

// =============================================================================
// Create / Get
// =============================================================================

func (s *ServiceSuite) TestCreate() {
	s.Run("assigns number from id and persists", func() {
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, d *models.Delivery) error {
				s.Equal(s.fixedID, d.ID)
				return nil
			})

		d, err := s.service.Create(s.ctx, CreateCommand{
			CustomerName:    "Ada",
			CustomerAddress: "1 Main St",
			Priority:        models.PriorityEmergency,
			ScheduledAt:     s.now,
			Agent:           "agent1",
		})
		s.Require().NoError(err)
		s.Equal("DLV-ABCDEF01", d.Number)
		s.Equal(models.StatusAssigned, d.Status)
		s.Equal(s.now, d.CreatedAt)
	})

	s.Run("invariant violations surface as validation errors", func() {
		_, err := s.service.Create(s.ctx, CreateCommand{CustomerAddress: "1 Main St"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("duplicate maps to conflict", func() {
		s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)
		_, err := s.service.Create(s.ctx, CreateCommand{CustomerName: "Ada", CustomerAddress: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

func (s *ServiceSuite) TestGet() {
	s.Run("not found", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.fixedID).Return(nil, sentinel.ErrNotFound)
		_, err := s.service.Get(s.ctx, s.fixedID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("store failure is internal", func() {
		s.store.EXPECT().FindByID(gomock.Any(), s.fixedID).Return(nil, errors.New("connection reset"))
		_, err := s.service.Get(s.ctx, s.fixedID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("agents cannot read other agents' deliveries", func() {
		d := s.delivery(models.StatusAssigned, "agent2", s.now)
		s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)
		_, err := s.service.Get(s.asAgent("agent1"), d.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

// =============================================================================
// Dashboard
// =============================================================================

func (s *ServiceSuite) TestDashboard() {
	shared := s.delivery(models.StatusAssigned, "agent1", s.now.Add(-time.Hour))
	urgent := s.delivery(models.StatusInTransit, "agent1", s.now.Add(-2*time.Hour))
	urgent.Priority = models.PriorityEmergency
	stale := s.delivery(models.StatusPending, "agent1", s.now.Add(-48*time.Hour))
	future := s.delivery(models.StatusAssigned, "agent1", s.now.Add(48*time.Hour))
	done := s.delivery(models.StatusDelivered, "agent1", s.now.Add(-3*time.Hour))

	s.store.EXPECT().List(gomock.Any(), gomock.Any()).Times(3).DoAndReturn(
		func(_ context.Context, q store.Query) ([]models.Delivery, error) {
			s.Equal("agent1", q.Agent, "agents are scoped to themselves")
			switch {
			case !q.ScheduledFrom.IsZero():
				s.Equal(time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC), q.ScheduledFrom)
				s.Equal(time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), q.ScheduledTo)
				return []models.Delivery{*shared, *urgent}, nil
			case len(q.Statuses) == 1 && q.Statuses[0] == models.StatusDelivered:
				return []models.Delivery{*done}, nil
			default:
				return []models.Delivery{*stale, *shared, *future}, nil
			}
		})

	dash, err := s.service.Dashboard(s.asAgent("agent1"), "someone-else")
	s.Require().NoError(err)

	s.Equal([]models.Delivery{*urgent, *shared}, dash.Today, "deduped and sorted by priority")
	s.Equal([]models.Delivery{*stale, *future}, dash.Pending)
	s.Equal([]models.Delivery{*done}, dash.Delivered)
	s.Equal(DashboardStats{Today: 2, Pending: 2, Delivered: 1, Overdue: 1}, dash.Stats)
}

func (s *ServiceSuite) TestDashboardStoreFailure() {
	s.store.EXPECT().List(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom")).MinTimes(1).MaxTimes(3)
	_, err := s.service.Dashboard(s.ctx, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

// =============================================================================
// UpdateStatus
// =============================================================================

func (s *ServiceSuite) TestUpdateStatusRejectsLocally() {
	s.Run("unknown status never reaches the store", func() {
		_, err := s.service.UpdateStatus(s.ctx, s.fixedID, StatusCommand{To: "LOST"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("delivered without signature", func() {
		d := s.delivery(models.StatusInTransit, "agent1", s.now)
		s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)

		_, err := s.service.UpdateStatus(s.ctx, d.ID, StatusCommand{To: "DELIVERED", CustomerName: "Ada"})
		var te *models.TransitionError
		s.Require().ErrorAs(err, &te)
		s.Equal("signature", te.Field)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("not allowed from current status", func() {
		d := s.delivery(models.StatusDelivered, "agent1", s.now)
		s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)

		_, err := s.service.UpdateStatus(s.ctx, d.ID, StatusCommand{To: "RETURNED", Reason: "no one home"})
		var te *models.TransitionError
		s.Require().ErrorAs(err, &te)
		s.Equal(models.RuleNotAllowed, te.Rule)
	})

	s.Run("undecodable signature is not uploaded", func() {
		d := s.delivery(models.StatusInTransit, "agent1", s.now)
		s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)

		_, err := s.service.UpdateStatus(s.ctx, d.ID, StatusCommand{To: "DELIVERED", CustomerName: "Ada", Signature: "%%%"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestUpdateStatusDelivered() {
	d := s.delivery(models.StatusInTransit, "agent1", s.now)
	png := signature.NewPad(50, 20).ExportPNG()
	dataURL := signature.NewPad(50, 20).ExportDataURL()
	key := "signatures/" + d.ID.String() + "/attempt-1.png"

	gomock.InOrder(
		s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil),
		s.signatures.EXPECT().Put(gomock.Any(), key, png).Return(key, nil),
		s.store.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInTransit).DoAndReturn(
			func(_ context.Context, next *models.Delivery, _ models.Status) error {
				s.Equal(models.StatusDelivered, next.Status)
				s.Equal(key, next.SignatureRef)
				return nil
			}),
		s.publisher.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, evt events.StatusChanged) error {
				s.Equal(events.TypeStatusChanged, evt.Type)
				s.Equal(models.StatusInTransit, evt.From)
				s.Equal(models.StatusDelivered, evt.To)
				s.Equal("agent1", evt.Actor)
				return nil
			}),
	)

	got, err := s.service.UpdateStatus(s.asAgent("agent1"), d.ID, StatusCommand{
		To:           "DELIVERED",
		CustomerName: "Ada",
		Signature:    dataURL,
	})
	s.Require().NoError(err)
	s.Equal(models.StatusDelivered, got.Status)
	s.Equal("Ada", got.ReceivedBy)
	s.Require().NotNil(got.DeliveredAt)
	s.Equal(s.now, *got.DeliveredAt)
	s.Equal(models.StatusInTransit, d.Status, "loaded record is not mutated")
}

func (s *ServiceSuite) TestUpdateStatusDeliveredFromStrokes() {
	d := s.delivery(models.StatusInTransit, "", s.now)
	strokes := [][]signature.Point{{{X: 1, Y: 1}, {X: 30, Y: 10}}}
	want, err := signature.Replay(60, 0, strokes)
	s.Require().NoError(err)

	s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)
	s.signatures.EXPECT().Put(gomock.Any(), gomock.Any(), want).Return("ref", nil)
	s.store.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInTransit).Return(nil)
	s.publisher.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).Return(nil)

	got, err := s.service.UpdateStatus(s.ctx, d.ID, StatusCommand{
		To: "DELIVERED", CustomerName: "Ada", Strokes: strokes, CanvasWidth: 60,
	})
	s.Require().NoError(err)
	s.Equal("ref", got.SignatureRef)
}

func (s *ServiceSuite) TestUpdateStatusDeliveredRequiresInk() {
	cases := map[string]StatusCommand{
		"one empty stroke":          {Strokes: [][]signature.Point{{}}},
		"only single-point strokes": {Strokes: [][]signature.Point{{{X: 4, Y: 4}}}},
	}
	for name, cmd := range cases {
		s.Run(name, func() {
			d := s.delivery(models.StatusInTransit, "", s.now)
			s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)

			cmd.To, cmd.CustomerName = "DELIVERED", "Ada"
			_, err := s.service.UpdateStatus(s.ctx, d.ID, cmd)
			var te *models.TransitionError
			s.Require().ErrorAs(err, &te)
			s.Equal("signature", te.Field)
		})
	}

	s.Run("strokes drawn off the canvas", func() {
		d := s.delivery(models.StatusInTransit, "", s.now)
		s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)

		_, err := s.service.UpdateStatus(s.ctx, d.ID, StatusCommand{
			To: "DELIVERED", CustomerName: "Ada", CanvasWidth: 60,
			Strokes: [][]signature.Point{{{X: -40, Y: -40}, {X: -10, Y: -30}}},
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), "got %v", err)
	})

	s.Run("missing canvas width renders at the default width", func() {
		d := s.delivery(models.StatusInTransit, "", s.now)
		strokes := [][]signature.Point{{{X: 10, Y: 10}, {X: 300, Y: 90}}}
		want, err := signature.Replay(signature.DefaultWidth, 0, strokes)
		s.Require().NoError(err)

		s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)
		s.signatures.EXPECT().Put(gomock.Any(), gomock.Any(), want).Return("ref", nil)
		s.store.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInTransit).Return(nil)
		s.publisher.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).Return(nil)

		_, err = s.service.UpdateStatus(s.ctx, d.ID, StatusCommand{To: "DELIVERED", CustomerName: "Ada", Strokes: strokes})
		s.Require().NoError(err)
	})
}

func (s *ServiceSuite) TestUpdateStatusDeliveredRaceKeepsWinnerSignature() {
	blobs := sigstore.NewInMemory()
	deliveries := store.NewInMemory()
	svc, err := New(deliveries, blobs, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	attempts := []string{"first", "second"}
	svc.newAttempt = func() string {
		next := attempts[0]
		attempts = attempts[1:]
		return next
	}

	d := s.delivery(models.StatusInTransit, "", s.now)
	s.Require().NoError(deliveries.Create(s.ctx, d))
	stale := *d

	winner := [][]signature.Point{{{X: 5, Y: 5}, {X: 50, Y: 30}}}
	won, err := svc.UpdateStatus(s.ctx, d.ID, StatusCommand{
		To: "DELIVERED", CustomerName: "Ada", Strokes: winner, CanvasWidth: 80,
	})
	s.Require().NoError(err)

	// The second request read the delivery before the first one committed.
	racing, err := New(staleReads{Store: deliveries, snapshot: &stale}, blobs,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.Require().NoError(err)
	racing.newAttempt = svc.newAttempt

	_, err = racing.UpdateStatus(s.ctx, d.ID, StatusCommand{
		To: "DELIVERED", CustomerName: "Bob", CanvasWidth: 80,
		Strokes: [][]signature.Point{{{X: 70, Y: 5}, {X: 10, Y: 35}}},
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	committed, err := deliveries.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal("Ada", committed.ReceivedBy)
	s.Equal(won.SignatureRef, committed.SignatureRef)

	want, err := signature.Replay(80, 0, winner)
	s.Require().NoError(err)
	got, err := blobs.Get(s.ctx, committed.SignatureRef)
	s.Require().NoError(err)
	s.Equal(want, got)

	_, err = blobs.Get(s.ctx, sigstore.KeyFor(d.ID.String(), "second"))
	s.ErrorIs(err, sentinel.ErrNotFound, "losing upload is removed")
}

func (s *ServiceSuite) TestUpdateStatusConflictRemovesUploadedSignature() {
	d := s.delivery(models.StatusInTransit, "", s.now)
	key := sigstore.KeyFor(d.ID.String(), "attempt-1")
	strokes := [][]signature.Point{{{X: 1, Y: 1}, {X: 30, Y: 10}}}

	gomock.InOrder(
		s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil),
		s.signatures.EXPECT().Put(gomock.Any(), key, gomock.Any()).Return(key, nil),
		s.store.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInTransit).Return(sentinel.ErrInvalidState),
		s.signatures.EXPECT().Delete(gomock.Any(), key).Return(errors.New("bucket unavailable")),
	)

	_, err := s.service.UpdateStatus(s.ctx, d.ID, StatusCommand{
		To: "DELIVERED", CustomerName: "Ada", Strokes: strokes, CanvasWidth: 60,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict), "cleanup failure does not change the outcome")
}

func (s *ServiceSuite) TestUpdateStatusConflict() {
	d := s.delivery(models.StatusAssigned, "agent1", s.now)
	s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)
	s.store.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), models.StatusAssigned).Return(sentinel.ErrInvalidState)

	_, err := s.service.UpdateStatus(s.ctx, d.ID, StatusCommand{To: "IN_TRANSIT"})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ServiceSuite) TestUpdateStatusPublishFailureIsNotFatal() {
	d := s.delivery(models.StatusInTransit, "agent1", s.now)
	s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)
	s.store.EXPECT().UpdateStatus(gomock.Any(), gomock.Any(), models.StatusInTransit).Return(nil)
	s.publisher.EXPECT().PublishStatusChanged(gomock.Any(), gomock.Any()).Return(errors.New("broker down"))

	got, err := s.service.UpdateStatus(s.ctx, d.ID, StatusCommand{To: "RETURNED", Reason: "refused"})
	s.Require().NoError(err)
	s.Equal("refused", got.StatusReason)
}

// =============================================================================
// Track / Transitions / Signature
// =============================================================================

func (s *ServiceSuite) TestTrack() {
	a := s.delivery(models.StatusPending, "", s.now)
	b := s.delivery(models.StatusInTransit, "", s.now)
	s.store.EXPECT().List(gomock.Any(), store.Query{Agent: "agent9"}).Return([]models.Delivery{*a, *b}, nil)

	got, err := s.service.Track(s.ctx, TrackQuery{Agent: "agent9", Criteria: categorize.Criteria{Status: models.StatusInTransit}})
	s.Require().NoError(err)
	s.Equal([]models.Delivery{*b}, got)
}

func (s *ServiceSuite) TestTransitions() {
	d := s.delivery(models.StatusInTransit, "", s.now)
	s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)

	opts, err := s.service.Transitions(s.ctx, d.ID)
	s.Require().NoError(err)
	s.False(opts.Final)
	s.Len(opts.Next, 4)
	s.Equal("IN TRANSIT", opts.Display.Label)
}

func (s *ServiceSuite) TestSignature() {
	s.Run("no signature yet", func() {
		d := s.delivery(models.StatusInTransit, "", s.now)
		s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)
		_, err := s.service.Signature(s.ctx, d.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("loads blob by reference", func() {
		d := s.delivery(models.StatusDelivered, "", s.now)
		d.SignatureRef = "signatures/x.png"
		s.store.EXPECT().FindByID(gomock.Any(), d.ID).Return(d, nil)
		s.signatures.EXPECT().Get(gomock.Any(), "signatures/x.png").Return([]byte("png"), nil)
		got, err := s.service.Signature(s.ctx, d.ID)
		s.Require().NoError(err)
		s.Equal([]byte("png"), got)
	})
}

// staleReads serves a snapshot taken before a concurrent update committed.
type staleReads struct {
	Store
	snapshot *models.Delivery
}

func (r staleReads) FindByID(context.Context, id.DeliveryID) (*models.Delivery, error) {
	d := *r.snapshot
	return &d, nil
}

func (s *ServiceSuite) TestCountByStatus() {
	s.store.EXPECT().List(gomock.Any(), store.Query{}).Return([]models.Delivery{
		*s.delivery(models.StatusPending, "", s.now),
		*s.delivery(models.StatusAssigned, "agent1", s.now),
		*s.delivery(models.StatusDelivered, "agent1", s.now),
		*s.delivery(models.StatusDelivered, "agent2", s.now),
	}, nil)

	counts, err := s.service.CountByStatus(s.ctx)
	s.Require().NoError(err)
	s.Equal(map[models.Status]int{
		models.StatusPending:   1,
		models.StatusAssigned:  1,
		models.StatusDelivered: 2,
	}, counts)

	s.store.EXPECT().List(gomock.Any(), store.Query{}).Return(nil, errors.New("db down"))
	_, err = s.service.CountByStatus(s.ctx)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ServiceSuite) TestAssignedAgents() {
	s.store.EXPECT().List(gomock.Any(), store.Query{}).Return([]models.Delivery{
		*s.delivery(models.StatusAssigned, "zed", s.now),
		*s.delivery(models.StatusPending, "", s.now),
		*s.delivery(models.StatusDelivered, "amy", s.now),
		*s.delivery(models.StatusInTransit, "zed", s.now),
	}, nil)

	agents, err := s.service.AssignedAgents(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"amy", "zed"}, agents)
}
