package categorize

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"dlvery/internal/delivery/models"
	id "dlvery/pkg/domain"
)

type CategorizeSuite struct {
	suite.Suite
	now time.Time
}

func TestCategorizeSuite(t *testing.T) {
	suite.Run(t, new(CategorizeSuite))
}

func (s *CategorizeSuite) SetupTest() {
	s.now = time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
}

func record(status models.Status, scheduled time.Time) models.Delivery {
	deliveryID := id.DeliveryID(uuid.New())
	return models.Delivery{
		ID:          deliveryID,
		Number:      models.NumberFor(deliveryID),
		Status:      status,
		Priority:    models.PriorityStandard,
		ScheduledAt: scheduled,
	}
}

func (s *CategorizeSuite) TestBuckets() {
	s.Run("tomorrow is pending regardless of status", func() {
		for _, st := range models.Statuses {
			r := record(st, s.now.Add(24*time.Hour))
			res := Categorize([]models.Delivery{r}, s.now)
			s.Len(res.Pending, 1, st)
			s.Equal(ReasonFuture, PendingReason(r, s.now))
		}
	})

	s.Run("yesterday and still pending is stale", func() {
		r := record(models.StatusPending, s.now.Add(-24*time.Hour))
		res := Categorize([]models.Delivery{r}, s.now)
		s.Len(res.Pending, 1)
		s.Empty(res.Today)
		s.True(IsOverdue(r, s.now))
	})

	s.Run("assigned and old is stale", func() {
		r := record(models.StatusAssigned, s.now.Add(-72*time.Hour))
		s.Equal(ReasonStale, PendingReason(r, s.now))
	})

	s.Run("under 24 hours old stays in today", func() {
		r := record(models.StatusPending, s.now.Add(-23*time.Hour))
		res := Categorize([]models.Delivery{r}, s.now)
		s.Len(res.Today, 1)
		s.False(IsOverdue(r, s.now))
	})

	s.Run("today in transit is today", func() {
		r := record(models.StatusInTransit, s.now.Add(-2*time.Hour))
		res := Categorize([]models.Delivery{r}, s.now)
		s.Len(res.Today, 1)
		s.Empty(res.Pending)
	})

	s.Run("old but dispatched stays in today", func() {
		r := record(models.StatusInTransit, s.now.Add(-96*time.Hour))
		s.Equal(ReasonNone, PendingReason(r, s.now))
	})

	s.Run("later today is not future", func() {
		r := record(models.StatusPending, time.Date(2025, 3, 10, 23, 30, 0, 0, time.UTC))
		s.Equal(ReasonNone, PendingReason(r, s.now))
	})

	s.Run("day boundary uses the clock's location", func() {
		loc := time.FixedZone("UTC+10", 10*60*60)
		now := time.Date(2025, 3, 10, 20, 0, 0, 0, loc)
		// 11 Mar 02:00 local, still 10 Mar in UTC.
		r := record(models.StatusPending, time.Date(2025, 3, 10, 16, 0, 0, 0, time.UTC))
		s.Equal(ReasonFuture, PendingReason(r, now))
	})
}

func (s *CategorizeSuite) TestPartitionIsTotalAndStable() {
	input := []models.Delivery{
		record(models.StatusInTransit, s.now),
		record(models.StatusPending, s.now.Add(48*time.Hour)),
		record(models.StatusPending, s.now.Add(-48*time.Hour)),
		record(models.StatusDelivered, s.now.Add(-time.Hour)),
		record(models.StatusAssigned, s.now.Add(-time.Hour)),
	}

	res := Categorize(input, s.now)
	s.Equal(len(input), len(res.Today)+len(res.Pending))
	s.Equal([]models.Delivery{input[0], input[3], input[4]}, res.Today)
	s.Equal([]models.Delivery{input[1], input[2]}, res.Pending)
	s.Zero(res.Defaulted)
}

func (s *CategorizeSuite) TestMissingScheduleIsDefaulted() {
	input := []models.Delivery{record(models.StatusPending, time.Time{}), record(models.StatusInTransit, s.now)}
	res := Categorize(input, s.now)
	s.Len(res.Today, 2)
	s.Equal(1, res.Defaulted)
}

func (s *CategorizeSuite) TestEmptyInput() {
	res := Categorize(nil, s.now)
	s.NotNil(res.Today)
	s.NotNil(res.Pending)
	s.Empty(res.Today)
}

func (s *CategorizeSuite) TestDedupe() {
	a := record(models.StatusPending, s.now)
	b := record(models.StatusInTransit, s.now)
	dupA := a
	dupA.CustomerName = "second copy"
	noID := record(models.StatusPending, s.now)
	noID.ID = id.DeliveryID{}

	merged := Dedupe([]models.Delivery{a, noID}, []models.Delivery{dupA, b})
	s.Require().Len(merged, 2)
	s.Equal(a, merged[0], "first occurrence wins")
	s.Equal(b, merged[1])
	s.Empty(Dedupe())
}

func (s *CategorizeSuite) TestFilter() {
	ada := record(models.StatusPending, s.now)
	ada.CustomerName = "Ada Lovelace"
	ada.CustomerAddress = "12 Analytical Way"
	ada.Priority = models.PriorityEmergency

	bob := record(models.StatusInTransit, s.now)
	bob.CustomerName = "Bob Babbage"
	bob.CustomerAddress = "4 Engine Road"

	all := []models.Delivery{ada, bob}

	s.Equal(all, Filter(all, Criteria{}))
	s.Equal([]models.Delivery{ada}, Filter(all, Criteria{Search: "ADA analytical"}))
	s.Equal([]models.Delivery{bob}, Filter(all, Criteria{Search: bob.Number}))
	s.Equal([]models.Delivery{bob}, Filter(all, Criteria{Status: models.StatusInTransit}))
	s.Equal([]models.Delivery{ada}, Filter(all, Criteria{Priority: models.PriorityEmergency}))
	s.Empty(Filter(all, Criteria{Search: "ada", Status: models.StatusInTransit}))
}

func (s *CategorizeSuite) TestSortByPriority() {
	low := record(models.StatusPending, s.now)
	low.Priority = models.PriorityLow
	std1 := record(models.StatusPending, s.now)
	emergency := record(models.StatusPending, s.now)
	emergency.Priority = models.PriorityEmergency
	std2 := record(models.StatusPending, s.now)

	list := []models.Delivery{low, std1, emergency, std2}
	SortByPriority(list)
	s.Equal([]models.Delivery{emergency, std1, std2, low}, list)
}
