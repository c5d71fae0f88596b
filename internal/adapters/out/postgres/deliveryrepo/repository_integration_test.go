package deliveryrepo_test

import (
	"context"
	"testing"
	"time"

	"lastmile/internal/adapters/out/postgres/deliveryrepo"
	"lastmile/internal/core/domain/model/delivery"
	"lastmile/internal/core/domain/model/kernel"
	"lastmile/internal/pkg/errs"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	postgresdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// DeliveryRepositoryIntegrationTestSuite runs the repository against a real PostgreSQL.
type DeliveryRepositoryIntegrationTestSuite struct {
	suite.Suite
	container  *postgres.PostgresContainer
	db         *gorm.DB
	repository *deliveryrepo.GormDeliveryRepository
	validator  delivery.TransitionValidator
}

func (suite *DeliveryRepositoryIntegrationTestSuite) SetupSuite() {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	suite.Require().NoError(err)
	suite.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	suite.Require().NoError(err)

	db, err := gorm.Open(postgresdriver.Open(connStr), &gorm.Config{})
	suite.Require().NoError(err)
	suite.db = db

	suite.Require().NoError(db.AutoMigrate(&deliveryrepo.DeliveryDTO{}))
	suite.validator = delivery.DefaultTransitionValidator()
}

func (suite *DeliveryRepositoryIntegrationTestSuite) SetupTest() {
	suite.Require().NoError(suite.db.Exec("TRUNCATE TABLE deliveries").Error)
	suite.repository = deliveryrepo.NewGormDeliveryRepository(suite.db)
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TearDownSuite() {
	if suite.container != nil {
		suite.Require().NoError(suite.container.Terminate(context.Background()))
	}
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestAddAndGet_RoundTrip() {
	ctx := context.Background()
	d := suite.newDelivery(delivery.PriorityHigh)
	window, err := kernel.NewTimeWindow(d.ScheduledPickupAt(), d.ScheduledDeliveryAt())
	suite.Require().NoError(err)
	snapshot := d.Snapshot()
	snapshot.Window = &window
	d, err = delivery.RestoreDelivery(snapshot)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.repository.Add(ctx, d))

	loaded, err := suite.repository.Get(ctx, d.ID())
	suite.Require().NoError(err)
	suite.Equal(d.TrackingCode(), loaded.TrackingCode())
	suite.Equal(delivery.StatusPending, loaded.Status())
	suite.Equal(delivery.PriorityHigh, loaded.Priority())
	suite.InDelta(d.PickupCoordinates().Latitude(), loaded.PickupCoordinates().Latitude(), 1e-9)
	suite.InDelta(d.DeliveryCoordinates().Longitude(), loaded.DeliveryCoordinates().Longitude(), 1e-9)
	suite.Require().NotNil(loaded.TimeWindow())
	suite.True(window.Start().Equal(loaded.TimeWindow().Start()))
	suite.Nil(loaded.DriverID())
	suite.Zero(loaded.Version())
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestGet_NotFound() {
	_, err := suite.repository.Get(context.Background(), kernel.NewUUID())

	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestUpdate_AdvancesVersionAndClearsDriver() {
	ctx := context.Background()
	d := suite.newDelivery(delivery.PriorityNormal)
	suite.Require().NoError(suite.repository.Add(ctx, d))

	_, err := d.AssignDriver(kernel.NewUUID(), nil, suite.validator, delivery.TransitionOptions{})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Update(ctx, d))
	suite.Equal(1, d.Version())

	_, err = d.TransitionTo(delivery.StatusPending, suite.validator, delivery.TransitionOptions{})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Update(ctx, d))

	loaded, err := suite.repository.Get(ctx, d.ID())
	suite.Require().NoError(err)
	suite.Equal(2, loaded.Version())
	suite.Equal(delivery.StatusPending, loaded.Status())
	suite.Nil(loaded.DriverID())
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestUpdate_StaleVersionIsWriteConflict() {
	ctx := context.Background()
	d := suite.newDelivery(delivery.PriorityNormal)
	suite.Require().NoError(suite.repository.Add(ctx, d))

	first, err := suite.repository.Get(ctx, d.ID())
	suite.Require().NoError(err)
	second, err := suite.repository.Get(ctx, d.ID())
	suite.Require().NoError(err)

	_, err = first.TransitionTo(delivery.StatusCancelled, suite.validator, delivery.TransitionOptions{})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Update(ctx, first))

	_, err = second.AssignDriver(kernel.NewUUID(), nil, suite.validator, delivery.TransitionOptions{})
	suite.Require().NoError(err)
	err = suite.repository.Update(ctx, second)

	suite.Require().ErrorIs(err, errs.ErrWriteConflict)
	suite.Zero(second.Version())

	loaded, err := suite.repository.Get(ctx, d.ID())
	suite.Require().NoError(err)
	suite.Equal(delivery.StatusCancelled, loaded.Status())
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestUpdate_MissingRowIsNotFound() {
	err := suite.repository.Update(context.Background(), suite.newDelivery(delivery.PriorityLow))

	suite.Require().ErrorIs(err, errs.ErrObjectNotFound)
}

func (suite *DeliveryRepositoryIntegrationTestSuite) TestFindActive_FiltersByStatusAndDriver() {
	ctx := context.Background()
	driver := kernel.NewUUID()
	otherDriver := kernel.NewUUID()

	assigned := suite.persistAssigned(driver)
	inTransit := suite.persistAssigned(driver)
	suite.advance(inTransit, delivery.StatusPickedUp, delivery.StatusInTransit)
	failed := suite.persistAssigned(driver)
	suite.advance(failed, delivery.StatusPickedUp, delivery.StatusFailed)
	other := suite.persistAssigned(otherDriver)
	suite.Require().NoError(suite.repository.Add(ctx, suite.newDelivery(delivery.PriorityNormal)))

	mine, err := suite.repository.FindActiveByDriver(ctx, driver)
	suite.Require().NoError(err)
	suite.ElementsMatch([]string{assigned.ID().String(), inTransit.ID().String()}, ids(mine))

	all, err := suite.repository.FindAllActive(ctx)
	suite.Require().NoError(err)
	suite.ElementsMatch(
		[]string{assigned.ID().String(), inTransit.ID().String(), other.ID().String()},
		ids(all))
}

func (suite *DeliveryRepositoryIntegrationTestSuite) newDelivery(p delivery.Priority) *delivery.Delivery {
	pickup, err := kernel.NewCoordinates(-23.5505, -46.6333)
	suite.Require().NoError(err)
	dropoff, err := kernel.NewCoordinates(-23.5615, -46.6559)
	suite.Require().NoError(err)
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	d, err := delivery.NewDelivery(kernel.NewUUID(), delivery.NewTrackingCode(), p, pickup, dropoff,
		delivery.Schedule{PickupAt: at, DeliveryAt: at.Add(2 * time.Hour)}, at.Add(-time.Hour))
	suite.Require().NoError(err)
	return d
}

func (suite *DeliveryRepositoryIntegrationTestSuite) persistAssigned(driver kernel.UUID) *delivery.Delivery {
	ctx := context.Background()
	d := suite.newDelivery(delivery.PriorityNormal)
	suite.Require().NoError(suite.repository.Add(ctx, d))
	_, err := d.AssignDriver(driver, nil, suite.validator, delivery.TransitionOptions{})
	suite.Require().NoError(err)
	suite.Require().NoError(suite.repository.Update(ctx, d))
	return d
}

func (suite *DeliveryRepositoryIntegrationTestSuite) advance(d *delivery.Delivery, statuses ...delivery.Status) {
	for _, s := range statuses {
		_, err := d.TransitionTo(s, suite.validator, delivery.TransitionOptions{})
		suite.Require().NoError(err)
		suite.Require().NoError(suite.repository.Update(context.Background(), d))
	}
}

func ids(deliveries []*delivery.Delivery) []string {
	out := make([]string, len(deliveries))
	for i, d := range deliveries {
		out[i] = d.ID().String()
	}
	return out
}

func TestDeliveryRepositoryIntegrationTestSuite(t *testing.T) {
	suite.Run(t, new(DeliveryRepositoryIntegrationTestSuite))
}
