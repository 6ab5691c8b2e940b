package services_test

import (
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kedai/internal/apperrors"
	"kedai/internal/events"
	"kedai/internal/models"
	"kedai/internal/repositories"
	"kedai/internal/services"
)

// MockPublisher is a mock implementation of events.Publisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	args := m.Called(ctx, routingKey, event)
	return args.Error(0)
}

type orderFixture struct {
	store    *repositories.MemoryStore
	orders   *repositories.MockOrderRepository
	users    *repositories.MockUserRepository
	ledger   *repositories.MockPointsRepository
	service  *services.OrderService
	points   *services.PointsService
	userID   string
	espresso string
	tea      string
	cookie   string
}

func newOrderFixture(t *testing.T, publisher events.Publisher) *orderFixture {
	t.Helper()
	ctx := context.Background()

	store := repositories.NewMemoryStore()
	products := repositories.NewMockProductRepository(store)
	f := &orderFixture{
		store:  store,
		orders: repositories.NewMockOrderRepository(store),
		users:  repositories.NewMockUserRepository(store),
		ledger: repositories.NewMockPointsRepository(store),
	}

	espresso := &models.Product{Name: "Espresso", Category: models.CategoryCoffee, BasePrice: 1500,
		Sizes: []models.ProductSize{{Name: "Single", Price: 1500}, {Name: "Double", Price: 2500}}}
	tea := &models.Product{Name: "Jasmine Tea", Category: models.CategoryTea, BasePrice: 1500}
	cookie := &models.Product{Name: "Cookie", Category: models.CategorySnacks, BasePrice: 999}
	for _, p := range []*models.Product{espresso, tea, cookie} {
		require.NoError(t, products.Create(ctx, p))
	}
	f.espresso, f.tea, f.cookie = espresso.ID, tea.ID, cookie.ID

	user := &models.User{Username: "u1", Email: "u1@example.com", Password: "x"}
	require.NoError(t, f.users.Create(ctx, user))
	f.userID = user.ID

	logger := zap.NewNop()
	f.service = services.NewOrderService(f.orders, products, f.users, publisher, logger)
	f.points = services.NewPointsService(f.ledger, logger)
	return f
}

func (f *orderFixture) balance(t *testing.T) int64 {
	t.Helper()
	u, err := f.users.GetByID(context.Background(), f.userID)
	require.NoError(t, err)
	return u.LoyaltyPoints
}

func (f *orderFixture) history(t *testing.T) []models.PointsHistory {
	t.Helper()
	h, err := f.ledger.ListByUser(context.Background(), f.userID, 0)
	require.NoError(t, err)
	return h
}

func TestOrderService_CreateOrder(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, services.CreateOrderInput{
		Items: []services.CreateOrderItem{
			{ProductID: f.espresso, Quantity: 2, Size: "Double"},
			{ProductID: f.tea, Quantity: 1},
		},
		CustomerName: "  Ana  ",
		Notes:        "less sugar",
		UserID:       f.userID,
	})
	require.NoError(t, err)

	assert.NotEmpty(t, order.ID)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, "Ana", order.CustomerName)
	require.NotNil(t, order.UserID)
	assert.Equal(t, f.userID, *order.UserID)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(2500), order.Items[0].UnitPrice)
	assert.Equal(t, int64(5000), order.Items[0].Total)
	assert.Equal(t, "Espresso", order.Items[0].ProductName)
	assert.Equal(t, models.CategoryCoffee, order.Items[0].Category)
	assert.Equal(t, int64(1500), order.Items[1].Total)
	assert.Equal(t, int64(6500), order.Total)
	assert.Equal(t, order.ItemsTotal(), order.Total)

	stored, err := f.service.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ItemsTotal(), stored.Total)
	assert.False(t, stored.CreatedAt.IsZero())
}

func TestOrderService_CreateOrder_Rejects(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		in       services.CreateOrderInput
		wantErr  error
		resource string
	}{
		{name: "no items", in: services.CreateOrderInput{CustomerName: "Ana"}, wantErr: apperrors.ErrValidation},
		{name: "blank name", in: services.CreateOrderInput{
			Items: []services.CreateOrderItem{{ProductID: f.tea, Quantity: 1}}, CustomerName: "   "}, wantErr: apperrors.ErrValidation},
		{name: "zero quantity", in: services.CreateOrderInput{
			Items: []services.CreateOrderItem{{ProductID: f.tea, Quantity: 0}}, CustomerName: "Ana"}, wantErr: apperrors.ErrValidation},
		{name: "quantity above cap", in: services.CreateOrderInput{
			Items: []services.CreateOrderItem{{ProductID: f.tea, Quantity: services.MaxItemQuantity + 1}}, CustomerName: "Ana"}, wantErr: apperrors.ErrValidation},
		{name: "unknown size", in: services.CreateOrderInput{
			Items: []services.CreateOrderItem{{ProductID: f.espresso, Quantity: 1, Size: "Venti"}}, CustomerName: "Ana"}, wantErr: apperrors.ErrValidation},
		{name: "unknown product", in: services.CreateOrderInput{
			Items: []services.CreateOrderItem{{ProductID: "missing", Quantity: 1}}, CustomerName: "Ana"}, wantErr: apperrors.ErrNotFound, resource: "product"},
		{name: "unknown user", in: services.CreateOrderInput{
			Items: []services.CreateOrderItem{{ProductID: f.tea, Quantity: 1}}, CustomerName: "Ana", UserID: "ghost"}, wantErr: apperrors.ErrNotFound, resource: "user"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.service.CreateOrder(ctx, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
			if tt.resource != "" {
				var nf *apperrors.NotFoundError
				require.True(t, errors.As(err, &nf))
				assert.Equal(t, tt.resource, nf.Resource)
			}
		})
	}

	orders, err := f.service.ListOrders(ctx, services.ListOrdersInput{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_CreateOrder_RejectsOverflowingTotals(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()
	products := repositories.NewMockProductRepository(f.store)

	// Stored directly so the catalog price caps do not apply.
	huge := &models.Product{Name: "Gold Bean", Category: models.CategoryCoffee, BasePrice: math.MaxInt64/2 + 1}
	require.NoError(t, products.Create(ctx, huge))

	_, err := f.service.CreateOrder(ctx, services.CreateOrderInput{
		Items:        []services.CreateOrderItem{{ProductID: huge.ID, Quantity: 3}},
		CustomerName: "Ana",
	})
	var ve *apperrors.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "items[0].quantity", ve.Field)

	_, err = f.service.CreateOrder(ctx, services.CreateOrderInput{
		Items: []services.CreateOrderItem{
			{ProductID: huge.ID, Quantity: 1},
			{ProductID: huge.ID, Quantity: 1},
		},
		CustomerName: "Ana",
	})
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "items[1].quantity", ve.Field)

	orders, err := f.service.ListOrders(ctx, services.ListOrdersInput{})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestOrderService_NegativeTotalsAreConsistencyErrors(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	broken := &models.Product{Name: "Broken", Category: models.CategorySnacks, BasePrice: -500}
	require.NoError(t, repositories.NewMockProductRepository(f.store).Create(ctx, broken))
	_, err := f.service.CreateOrder(ctx, services.CreateOrderInput{
		Items:        []services.CreateOrderItem{{ProductID: broken.ID, Quantity: 1}},
		CustomerName: "Ana",
	})
	require.ErrorIs(t, err, apperrors.ErrConsistency)

	uid := f.userID
	order := &models.Order{
		UserID:       &uid,
		CustomerName: "Ana",
		Status:       models.StatusPending,
		Total:        -1000,
		Items:        []models.OrderItem{{ProductID: f.tea, Category: models.CategoryTea, Quantity: 1, UnitPrice: -1000, Total: -1000}},
	}
	require.NoError(t, f.orders.Create(ctx, order))

	_, err = f.service.UpdateOrderStatus(ctx, order.ID, "completed")
	require.ErrorIs(t, err, apperrors.ErrConsistency)
	require.ErrorIs(t, err, services.ErrNegativeTotal)
	assert.False(t, errors.Is(err, apperrors.ErrConflict))

	stored, err := f.service.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, int64(0), f.balance(t))
	assert.Empty(t, f.history(t))
}

func TestOrderService_ListOrders(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i, uid := range []*string{&f.userID, nil, &f.userID} {
		o := &models.Order{
			UserID:       uid,
			CustomerName: "c",
			Status:       models.StatusPending,
			Items:        []models.OrderItem{{ProductID: f.tea, Quantity: 1, UnitPrice: 100, Total: 100}},
			Total:        100,
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, f.orders.Create(ctx, o))
	}

	all, err := f.service.ListOrders(ctx, services.ListOrdersInput{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.True(t, all[0].CreatedAt.After(all[1].CreatedAt))
	assert.True(t, all[1].CreatedAt.After(all[2].CreatedAt))

	mine, err := f.service.ListOrders(ctx, services.ListOrdersInput{UserID: f.userID})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, err = f.service.UpdateOrderStatus(ctx, all[0].ID, "preparing")
	require.NoError(t, err)
	preparing, err := f.service.ListOrders(ctx, services.ListOrdersInput{Status: "preparing"})
	require.NoError(t, err)
	require.Len(t, preparing, 1)
	assert.Equal(t, all[0].ID, preparing[0].ID)

	_, err = f.service.ListOrders(ctx, services.ListOrdersInput{Status: "archived"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestOrderService_CompletionAwardsPointsOnce(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, events.OrderCreated, mock.Anything).Return(nil).Once()
	publisher.On("Publish", mock.Anything, events.OrderStatusChanged, mock.Anything).Return(nil).Twice()
	publisher.On("Publish", mock.Anything, events.PointsEarned, mock.MatchedBy(func(e events.PointsEarnedEvent) bool {
		return e.Points == 6
	})).Return(nil).Once()

	f := newOrderFixture(t, publisher)
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, services.CreateOrderInput{
		Items:        []services.CreateOrderItem{{ProductID: f.espresso, Quantity: 2}},
		CustomerName: "Ana",
		UserID:       f.userID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), order.Total)

	updated, err := f.service.UpdateOrderStatus(ctx, order.ID, "preparing")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, updated.Status)
	assert.Equal(t, int64(0), f.balance(t))

	updated, err = f.service.UpdateOrderStatus(ctx, order.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, int64(6), f.balance(t))

	history := f.history(t)
	require.Len(t, history, 1)
	assert.Equal(t, models.PointsEarned, history[0].Type)
	assert.Equal(t, int64(6), history[0].Points)
	require.NotNil(t, history[0].OrderID)
	assert.Equal(t, order.ID, *history[0].OrderID)
	assert.Contains(t, history[0].Description, "Ana")

	// Re-submitting completed is a no-op.
	updated, err = f.service.UpdateOrderStatus(ctx, order.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, updated.Status)
	assert.Equal(t, int64(6), f.balance(t))
	assert.Len(t, f.history(t), 1)

	publisher.AssertExpectations(t)
}

func TestOrderService_GuestOrderNeverEarns(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, services.CreateOrderInput{
		Items:        []services.CreateOrderItem{{ProductID: f.espresso, Quantity: 10}},
		CustomerName: "Walk-in",
	})
	require.NoError(t, err)
	assert.True(t, order.IsGuest())

	_, err = f.service.UpdateOrderStatus(ctx, order.ID, "completed")
	require.NoError(t, err)

	assert.Equal(t, int64(0), f.balance(t))
	assert.Empty(t, f.history(t))
}

func TestOrderService_ZeroPointOrderWritesNoEntry(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, services.CreateOrderInput{
		Items:        []services.CreateOrderItem{{ProductID: f.cookie, Quantity: 1}},
		CustomerName: "Ana",
		UserID:       f.userID,
	})
	require.NoError(t, err)

	_, err = f.service.UpdateOrderStatus(ctx, order.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.balance(t))
	assert.Empty(t, f.history(t))
}

func TestOrderService_UpdateOrderStatus_Rejects(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, services.CreateOrderInput{
		Items:        []services.CreateOrderItem{{ProductID: f.espresso, Quantity: 2}},
		CustomerName: "Ana",
		UserID:       f.userID,
	})
	require.NoError(t, err)

	_, err = f.service.UpdateOrderStatus(ctx, order.ID, "archived")
	require.ErrorIs(t, err, apperrors.ErrValidation)
	stored, err := f.service.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)

	_, err = f.service.UpdateOrderStatus(ctx, "missing", "ready")
	var nf *apperrors.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "order", nf.Resource)

	_, err = f.service.UpdateOrderStatus(ctx, order.ID, "completed")
	require.NoError(t, err)
	_, err = f.service.UpdateOrderStatus(ctx, order.ID, "pending")
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	_, err = f.service.UpdateOrderStatus(ctx, order.ID, "cancelled")
	require.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	stored, err = f.service.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, int64(6), f.balance(t))
}

func TestOrderService_ConcurrentCompletionAwardsOnce(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, services.CreateOrderInput{
		Items:        []services.CreateOrderItem{{ProductID: f.espresso, Quantity: 2}},
		CustomerName: "Ana",
		UserID:       f.userID,
	})
	require.NoError(t, err)
	_, err = f.service.UpdateOrderStatus(ctx, order.ID, "preparing")
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.UpdateOrderStatus(ctx, order.ID, "completed")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	assert.Equal(t, int64(6), f.balance(t))
	assert.Len(t, f.history(t), 1)
}

func TestOrderService_BalanceMatchesLedger(t *testing.T) {
	f := newOrderFixture(t, nil)
	ctx := context.Background()

	lines := [][]services.CreateOrderItem{
		{{ProductID: f.espresso, Quantity: 2}},                                // 6
		{{ProductID: f.tea, Quantity: 3}},                                     // 4
		{{ProductID: f.espresso, Quantity: 1, Size: "Double"}, {ProductID: f.tea, Quantity: 1}}, // 4 + 1
	}
	for _, items := range lines {
		order, err := f.service.CreateOrder(ctx, services.CreateOrderInput{Items: items, CustomerName: "Ana", UserID: f.userID})
		require.NoError(t, err)
		_, err = f.service.UpdateOrderStatus(ctx, order.ID, "ready")
		require.NoError(t, err)
		_, err = f.service.UpdateOrderStatus(ctx, order.ID, "completed")
		require.NoError(t, err)
	}

	var sum int64
	for _, h := range f.history(t) {
		sum += h.Delta()
	}
	assert.Equal(t, int64(15), sum)
	assert.Equal(t, sum, f.balance(t))

	audit, err := f.points.Balance(ctx, f.userID)
	require.NoError(t, err)
	assert.Zero(t, audit.Drift)
}

func TestOrderService_PublishFailureDoesNotFailRequest(t *testing.T) {
	publisher := new(MockPublisher)
	publisher.On("Publish", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	f := newOrderFixture(t, publisher)
	ctx := context.Background()

	order, err := f.service.CreateOrder(ctx, services.CreateOrderInput{
		Items:        []services.CreateOrderItem{{ProductID: f.tea, Quantity: 2}},
		CustomerName: "Ana",
		UserID:       f.userID,
	})
	require.NoError(t, err)
	_, err = f.service.UpdateOrderStatus(ctx, order.ID, "completed")
	require.NoError(t, err)
	assert.Equal(t, int64(3), f.balance(t))
	publisher.AssertNumberOfCalls(t, "Publish", 3)
}

// MockOrderRepository is a mock implementation of repositories.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Order), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter repositories.OrderFilter) ([]models.Order, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]models.Order), args.Error(1)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id string, to models.OrderStatus, accrue repositories.AccrualFunc) (*repositories.StatusChange, error) {
	args := m.Called(ctx, id, to, accrue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repositories.StatusChange), args.Error(1)
}

func TestOrderService_RetriesConflictingTransition(t *testing.T) {
	repo := new(MockOrderRepository)
	service := services.NewOrderService(repo, nil, nil, nil, zap.NewNop())
	ctx := context.Background()

	done := &models.Order{ID: "o-1", Status: models.StatusCompleted}
	repo.On("UpdateStatus", ctx, "o-1", models.StatusCompleted, mock.Anything).
		Return(nil, apperrors.Conflict("order o-1 left status ready concurrently")).Once()
	repo.On("UpdateStatus", ctx, "o-1", models.StatusCompleted, mock.Anything).
		Return(&repositories.StatusChange{
			Order:      done,
			Transition: models.Transition{From: models.StatusCompleted, To: models.StatusCompleted, Noop: true},
		}, nil).Once()

	order, err := service.UpdateOrderStatus(ctx, "o-1", "completed")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, order.Status)
	repo.AssertExpectations(t)
}

func TestOrderService_GivesUpAfterRepeatedConflicts(t *testing.T) {
	repo := new(MockOrderRepository)
	service := services.NewOrderService(repo, nil, nil, nil, zap.NewNop())
	ctx := context.Background()

	repo.On("UpdateStatus", ctx, "o-1", models.StatusReady, mock.Anything).
		Return(nil, apperrors.Conflict("order o-1 changed")).Times(3)

	_, err := service.UpdateOrderStatus(ctx, "o-1", "ready")
	require.ErrorIs(t, err, apperrors.ErrConflict)
	repo.AssertExpectations(t)
}
