package movement

import (
	"context"
	"errors"
	"testing"

	"github.com/example/shelfstock/internal/auth"
	"github.com/example/shelfstock/internal/model"
	"github.com/example/shelfstock/internal/store"
	"github.com/example/shelfstock/internal/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeConn struct{ online bool }

func (c *fakeConn) Online() bool { return c.online }

type fakeQueue struct {
	enqueued []CreateMovementInput
	err      error
}

func (q *fakeQueue) Enqueue(_ context.Context, in CreateMovementInput) error {
	if q.err != nil {
		return q.err
	}
	q.enqueued = append(q.enqueued, in)
	return nil
}

type fakePublisher struct {
	published []any
	err       error
}

func (p *fakePublisher) Publish(_ context.Context, _ string, e any) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, e)
	return nil
}

func seedUser(t *testing.T, st *mocks.MockStore) *model.User {
	t.Helper()
	u := &model.User{ID: "user-1", Email: "staff@example.com", Name: "Taro", Role: "staff", IsActive: true}
	require.NoError(t, st.CreateUser(context.Background(), u))
	return u
}

func seedProduct(t *testing.T, st *mocks.MockStore, opening int) *model.Product {
	t.Helper()
	p := &model.Product{
		ID:           "prod-1",
		Code:         "P-001",
		Name:         "Widget",
		OpeningStock: opening,
		AvailableQty: opening,
		MinStock:     2,
	}
	require.NoError(t, st.CreateProduct(context.Background(), p))
	return p
}

func authedCtx(u *model.User) context.Context {
	return auth.ContextWithClaims(context.Background(), &auth.Claims{
		UserID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role,
	})
}

func TestSubmitStockInRecordsMovementAndUpdatesLocation(t *testing.T) {
	st := mocks.NewMockStore()
	u := seedUser(t, st)
	seedProduct(t, st, 10)
	require.NoError(t, st.CreateShelf(context.Background(), &model.Shelf{ID: "shelf-1", Name: "Aisle 3"}))

	pub := &fakePublisher{}
	svc := NewService(st, nil, nil, pub, zap.NewNop())

	notices := &NoticeLog{}
	result, err := svc.Create(authedCtx(u), CreateMovementInput{
		ProductID: "prod-1",
		Type:      model.MovementIn,
		Quantity:  5,
		Date:      "2026-08-30",
		Time:      "14:15",
		ShelfID:   "shelf-1",
	}, notices)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, "Widget", result.ProductName)
	assert.Equal(t, "P-001", result.ProductCode)
	assert.Equal(t, "Aisle 3", result.ShelfName)
	assert.Equal(t, "Taro", result.HandledBy)

	p, err := st.GetProduct(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 15, p.AvailableQty)
	assert.Equal(t, 5, p.TotalIn)

	// Stock-in to a shelf updates the product's default location.
	require.Len(t, st.LocationCalls, 1)
	assert.Equal(t, "Aisle 3", st.LocationCalls[0].Location)

	require.Len(t, pub.published, 1)

	ns := notices.Notices()
	require.Len(t, ns, 1)
	assert.Equal(t, NoticeSuccess, ns[0].Level)
	assert.Contains(t, ns[0].Message, "5 unit(s)")
}

func TestSubmitStockOutDecrementsAvailable(t *testing.T) {
	st := mocks.NewMockStore()
	u := seedUser(t, st)
	seedProduct(t, st, 10)
	svc := NewService(st, nil, nil, nil, zap.NewNop())

	result, err := svc.Submit(authedCtx(u), CreateMovementInput{
		ProductID: "prod-1", Type: model.MovementOut, Quantity: 4, Date: "2026-08-30",
	}, nil)

	require.NoError(t, err)
	require.NotNil(t, result)

	p, err := st.GetProduct(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 6, p.AvailableQty)
	assert.Equal(t, 4, p.TotalOut)
	// No shelf involved, so the default location is untouched.
	assert.Empty(t, st.LocationCalls)
}

func TestSubmitRejectsOversizedStockOut(t *testing.T) {
	st := mocks.NewMockStore()
	u := seedUser(t, st)
	seedProduct(t, st, 3)
	svc := NewService(st, nil, nil, nil, zap.NewNop())

	notices := &NoticeLog{}
	result, err := svc.Submit(authedCtx(u), CreateMovementInput{
		ProductID: "prod-1", Type: model.MovementOut, Quantity: 4, Date: "2026-08-30",
	}, notices)

	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Nil(t, result)
	assert.Empty(t, st.InsertCalls, "ledger must not be touched")

	ns := notices.Notices()
	require.Len(t, ns, 1)
	assert.Equal(t, NoticeError, ns[0].Level)
	assert.Contains(t, ns[0].Message, "Widget")
}

func TestSubmitSurfacesStoreConflictAsPersistenceFailure(t *testing.T) {
	st := mocks.NewMockStore()
	u := seedUser(t, st)
	seedProduct(t, st, 10)
	st.InsertErr = store.ErrStockConflict
	svc := NewService(st, nil, nil, nil, zap.NewNop())

	notices := &NoticeLog{}
	result, err := svc.Submit(authedCtx(u), CreateMovementInput{
		ProductID: "prod-1", Type: model.MovementOut, Quantity: 2, Date: "2026-08-30",
	}, notices)

	require.ErrorIs(t, err, ErrPersistenceFailure)
	assert.Nil(t, result)

	ns := notices.Notices()
	require.Len(t, ns, 1)
	assert.Equal(t, NoticeError, ns[0].Level)

	// Counters were never applied because the insert failed.
	p, err := st.GetProduct(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.AvailableQty)
}

func TestSubmitRequiresSession(t *testing.T) {
	st := mocks.NewMockStore()
	seedProduct(t, st, 10)
	svc := NewService(st, nil, nil, nil, zap.NewNop())

	_, err := svc.Submit(context.Background(), CreateMovementInput{
		ProductID: "prod-1", Type: model.MovementIn, Quantity: 1, Date: "2026-08-30",
	}, nil)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, st.InsertCalls)
}

func TestSubmitRequiresActiveProfile(t *testing.T) {
	st := mocks.NewMockStore()
	seedProduct(t, st, 10)
	svc := NewService(st, nil, nil, nil, zap.NewNop())

	// Claims reference a user the store has never seen.
	ctx := auth.ContextWithClaims(context.Background(), &auth.Claims{UserID: "ghost"})
	_, err := svc.Submit(ctx, CreateMovementInput{
		ProductID: "prod-1", Type: model.MovementIn, Quantity: 1, Date: "2026-08-30",
	}, nil)
	require.ErrorIs(t, err, ErrProfileMissing)

	inactive := &model.User{ID: "user-2", Email: "x@example.com", Name: "X", Role: "staff", IsActive: false}
	require.NoError(t, st.CreateUser(context.Background(), inactive))
	_, err = svc.Submit(authedCtx(inactive), CreateMovementInput{
		ProductID: "prod-1", Type: model.MovementIn, Quantity: 1, Date: "2026-08-30",
	}, nil)
	require.ErrorIs(t, err, ErrProfileMissing)
}

func TestCreateWhileOfflineEnqueuesWithoutTouchingLedger(t *testing.T) {
	st := mocks.NewMockStore()
	u := seedUser(t, st)
	seedProduct(t, st, 10)
	queue := &fakeQueue{}
	svc := NewService(st, &fakeConn{online: false}, queue, nil, zap.NewNop())

	notices := &NoticeLog{}
	in := CreateMovementInput{ProductID: "prod-1", Type: model.MovementOut, Quantity: 2, Date: "2026-08-30"}
	result, err := svc.Create(authedCtx(u), in, notices)

	require.NoError(t, err)
	assert.Nil(t, result, "offline create must not report a persisted movement")
	require.Len(t, queue.enqueued, 1)
	assert.Equal(t, in, queue.enqueued[0])
	assert.Empty(t, st.InsertCalls)

	// Counters unchanged until the queue syncs.
	p, err := st.GetProduct(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 10, p.AvailableQty)

	ns := notices.Notices()
	require.Len(t, ns, 1)
	assert.Equal(t, NoticeInfo, ns[0].Level)
}

func TestCreateOfflineEnqueueFailure(t *testing.T) {
	st := mocks.NewMockStore()
	u := seedUser(t, st)
	queue := &fakeQueue{err: errors.New("disk full")}
	svc := NewService(st, &fakeConn{online: false}, queue, nil, zap.NewNop())

	notices := &NoticeLog{}
	_, err := svc.Create(authedCtx(u), CreateMovementInput{
		ProductID: "prod-1", Type: model.MovementIn, Quantity: 1, Date: "2026-08-30",
	}, notices)
	require.Error(t, err)

	ns := notices.Notices()
	require.Len(t, ns, 1)
	assert.Equal(t, NoticeError, ns[0].Level)
}

func TestSubmitDegradesWhenEnrichmentFails(t *testing.T) {
	st := mocks.NewMockStore()
	u := seedUser(t, st)
	seedProduct(t, st, 10)
	st.GetMovementErr = errors.New("read replica down")
	svc := NewService(st, nil, nil, nil, zap.NewNop())

	result, err := svc.Submit(authedCtx(u), CreateMovementInput{
		ProductID: "prod-1", Type: model.MovementIn, Quantity: 3, Date: "2026-08-30",
	}, nil)

	require.NoError(t, err, "a failed enrichment must not discard the written movement")
	require.NotNil(t, result)
	assert.Empty(t, result.ProductName)
	assert.Equal(t, 3, result.Quantity)
	assert.Equal(t, "Taro", result.HandledBy)
}

func TestCreateValidatesInput(t *testing.T) {
	st := mocks.NewMockStore()
	u := seedUser(t, st)
	svc := NewService(st, nil, nil, nil, zap.NewNop())

	_, err := svc.Create(authedCtx(u), CreateMovementInput{
		ProductID: "prod-1", Type: "transfer", Quantity: 1, Date: "2026-08-30",
	}, nil)
	require.ErrorIs(t, err, ErrInvalidType)

	_, err = svc.Create(authedCtx(u), CreateMovementInput{
		ProductID: "prod-1", Type: model.MovementIn, Quantity: -1, Date: "2026-08-30",
	}, nil)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, st.InsertCalls)
}

func TestSubmitKeepsMovementWhenPublishFails(t *testing.T) {
	st := mocks.NewMockStore()
	u := seedUser(t, st)
	seedProduct(t, st, 10)
	pub := &fakePublisher{err: errors.New("broker unreachable")}
	svc := NewService(st, nil, nil, pub, zap.NewNop())

	result, err := svc.Submit(authedCtx(u), CreateMovementInput{
		ProductID: "prod-1", Type: model.MovementIn, Quantity: 1, Date: "2026-08-30",
	}, nil)

	require.NoError(t, err)
	require.NotNil(t, result)
	require.Len(t, st.InsertCalls, 1)
}
