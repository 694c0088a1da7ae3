package payment

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/event"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/order"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/paystack"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/ticket"
	"github.com/KendrickOdei/fastTix-sub000/internal/pkg/session"
	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	"github.com/KendrickOdei/fastTix-sub000/pkg/gctasks"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

type fakeEventRepository struct {
	events map[string]event.Event
}

func (f *fakeEventRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (event.Event, error) {
	ev, ok := f.events[ID]
	if !ok {
		return event.Event{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("event's properties with id '%s' is not found", ID))
	}

	return ev, nil
}

type fakeTicketTypeRepository struct {
	mu    sync.Mutex
	types map[string]*ticket.TicketType
}

func (f *fakeTicketTypeRepository) FindByID(ctx context.Context, ID string, tx *sql.Tx) (ticket.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	tt, ok := f.types[ID]
	if !ok {
		return ticket.TicketType{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("ticket type's properties with id '%s' is not found", ID))
	}

	return *tt, nil
}

func (f *fakeTicketTypeRepository) FindManyByEventID(ctx context.Context, eventID string, tx *sql.Tx) ([]ticket.TicketType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []ticket.TicketType
	for _, tt := range f.types {
		if tt.EventID == eventID {
			out = append(out, *tt)
		}
	}

	return out, nil
}

func (f *fakeTicketTypeRepository) DecrementRemaining(ctx context.Context, ID string, quantity int64, tx *sql.Tx) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	tt, ok := f.types[ID]
	if !ok {
		return ticket.ErrInsufficientStock
	}

	if tt.Quantity-tt.Sold < quantity {
		return ticket.ErrInsufficientStock
	}

	tt.Sold += quantity
	tt.LastStockUpdate = time.Now()

	return nil
}

func (f *fakeTicketTypeRepository) sold(ID string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.types[ID].Sold
}

type fakeOrderRepository struct {
	mu      sync.Mutex
	orders  map[string]order.Order
	pending map[string]struct{}
}

func newFakeOrderRepository() *fakeOrderRepository {
	return &fakeOrderRepository{
		orders:  make(map[string]order.Order),
		pending: make(map[string]struct{}),
	}
}

func (f *fakeOrderRepository) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return nil, nil
}

func (f *fakeOrderRepository) CommitTx(ctx context.Context, tx *sql.Tx) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending = make(map[string]struct{})

	return nil
}

func (f *fakeOrderRepository) Rollback(ctx context.Context, tx *sql.Tx) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	for ref := range f.pending {
		delete(f.orders, ref)
	}
	f.pending = make(map[string]struct{})

	return nil
}

func (f *fakeOrderRepository) SaveIfAbsent(ctx context.Context, o order.Order, tx *sql.Tx) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.orders[o.PaymentReference]; ok {
		return false, nil
	}

	f.orders[o.PaymentReference] = o
	f.pending[o.PaymentReference] = struct{}{}

	return true, nil
}

func (f *fakeOrderRepository) FindByPaymentReference(ctx context.Context, paymentReference string, tx *sql.Tx) (order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[paymentReference]
	if !ok {
		return order.Order{}, errors.New(http.StatusNotFound, status.NOT_FOUND, fmt.Sprintf("order's properties with payment reference '%s' is not found", paymentReference))
	}

	return o, nil
}

func (f *fakeOrderRepository) FindMany(ctx context.Context, customerID int64, offset, limit int64, tx *sql.Tx) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]order.Order, 0)
	for _, o := range f.orders {
		if o.CustomerID != nil && *o.CustomerID == customerID {
			out = append(out, o)
		}
	}

	return out, nil
}

func (f *fakeOrderRepository) Count(ctx context.Context, customerID int64, tx *sql.Tx) (int64, error) {
	out, _ := f.FindMany(ctx, customerID, 0, 0, tx)
	return int64(len(out)), nil
}

func (f *fakeOrderRepository) has(reference string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	_, ok := f.orders[reference]

	return ok
}

type fakePaystackRepository struct {
	initData     paystack.InitializeData
	initErr      error
	transactions map[string]paystack.Transaction
	verifyErr    error
	lastInit     paystack.InitializeRequest
}

func (f *fakePaystackRepository) Initialize(ctx context.Context, req paystack.InitializeRequest) (paystack.InitializeData, error) {
	f.lastInit = req

	if f.initErr != nil {
		return paystack.InitializeData{}, f.initErr
	}

	data := f.initData
	data.Reference = req.Reference

	return data, nil
}

func (f *fakePaystackRepository) Verify(ctx context.Context, reference string) (paystack.Transaction, error) {
	if f.verifyErr != nil {
		return paystack.Transaction{}, f.verifyErr
	}

	return f.transactions[reference], nil
}

type publishedMessage struct {
	topic   string
	key     string
	message []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, key string, headers map[string]string, message []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.messages = append(f.messages, publishedMessage{topic: topic, key: key, message: message})

	return nil
}

func (f *fakePublisher) Close() {}

func (f *fakePublisher) byTopic(topic string) []publishedMessage {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []publishedMessage
	for _, m := range f.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}

	return out
}

type deferredTask struct {
	queueID  string
	request  gctasks.Request
	schedule time.Time
}

type fakeCloudTask struct {
	tasks []deferredTask
}

func (f *fakeCloudTask) CreateQueue(id string) error { return nil }

func (f *fakeCloudTask) CreateTask(queueID string, request gctasks.Request) error {
	f.tasks = append(f.tasks, deferredTask{queueID: queueID, request: request})
	return nil
}

func (f *fakeCloudTask) DeferCreateTaskInDuration(queueID string, request gctasks.Request, duration time.Duration) error {
	f.tasks = append(f.tasks, deferredTask{queueID: queueID, request: request, schedule: time.Now().Add(duration)})
	return nil
}

func (f *fakeCloudTask) DeferCreateTaskInTime(queueID string, request gctasks.Request, schedule time.Time) error {
	f.tasks = append(f.tasks, deferredTask{queueID: queueID, request: request, schedule: schedule})
	return nil
}

func (f *fakeCloudTask) Close() error { return nil }

type fixture struct {
	events    *fakeEventRepository
	tickets   *fakeTicketTypeRepository
	orders    *fakeOrderRepository
	gateway   *fakePaystackRepository
	publisher *fakePublisher
	cloudTask *fakeCloudTask
	useCase   PaymentUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	now := time.Now()

	f := &fixture{
		events: &fakeEventRepository{
			events: map[string]event.Event{
				"EVT1": {ID: "EVT1", Name: "Afrobeat Live", Status: event.StatusPublished},
				"EVT2": {ID: "EVT2", Name: "Unreleased", Status: event.StatusDraft},
			},
		},
		tickets: &fakeTicketTypeRepository{
			types: map[string]*ticket.TicketType{
				"TT1": {
					ID:          "TT1",
					EventID:     "EVT1",
					Tier:        "regular",
					Price:       5000,
					Quantity:    100,
					Sold:        90,
					OnSaleFrom:  now.Add(-time.Hour),
					OnSaleUntil: now.Add(time.Hour),
				},
			},
		},
		orders:    newFakeOrderRepository(),
		gateway:   &fakePaystackRepository{initData: paystack.InitializeData{AuthorizationURL: "https://checkout.paystack.com/abc"}, transactions: map[string]paystack.Transaction{}},
		publisher: &fakePublisher{},
		cloudTask: &fakeCloudTask{},
	}

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)

	f.useCase = NewPaymentUseCase(PaymentUseCaseProperty{
		Logger:               logger,
		Timeout:              5 * time.Second,
		BaseURL:              "http://localhost:9000",
		Currency:             "GHS",
		PaymentExpiration:    30 * time.Minute,
		VerifyTimeout:        time.Second,
		EventRepository:      f.events,
		TicketTypeRepository: f.tickets,
		OrderRepository:      f.orders,
		PaystackRepository:   f.gateway,
		Publisher:            f.publisher,
		CloudTask:            f.cloudTask,
	})

	return f
}

func chargeSuccess(reference string, amount int64, quantity int64) paystack.WebhookEvent {
	return paystack.WebhookEvent{
		Event: paystack.EventChargeSuccess,
		Data: paystack.Transaction{
			Status:    paystack.TransactionStatusSuccess,
			Reference: reference,
			Amount:    amount,
			Currency:  "GHS",
			Metadata: paystack.ChargeMetadata{
				TicketTypeID: "TT1",
				EventID:      "EVT1",
				Quantity:     quantity,
				UnitPrice:    5000,
			},
			Customer: struct {
				Email string `json:"email"`
			}{Email: "buyer@example.com"},
		},
	}
}

func TestOnPaymentNotificationSettles(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.useCase.OnPaymentNotification(context.Background(), chargeSuccess("FTX100", 10000, 2))
	require.NoError(t, err)

	assert.Equal(t, OutcomeSettled, outcome.Code)
	require.NotNil(t, outcome.Order)
	assert.Equal(t, "FTX100", outcome.Order.PaymentReference)
	assert.Equal(t, order.StatusPaid, outcome.Order.Status)
	assert.Equal(t, int64(10000), outcome.Order.Amount)

	assert.Equal(t, int64(92), f.tickets.sold("TT1"))
	assert.True(t, f.orders.has("FTX100"))

	paid := f.publisher.byTopic(TopicOrderPaid)
	require.Len(t, paid, 1)
	assert.Equal(t, "FTX100", paid[0].key)
}

func TestOnPaymentNotificationDuplicateLeavesStateUntouched(t *testing.T) {
	f := newFixture(t)

	first, err := f.useCase.OnPaymentNotification(context.Background(), chargeSuccess("FTX101", 5000, 1))
	require.NoError(t, err)
	require.Equal(t, OutcomeSettled, first.Code)

	soldAfterFirst := f.tickets.sold("TT1")

	second, err := f.useCase.OnPaymentNotification(context.Background(), chargeSuccess("FTX101", 5000, 1))
	require.NoError(t, err)

	assert.Equal(t, OutcomeDuplicate, second.Code)
	require.NotNil(t, second.Order)
	assert.Equal(t, first.Order.ID, second.Order.ID)
	assert.Equal(t, soldAfterFirst, f.tickets.sold("TT1"))

	assert.Len(t, f.publisher.byTopic(TopicOrderPaid), 1)
}

func TestOnPaymentNotificationAmountMismatch(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.useCase.OnPaymentNotification(context.Background(), chargeSuccess("FTX102", 7500, 2))
	require.NoError(t, err)

	assert.Equal(t, OutcomeAmountMismatch, outcome.Code)
	assert.Nil(t, outcome.Order)

	assert.Equal(t, int64(90), f.tickets.sold("TT1"))
	assert.False(t, f.orders.has("FTX102"))

	require.Len(t, f.publisher.byTopic(TopicSettlementAlert), 1)
	assert.Empty(t, f.publisher.byTopic(TopicOrderPaid))
}

func TestOnPaymentNotificationInsufficientInventory(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.useCase.OnPaymentNotification(context.Background(), chargeSuccess("FTX103", 5000*11, 11))
	require.NoError(t, err)

	assert.Equal(t, OutcomeInsufficientInventory, outcome.Code)
	assert.Nil(t, outcome.Order)

	assert.Equal(t, int64(90), f.tickets.sold("TT1"))
	assert.False(t, f.orders.has("FTX103"))

	require.Len(t, f.publisher.byTopic(TopicSettlementAlert), 1)
}

func TestOnPaymentNotificationIgnoresNonSuccessEvents(t *testing.T) {
	f := newFixture(t)

	e := chargeSuccess("FTX104", 5000, 1)
	e.Data.Status = paystack.TransactionStatusFailed

	outcome, err := f.useCase.OnPaymentNotification(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, OutcomeIgnored, outcome.Code)
	assert.Equal(t, int64(90), f.tickets.sold("TT1"))
	assert.Empty(t, f.publisher.messages)
}

func TestOnPaymentNotificationRejectsMissingMetadata(t *testing.T) {
	f := newFixture(t)

	e := chargeSuccess("FTX105", 5000, 1)
	e.Data.Metadata = paystack.ChargeMetadata{}

	outcome, err := f.useCase.OnPaymentNotification(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRejected, outcome.Code)
	assert.Equal(t, int64(90), f.tickets.sold("TT1"))
	require.Len(t, f.publisher.byTopic(TopicSettlementAlert), 1)
}

func TestOnPaymentNotificationRejectsUnknownTicketType(t *testing.T) {
	f := newFixture(t)

	e := chargeSuccess("FTX106", 5000, 1)
	e.Data.Metadata.TicketTypeID = "TT404"

	outcome, err := f.useCase.OnPaymentNotification(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, OutcomeRejected, outcome.Code)
	require.Len(t, f.publisher.byTopic(TopicSettlementAlert), 1)
}

// Ten distinct payments race for the last ten tickets with quantity two each.
// Exactly five settle, the rest are turned away, and sold never exceeds
// quantity.
func TestConcurrentSettlementNeverOversells(t *testing.T) {
	f := newFixture(t)

	const buyers = 10

	outcomes := make([]SettleOutcome, buyers)
	errs := make([]error, buyers)

	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			e := chargeSuccess(fmt.Sprintf("FTX2%02d", i), 10000, 2)
			outcomes[i], errs[i] = f.useCase.OnPaymentNotification(context.Background(), e)
		}(i)
	}
	wg.Wait()

	settled, turnedAway := 0, 0
	for i := 0; i < buyers; i++ {
		require.NoError(t, errs[i])

		switch outcomes[i].Code {
		case OutcomeSettled:
			settled++
		case OutcomeInsufficientInventory:
			turnedAway++
		default:
			t.Fatalf("unexpected outcome %q", outcomes[i].Code)
		}
	}

	assert.Equal(t, 5, settled)
	assert.Equal(t, 5, turnedAway)
	assert.Equal(t, int64(100), f.tickets.sold("TT1"))
}

func TestTwoBuyersOneLastTicket(t *testing.T) {
	f := newFixture(t)
	f.tickets.types["TT1"].Sold = 99

	outcomes := make([]SettleOutcome, 2)
	errs := make([]error, 2)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			e := chargeSuccess(fmt.Sprintf("FTX3%02d", i), 5000, 1)
			outcomes[i], errs[i] = f.useCase.OnPaymentNotification(context.Background(), e)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	codes := []string{outcomes[0].Code, outcomes[1].Code}
	assert.ElementsMatch(t, []string{OutcomeSettled, OutcomeInsufficientInventory}, codes)
	assert.Equal(t, int64(100), f.tickets.sold("TT1"))
}

func TestOnReconcilePayment(t *testing.T) {
	t.Run("settles a verified successful payment", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.transactions["FTX400"] = chargeSuccess("FTX400", 5000, 1).Data

		outcome, err := f.useCase.OnReconcilePayment(context.Background(), ReconcilePaymentEvent{Reference: "FTX400"})
		require.NoError(t, err)

		assert.Equal(t, OutcomeSettled, outcome.Code)
		assert.Equal(t, int64(91), f.tickets.sold("TT1"))
	})

	t.Run("ignores a payment the gateway reports as abandoned", func(t *testing.T) {
		f := newFixture(t)

		tr := chargeSuccess("FTX401", 5000, 1).Data
		tr.Status = paystack.TransactionStatusAbandoned
		f.gateway.transactions["FTX401"] = tr

		outcome, err := f.useCase.OnReconcilePayment(context.Background(), ReconcilePaymentEvent{Reference: "FTX401"})
		require.NoError(t, err)

		assert.Equal(t, OutcomeIgnored, outcome.Code)
		assert.Equal(t, int64(90), f.tickets.sold("TT1"))
	})

	t.Run("propagates verification failures for redelivery", func(t *testing.T) {
		f := newFixture(t)
		f.gateway.verifyErr = errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling paystack")

		_, err := f.useCase.OnReconcilePayment(context.Background(), ReconcilePaymentEvent{Reference: "FTX402"})
		require.Error(t, err)

		assert.Equal(t, int64(90), f.tickets.sold("TT1"))
	})
}

func TestInitializePayment(t *testing.T) {
	t.Run("initializes a guest payment and schedules reconciliation", func(t *testing.T) {
		f := newFixture(t)

		resp, err := f.useCase.InitializePayment(context.Background(), InitializePaymentRequest{
			TicketTypeID: "TT1",
			Quantity:     2,
			Email:        "guest@example.com",
		})
		require.NoError(t, err)

		assert.Equal(t, "https://checkout.paystack.com/abc", resp.AuthorizationURL)
		assert.Equal(t, int64(10000), resp.Amount)
		assert.Equal(t, "GHS", resp.Currency)
		assert.NotEmpty(t, resp.Reference)

		assert.Equal(t, "guest@example.com", f.gateway.lastInit.Email)
		assert.Equal(t, int64(2), f.gateway.lastInit.Metadata.Quantity)
		assert.Nil(t, f.gateway.lastInit.Metadata.CustomerID)

		require.Len(t, f.cloudTask.tasks, 1)
		assert.Equal(t, "payment-reconcile", f.cloudTask.tasks[0].queueID)
		assert.Contains(t, f.cloudTask.tasks[0].request.URL, "/fasttix/v1/customerapp/payments/on-reconcile")
	})

	t.Run("prefers the authenticated account over the request email", func(t *testing.T) {
		f := newFixture(t)

		ctx := session.SetAccountToCtx(context.Background(), session.Account{ID: 42, Name: "Ama Serwaa", Email: "ama@example.com"})

		_, err := f.useCase.InitializePayment(ctx, InitializePaymentRequest{
			TicketTypeID: "TT1",
			Quantity:     1,
			Email:        "guest@example.com",
		})
		require.NoError(t, err)

		assert.Equal(t, "ama@example.com", f.gateway.lastInit.Email)
		require.NotNil(t, f.gateway.lastInit.Metadata.CustomerID)
		assert.Equal(t, int64(42), *f.gateway.lastInit.Metadata.CustomerID)
	})

	t.Run("requires an email for guest checkout", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.useCase.InitializePayment(context.Background(), InitializePaymentRequest{
			TicketTypeID: "TT1",
			Quantity:     1,
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, errors.Destruct(err).HTTPStatusCode)
	})

	t.Run("rejects an unpublished event", func(t *testing.T) {
		f := newFixture(t)
		f.tickets.types["TT1"].EventID = "EVT2"

		_, err := f.useCase.InitializePayment(context.Background(), InitializePaymentRequest{
			TicketTypeID: "TT1",
			Quantity:     1,
			Email:        "guest@example.com",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, errors.Destruct(err).HTTPStatusCode)
	})

	t.Run("rejects a purchase outside the sale window", func(t *testing.T) {
		f := newFixture(t)
		f.tickets.types["TT1"].OnSaleUntil = time.Now().Add(-time.Minute)

		_, err := f.useCase.InitializePayment(context.Background(), InitializePaymentRequest{
			TicketTypeID: "TT1",
			Quantity:     1,
			Email:        "guest@example.com",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnprocessableEntity, errors.Destruct(err).HTTPStatusCode)
	})

	t.Run("rejects a quantity above the visible remainder", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.useCase.InitializePayment(context.Background(), InitializePaymentRequest{
			TicketTypeID: "TT1",
			Quantity:     11,
			Email:        "guest@example.com",
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, errors.Destruct(err).HTTPStatusCode)
	})
}

func TestGetManyOrder(t *testing.T) {
	t.Run("returns the caller's orders with pagination meta", func(t *testing.T) {
		f := newFixture(t)

		customerID := int64(42)
		f.orders.orders["FTX500"] = order.Order{ID: "FTO500", PaymentReference: "FTX500", CustomerID: &customerID, Status: order.StatusPaid}

		ctx := session.SetAccountToCtx(context.Background(), session.Account{ID: 42, Email: "ama@example.com"})

		resp, meta, err := f.useCase.GetManyOrder(ctx, GetManyOrderRequest{Page: 1, Size: 20})
		require.NoError(t, err)

		require.Len(t, resp, 1)
		assert.Equal(t, "FTO500", resp[0].ID)
		assert.Equal(t, int64(1), meta.Total)
		assert.Equal(t, int64(1), meta.Page)
	})

	t.Run("rejects an unauthenticated caller", func(t *testing.T) {
		f := newFixture(t)

		_, _, err := f.useCase.GetManyOrder(context.Background(), GetManyOrderRequest{Page: 1, Size: 20})
		require.Error(t, err)
		assert.Equal(t, http.StatusUnauthorized, errors.Destruct(err).HTTPStatusCode)
	})
}
