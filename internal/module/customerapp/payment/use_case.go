package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/sirupsen/logrus"

	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/event"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/order"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/paystack"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/ticket"
	"github.com/KendrickOdei/fastTix-sub000/internal/pkg/session"
	"github.com/KendrickOdei/fastTix-sub000/internal/pkg/util"
	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	"github.com/KendrickOdei/fastTix-sub000/pkg/gctasks"
	"github.com/KendrickOdei/fastTix-sub000/pkg/pubsub"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

const (
	TopicOrderPaid       = "order-paid"
	TopicSettlementAlert = "settlement-alert"

	reconcileQueue = "payment-reconcile"
)

// Settlement outcome codes. Every code except OutcomeSettled and
// OutcomeDuplicate is terminal for that payment reference; all of them are
// acknowledged to the gateway so it stops redelivering.
const (
	OutcomeSettled               = "SETTLED"
	OutcomeDuplicate             = "DUPLICATE"
	OutcomeIgnored               = "IGNORED"
	OutcomeRejected              = "REJECTED"
	OutcomeAmountMismatch        = "AMOUNT_MISMATCH"
	OutcomeInsufficientInventory = "INSUFFICIENT_INVENTORY"
)

// SettleOutcome reports how a verified payment event was resolved. A non-nil
// Order is only present for SETTLED and DUPLICATE.
type SettleOutcome struct {
	Code    string
	Message string
	Order   *order.Order
}

type PaymentUseCase interface {
	InitializePayment(ctx context.Context, req InitializePaymentRequest) (InitializePaymentResponse, error)
	OnPaymentNotification(ctx context.Context, e paystack.WebhookEvent) (SettleOutcome, error)
	OnReconcilePayment(ctx context.Context, e ReconcilePaymentEvent) (SettleOutcome, error)
	GetManyOrder(ctx context.Context, req GetManyOrderRequest) (GetManyOrderResponse, GetManyOrderMeta, error)
}

type paymentUseCase struct {
	logger               *logrus.Logger
	timeout              time.Duration
	baseURL              string
	currency             string
	paymentExpiration    time.Duration
	verifyTimeout        time.Duration
	eventRepository      event.EventRepository
	ticketTypeRepository ticket.TicketTypeRepository
	orderRepository      order.OrderRepository
	paystackRepository   paystack.PaystackRepository
	publisher            pubsub.Publisher
	cloudTask            gctasks.Client
}

type PaymentUseCaseProperty struct {
	Logger               *logrus.Logger
	Timeout              time.Duration
	BaseURL              string
	Currency             string
	PaymentExpiration    time.Duration
	VerifyTimeout        time.Duration
	EventRepository      event.EventRepository
	TicketTypeRepository ticket.TicketTypeRepository
	OrderRepository      order.OrderRepository
	PaystackRepository   paystack.PaystackRepository
	Publisher            pubsub.Publisher
	CloudTask            gctasks.Client
}

func NewPaymentUseCase(props PaymentUseCaseProperty) PaymentUseCase {
	return &paymentUseCase{
		logger:               props.Logger,
		timeout:              props.Timeout,
		baseURL:              props.BaseURL,
		currency:             props.Currency,
		paymentExpiration:    props.PaymentExpiration,
		verifyTimeout:        props.VerifyTimeout,
		eventRepository:      props.EventRepository,
		ticketTypeRepository: props.TicketTypeRepository,
		orderRepository:      props.OrderRepository,
		paystackRepository:   props.PaystackRepository,
		publisher:            props.Publisher,
		cloudTask:            props.CloudTask,
	}
}

// InitializePayment implements PaymentUseCase.
func (u *paymentUseCase) InitializePayment(ctx context.Context, req InitializePaymentRequest) (InitializePaymentResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	tt, err := u.ticketTypeRepository.FindByID(ctx, req.TicketTypeID, nil)
	if err != nil {
		return InitializePaymentResponse{}, err
	}

	ev, err := u.eventRepository.FindByID(ctx, tt.EventID, nil)
	if err != nil {
		return InitializePaymentResponse{}, err
	}

	if ev.Status != event.StatusPublished {
		return InitializePaymentResponse{}, errors.New(http.StatusUnprocessableEntity, status.UNPROCESSABLE_ENTITY, "event is not open for sale")
	}

	now := time.Now()
	if now.Before(tt.OnSaleFrom) || now.After(tt.OnSaleUntil) {
		return InitializePaymentResponse{}, errors.New(http.StatusUnprocessableEntity, status.UNPROCESSABLE_ENTITY, "ticket is not on sale")
	}

	// fast precheck only; the authoritative stock guard runs at settlement
	if tt.Remaining() < req.Quantity {
		return InitializePaymentResponse{}, errors.New(http.StatusConflict, status.CONFLICT, "out of stock")
	}

	metadata := paystack.ChargeMetadata{
		TicketTypeID: tt.ID,
		EventID:      tt.EventID,
		Quantity:     req.Quantity,
		UnitPrice:    tt.Price,
	}

	email := req.Email
	if acc, err := session.GetAccountFromCtx(ctx); err == nil {
		email = acc.Email
		metadata.CustomerID = &acc.ID
		metadata.CustomerName = acc.Name
	}

	if email == "" {
		return InitializePaymentResponse{}, errors.New(http.StatusBadRequest, status.BAD_REQUEST, "email is required for guest checkout")
	}

	amount := tt.Price * req.Quantity
	reference := util.GenerateTimestampWithPrefix("FTX")

	init, err := u.paystackRepository.Initialize(ctx, paystack.InitializeRequest{
		Email:     email,
		Amount:    amount,
		Currency:  u.currency,
		Reference: reference,
		Metadata:  metadata,
	})
	if err != nil {
		return InitializePaymentResponse{}, err
	}

	reconcileBuff, _ := json.Marshal(ReconcilePaymentEvent{Reference: reference})
	tasksRequest := gctasks.Request{
		URL:    fmt.Sprintf("%s/fasttix/v1/customerapp/payments/on-reconcile", u.baseURL),
		Method: cloudtaskspb.HttpMethod_POST,
		Body:   reconcileBuff,
	}
	if err := u.cloudTask.DeferCreateTaskInTime(reconcileQueue, tasksRequest, now.Add(u.paymentExpiration)); err != nil {
		u.logger.WithContext(ctx).WithError(err).Warn("failed to schedule payment reconciliation")
	}

	return InitializePaymentResponse{
		AuthorizationURL: init.AuthorizationURL,
		Reference:        init.Reference,
		Amount:           amount,
		Currency:         u.currency,
	}, nil
}

// OnPaymentNotification implements PaymentUseCase. The caller has already
// authenticated the raw payload; anything but a successful charge is
// acknowledged without effect.
func (u *paymentUseCase) OnPaymentNotification(ctx context.Context, e paystack.WebhookEvent) (SettleOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	if e.Event != paystack.EventChargeSuccess || e.Data.Status != paystack.TransactionStatusSuccess {
		return SettleOutcome{Code: OutcomeIgnored, Message: fmt.Sprintf("event '%s' requires no settlement", e.Event)}, nil
	}

	return u.settle(ctx, e.Data)
}

// OnReconcilePayment implements PaymentUseCase. Runs when the deferred
// reconcile task fires; recovers payments whose webhook never arrived by
// asking the gateway directly. A verification timeout means not-yet-verified
// and is surfaced as an error so the task is redelivered.
func (u *paymentUseCase) OnReconcilePayment(ctx context.Context, e ReconcilePaymentEvent) (SettleOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	verifyCtx, verifyCancel := context.WithTimeout(ctx, u.verifyTimeout)
	defer verifyCancel()

	tr, err := u.paystackRepository.Verify(verifyCtx, e.Reference)
	if err != nil {
		return SettleOutcome{}, err
	}

	if tr.Status != paystack.TransactionStatusSuccess {
		return SettleOutcome{Code: OutcomeIgnored, Message: fmt.Sprintf("payment '%s' has status '%s', nothing to settle", e.Reference, tr.Status)}, nil
	}

	return u.settle(ctx, tr)
}

// settle converts a verified, successful charge into an order row and an
// inventory decrement, exactly once per payment reference. The uniqueness
// check and the conditional decrement run inside one database transaction,
// so either both effects commit or neither does.
func (u *paymentUseCase) settle(ctx context.Context, tr paystack.Transaction) (SettleOutcome, error) {
	meta := tr.Metadata

	if meta.TicketTypeID == "" || meta.Quantity <= 0 {
		u.alert(ctx, tr, OutcomeRejected, "payment metadata is missing or malformed")
		return SettleOutcome{Code: OutcomeRejected, Message: "payment metadata is missing or malformed"}, nil
	}

	tt, err := u.ticketTypeRepository.FindByID(ctx, meta.TicketTypeID, nil)
	if err != nil {
		if errors.Destruct(err).HTTPStatusCode == http.StatusNotFound {
			u.alert(ctx, tr, OutcomeRejected, "ticket type referenced by payment no longer exists")
			return SettleOutcome{Code: OutcomeRejected, Message: "ticket type referenced by payment no longer exists"}, nil
		}
		return SettleOutcome{}, err
	}

	tx, err := u.orderRepository.BeginTx(ctx)
	if err != nil {
		return SettleOutcome{}, err
	}

	now := time.Now()
	o := order.Order{
		ID:               util.GenerateTimestampWithPrefix("FTO"),
		PaymentReference: tr.Reference,
		TicketTypeID:     tt.ID,
		EventID:          tt.EventID,
		Tier:             tt.Tier,
		Quantity:         meta.Quantity,
		UnitPrice:        tt.Price,
		Amount:           tr.Amount,
		CustomerID:       meta.CustomerID,
		CustomerEmail:    tr.Customer.Email,
		Status:           order.StatusPaid,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	inserted, err := u.orderRepository.SaveIfAbsent(ctx, o, tx)
	if err != nil {
		u.orderRepository.Rollback(ctx, tx)
		return SettleOutcome{}, err
	}

	if !inserted {
		u.orderRepository.Rollback(ctx, tx)

		existing, err := u.orderRepository.FindByPaymentReference(ctx, tr.Reference, nil)
		if err != nil {
			return SettleOutcome{}, err
		}

		return SettleOutcome{
			Code:    OutcomeDuplicate,
			Message: fmt.Sprintf("payment '%s' has already been settled", tr.Reference),
			Order:   &existing,
		}, nil
	}

	// expected amount comes from the current authoritative price, never from
	// anything the buyer could influence client-side
	expectedAmount := tt.Price * meta.Quantity
	if expectedAmount != tr.Amount {
		u.orderRepository.Rollback(ctx, tx)
		u.alert(ctx, tr, OutcomeAmountMismatch, fmt.Sprintf("captured amount %d does not match expected amount %d", tr.Amount, expectedAmount))
		return SettleOutcome{Code: OutcomeAmountMismatch, Message: "captured amount does not match the expected charge"}, nil
	}

	if err := u.ticketTypeRepository.DecrementRemaining(ctx, tt.ID, meta.Quantity, tx); err != nil {
		u.orderRepository.Rollback(ctx, tx)

		if err == ticket.ErrInsufficientStock {
			u.alert(ctx, tr, OutcomeInsufficientInventory, fmt.Sprintf("ticket type '%s' cannot cover quantity %d", tt.ID, meta.Quantity))
			return SettleOutcome{Code: OutcomeInsufficientInventory, Message: "remaining inventory cannot cover the paid quantity"}, nil
		}

		return SettleOutcome{}, err
	}

	if err := u.orderRepository.CommitTx(ctx, tx); err != nil {
		return SettleOutcome{}, err
	}

	orderBuff, _ := json.Marshal(o)
	u.publisher.Publish(ctx, TopicOrderPaid, o.PaymentReference, nil, orderBuff)

	return SettleOutcome{
		Code:    OutcomeSettled,
		Message: fmt.Sprintf("payment '%s' has been settled", tr.Reference),
		Order:   &o,
	}, nil
}

// alert records a terminal settlement failure for operator follow-up; the
// money may need a manual refund.
func (u *paymentUseCase) alert(ctx context.Context, tr paystack.Transaction, code string, message string) {
	u.logger.WithContext(ctx).WithFields(logrus.Fields{
		"reference": tr.Reference,
		"amount":    tr.Amount,
		"code":      code,
	}).Error(message)

	payload, _ := json.Marshal(map[string]interface{}{
		"reference": tr.Reference,
		"amount":    tr.Amount,
		"code":      code,
		"message":   message,
		"metadata":  tr.Metadata,
	})
	u.publisher.Publish(ctx, TopicSettlementAlert, tr.Reference, nil, payload)
}

// GetManyOrder implements PaymentUseCase.
func (u *paymentUseCase) GetManyOrder(ctx context.Context, req GetManyOrderRequest) (GetManyOrderResponse, GetManyOrderMeta, error) {
	ctx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	acc, err := session.GetAccountFromCtx(ctx)
	if err != nil {
		return nil, GetManyOrderMeta{}, err
	}

	offset := (req.Page - 1) * req.Size

	orders, err := u.orderRepository.FindMany(ctx, acc.ID, offset, req.Size, nil)
	if err != nil {
		return nil, GetManyOrderMeta{}, err
	}

	total, err := u.orderRepository.Count(ctx, acc.ID, nil)
	if err != nil {
		return nil, GetManyOrderMeta{}, err
	}

	resp := make(GetManyOrderResponse, len(orders))
	for k, v := range orders {
		resp[k].PopulateFromEntity(v)
	}

	return resp, GetManyOrderMeta{Page: req.Page, Size: req.Size, Total: total}, nil
}
