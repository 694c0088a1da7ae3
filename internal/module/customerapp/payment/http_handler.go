package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/paystack"
	internalMiddleware "github.com/KendrickOdei/fastTix-sub000/internal/pkg/middleware"
	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	publicMiddleware "github.com/KendrickOdei/fastTix-sub000/pkg/middleware"
	"github.com/KendrickOdei/fastTix-sub000/pkg/response"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

const signatureHeader = "x-paystack-signature"

type HTTPHandler struct {
	Logger         *logrus.Logger
	Validate       *validator.Validate
	WebhookSecret  string
	PaymentUseCase PaymentUseCase
}

func InitHTTPHandler(router *mux.Router, customerSession *internalMiddleware.CustomerSession, logger *logrus.Logger, validate *validator.Validate, webhookSecret string, paymentUseCase PaymentUseCase) {
	handler := &HTTPHandler{
		Logger:         logger,
		Validate:       validate,
		WebhookSecret:  webhookSecret,
		PaymentUseCase: paymentUseCase,
	}

	router.HandleFunc("/fasttix/v1/customerapp/payments/initialize", publicMiddleware.SetRouteChain(handler.InitializePayment, customerSession.Identify)).Methods(http.MethodPost)
	router.HandleFunc("/fasttix/v1/customerapp/payments/webhook", publicMiddleware.SetRouteChain(handler.OnPaymentNotification)).Methods(http.MethodPost)
	router.HandleFunc("/fasttix/v1/customerapp/payments/on-reconcile", publicMiddleware.SetRouteChain(handler.OnReconcilePayment)).Methods(http.MethodPost)
	router.HandleFunc("/fasttix/v1/customerapp/payments/orders", publicMiddleware.SetRouteChain(handler.GetManyOrder, customerSession.Verify)).Methods(http.MethodGet)
}

func (handler HTTPHandler) validate(ctx context.Context, payload interface{}) error {
	err := handler.Validate.StructCtx(ctx, payload)
	if err == nil {
		return nil
	}

	errorFields := err.(validator.ValidationErrors)

	errMessages := make([]string, len(errorFields))

	for k, errorField := range errorFields {
		errMessages[k] = fmt.Sprintf("invalid '%s' with value '%v'", errorField.Field(), errorField.Value())
	}

	return fmt.Errorf("%s", strings.Join(errMessages, ", "))
}

func (handler HTTPHandler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := InitializePaymentRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.PaymentUseCase.InitializePayment(ctx, req)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusCreated, response.RESTEnvelope{
		Status:  status.CREATED,
		Message: "payment has been initialized",
		Data:    resp,
	})
}

// OnPaymentNotification receives gateway webhooks. The signature is checked
// against the raw body before anything is parsed. Every definitively handled
// outcome responds 200 so the gateway stops redelivering; only transient
// failures respond with a non-2xx to invite a retry.
func (handler HTTPHandler) OnPaymentNotification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		response.JSON(w, http.StatusInternalServerError, response.RESTEnvelope{
			Status:  status.INTERNAL_SERVER_ERROR,
			Message: "failed to read notification body",
		})

		return
	}

	if !VerifySignature(rawBody, r.Header.Get(signatureHeader), handler.WebhookSecret) {
		handler.Logger.WithContext(ctx).Warn("payment notification rejected, signature mismatch")
		response.JSON(w, http.StatusOK, response.RESTEnvelope{
			Status:  status.OK,
			Message: OutcomeRejected,
		})

		return
	}

	webhookEvent := paystack.WebhookEvent{}
	if err := json.Unmarshal(rawBody, &webhookEvent); err != nil {
		handler.Logger.WithContext(ctx).WithError(err).Warn("payment notification rejected, malformed payload")
		response.JSON(w, http.StatusOK, response.RESTEnvelope{
			Status:  status.OK,
			Message: OutcomeRejected,
		})

		return
	}

	outcome, err := handler.PaymentUseCase.OnPaymentNotification(ctx, webhookEvent)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, http.StatusInternalServerError, response.RESTEnvelope{
			Status:  status.INTERNAL_SERVER_ERROR,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: outcome.Code,
	})
}

func (handler HTTPHandler) OnReconcilePayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	reconcileEvent := ReconcilePaymentEvent{}
	if err := json.NewDecoder(r.Body).Decode(&reconcileEvent); err != nil {
		response.JSON(w, http.StatusUnprocessableEntity, response.RESTEnvelope{
			Status:  status.UNPROCESSABLE_ENTITY,
			Message: err.Error(),
		})

		return
	}

	if reconcileEvent.Reference == "" {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: "invalid 'reference' with value ''",
		})

		return
	}

	outcome, err := handler.PaymentUseCase.OnReconcilePayment(ctx, reconcileEvent)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, http.StatusInternalServerError, response.RESTEnvelope{
			Status:  status.INTERNAL_SERVER_ERROR,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: outcome.Code,
	})
}

func (handler HTTPHandler) GetManyOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	page, _ := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64)
	size, _ := strconv.ParseInt(r.URL.Query().Get("size"), 10, 64)

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}

	req := GetManyOrderRequest{Page: page, Size: size}
	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, meta, err := handler.PaymentUseCase.GetManyOrder(ctx, req)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "orders have been retrieved",
		Data:    resp,
		Meta:    meta,
	})
}
