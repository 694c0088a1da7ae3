package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

type PaystackRepository interface {
	Initialize(ctx context.Context, req InitializeRequest) (InitializeData, error)
	Verify(ctx context.Context, reference string) (Transaction, error)
}

type paystackRepository struct {
	baseURL   string
	secretKey string
	logger    *logrus.Logger
	hc        *http.Client
}

func NewPaystackRepository(baseURL string, secretKey string, logger *logrus.Logger, hc *http.Client) PaystackRepository {
	return &paystackRepository{
		baseURL:   baseURL,
		secretKey: secretKey,
		logger:    logger,
		hc:        hc,
	}
}

func (r *paystackRepository) do(ctx context.Context, method, url string, body io.Reader, out interface{}) error {
	hr, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling paystack")
	}

	hr.Header.Add("Content-Type", "application/json")
	hr.Header.Add("Accept", "application/json")
	hr.Header.Add("Authorization", fmt.Sprintf("Bearer %s", r.secretKey))

	hresp, err := r.hc.Do(hr)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling paystack")
	}

	defer hresp.Body.Close()

	respBody, err := io.ReadAll(hresp.Body)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling paystack")
	}

	if hresp.StatusCode < 200 || hresp.StatusCode > 299 {
		r.logger.WithContext(ctx).WithField("body", string(respBody)).WithField("status_code", hresp.StatusCode).Error("paystack request rejected")
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling paystack")
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error()
		return errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while calling paystack")
	}

	return nil
}

// Initialize implements PaystackRepository.
func (r *paystackRepository) Initialize(ctx context.Context, req InitializeRequest) (InitializeData, error) {
	reqBuff, _ := json.Marshal(req)
	url := fmt.Sprintf("%s/transaction/initialize", r.baseURL)

	var resp initializeResponse
	if err := r.do(ctx, http.MethodPost, url, bytes.NewBuffer(reqBuff), &resp); err != nil {
		return InitializeData{}, err
	}

	if !resp.Status {
		r.logger.WithContext(ctx).WithField("message", resp.Message).Error("paystack initialization failed")
		return InitializeData{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while initializing payment through paystack")
	}

	return resp.Data, nil
}

// Verify implements PaystackRepository. The caller bounds this with a short
// deadline; a deadline error means not-yet-verified, not rejected.
func (r *paystackRepository) Verify(ctx context.Context, reference string) (Transaction, error) {
	url := fmt.Sprintf("%s/transaction/verify/%s", r.baseURL, reference)

	var resp verifyResponse
	if err := r.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return Transaction{}, err
	}

	if !resp.Status {
		r.logger.WithContext(ctx).WithField("message", resp.Message).Error("paystack verification failed")
		return Transaction{}, errors.New(http.StatusInternalServerError, status.INTERNAL_SERVER_ERROR, "an error occurred while verifying payment through paystack")
	}

	return resp.Data, nil
}
