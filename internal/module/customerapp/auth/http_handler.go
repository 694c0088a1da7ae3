package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	internalMiddleware "github.com/KendrickOdei/fastTix-sub000/internal/pkg/middleware"
	"github.com/KendrickOdei/fastTix-sub000/pkg/errors"
	publicMiddleware "github.com/KendrickOdei/fastTix-sub000/pkg/middleware"
	"github.com/KendrickOdei/fastTix-sub000/pkg/response"
	"github.com/KendrickOdei/fastTix-sub000/pkg/status"
)

const (
	refreshCookieName = "fasttix_refresh_token"
	refreshCookiePath = "/fasttix/v1/customerapp/auth"
)

type HTTPHandler struct {
	Validate    *validator.Validate
	AuthUseCase AuthUseCase
}

func InitHTTPHandler(router *mux.Router, customerSession *internalMiddleware.CustomerSession, validate *validator.Validate, authUseCase AuthUseCase) {
	handler := &HTTPHandler{
		Validate:    validate,
		AuthUseCase: authUseCase,
	}

	router.HandleFunc("/fasttix/v1/customerapp/auth/login", publicMiddleware.SetRouteChain(handler.Login)).Methods(http.MethodPost)
	router.HandleFunc("/fasttix/v1/customerapp/auth/refresh", publicMiddleware.SetRouteChain(handler.Refresh)).Methods(http.MethodPost)
	router.HandleFunc("/fasttix/v1/customerapp/auth/logout", publicMiddleware.SetRouteChain(handler.Logout)).Methods(http.MethodPost)
	router.HandleFunc("/fasttix/v1/customerapp/auth/logout-all", publicMiddleware.SetRouteChain(handler.LogoutAll, customerSession.Verify)).Methods(http.MethodPost)
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

// refreshTokenFromRequest prefers the auth-scoped cookie and falls back to
// the request body.
func refreshTokenFromRequest(r *http.Request, bodyToken string) string {
	if c, err := r.Cookie(refreshCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	return bodyToken
}

func setRefreshCookie(w http.ResponseWriter, token string, expiresAt time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    token,
		Path:     refreshCookiePath,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

func (handler HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := LoginRequest{}
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

	resp, err := handler.AuthUseCase.Login(ctx, req)
	if err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	setRefreshCookie(w, resp.RefreshToken, resp.RefreshTokenExpiresAt)
	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "successfully logged in",
		Data:    resp,
	})
}

func (handler HTTPHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := RefreshRequest{}
	_ = json.NewDecoder(r.Body).Decode(&req)
	req.RefreshToken = refreshTokenFromRequest(r, req.RefreshToken)

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	resp, err := handler.AuthUseCase.Refresh(ctx, req)
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
		Message: "token has been successfully refreshed",
		Data:    resp,
	})
}

func (handler HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req := LogoutRequest{}
	_ = json.NewDecoder(r.Body).Decode(&req)
	req.RefreshToken = refreshTokenFromRequest(r, req.RefreshToken)
	req.AccessToken = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	if err := handler.validate(ctx, req); err != nil {
		response.JSON(w, http.StatusBadRequest, response.RESTEnvelope{
			Status:  status.BAD_REQUEST,
			Message: err.Error(),
		})

		return
	}

	if err := handler.AuthUseCase.Logout(ctx, req); err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	clearRefreshCookie(w)
	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "successfully logged out",
	})
}

func (handler HTTPHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := handler.AuthUseCase.LogoutAll(ctx); err != nil {
		ae := errors.Destruct(err)
		response.JSON(w, ae.HTTPStatusCode, response.RESTEnvelope{
			Status:  ae.Status,
			Message: ae.Message,
		})

		return
	}

	clearRefreshCookie(w)
	response.JSON(w, http.StatusOK, response.RESTEnvelope{
		Status:  status.OK,
		Message: "all sessions have been revoked",
	})
}
