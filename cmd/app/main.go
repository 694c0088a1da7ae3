package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/KendrickOdei/fastTix-sub000/config"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/account"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/auth"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/event"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/order"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/payment"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/paystack"
	"github.com/KendrickOdei/fastTix-sub000/internal/module/customerapp/ticket"
	internalJWT "github.com/KendrickOdei/fastTix-sub000/internal/pkg/jwt"
	internalMiddleware "github.com/KendrickOdei/fastTix-sub000/internal/pkg/middleware"
	"github.com/KendrickOdei/fastTix-sub000/internal/pkg/session"
	"github.com/KendrickOdei/fastTix-sub000/pkg/applogger"
	"github.com/KendrickOdei/fastTix-sub000/pkg/gctasks"
	"github.com/KendrickOdei/fastTix-sub000/pkg/kafka"
	"github.com/KendrickOdei/fastTix-sub000/pkg/middleware"
	"github.com/KendrickOdei/fastTix-sub000/pkg/monitoring"
	"github.com/KendrickOdei/fastTix-sub000/pkg/postgresql"
	"github.com/KendrickOdei/fastTix-sub000/pkg/pubsub"
	"github.com/KendrickOdei/fastTix-sub000/pkg/redis"
	"github.com/KendrickOdei/fastTix-sub000/pkg/server"
	"github.com/KendrickOdei/fastTix-sub000/pkg/validator"
)

func main() {
	c := config.Get()
	logger := applogger.GetLogrus()

	mon := monitoring.NewOpenTelemetry(c.Application.Name, c.Application.Environment, c.GCP.ProjectID)
	mon.Start(context.Background())

	validate := validator.Get()
	jsonWebToken := internalJWT.NewJSONWebToken(c.JWT.PrivateKey, c.JWT.PublicKey)

	db := postgresql.GetDatabase()
	redisClient := redis.GetClient()

	kafkaProducer := kafka.NewProducer()
	publisher := pubsub.PublisherFromConfluentKafkaProducer(logger, kafkaProducer)

	cloudTask := gctasks.NewGCTasks(logger, c.GCP.ProjectID, c.GCP.ServiceAccount)

	sessionStore := session.NewRedisSessionStore(logger, redisClient)

	accountRepository := account.NewAccountRepository(logger, db)
	eventRepository := event.NewEventRepository(logger, db)
	ticketTypeRepository := ticket.NewTicketTypeRepository(logger, db)
	orderRepository := order.NewOrderRepository(logger, db)
	paystackRepository := paystack.NewPaystackRepository(c.Paystack.BaseURL, c.Paystack.SecretKey, logger, http.DefaultClient)

	customerSession := internalMiddleware.NewCustomerSessionMiddleware(logger, jsonWebToken, sessionStore, accountRepository)

	authUseCase := auth.NewAuthUseCase(auth.AuthUseCaseProperty{
		Logger:               logger,
		Timeout:              c.Application.Timeout,
		JSONWebToken:         jsonWebToken,
		SessionStore:         sessionStore,
		AccountRepository:    accountRepository,
		AccessTokenDuration:  c.JWT.AccessTokenDuration,
		RefreshTokenDuration: c.JWT.RefreshTokenDuration,
	})

	paymentUseCase := payment.NewPaymentUseCase(payment.PaymentUseCaseProperty{
		Logger:               logger,
		Timeout:              c.Application.Timeout,
		BaseURL:              c.Application.FastTix.BaseURL,
		Currency:             c.Paystack.Currency,
		PaymentExpiration:    c.Payment.Expiration,
		VerifyTimeout:        c.Paystack.VerifyTimeout,
		EventRepository:      eventRepository,
		TicketTypeRepository: ticketTypeRepository,
		OrderRepository:      orderRepository,
		PaystackRepository:   paystackRepository,
		Publisher:            publisher,
		CloudTask:            cloudTask,
	})

	router := mux.NewRouter()
	router.Use(otelmux.Middleware(c.Application.Name))

	auth.InitHTTPHandler(router, customerSession, validate, authUseCase)
	payment.InitHTTPHandler(router, customerSession, logger, validate, c.Paystack.SecretKey, paymentUseCase)

	httpRequestLogger := middleware.NewHTTPRequestLogger(logger, c.Application.Debug, http.StatusInternalServerError)

	handler := middleware.SetChain(
		router,
		middleware.HTTPResponseTraceInjection,
		httpRequestLogger.Middleware,
		cors.New(cors.Options{
			AllowedOrigins:   c.CORS.AllowedOrigins,
			AllowedMethods:   c.CORS.AllowedMethods,
			AllowedHeaders:   c.CORS.AllowedHeaders,
			ExposedHeaders:   c.CORS.ExposedHeaders,
			MaxAge:           c.CORS.MaxAge,
			AllowCredentials: c.CORS.AllowCredentials,
		}).Handler,
	)

	srv := &server.Server{
		Logger: logger,
		Server: http.Server{
			Addr:    fmt.Sprintf(":%d", c.Application.Port),
			Handler: handler,
		},
	}

	go srv.ListenAndServe()

	sigterm := make(chan os.Signal, 1)
	signal.Notify(sigterm, os.Interrupt, syscall.SIGTERM)
	<-sigterm

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.Application.Timeout)
	defer cancel()

	srv.Shutdown(shutdownCtx)
	publisher.Close()

	if cloudTask != nil {
		cloudTask.Close()
	}

	if err := db.Close(); err != nil {
		logger.WithError(err).Error("failed to close database")
	}

	if err := redisClient.Close(); err != nil {
		logger.WithError(err).Error("failed to close redis client")
	}

	mon.Stop(context.Background())
}
