package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"github.com/stripe/stripe-go/v82"

	"parkly/internal/api"
	"parkly/internal/auth"
	"parkly/internal/config"
	"parkly/internal/db"
	"parkly/internal/entities"
	"parkly/internal/repository"
	"parkly/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	database, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	if err := database.Ping(); err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	if err := db.Migrate(context.Background(), database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	stripe.Key = cfg.StripeSecretKey

	bookingRepo := repository.NewBookingRepository(database)
	paymentRepo := repository.NewPaymentRepository(database)
	balanceRepo := repository.NewBalanceRepository(database)
	withdrawalRepo := repository.NewWithdrawalRepository(database)
	cleanupRepo := repository.NewCleanupRepository(database)
	contactRepo := repository.NewContactRepository(database)

	notifier := service.NewNotifier(
		contactRepo,
		service.NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridFrom, cfg.SendGridFromName),
		service.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber),
	)

	bookingSvc := service.NewBookingService(bookingRepo)
	balanceSvc := service.NewBalanceService(balanceRepo, cfg.CommissionRate)
	paymentSvc := service.NewPaymentService(paymentRepo, bookingRepo, balanceSvc, service.NewStripeProvider(cfg.Currency), cfg.Currency)
	withdrawalSvc := service.NewWithdrawalService(withdrawalRepo, balanceSvc)
	cleanupSvc := service.NewCleanupService(cleanupRepo, cfg.ReservationExpiry)

	bookingHandler := api.NewBookingHandler(bookingSvc, notifier)
	paymentHandler := api.NewPaymentHandler(paymentSvc, notifier)
	balanceHandler := api.NewBalanceHandler(balanceSvc)
	withdrawalHandler := api.NewWithdrawalHandler(withdrawalSvc, notifier)
	webhookHandler := api.NewStripeWebhookHandler(cfg.StripeWebhookSecret, paymentSvc, notifier)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/webhooks/stripe", webhookHandler.HandleWebhook).Methods("POST")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Authenticated endpoints
	authed := r.PathPrefix("/api").Subrouter()
	authed.Use(auth.Middleware(cfg.JWTSecret))

	authed.HandleFunc("/reservations", bookingHandler.CreateReservation).Methods("POST")
	authed.HandleFunc("/reservations", bookingHandler.ListMyReservations).Methods("GET")
	authed.HandleFunc("/reservations/{id}", bookingHandler.GetReservation).Methods("GET")
	authed.HandleFunc("/reservations/{id}", bookingHandler.CancelReservation).Methods("DELETE")
	authed.HandleFunc("/reservations/{id}/confirm", bookingHandler.ConfirmReservation).Methods("POST")
	authed.HandleFunc("/reservations/{id}/complete", bookingHandler.CompleteReservation).Methods("POST")
	authed.HandleFunc("/parkings/{id}/reservations", bookingHandler.ListParkingReservations).Methods("GET")

	authed.HandleFunc("/payments/intent", paymentHandler.CreateIntent).Methods("POST")
	authed.HandleFunc("/payments", paymentHandler.ListMyPayments).Methods("GET")
	authed.HandleFunc("/payments/{id}", paymentHandler.GetPayment).Methods("GET")
	authed.HandleFunc("/payments/{id}/refund", paymentHandler.RefundPayment).Methods("POST")

	// Owner endpoints
	owner := authed.PathPrefix("").Subrouter()
	owner.Use(auth.RequireRoles(entities.RoleOwner, entities.RoleAdmin))
	owner.HandleFunc("/balance", balanceHandler.GetMyBalance).Methods("GET")
	owner.HandleFunc("/balance/transactions", balanceHandler.ListMyTransactions).Methods("GET")
	owner.HandleFunc("/balance/stats", balanceHandler.GetMyStats).Methods("GET")
	owner.HandleFunc("/withdrawals", withdrawalHandler.CreateRequest).Methods("POST")
	owner.HandleFunc("/withdrawals", withdrawalHandler.ListMyRequests).Methods("GET")
	owner.HandleFunc("/withdrawals/{id}", withdrawalHandler.GetRequest).Methods("GET")

	// Admin endpoints
	admin := authed.PathPrefix("/admin").Subrouter()
	admin.Use(auth.RequireRoles(entities.RoleAdmin))
	admin.HandleFunc("/withdrawals", withdrawalHandler.ListAllRequests).Methods("GET")
	admin.HandleFunc("/withdrawals/mark-all-paid", withdrawalHandler.MarkAllPaid).Methods("POST")
	admin.HandleFunc("/withdrawals/{id}", withdrawalHandler.DecideRequest).Methods("PUT")
	admin.HandleFunc("/balances", balanceHandler.ListSummaries).Methods("GET")

	// Expiry sweep. SkipIfStillRunning keeps overlapping sweeps from piling up
	// on a slow database.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %s", cfg.SweepInterval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
		defer cancel()
		if _, err := cleanupSvc.SweepExpired(ctx); err != nil {
			log.Printf("Cron Job: sweep run failed: %v", err)
		}
	}); err != nil {
		log.Fatalf("Failed to schedule expiry sweep: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Stripe-Signature"}),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handlers.LoggingHandler(os.Stdout, corsHandler(r)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Println("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
