package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v82"

	"brrowbooking/internal/api"
	"brrowbooking/internal/auth"
	"brrowbooking/internal/entities"
	"brrowbooking/internal/queue"
	"brrowbooking/internal/repository"
	"brrowbooking/internal/service"
)

func main() {
	godotenv.Load()

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL not set")
	}
	database, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.WithError(err).Fatal("failed to open DB")
	}
	if err := database.Ping(); err != nil {
		log.WithError(err).Fatal("failed to connect to DB")
	}

	redisClient := newRedisClient(log)
	stripe.Key = os.Getenv("STRIPE_SECRET_KEY")
	if stripe.Key == "" {
		log.Fatal("STRIPE_SECRET_KEY not set")
	}

	rentalFees := mustFeeSchedule(log, "FEE_SCHEDULE_RENTAL", "platform:0.03,protection:0.10")
	purchaseFees := mustFeeSchedule(log, "FEE_SCHEDULE_PURCHASE", "platform:0.05")

	listingClient := service.NewHTTPListingClient(os.Getenv("LISTING_SERVICE_URL"))
	contactClient := service.NewHTTPContactClient(os.Getenv("USER_SERVICE_URL"))

	transactionRepo := repository.NewTransactionRepository(database)
	lockRepo := repository.NewSubmissionLockRepository(redisClient)
	jobRepo := repository.NewJobRepository(database)
	supportAuthRepo := repository.NewSupportAuthRepository(database)

	events := service.EventFanout{service.NewNotifyService(contactClient, log)}
	if publisher := newQueuePublisher(log); publisher != nil {
		events = append(events, publisher)
	}

	gateway := service.NewStripeGateway()
	calendarSvc := service.NewCalendarService(listingClient)
	pricingSvc := service.NewPricingService(listingClient, rentalFees, purchaseFees)
	paymentSvc := service.NewPaymentService(gateway, lockRepo, transactionRepo, listingClient, pricingSvc, events, log)
	supportSvc := service.NewSupportService(transactionRepo, gateway, log)
	supportAuthSvc := service.NewSupportAuthService(supportAuthRepo)
	jobSvc := service.NewJobService(jobRepo, lockRepo, log)

	bookingHandler := api.NewBookingHandler(calendarSvc, pricingSvc)
	paymentHandler := api.NewPaymentHandler(paymentSvc)
	supportHandler := api.NewSupportHandler(supportSvc, supportAuthSvc)
	webhookHandler := api.NewStripeWebhookHandler(os.Getenv("STRIPE_WEBHOOK_SECRET"), paymentSvc, log)

	r := mux.NewRouter()

	// Public endpoints
	r.HandleFunc("/api/listings/{id}/availability", bookingHandler.GetAvailability).Methods("GET")
	r.HandleFunc("/api/bookings/quote", bookingHandler.Quote).Methods("POST")
	r.HandleFunc("/api/payments/intent", paymentHandler.CreateIntent).Methods("POST")
	r.HandleFunc("/api/payments/{transactionId}/capture-result", paymentHandler.CaptureResult).Methods("POST")
	r.HandleFunc("/api/transactions/{id}", paymentHandler.GetTransaction).Methods("GET")
	r.HandleFunc("/api/bookings/{transactionId}/cancel", paymentHandler.CancelBooking).Methods("POST")
	r.HandleFunc("/api/stripe/webhook", webhookHandler.HandleWebhook).Methods("POST")

	// Support endpoints (protected)
	r.HandleFunc("/support/login", supportHandler.Login).Methods("POST")
	support := r.PathPrefix("/support").Subrouter()
	support.Use(auth.SupportAuthMiddleware)
	support.HandleFunc("/transactions", supportHandler.ListTransactions).Methods("GET")
	support.HandleFunc("/transactions/{id}/resolve", supportHandler.Resolve).Methods("POST")
	support.HandleFunc("/users", supportHandler.CreateUser).Methods("POST")

	startCronJobs(jobSvc, log)

	corsHandler := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "Stripe-Signature"}),
	)(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("server running")
	log.Fatal(http.ListenAndServe(":"+port, corsHandler))
}

func newRedisClient(log *logrus.Logger) *redis.Client {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}
	var client *redis.Client
	if opt, err := redis.ParseURL(redisURL); err == nil {
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(context.Background()).Err(); err != nil {
		log.WithError(err).Fatal("failed to connect to redis")
	}
	return client
}

// newQueuePublisher is best effort: the API keeps serving without the broker,
// only the queue fanout is skipped.
func newQueuePublisher(log *logrus.Logger) *queue.Publisher {
	amqpURL := os.Getenv("AMQP_URL")
	if amqpURL == "" {
		log.Warn("AMQP_URL not set, transaction events will not be queued")
		return nil
	}
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		log.WithError(err).Warn("failed to connect to rabbitmq, transaction events will not be queued")
		return nil
	}
	publisher, err := queue.NewPublisher(conn, log)
	if err != nil {
		log.WithError(err).Warn("failed to declare transactions exchange")
		return nil
	}
	return publisher
}

func mustFeeSchedule(log *logrus.Logger, envVar, fallback string) entities.FeeSchedule {
	raw := os.Getenv(envVar)
	if raw == "" {
		raw = fallback
	}
	schedule, err := entities.ParseFeeSchedule(raw)
	if err != nil {
		log.WithError(err).Fatalf("invalid %s", envVar)
	}
	return schedule
}

func startCronJobs(jobs *service.JobService, log *logrus.Logger) {
	c := cron.New()
	c.AddFunc("@every 5m", func() {
		if err := jobs.ExpireStaleSubmissions(context.Background(), 30); err != nil {
			log.WithError(err).Error("expire stale submissions job failed")
		}
		if err := jobs.EscalateStalledCaptures(context.Background(), 15); err != nil {
			log.WithError(err).Error("escalate stalled captures job failed")
		}
	})
	c.AddFunc("@hourly", func() {
		if err := jobs.CompleteFinishedRentals(); err != nil {
			log.WithError(err).Error("complete finished rentals job failed")
		}
	})
	c.Start()
}
