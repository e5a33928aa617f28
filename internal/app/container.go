package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/wanderstay/escrow-backend/internal/account"
	"github.com/wanderstay/escrow-backend/internal/api"
	"github.com/wanderstay/escrow-backend/internal/auth"
	"github.com/wanderstay/escrow-backend/internal/clock"
	"github.com/wanderstay/escrow-backend/internal/dispute"
	"github.com/wanderstay/escrow-backend/internal/escrow"
	"github.com/wanderstay/escrow-backend/internal/events"
	"github.com/wanderstay/escrow-backend/internal/evidence"
	"github.com/wanderstay/escrow-backend/internal/funds"
	"github.com/wanderstay/escrow-backend/internal/reputation"
	"github.com/wanderstay/escrow-backend/internal/scheduler"
	"github.com/wanderstay/escrow-backend/internal/vendors"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int

	AMQPURL      string
	AMQPExchange string
	EvidenceDir  string

	SweepInterval       time.Duration
	CancelWindow        time.Duration
	DefaultBuffer       time.Duration
	MaxReputationImpact int
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	Sweeper    *scheduler.Scheduler
	Events     events.Publisher
	JWTManager *auth.JWTManager
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	clk := clock.System{}

	// Domain events go to AMQP when a broker is configured, otherwise to
	// the in-process bus.
	var bus events.Publisher
	if cfg.AMQPURL != "" {
		amqpBus, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect event broker: %w", err)
		}
		bus = amqpBus
	} else {
		bus = events.NewMemoryBus()
	}

	// Evidence Store
	evidenceStore, err := evidence.NewFSStore(cfg.EvidenceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init evidence store: %w", err)
	}

	// Account Module
	accountRepo := account.NewPgxRepository(cfg.DBPool)
	accountService := account.NewService(accountRepo, passwordHasher)

	// Vendor Module
	vendorRepo := vendor.NewPgxRepository(cfg.DBPool)
	vendorService := vendor.NewService(vendorRepo)
	reputationEngine := reputation.NewEngine(vendorRepo)

	// Funds Custody
	custody := funds.NewPgxCustody(cfg.DBPool)

	// Escrow Module
	escrowRepo := escrow.NewPgxRepository(cfg.DBPool)
	escrowService := escrow.NewService(escrowRepo, custody, vendorService, clk, bus, escrow.Policy{
		CancelWindow:  cfg.CancelWindow,
		DefaultBuffer: cfg.DefaultBuffer,
	})

	// Dispute Module
	disputeRepo := dispute.NewPgxRepository(cfg.DBPool)
	disputeService := dispute.NewService(disputeRepo, escrowService, reputationEngine, clk, bus, cfg.MaxReputationImpact)

	// Timeout Scheduler
	sweeper := scheduler.New(escrowService, clk, cfg.SweepInterval)

	// CORS origins
	var origins []string
	if cfg.IsProduction && cfg.ProdOrigins != "" {
		for _, o := range strings.Split(cfg.ProdOrigins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
	}

	// Router
	router := api.NewRouter(api.RouterDeps{
		AccountService: accountService,
		VendorService:  vendorService,
		EscrowService:  escrowService,
		DisputeService: disputeService,
		EvidenceStore:  evidenceStore,
		Sweeper:        sweeper,
		JWTManager:     jwtManager,
		AllowOrigins:   origins,
	})

	return &Container{
		Router:     router,
		Sweeper:    sweeper,
		Events:     bus,
		JWTManager: jwtManager,
	}, nil
}
