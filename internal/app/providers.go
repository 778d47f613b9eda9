package app

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/banstore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/events"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/filestore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/mailer"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/mongodb"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/payment"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/sqlstore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/server"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/server/ws"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/usecase"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/crypto"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

func newStores(lc fx.Lifecycle, cfg *config.Config) (*repository.Stores, error) {
	if cfg.Database.Driver == config.DriverMongo {
		db, err := newMongoDB(lc, cfg)
		if err != nil {
			return nil, err
		}
		return mongodb.NewStores(db), nil
	}

	db, err := sqlstore.Open(context.Background(), cfg.Database.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Database.SQLitePath, err)
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return db.Close()
		},
	})
	return sqlstore.NewStores(db), nil
}

func newMongoDB(lc fx.Lifecycle, cfg *config.Config) (*mongodb.DB, error) {
	opts := options.Client().
		SetAppName("agencia-web").
		ApplyURI(cfg.Database.URI)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	mongoClient, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("init mongo client: %w", err)
	}

	db := &mongodb.DB{
		Client:   mongoClient,
		Database: mongoClient.Database(cfg.Database.Name),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := mongoClient.Ping(ctx, nil); err != nil {
				return fmt.Errorf("ping mongo: %w", err)
			}
			return mongodb.Migrate(ctx, db)
		},
		OnStop: func(ctx context.Context) error {
			return mongoClient.Disconnect(ctx)
		},
	})
	return db, nil
}

func newCrypto(cfg *config.Config) (crypto.Client, error) {
	if cfg.EncryptionKey == "" {
		if cfg.IsProduction() {
			return nil, crypto.ErrKeyRequired
		}
		log.Warnw(context.Background(), "ENCRYPTION_KEY is empty; leads and chat messages are stored in plain text")
		return crypto.Nop(), nil
	}
	return crypto.NewClient(cfg.EncryptionKey)
}

func newBanStore(lc fx.Lifecycle, cfg *config.Config) (banstore.Store, error) {
	if cfg.Redis.URL == "" {
		return banstore.NewMemory(), nil
	}
	store, client, err := banstore.NewRedis(cfg.Redis.URL)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	return store, nil
}

func newPublisher(lc fx.Lifecycle, cfg *config.Config) (events.Publisher, error) {
	if !cfg.Kafka.Enabled {
		return events.NewNop(), nil
	}
	publisher, err := events.NewKafkaPublisher(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return publisher.Close()
		},
	})
	return publisher, nil
}

func newMailer(cfg *config.Config) mailer.Sender {
	return mailer.New(cfg.Mail)
}

func newPaymentClient(cfg *config.Config) payment.Client {
	return payment.NewClient(cfg.Payment, cfg.Server.BaseURL)
}

func newFileStore(cfg *config.Config) (filestore.Store, error) {
	return filestore.New(cfg.Upload)
}

// newHub accepts same-origin sockets and the origins allowed by CORS.
func newHub(cfg *config.Config) (*ws.Hub, error) {
	origins, err := regexp.Compile(cfg.Server.AllowOrigins)
	if err != nil {
		return nil, fmt.Errorf("compile allowed origins: %w", err)
	}
	return ws.NewHub(func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host || origins.MatchString(origin)
	}), nil
}

func newBroadcaster(hub *ws.Hub) usecase.TicketBroadcaster {
	return hub
}

func newAuditUsecase(stores *repository.Stores) usecase.AuditUsecase {
	return usecase.NewAuditUsecase(stores.Audit)
}

func newAuthUsecase(stores *repository.Stores, bans banstore.Store, audit usecase.AuditUsecase, cfg *config.Config) usecase.AuthUsecase {
	return usecase.NewAuthUsecase(stores.Users, bans, audit, cfg)
}

func newOutboxUsecase(stores *repository.Stores, sender mailer.Sender, audit usecase.AuditUsecase, cfg *config.Config) (usecase.OutboxUsecase, error) {
	return usecase.NewOutboxUsecase(stores.Outbox, sender, audit, cfg.Outbox)
}

func newLeadUsecase(
	stores *repository.Stores,
	cryptoClient crypto.Client,
	files filestore.Store,
	publisher events.Publisher,
	outbox usecase.OutboxUsecase,
	audit usecase.AuditUsecase,
	cfg *config.Config,
) usecase.LeadUsecase {
	return usecase.NewLeadUsecase(stores.Leads, cryptoClient, files, publisher, outbox, audit, cfg)
}

func newReviewUsecase(stores *repository.Stores, audit usecase.AuditUsecase) usecase.ReviewUsecase {
	return usecase.NewReviewUsecase(stores.Reviews, audit)
}

func newOrderUsecase(
	stores *repository.Stores,
	gateway payment.Client,
	publisher events.Publisher,
	outbox usecase.OutboxUsecase,
	cfg *config.Config,
) usecase.OrderUsecase {
	return usecase.NewOrderUsecase(stores.Orders, stores.Plans, gateway, publisher, outbox, cfg)
}

type usecases struct {
	fx.In

	Auth      usecase.AuthUsecase
	Tickets   usecase.TicketUsecase
	Leads     usecase.LeadUsecase
	Reviews   usecase.ReviewUsecase
	Orders    usecase.OrderUsecase
	Clients   usecase.ClientUsecase
	CMS       usecase.CMSUsecase
	Dashboard usecase.DashboardUsecase
	Outbox    usecase.OutboxUsecase
	Audit     usecase.AuditUsecase
}

func newServerUsecases(uc usecases) server.Usecases {
	return server.Usecases{
		Auth:      uc.Auth,
		Tickets:   uc.Tickets,
		Leads:     uc.Leads,
		Reviews:   uc.Reviews,
		Orders:    uc.Orders,
		Clients:   uc.Clients,
		CMS:       uc.CMS,
		Dashboard: uc.Dashboard,
		Outbox:    uc.Outbox,
		Audit:     uc.Audit,
	}
}
