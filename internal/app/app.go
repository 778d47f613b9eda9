package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap/zapcore"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/kafka"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/server"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/usecase"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/worker"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger"
)

func Invoke(funcs ...any) *fx.App {
	log := logger.MustNamed("app")
	conf := config.MustLoad()
	if err := logger.SetLevel(conf.LogLevel); err != nil {
		log.Warnw("invalid log level", "level", conf.LogLevel, "error", err)
	}
	log.Debugw("config loaded", "environment", conf.Environment, "database", conf.Database.Driver, "kafka", conf.Kafka.Enabled)
	return fx.New(
		fx.WithLogger(func() fxevent.Logger {
			l := &fxevent.ZapLogger{
				Logger: log.Unwrap().Desugar(),
			}
			l.UseLogLevel(zapcore.DebugLevel)
			return l
		}),
		fx.Provide(
			newStores,
			newCrypto,
			newBanStore,
			newPublisher,
			newMailer,
			newPaymentClient,
			newFileStore,
			newHub,
			newBroadcaster,

			newAuditUsecase,
			newAuthUsecase,
			newOutboxUsecase,
			newLeadUsecase,
			newReviewUsecase,
			newOrderUsecase,
			usecase.NewTicketUsecase,
			usecase.NewClientUsecase,
			usecase.NewCMSUsecase,
			usecase.NewDashboardUsecase,
			newServerUsecases,

			server.NewHandler,
			server.NewEcho,
			worker.NewOutboxWorker,
			kafka.NewRelay,
		),
		fx.Supply(conf),
		fx.Invoke(funcs...),
	)
}

// Bootstrap creates the first admin account and loads the default site
// content once the stores are ready.
func Bootstrap(
	lc fx.Lifecycle,
	conf *config.Config,
	auth usecase.AuthUsecase,
	cms usecase.CMSUsecase,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if _, err := auth.EnsureAdmin(ctx, conf.Auth.AdminUsername, conf.Auth.AdminPassword); err != nil {
				return err
			}
			return cms.Seed(ctx)
		},
	})
}
