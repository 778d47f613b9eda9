package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/app"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/kafka"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/server"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/usecase"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/worker"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

var rootCmd = &cobra.Command{
	Use:           "agencia-web",
	Short:         "Agency website, checkout and support chat",
	SilenceUsage:  true,
	SilenceErrors: true,
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server and its background workers",
	Run: func(cmd *cobra.Command, args []string) {
		serve()
	},
}

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create a back-office admin account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		app.Invoke(createAdmin(username, password)).Run()
		return nil
	},
}

func init() {
	createAdminCmd.Flags().String("username", "admin", "admin username")
	createAdminCmd.Flags().String("password", "", "admin password (at least 6 characters)")
	_ = createAdminCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, createAdminCmd)
}

func serve() {
	app.Invoke(
		app.Bootstrap,
		server.StartServer,
		worker.StartOutboxWorker,
		kafka.StartRelay,
	).Run()
}

func createAdmin(username, password string) func(fx.Lifecycle, fx.Shutdowner, usecase.AuthUsecase) {
	return func(lc fx.Lifecycle, sd fx.Shutdowner, auth usecase.AuthUsecase) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				user, err := auth.CreateAdmin(ctx, username, password)
				if err != nil {
					return err
				}
				log.Infow(ctx, "admin created", "username", user.Username, "id", user.ID)
				return sd.Shutdown()
			},
		})
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
