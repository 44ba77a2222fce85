package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/frahmantamala/project-console/internal"
	"github.com/frahmantamala/project-console/internal/api"
	"github.com/frahmantamala/project-console/internal/mail"
	mailRest "github.com/frahmantamala/project-console/internal/mail/rest"
	"github.com/frahmantamala/project-console/internal/notification"
	notificationRest "github.com/frahmantamala/project-console/internal/notification/rest"
	"github.com/frahmantamala/project-console/internal/permission"
	"github.com/frahmantamala/project-console/internal/project"
	projectRest "github.com/frahmantamala/project-console/internal/project/rest"
	"github.com/frahmantamala/project-console/internal/realtime"
	"github.com/frahmantamala/project-console/internal/session"
	sessionRest "github.com/frahmantamala/project-console/internal/session/rest"
	"github.com/frahmantamala/project-console/internal/session/sqlite"
	"github.com/frahmantamala/project-console/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:   "project-console",
	Short: "Project Console",
	Long:  `Terminal client for the project management backend: mail, notifications, projects and calendar.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*internal.Config, error) {
	// Container deployments configure through the environment only.
	if os.Getenv("APP_ENV") == "production" || os.Getenv("DOCKER_ENV") == "true" {
		cfg := internal.LoadConfigFromEnv()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("error validating config from environment: %w", err)
		}
		return cfg, nil
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.SetEnvPrefix("CONSOLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config: %w", err)
	}

	var cfg internal.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("error validating config: %w", err)
	}

	return &cfg, nil
}

// app bundles the wired services behind every command.
type app struct {
	cfg           *internal.Config
	client        *api.Client
	sessions      *session.Service
	perms         *permission.Checker
	mails         *mail.Service
	notifications *notification.Service
	projects      *project.Service
	channel       *realtime.Channel
}

func buildApp() (*app, error) {
	cfg, err := loadConfig(".")
	if err != nil {
		return nil, err
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	log := logger.LoggerWrapper()

	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open session storage: %w", err)
	}

	client := api.NewClient(api.Config{
		BaseURL:      cfg.API.BaseURL,
		ImageBaseURL: cfg.API.ImageBaseURL,
		Timeout:      cfg.API.Timeout,
	}, log)

	sessions := session.NewService(sessionRest.NewAuthRepository(client, log), store, log, cfg.Session.RefreshInterval)
	client.SetTokenSource(sessions.Token)
	client.OnSessionInvalid(sessions.Invalidate)

	perms := permission.NewChecker(sessions)
	toaster := internal.ToastFunc(func(message string) {
		fmt.Fprintln(os.Stderr, "! "+message)
	})

	a := &app{
		cfg:           cfg,
		client:        client,
		sessions:      sessions,
		perms:         perms,
		mails:         mail.NewService(mailRest.NewMailRepository(client, log), perms, toaster, log),
		notifications: notification.NewService(notificationRest.NewNotificationRepository(client, log), toaster, log),
		projects:      project.NewService(projectRest.NewProjectRepository(client, log), log),
	}
	return a, nil
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
