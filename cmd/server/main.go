package main

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/activitymap"
	"github.com/goliatone/go-accounts/cmd/server/config"
	"github.com/goliatone/go-accounts/middleware/csrf"
	cfs "github.com/goliatone/go-composite-fs"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	mflash "github.com/goliatone/go-router/middleware/flash"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

//go:embed views
var embeddedFS embed.FS

//go:embed data/fixtures/*.yml
var fixturesFS embed.FS

type App struct {
	config *gconfig.Container[*config.BaseConfig]
	bunDB  *bun.DB
	auth   accounts.Authenticator
	auther accounts.HTTPAuthenticator
	repo   accounts.RepositoryManager
	mailer accounts.Mailer
	srv    router.Server[*fiber.App]
	logger *glog.BaseLogger
}

func (a *App) Config() *config.BaseConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {

	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("accounts"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.BaseConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		panic(err)
	}

	fmt.Println("============")
	fmt.Println(print.MaybeHighlightJSON(cfg.Raw()))
	fmt.Println("============")

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithPersistence(ctx, app); err != nil {
		panic(err)
	}

	if err := WithMailer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPServer(ctx, app); err != nil {
		panic(err)
	}

	if err := WithHTTPAuth(ctx, app); err != nil {
		panic(err)
	}

	app.srv.Serve(app.Config().GetServer().GetAddr())

	WaitExitSignal()

}

func WithPersistence(ctx context.Context, app *App) error {
	cfg := app.Config().GetPersistence()

	db, err := sql.Open(sqliteshim.ShimName, cfg.GetDSN())
	if err != nil {
		log.Fatal(err)
		return err
	}

	persistence.RegisterModel((*accounts.User)(nil))
	persistence.RegisterModel((*accounts.VerificationToken)(nil))

	dialect := sqlitedialect.New()
	client, err := persistence.New(cfg, db, dialect)
	if err != nil {
		log.Fatal(err)
		return err
	}

	client.SetLogger(app.GetLogger("persistence"))

	migrationsFS, err := fs.Sub(accounts.GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}
	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel("data/sql/migrations"),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		return err
	}

	if err := client.Migrate(ctx); err != nil {
		return err
	}

	if cfg.GetSeed() {
		client.RegisterFixtures(fixturesFS)
		if err := client.Seed(ctx); err != nil {
			return err
		}
	}

	if report := client.Report(); report != nil && !report.IsZero() {
		fmt.Printf("report: %s\n", report.String())
	}

	app.bunDB = client.DB()
	app.repo = accounts.NewRepositoryManager(client.DB())

	return nil
}

func WithMailer(_ context.Context, app *App) error {
	cfg := app.Config().GetSMTP()

	if !cfg.GetEnabled() {
		app.mailer = accounts.PrintMailer{}
		return nil
	}

	mailer := accounts.NewSMTPMailer(cfg)
	mailer.Logger = app.GetLogger("mailer")
	app.mailer = mailer

	return nil
}

func WithHTTPServer(_ context.Context, app *App) error {
	vcfg := app.Config().GetViews()
	viewLogger := app.GetLogger("views")

	templateDir := vcfg.GetDirFS()

	embeddedTemplates, err := fs.Sub(embeddedFS, templateDir)
	if err != nil {
		return fmt.Errorf("unable to scope embedded templates to %q: %w", templateDir, err)
	}

	// Disk overrides embedded during development, so it comes first.
	diskTemplates := os.DirFS(templateDir)
	var templatesFS fs.FS = cfs.NewCompositeFS(diskTemplates, embeddedTemplates)

	vcfg.DirFS = "."
	vcfg.SetTemplatesFS([]fs.FS{templatesFS})
	vcfg.SetTemplateFunctions(accounts.TemplateHelpers())

	engine, err := router.InitializeViewEngine(vcfg, viewLogger)
	if err != nil {
		return err
	}

	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			EnablePrintRoutes: true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})

	srv.Router().WithLogger(app.GetLogger("router"))

	srv.Router().Use(mflash.New(mflash.ConfigDefault))

	authCfg := app.Config().GetAuth()
	srv.Router().Use(csrf.New(csrf.Config{
		SecureKey: authCfg.GetCSRFKey(),
		// Tokens bind to the session cookie once signed in, IP before that.
		Identifier: func(c router.Context) string {
			if session := c.Cookies(authCfg.GetContextKey()); session != "" {
				return "csrf_session_" + session
			}
			return "csrf_ip_" + c.IP()
		},
	}))
	csrf.RegisterRoutes(srv.Router())

	srv.Router().Get("/", func(ctx router.Context) error {
		return ctx.Render("home", accounts.MergeTemplateData(ctx, router.ViewContext{
			"title": "Accounts",
		}))
	})

	app.srv = srv

	return nil
}

type userTrackerAdapter struct {
	users accounts.Users
}

func (a userTrackerAdapter) GetByIdentifier(ctx context.Context, identifier string) (*accounts.User, error) {
	return a.users.GetByIdentifier(ctx, identifier)
}

func (a userTrackerAdapter) TrackAttemptedLogin(ctx context.Context, user *accounts.User) error {
	return a.users.TrackAttemptedLogin(ctx, user)
}

func (a userTrackerAdapter) TrackSucccessfulLogin(ctx context.Context, user *accounts.User) error {
	return a.users.TrackSucccessfulLogin(ctx, user)
}

func WithHTTPAuth(_ context.Context, app *App) error {
	cfg := app.Config().GetAuth()

	if err := app.repo.Validate(); err != nil {
		return err
	}

	userProvider := accounts.NewUserProvider(userTrackerAdapter{users: app.repo.Users()})
	userProvider.WithLogger(app.GetLogger("auth:prv"))

	authenticator := accounts.NewAuthenticator(userProvider, cfg)
	authenticator.WithLogger(app.GetLogger("auth:authz"))

	app.auth = authenticator

	httpAuth, err := accounts.NewHTTPAuthenticator(authenticator, cfg)
	if err != nil {
		return err
	}
	httpAuth.Logger = app.GetLogger("auth:http")

	app.auther = httpAuth

	protected := httpAuth.ProtectedRoute(cfg, httpAuth.MakeClientRouteAuthErrorHandler(false))

	activityLogger := app.GetLogger("accounts:activity")
	sink := accounts.ActivitySinkFunc(func(_ context.Context, event accounts.ActivityEvent) error {
		record := activitymap.Normalize(event)
		activityLogger.Info("activity",
			"verb", record.Verb,
			"actor_id", record.ActorID,
			"object_type", record.ObjectType,
			"object_id", record.ObjectID,
			"channel", record.Channel,
		)
		return nil
	})

	policy := accounts.DefaultPasswordPolicy()
	policy.MinLength = cfg.GetPasswordMinLength()

	accounts.RegisterAccountRoutes(app.srv.Router().Group("/"),
		protected,
		accounts.WithControllerRepo(app.repo),
		accounts.WithControllerAuther(httpAuth),
		accounts.WithControllerMailer(app.mailer),
		accounts.WithControllerLogger(app.GetLogger("accounts:ctrl")),
		accounts.WithControllerSessionKey(cfg.GetContextKey()),
		accounts.WithControllerActivitySink(sink),
		accounts.WithControllerBaseURL(app.Config().GetServer().GetBaseURL()),
		accounts.WithControllerPasswordPolicy(policy),
		accounts.WithControllerTokenTTL(cfg.GetVerificationTokenTTL()),
	)

	return nil
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
