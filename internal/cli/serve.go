package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"focus-billing/database"
	"focus-billing/internal/api/checkout"
	entitlementsapi "focus-billing/internal/api/entitlements"
	"focus-billing/internal/api/prices"
	stripewebhooks "focus-billing/internal/api/stripewebhook"
	routes "focus-billing/internal/app/http"
	"focus-billing/internal/app/http/middleware"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := database.Migrate(ctx, a.db); err != nil {
		return err
	}

	var auth middleware.Authenticator
	if a.cfg.Auth.OIDCIssuer != "" {
		auth, err = middleware.NewOIDCAuthenticator(ctx, a.cfg.Auth.OIDCIssuer, a.cfg.Auth.OIDCClientID)
		if err != nil {
			return err
		}
	} else {
		auth = middleware.NewJWTAuthenticator(a.cfg.Auth.JWTSecret)
	}

	router := routes.NewRouter(a.cfg, a.log, auth, routes.Handlers{
		Webhook:      stripewebhooks.NewHandler(a.cfg.Stripe.WebhookSecret, a.store, a.reconciler, a.log),
		Checkout:     checkout.NewHandler(a.guard),
		Entitlements: entitlementsapi.NewHandler(a.store),
		Prices:       prices.NewHandler(a.stripe, a.catalog, a.cfg.Stripe.PricesCacheTTL, a.log),
	})

	srv := &http.Server{
		Addr:              ":" + a.cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Infow("http server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Infow("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
