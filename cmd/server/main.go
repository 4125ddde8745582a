package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-manager/internal/auth"
	"expense-manager/internal/config"
	"expense-manager/internal/handlers"
	"expense-manager/internal/storage"

	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	db, err := storage.NewDB(cfg.DBPath)
	if err != nil {
		slog.Error("open database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer db.Close()

	if err := ensureAdminUser(db); err != nil {
		slog.Error("bootstrap admin user", "error", err)
		os.Exit(1)
	}

	h := handlers.NewHandlers(db, cfg.TemplateDir, cfg.SecureCookie, cfg.SessionDuration)
	mux := setupRouter(h, cfg.StaticDir)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        mux,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 16,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting server", "port", cfg.Port, "db", cfg.DBPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				if err := db.CleanExpiredSessions(); err != nil {
					slog.Warn("clean expired sessions", "error", err)
				}
			}
		}
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped gracefully")
}

// setupRouter builds the route table. Expense data routes sit behind the
// session gate; login and registration do not.
func setupRouter(h *handlers.Handlers, staticDir string) *http.ServeMux {
	gated := func(fn http.HandlerFunc) http.Handler { return h.AuthMiddleware(fn) }

	mux := http.NewServeMux()
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))

	mux.HandleFunc("GET /login", h.LoginForm)
	mux.HandleFunc("POST /login", h.Login)
	mux.HandleFunc("GET /register", h.RegisterForm)
	mux.HandleFunc("POST /register", h.Register)
	mux.HandleFunc("GET /logout", h.Logout)

	mux.Handle("GET /add", gated(h.AddExpenseForm))
	mux.Handle("POST /save", gated(h.SaveExpense))
	mux.Handle("GET /view", gated(h.ViewExpenses))
	mux.Handle("GET /edit/{id}", gated(h.EditExpenseForm))
	mux.Handle("POST /update/{id}", gated(h.UpdateExpense))
	mux.Handle("GET /delete/{id}", gated(h.DeleteExpense))
	mux.Handle("GET /summary/{period}", gated(h.Summary))
	mux.Handle("GET /graph/{period}", gated(h.Graph))

	mux.HandleFunc("GET /{$}", h.Home)

	return mux
}

// ensureAdminUser creates the account named by ADMIN_USER/ADMIN_PASSWORD if
// it does not exist yet. Useful for fresh deployments and the e2e harness.
func ensureAdminUser(db *storage.DB) error {
	username := os.Getenv("ADMIN_USER")
	if username == "" {
		return nil
	}
	if _, err := db.GetUserByUsername(username); err == nil {
		return nil
	}

	hash, err := auth.HashPassword(os.Getenv("ADMIN_PASSWORD"))
	if err != nil {
		return err
	}
	user, err := db.CreateUser(username, hash)
	if err != nil {
		return err
	}
	slog.Info("created admin user", "username", username, "id", user.ID)
	return nil
}
