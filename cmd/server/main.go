package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"dept-file-transfer/internal/identity"
	"dept-file-transfer/internal/server"
)

func main() {
	addr := getenvDefault("DFT_ADDR", ":8080")
	root := getenvDefault("DFT_ROOT", "/srv/fileserver")
	adminAddr := os.Getenv("DFT_ADMIN_ADDR")

	ioTimeout, err := parseTimeout(os.Getenv("DFT_IO_TIMEOUT"))
	if err != nil {
		log.Printf("service=server msg=%q err=%v", "bad_io_timeout", err)
		os.Exit(1)
	}

	// The department directories are normally provisioned externally with
	// the right group ownership; creating missing ones here keeps a fresh
	// host usable, but ownership is left to the operator.
	if err := ensureDirectories(root); err != nil {
		log.Printf("service=server msg=%q err=%v", "bootstrap_failed", err)
		os.Exit(1)
	}

	store, err := buildIdentityStore()
	if err != nil {
		log.Printf("service=server msg=%q err=%v", "identity_store_failed", err)
		os.Exit(1)
	}

	srv, err := server.New(server.Config{
		Addr:      addr,
		Root:      root,
		Store:     store,
		IOTimeout: ioTimeout,
		Logger:    server.NewLoggerFromEnv(),
	})
	if err != nil {
		log.Printf("service=server msg=%q err=%v", "config_invalid", err)
		os.Exit(1)
	}

	// Start the TCP server in a background goroutine so we can listen for
	// OS signals while it runs.
	errCh := make(chan error, 1)
	go func() {
		log.Printf("service=server msg=%q addr=%s root=%s", "starting", addr, root)
		errCh <- srv.Start()
	}()

	// Optional admin surface for probes and metrics.
	var adminSrv *http.Server
	if adminAddr != "" {
		adminSrv = &http.Server{
			Addr:              adminAddr,
			Handler:           srv.AdminHandler(),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("service=server msg=%q addr=%s", "admin_listening", adminAddr)
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("service=server msg=%q err=%v", "admin_error", err)
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("service=server msg=%q signal=%s", "shutting_down", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if adminSrv != nil {
			_ = adminSrv.Shutdown(ctx)
		}
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("service=server msg=%q err=%v", "shutdown_error", err)
			os.Exit(1)
		}
		log.Printf("service=server msg=%q", "shutdown_complete")
	case err := <-errCh:
		if err != nil {
			log.Printf("service=server msg=%q err=%v", "server_error", err)
			os.Exit(1)
		}
	}
}

// buildIdentityStore selects the account database backend: the host's
// passwd/group files (default) or the central directory database.
func buildIdentityStore() (identity.Store, error) {
	switch backend := getenvDefault("DFT_IDENTITY", "files"); backend {
	case "files":
		s := identity.NewFilesStore()
		if p := os.Getenv("DFT_PASSWD_FILE"); p != "" {
			s.PasswdPath = p
		}
		if g := os.Getenv("DFT_GROUP_FILE"); g != "" {
			s.GroupPath = g
		}
		return s, nil
	case "postgres":
		db, err := identity.OpenDB(os.Getenv("DATABASE_URL"))
		if err != nil {
			return nil, err
		}
		log.Printf("service=server msg=%q", "running_migrations")
		if err := identity.RunMigrations(db); err != nil {
			return nil, err
		}
		log.Printf("service=server msg=%q", "migrations_complete")
		return identity.NewPostgresStore(db), nil
	default:
		return nil, &server.ConfigValidationError{
			Field:   "DFT_IDENTITY",
			Message: "unknown backend " + backend,
		}
	}
}

// ensureDirectories creates the storage root and the two department
// directories when missing.
func ensureDirectories(root string) error {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	for _, dept := range identity.Departments {
		dir := filepath.Join(root, string(dept))
		if err := os.MkdirAll(dir, 0o775); err != nil {
			return err
		}
	}
	return nil
}

func parseTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	return time.ParseDuration(raw)
}

// getenvDefault reads an environment variable and returns a default value
// if not set.
func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
