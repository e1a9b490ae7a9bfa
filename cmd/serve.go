package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/BioHazard786/Roomcast/internal/server"
	"github.com/BioHazard786/Roomcast/internal/ui"
	"github.com/spf13/cobra"
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the signaling relay server",
	Long: `Run the websocket signaling relay that rooms negotiate through.
The relay never sees media, only offer/answer/candidate payloads.

Examples:
  roomcast serve
  roomcast serve --addr :9000`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(flagServeAddr)
	},
}

func runServer(addr string) error {
	hub := server.NewHub()
	go hub.Run()

	srv := &http.Server{
		Addr:         addr,
		Handler:      server.NewMux(hub),
		ReadTimeout:  0, // websocket connections are long-lived
		WriteTimeout: 0,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("signaling server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	ui.PrintInfof("Signaling server listening on %s", addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-sig:
	}

	slog.Info("shutting down signaling server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&flagServeAddr, "addr", ":8080", "Listen address")
}
