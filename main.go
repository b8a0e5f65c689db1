package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"songwriter-go/config"
	"songwriter-go/logcolors"
	"songwriter-go/services/lyrics"
	"songwriter-go/utils"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var serveFlags struct {
	port    string
	bind    string
	dbPath  string
	syncDir string
}

var rootCmd = &cobra.Command{
	Use:   "songwriter",
	Short: "Songwriter is a local lyrics editor service.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the editor API on the local machine",
	RunE: func(cmd *cobra.Command, args []string) error {
		conf := config.Get()
		if serveFlags.port != "" {
			conf.Server.Port = serveFlags.port
		}
		if serveFlags.bind != "" {
			conf.Server.BindAddress = serveFlags.bind
		}
		if serveFlags.dbPath != "" {
			conf.Storage.DBPath = serveFlags.dbPath
		}
		if serveFlags.syncDir != "" {
			conf.Storage.SyncDir = serveFlags.syncDir
		}
		setupLogging(conf)
		return serve(conf)
	},
}

var fmtWrite bool

var fmtCmd = &cobra.Command{
	Use:   "fmt [file|-]",
	Short: "Normalize a lyrics file through parse and serialize",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "-"
		if len(args) == 1 {
			name = args[0]
		}
		text, err := readInput(cmd.InOrStdin(), name)
		if err != nil {
			return err
		}
		seq, report := lyrics.ParseWithReport(utils.NormalizeNewlines(text))
		out := lyrics.Serialize(seq)

		if fmtWrite && name != "-" {
			if report.Dropped > 0 {
				return fmt.Errorf("%s: %d of %d blocks could not be parsed, file left unchanged", name, report.Dropped, report.Blocks)
			}
			return os.WriteFile(name, []byte(out), 0644)
		}
		if report.Dropped > 0 {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: dropped %d of %d blocks\n", name, report.Dropped, report.Blocks)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [file|-]",
	Short: "Print the parsed sections of a lyrics file as JSON",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := "-"
		if len(args) == 1 {
			name = args[0]
		}
		text, err := readInput(cmd.InOrStdin(), name)
		if err != nil {
			return err
		}
		seq, report := lyrics.ParseWithReport(utils.NormalizeNewlines(text))

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(ParseResponse{
			Sections: seq,
			Labels:   seq.Labels(),
			Report:   report,
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveFlags.port, "port", "", "listen port (overrides PORT)")
	serveCmd.Flags().StringVar(&serveFlags.bind, "bind", "", "bind address (overrides BIND_ADDRESS)")
	serveCmd.Flags().StringVar(&serveFlags.dbPath, "db", "", "database path (overrides DB_PATH)")
	serveCmd.Flags().StringVar(&serveFlags.syncDir, "sync-dir", "", "mirror songs as .lyrics files in this directory (overrides SYNC_DIR)")
	rootCmd.Flags().AddFlagSet(serveCmd.Flags())

	fmtCmd.Flags().BoolVarP(&fmtWrite, "write", "w", false, "write the result back to the file")

	rootCmd.AddCommand(serveCmd, fmtCmd, inspectCmd)
}

// readInput reads a named file, or stdin for "-".
func readInput(stdin io.Reader, name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func serve(conf config.Config) error {
	app, err := newApp(conf)
	if err != nil {
		return err
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	app.startLimiterPrune(ctx.Done())

	srv := &http.Server{
		Addr:              conf.ListenAddr(),
		Handler:           app.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("%s Listening on %s", logcolors.LogServer, conf.ListenAddr())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		log.Infof("%s Shutting down", logcolors.LogServer)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warnf("%s Shutdown: %v", logcolors.LogServer, err)
		}
	}
	return nil
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
