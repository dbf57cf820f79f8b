// Package main is the entry point for the RebateTrack application.
// RebateTrack tracks product-tester purchases through the feedback,
// publication, and refund lifecycle.
package main

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/internal/check"
	"github.com/rebatetrack/rebatetrack/internal/config"
	"github.com/rebatetrack/rebatetrack/internal/database"
	"github.com/rebatetrack/rebatetrack/internal/notify"
	"github.com/rebatetrack/rebatetrack/internal/server"
	"github.com/rebatetrack/rebatetrack/internal/shortlink"
	"github.com/rebatetrack/rebatetrack/internal/store"
	"github.com/rebatetrack/rebatetrack/pkg/errors"
	"github.com/rebatetrack/rebatetrack/pkg/idgen"
	"github.com/rebatetrack/rebatetrack/pkg/logger"
	"github.com/rebatetrack/rebatetrack/pkg/telemetry"
)

// Build information - set via ldflags during build
// These variables are linked to consts package for global access
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

// init synchronizes build info to consts package for global access
func init() {
	consts.Version = Version
	consts.BuildTime = BuildTime
	consts.GitCommit = GitCommit
}

// configPath holds the path to the configuration file
var configPath string

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rebatetrack",
	Short: "RebateTrack - Purchase Refund Lifecycle Tracker",
	Long: `RebateTrack tracks product-tester purchases from order through feedback,
publication, and refund, and serves the data over an HTTP API.`,
}

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the RebateTrack server",
	Long: `Start the HTTP server to handle API requests.

On first run, use the check command to interactively set up your environment:
  rebatetrack check

After initial setup, simply run:
  rebatetrack serve`,
	Run: runServe,
}

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run an interactive environment check",
	Long: `Check the local environment and configuration.

This will guide you through:
  - Creating the configuration file from a template
  - Validating configuration format and database connectivity`,
	Run: func(cmd *cobra.Command, args []string) {
		checker := check.NewCheckerWithPath(resolveConfigPath())
		if err := checker.Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Environment check failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("\n✓ Environment check completed successfully")
	},
}

// backupCmd represents the backup command
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export all data as a JSON document",
	Run:   runBackup,
}

// restoreCmd represents the restore command
var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace all data with a previously exported JSON document",
	Run:   runRestore,
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("RebateTrack %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
	},
}

func init() {
	// Disable auto-generated completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path (default: "+config.DefaultConfigPath+")")

	// Add commands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(versionCmd)

	// Serve command flags
	serveCmd.Flags().String("host", "", "server host (overrides config)")
	serveCmd.Flags().Int("port", 0, "server port (overrides config)")
	serveCmd.Flags().Bool("debug", false, "enable debug mode")
	serveCmd.Flags().String("db-backend", "", "storage backend (overrides config)")
	serveCmd.Flags().String("db-path", "", "database file path (overrides config)")

	// Backup/restore flags
	backupCmd.Flags().String("out", "", "output file (defaults to stdout)")
	restoreCmd.Flags().String("in", "", "input file containing the backup document")
	restoreCmd.MarkFlagRequired("in")
	restoreCmd.Flags().Bool("yes", false, "skip the confirmation prompt")
}

func main() {
	// Load .env if present; environment overrides still apply on top of YAML
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// resolveConfigPath returns the config path from the flag or the default
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	return config.DefaultConfigPath
}

// runServe starts the RebateTrack server
func runServe(cmd *cobra.Command, args []string) {
	// Run non-interactive environment check first
	checker := check.NewCheckerWithPath(resolveConfigPath())
	result := checker.RunNonInteractive()

	if !result.Success {
		check.PrintCheckResult(result)
		os.Exit(1)
	}

	// Print warnings if any (but don't block startup)
	if len(result.Warnings) > 0 {
		for _, warn := range result.Warnings {
			fmt.Fprintf(os.Stderr, "[WARNING] %s\n", warn)
		}
		fmt.Fprintln(os.Stderr)
	}

	// Record server start time
	consts.SetStartedAt(time.Now())

	// Load configuration
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Override config with command line flags
	if host, _ := cmd.Flags().GetString("host"); host != "" {
		cfg.Server.Host = host
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		cfg.Server.Debug = true
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "text"
	}
	if backend, _ := cmd.Flags().GetString("db-backend"); backend != "" {
		cfg.Database.Backend = backend
	}
	if path, _ := cmd.Flags().GetString("db-path"); path != "" {
		cfg.Database.Path = path
	}
	if validationErr := config.ValidateDatabaseConfig(&cfg.Database); validationErr != nil {
		fmt.Fprintf(os.Stderr, "Invalid database configuration: %v\n", validationErr)
		os.Exit(errors.ExitCodeConfigValidation)
	}

	// Auto-generate JWT secret if empty and save to config file
	if cfg.Admin != nil && cfg.Admin.Enabled && strings.TrimSpace(cfg.Admin.JWTSecret) == "" {
		newSecret := idgen.NewSecureSecret(32)
		cfg.Admin.JWTSecret = newSecret

		if err := config.UpdateJWTSecretInConfig(resolveConfigPath(), newSecret); err != nil {
			fmt.Fprintf(os.Stderr, "[WARNING] Failed to save JWT secret to config file: %v\n", err)
			fmt.Fprintf(os.Stderr, "Using auto-generated JWT secret for this session only.\n")
			fmt.Fprintf(os.Stderr, "Please manually add jwt_secret to your config file to persist across restarts.\n\n")
		} else {
			fmt.Fprintf(os.Stderr, "[INFO] JWT secret was empty, auto-generated and saved to config file.\n\n")
		}
	}

	// Validate admin configuration
	if validationErr := config.ValidateAdminConfig(cfg.Admin); validationErr != nil {
		fmt.Fprintf(os.Stderr, "\n[ERROR] Admin configuration validation failed\n")
		fmt.Fprintf(os.Stderr, "Error Code: %s\n", validationErr.Code)
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", validationErr)

		// Print context-specific configuration hints based on error type
		switch validationErr.Code {
		case errors.ErrCodeJWTSecretInvalid:
			fmt.Fprintf(os.Stderr, "JWT secret is invalid or too short.\n")
			fmt.Fprintf(os.Stderr, "Please configure JWT secret in your config file:\n")
			fmt.Fprintf(os.Stderr, "  admin:\n")
			fmt.Fprintf(os.Stderr, "    jwt_secret: \"%s\"\n\n", idgen.NewSecureSecret(32))
		case errors.ErrCodeAdminCredentialsEmpty:
			fmt.Fprintf(os.Stderr, "Please configure admin credentials in your config file:\n")
			fmt.Fprintf(os.Stderr, "  admin:\n")
			fmt.Fprintf(os.Stderr, "    username: \"admin\"\n")
			fmt.Fprintf(os.Stderr, "    password_hash: \"<bcrypt hash>\"\n\n")
		default:
			fmt.Fprintf(os.Stderr, "Please check admin configuration in your config file.\n\n")
		}

		os.Exit(errors.ExitCodeConfigValidation)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting RebateTrack",
		zap.String("version", Version),
		zap.String("backend", cfg.Database.Backend),
	)

	// Initialize telemetry (OpenTelemetry traces and metrics)
	tel, err := telemetry.New(cfg.Telemetry)
	if err != nil {
		logger.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		// Graceful shutdown with timeout
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tel.Shutdown(ctx); err != nil {
			logger.Error("Failed to shutdown telemetry", zap.Error(err))
		}
	}()

	// Open the configured database backend
	db, err := database.Open(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	// Start the short link cleanup service
	links := shortlink.NewService(db,
		time.Duration(cfg.ShortLinks.TTLHours)*time.Hour,
		cfg.ShortLinks.CleanupSchedule,
	)
	if err := links.Start(); err != nil {
		logger.Fatal("Failed to start short link service", zap.Error(err))
	}
	defer links.Stop()

	// Webhook notifier; Noop when no URL is configured
	notifier := notify.FromConfig(&cfg.Notifications)

	// Create and configure server
	srv := server.New(cfg, db, links, notifier)
	srv.SetupRoutes()

	// Start server
	if err := srv.Start(); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}

	logger.Info("RebateTrack server is running",
		zap.String("address", cfg.Server.Address()),
	)

	// Log access URLs for user convenience
	port := cfg.Server.Port
	logger.Info(fmt.Sprintf("  Local:   http://localhost:%d/api/v1", port))
	if lanIP := getLocalIP(); lanIP != "" {
		logger.Info(fmt.Sprintf("  Network: http://%s:%d/api/v1", lanIP, port))
	}

	// Wait for shutdown
	srv.WaitForShutdown()

	logger.Info("RebateTrack stopped")
}

// openFromConfig loads the config and opens the configured backend.
// Used by the backup and restore commands.
func openFromConfig() (store.Database, error) {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return database.Open(cfg.Database)
}

// runBackup exports all data as JSON to a file or stdout
func runBackup(cmd *cobra.Command, args []string) {
	db, err := openFromConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close()

	backuper, ok := db.(store.Backuper)
	if !ok {
		fmt.Fprintf(os.Stderr, "backend %s does not support backup\n", db.Backend())
		os.Exit(1)
	}

	data, err := backuper.BackupJSON(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "backup failed: %v\n", err)
		os.Exit(1)
	}

	out, _ := cmd.Flags().GetString("out")
	if out == "" {
		fmt.Println(string(data))
		return
	}

	if err := os.WriteFile(out, data, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", out, err)
		os.Exit(1)
	}
	fmt.Printf("Backup written to %s (%d bytes)\n", out, len(data))
}

// runRestore replaces all data with the contents of a backup document
func runRestore(cmd *cobra.Command, args []string) {
	in, _ := cmd.Flags().GetString("in")
	data, err := os.ReadFile(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to read %s: %v\n", in, err)
		os.Exit(1)
	}

	yes, _ := cmd.Flags().GetBool("yes")
	if !yes && !confirmRestore(in) {
		fmt.Println("Restore cancelled")
		return
	}

	db, err := openFromConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer db.Close()

	backuper, ok := db.(store.Backuper)
	if !ok {
		fmt.Fprintf(os.Stderr, "backend %s does not support restore\n", db.Backend())
		os.Exit(1)
	}

	if err := backuper.RestoreJSON(context.Background(), data); err != nil {
		fmt.Fprintf(os.Stderr, "restore failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Restore completed from %s\n", in)
}

// confirmRestore asks for confirmation before replacing all data
func confirmRestore(path string) bool {
	fmt.Printf("This will REPLACE all data with the contents of %s.\n", path)
	fmt.Print("Type 'yes' to continue: ")

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(line) == "yes"
}

// getLocalIP returns the first non-loopback IPv4 address
func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
