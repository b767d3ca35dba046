// Copyright (C) 2025 GhostCut AI (dev@ghostcut.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrator provides the editor daemon for GhostLocal.
//
// This package contains the main service type that coordinates all
// components of the daemon: the timeline mutation engine, the assistant
// pipeline, the media engine, preference and artifact storage, the
// interaction audit trail, the websocket broadcast hub, and the
// observability infrastructure.
//
// # Enterprise Integration
//
// The orchestrator supports dependency injection via
// extensions.ServiceOptions, enabling GhostCut Enterprise to provide
// custom implementations of:
//   - AuthProvider: Custom authentication (JWT, API keys)
//   - InteractionAuditor: Compliance-grade audit storage
//   - InstructionFilter: PII detection and redaction
//
// # Usage
//
// Open source (uses local defaults):
//
//	cfg := orchestrator.Config{Port: 12210}
//	svc, err := orchestrator.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Run()
//
// Enterprise (with custom implementations):
//
//	opts := &extensions.ServiceOptions{
//	    AuthProvider: enterpriseAuth,
//	    Auditor:      enterpriseAudit,
//	}
//	svc, err := orchestrator.New(cfg, opts)
//
// # Import Path
//
// Enterprise imports this package as:
//
//	import "github.com/GhostCutAI/GhostLocal/services/orchestrator"
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/GhostCutAI/GhostLocal/pkg/extensions"
	"github.com/GhostCutAI/GhostLocal/services/artifacts"
	"github.com/GhostCutAI/GhostLocal/services/assistant"
	"github.com/GhostCutAI/GhostLocal/services/history"
	"github.com/GhostCutAI/GhostLocal/services/llm"
	"github.com/GhostCutAI/GhostLocal/services/media"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/broadcast"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/middleware"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/observability"
	"github.com/GhostCutAI/GhostLocal/services/orchestrator/routes"
	"github.com/GhostCutAI/GhostLocal/services/policy_engine"
	"github.com/GhostCutAI/GhostLocal/services/preferences"
	"github.com/GhostCutAI/GhostLocal/services/timeline"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the editor daemon.
//
// # Description
//
// Service abstracts the daemon lifecycle, enabling testing and
// alternative implementations. Only essential lifecycle methods are
// exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
//
// # Assumptions
//
//   - Service is fully initialized before Run() is called
//   - Run() is called at most once per Service instance
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	//
	// # Outputs
	//
	//   - error: Non-nil if the server fails to start or encounters a
	//     fatal error
	Run() error

	// Router returns the underlying Gin engine for testing.
	//
	// # Description
	//
	// Provides access to the configured router, primarily for
	// integration testing where direct HTTP calls are needed.
	//
	// # Limitations
	//
	//   - Should not be used to modify routes after construction
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds daemon configuration options.
//
// # Description
//
// Config centralizes all configuration for the daemon. Values can be
// populated from environment variables, config files, or
// programmatically for testing.
//
// # Required Fields
//
// None - all fields have sensible defaults.
type Config struct {
	// Port is the HTTP server port. Default: 12210
	Port int

	// LLMBackend specifies the LLM provider.
	// Valid values: "ollama", "openai"
	// Default: "ollama"
	LLMBackend string

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "localhost:4317"
	OTelEndpoint string

	// DataDir is the root for all daemon state: preferences.json,
	// artifacts/, history/, and media/ live under it.
	// Default: ~/.ghostcut
	DataDir string

	// VideoRoot overrides where uploads/ and exports/ are created.
	// Default: <DataDir>/media
	VideoRoot string

	// GenerationTimeout bounds one model call end to end.
	// Default: 60s
	GenerationTimeout time.Duration

	// ConfidenceThreshold is the plan admission cutoff.
	// Default: 0.6
	ConfidenceThreshold float64

	// ArtifactMaxAge is how long prompt/response/error artifacts are
	// kept before the sweeper deletes them. Default: 7 days.
	ArtifactMaxAge time.Duration

	// RateLimitRPS and RateLimitBurst shape the token bucket on the
	// assistant endpoints. RateLimitRPS <= 0 disables limiting.
	// Defaults: 5 rps, burst 10.
	RateLimitRPS   float64
	RateLimitBurst int

	// EnableMetrics registers the Prometheus collectors. Registration
	// is global and once-only, so tests leave this off; the ghostd
	// entrypoint enables it by default.
	EnableMetrics bool

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: whatever GIN_MODE says, or "debug"
	GinMode string
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Description
//
// service is the main implementation that coordinates:
//   - HTTP routing via Gin
//   - the single-writer timeline engine
//   - the assistant generation/apply pipeline
//   - media probing, transcoding, and rendering via ffmpeg
//   - preference, artifact, and audit storage
//   - websocket state broadcast
//   - OpenTelemetry tracing and Prometheus metrics
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	opts          extensions.ServiceOptions
	router        *gin.Engine
	engine        *timeline.Engine
	mediaEngine   *media.Engine
	mediaDirs     media.Dirs
	llmClient     llm.LLMClient
	policyEngine  *policy_engine.PolicyEngine
	prefs         *preferences.Manager
	artifactStore *artifacts.Store
	sweeper       *artifacts.Sweeper
	historyStore  *history.Store
	hub           *broadcast.Hub
	assistant     *assistant.Assistant
	limiter       *rate.Limiter
	tracerCleanup func(context.Context)

	// rootCtx drives background workers (preference watcher, artifact
	// sweeper). rootCancel stops them on shutdown.
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// =============================================================================
// Constructor
// =============================================================================

// New creates the daemon with the given configuration.
//
// # Description
//
// New initializes all daemon components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics (when enabled)
//  4. Loads the instruction policy engine
//  5. Creates the LLM client for the configured backend
//  6. Opens preference, artifact, and history storage
//  7. Builds the media engine and resolves the video directories
//  8. Wires the broadcast hub into the timeline engine as its sink
//  9. Assembles the assistant pipeline
//  10. Sets up HTTP routes with extension options
//
// If opts is nil, no-op extensions are used, except the auditor: the
// local history store backs it unless the caller supplied one.
//
// # Inputs
//
//   - cfg: Daemon configuration. Zero values use defaults.
//   - opts: Extension options for enterprise features. May be nil.
//
// # Outputs
//
//   - Service: Ready-to-run daemon
//   - error: Non-nil if initialization fails
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}
	if opts != nil {
		s.opts = *opts
	}
	if s.opts.AuthProvider == nil {
		s.opts.AuthProvider = &extensions.NopAuthProvider{}
	}
	if s.opts.InstructionFilter == nil {
		s.opts.InstructionFilter = &extensions.NopInstructionFilter{}
	}

	if err := s.resolveDataDirs(); err != nil {
		return nil, err
	}

	s.rootCtx, s.rootCancel = context.WithCancel(context.Background())

	cleanup, err := s.initTracer()
	if err != nil {
		s.rootCancel()
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	if s.config.EnableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics")
	}

	s.policyEngine, err = policy_engine.NewPolicyEngine()
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	if err := s.initStorage(); err != nil {
		s.cleanup()
		return nil, err
	}

	if err := s.initMedia(); err != nil {
		s.cleanup()
		return nil, err
	}

	s.hub = broadcast.NewHub()
	s.engine = timeline.NewEngine(timeline.WithStateSink(s.hub))

	s.assistant, err = assistant.New(assistant.Config{
		Engine:              s.engine,
		LLM:                 s.llmClient,
		Preferences:         s.prefs,
		Artifacts:           s.artifactStore,
		Policy:              s.policyEngine,
		Extensions:          s.opts,
		Errors:              s.hub,
		GenerationTimeout:   s.config.GenerationTimeout,
		ConfidenceThreshold: s.config.ConfidenceThreshold,
	})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to assemble assistant: %w", err)
	}

	if s.config.RateLimitRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(s.config.RateLimitRPS), s.config.RateLimitBurst)
	}

	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
// Cleanup is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting GhostCut daemon",
		"port", s.config.Port,
		"llm_backend", s.config.LLMBackend,
		"data_dir", s.config.DataDir,
	)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values. Path
// defaults depend on the home directory and are resolved separately in
// resolveDataDirs.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12210
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "localhost:4317"
	}
	if cfg.GenerationTimeout == 0 {
		cfg.GenerationTimeout = assistant.DefaultGenerationTimeout
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 5
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 10
	}
	return cfg
}

// resolveDataDirs fixes the storage layout under DataDir.
func (s *service) resolveDataDirs() error {
	if s.config.DataDir == "" {
		dir, err := preferences.DefaultDir()
		if err != nil {
			return fmt.Errorf("failed to resolve data directory: %w", err)
		}
		s.config.DataDir = dir
	}
	if s.config.VideoRoot == "" {
		s.config.VideoRoot = filepath.Join(s.config.DataDir, "media")
	}
	return nil
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// # Description
//
// Sets up the OTLP trace exporter to send spans to the configured
// collector.
//
// # Outputs
//
//   - func(context.Context): Cleanup function to call on shutdown
//   - error: Non-nil if tracer setup fails
//
// # Limitations
//
//   - Uses an insecure gRPC connection (appropriate for a local
//     collector)
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("ghostcut-orchestrator")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initLLMClient creates the model client for the configured backend.
func (s *service) initLLMClient() error {
	var err error

	switch s.config.LLMBackend {
	case "ollama":
		s.llmClient, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	case "openai":
		s.llmClient, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	default:
		return fmt.Errorf("unknown LLM backend %q (want ollama or openai)", s.config.LLMBackend)
	}

	return err
}

// initStorage opens the preference file, the artifact store with its
// retention sweeper, and the history store. The history store becomes
// the interaction auditor unless the caller injected one.
func (s *service) initStorage() error {
	var err error

	s.prefs, err = preferences.NewManager(s.config.DataDir, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open preferences: %w", err)
	}
	if err := s.prefs.Watch(s.rootCtx); err != nil {
		slog.Warn("preference file watcher unavailable", "error", err)
	}

	s.artifactStore, err = artifacts.NewStore(filepath.Join(s.config.DataDir, "artifacts"), slog.Default())
	if err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}

	sweepCfg := artifacts.DefaultSweeperConfig()
	if s.config.ArtifactMaxAge > 0 {
		sweepCfg.MaxAge = s.config.ArtifactMaxAge
	}
	s.sweeper = artifacts.NewSweeper(s.artifactStore, sweepCfg, slog.Default())
	if err := s.sweeper.Start(s.rootCtx); err != nil {
		slog.Warn("artifact sweeper failed to start", "error", err)
	}

	s.historyStore, err = history.Open(history.DefaultConfig(filepath.Join(s.config.DataDir, "history")))
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	if s.opts.Auditor == nil {
		s.opts.Auditor = s.historyStore
	}

	return nil
}

// initMedia resolves the uploads/exports directories and builds the
// ffmpeg wrapper.
func (s *service) initMedia() error {
	var err error

	s.mediaDirs, err = media.ResolveDirs(s.config.VideoRoot)
	if err != nil {
		return fmt.Errorf("failed to resolve video directories: %w", err)
	}
	s.mediaEngine = media.NewEngine()

	return nil
}

// initRouter sets up the Gin HTTP router with middleware and routes.
//
// gin.New is used instead of gin.Default so request logging goes
// through slog like everything else; Recovery stays.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	s.router = gin.New()
	s.router.Use(gin.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.RequestLogger(slog.Default()))
	s.router.Use(otelgin.Middleware("ghostcut-orchestrator"))

	routes.SetupRoutes(s.router, routes.Dependencies{
		Engine:    s.engine,
		Media:     s.mediaEngine,
		MediaDirs: s.mediaDirs,
		Assistant: s.assistant,
		Artifacts: s.artifactStore,
		Prefs:     s.prefs,
		Hub:       s.hub,
		Auth:      s.opts.AuthProvider,
		Auditor:   s.opts.Auditor,
		Limiter:   s.limiter,
	})
}

// cleanup releases all resources held by the service.
//
// # Description
//
// Called when Run() exits or on initialization failure. Stops
// background workers, closes storage, and shuts down the tracer.
func (s *service) cleanup() {
	if s.rootCancel != nil {
		s.rootCancel()
	}

	if s.sweeper != nil {
		if err := s.sweeper.Stop(); err != nil {
			slog.Warn("artifact sweeper stop error", "error", err)
		}
	}

	if s.historyStore != nil {
		if err := s.historyStore.Close(); err != nil {
			slog.Warn("history store close error", "error", err)
		}
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
