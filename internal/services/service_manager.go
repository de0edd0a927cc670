package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chalk-edu/chalk/internal/draft"
	"github.com/chalk-edu/chalk/internal/events"
	"github.com/chalk-edu/chalk/internal/gateway"
	"github.com/chalk-edu/chalk/internal/repositories"
	"github.com/chalk-edu/chalk/internal/validator"
)

// ServiceManagerConfig holds configuration for the service manager
type ServiceManagerConfig struct {
	EnableDebugLogging bool

	// DraftTTL is how long an untouched draft is kept
	DraftTTL time.Duration
	// DraftSweepInterval is how often expired drafts are evicted
	DraftSweepInterval time.Duration
}

// Validate validates the service manager configuration
func (config *ServiceManagerConfig) Validate() error {
	var errors []string

	if config.DraftTTL <= 0 {
		errors = append(errors, "draft TTL must be positive")
	}
	if config.DraftSweepInterval <= 0 {
		errors = append(errors, "draft sweep interval must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errors)
	}
	return nil
}

// Dependencies are the infrastructure pieces shared by every service
type Dependencies struct {
	RepoManager repositories.RepositoryManager
	Publisher   events.EventPublisher
	Drafts      *draft.Store
	// Auth may be nil when the API runs without an auth service
	Auth      *gateway.Client
	Logger    *slog.Logger
	Validator *validator.Validator
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	deps   Dependencies
	repo   repositories.Repository
	logger *slog.Logger
	config ServiceManagerConfig

	exerciseService     ExerciseService
	testService         TestService
	draftService        DraftService
	courseService       CourseService
	resolutionService   ResolutionService
	importExportService ImportExportService
	sessionService      SessionService

	cancelJanitor context.CancelFunc

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a new service manager with all dependencies
func NewServiceManager(deps Dependencies, config ServiceManagerConfig) ServiceManager {
	if deps.Drafts == nil {
		deps.Drafts = draft.NewStore(config.DraftTTL)
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	return &serviceManager{
		deps:   deps,
		logger: deps.Logger,
		config: config,
	}
}

// DefaultServiceManagerConfig is the configuration used by the API binary
func DefaultServiceManagerConfig(draftTTL time.Duration) ServiceManagerConfig {
	return ServiceManagerConfig{
		EnableDebugLogging: false,
		DraftTTL:           draftTTL,
		DraftSweepInterval: time.Minute,
	}
}

// Initialize sets up all services and their dependencies
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	if err := sm.config.Validate(); err != nil {
		return err
	}
	if err := sm.initializeServices(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	janitorCtx, cancel := context.WithCancel(context.Background())
	sm.cancelJanitor = cancel
	go sm.deps.Drafts.RunJanitor(janitorCtx, sm.config.DraftSweepInterval, func(evicted int) {
		sm.logger.Info("Expired drafts evicted", "count", evicted)
	})

	sm.initialized = true
	sm.logger.Info("Service manager initialized successfully")

	return nil
}

func (sm *serviceManager) initializeServices() error {
	if sm.deps.RepoManager == nil {
		return fmt.Errorf("repository manager is required")
	}
	sm.repo = sm.deps.RepoManager.GetRepository()
	if sm.repo == nil {
		return fmt.Errorf("repository manager is not initialized")
	}

	v := sm.deps.Validator
	pub := sm.deps.Publisher

	sm.exerciseService = NewExerciseService(sm.repo, sm.logger, v, pub)
	sm.logger.Info("Exercise service initialized")

	sm.testService = NewTestService(sm.repo, sm.logger, v, pub)
	sm.logger.Info("Test service initialized")

	sm.draftService = NewDraftService(sm.deps.Drafts, sm.exerciseService, sm.testService, sm.logger, v, pub)
	sm.logger.Info("Draft service initialized")

	sm.courseService = NewCourseService(sm.repo, sm.logger, v)
	sm.logger.Info("Course service initialized")

	sm.resolutionService = NewResolutionService(sm.repo, sm.testService, sm.logger, v, pub)
	sm.logger.Info("Resolution service initialized")

	sm.importExportService = NewImportExportService(sm.repo, sm.logger, v, pub)
	sm.logger.Info("ImportExport service initialized")

	sm.sessionService = NewSessionService(sm.repo, sm.deps.Auth, sm.logger)
	sm.logger.Info("Session service initialized")

	return nil
}

// ready panics when the manager is used before Initialize. Callers hold sm.mu.
func (sm *serviceManager) ready(name string, svc interface{}) {
	if !sm.initialized {
		panic("service manager not initialized")
	}
	if svc == nil {
		panic(name + " service not initialized")
	}
}

func (sm *serviceManager) Exercise() ExerciseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("exercise", sm.exerciseService)
	return sm.exerciseService
}

func (sm *serviceManager) Test() TestService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("test", sm.testService)
	return sm.testService
}

func (sm *serviceManager) Draft() DraftService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("draft", sm.draftService)
	return sm.draftService
}

func (sm *serviceManager) Course() CourseService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("course", sm.courseService)
	return sm.courseService
}

func (sm *serviceManager) Resolution() ResolutionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("resolution", sm.resolutionService)
	return sm.resolutionService
}

func (sm *serviceManager) ImportExport() ImportExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("import/export", sm.importExportService)
	return sm.importExportService
}

func (sm *serviceManager) Session() SessionService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sm.ready("session", sm.sessionService)
	return sm.sessionService
}

// Health and lifecycle
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}

	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.deps.RepoManager.HealthCheck(ctx); err != nil {
		return fmt.Errorf("repository health check failed: %w", err)
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.cancelJanitor != nil {
		sm.cancelJanitor()
	}

	if sm.deps.Publisher != nil {
		if err := sm.deps.Publisher.Close(); err != nil {
			sm.logger.Error("Failed to close event publisher", "error", err)
		}
	}

	if sm.deps.RepoManager != nil {
		if err := sm.deps.RepoManager.Shutdown(ctx); err != nil {
			sm.logger.Error("Failed to shutdown repository manager", "error", err)
		}
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down completed")

	return nil
}

// IsInitialized returns whether the service manager has been initialized
func (sm *serviceManager) IsInitialized() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	return sm.initialized
}
