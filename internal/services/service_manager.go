package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/etraincon/learning-service/internal/events"
	"github.com/etraincon/learning-service/internal/mail"
	"github.com/etraincon/learning-service/internal/repositories"
	"github.com/etraincon/learning-service/internal/validator"
)

// ServiceManagerConfig holds the settings shared by the services.
type ServiceManagerConfig struct {
	SiteURL       string
	ResetTokenTTL time.Duration
	BcryptCost    int
	Clock         Clock
}

// Dependencies are the collaborators the services are built from.
type Dependencies struct {
	Mailer    mail.Mailer
	Publisher events.EventPublisher
	Generator QuizGenerator
	Files     CourseFiles
	Validator *validator.Validator
	Logger    *slog.Logger
}

// serviceManager implements ServiceManager interface
type serviceManager struct {
	repoManager repositories.RepositoryManager
	deps        Dependencies
	config      ServiceManagerConfig

	authService    AuthService
	profileService ProfileService
	quizService    QuizService

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

func NewServiceManager(repoManager repositories.RepositoryManager, deps Dependencies, config ServiceManagerConfig) ServiceManager {
	return &serviceManager{
		repoManager: repoManager,
		deps:        deps,
		config:      config,
	}
}

// Initialize builds every service. It is a no-op once initialized.
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	logger := sm.deps.Logger
	logger.Info("Initializing service manager")

	if err := sm.deps.validate(); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}
	repo := sm.repoManager.GetRepository()
	if repo == nil {
		return errors.New("failed to initialize services: repository not initialized")
	}

	sm.authService = NewAuthService(repo, sm.deps.Mailer, sm.deps.Publisher, sm.deps.Validator, logger.With("service", "auth"), sm.config)
	sm.profileService = NewProfileService(repo, logger.With("service", "profile"))
	sm.quizService = NewQuizService(repo, sm.deps.Generator, sm.deps.Files, sm.deps.Publisher, sm.deps.Validator, logger.With("service", "quiz"))

	sm.initialized = true
	logger.Info("Service manager initialized successfully")

	return nil
}

func (d Dependencies) validate() error {
	switch {
	case d.Mailer == nil:
		return errors.New("mailer is required")
	case d.Publisher == nil:
		return errors.New("event publisher is required")
	case d.Generator == nil:
		return errors.New("quiz generator is required")
	case d.Files == nil:
		return errors.New("course file store is required")
	case d.Validator == nil:
		return errors.New("validator is required")
	case d.Logger == nil:
		return errors.New("logger is required")
	}
	return nil
}

// Service getters
func (sm *serviceManager) Auth() AuthService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.authService
}

func (sm *serviceManager) Profile() ProfileService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.profileService
}

func (sm *serviceManager) Quiz() QuizService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.quizService
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

	if err := sm.repoManager.HealthCheck(ctx); err != nil {
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

	sm.deps.Logger.Info("Shutting down service manager")

	if err := sm.repoManager.Shutdown(ctx); err != nil {
		sm.deps.Logger.Error("Failed to shutdown repository manager", "error", err)
	}

	sm.shutdown = true
	sm.deps.Logger.Info("Service manager shut down completed")

	return nil
}
