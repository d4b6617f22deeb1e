package app

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	httpx "github.com/you/scamwatch/internal/http"

	"github.com/you/scamwatch/domain"
	"github.com/you/scamwatch/internal/config"
	"github.com/you/scamwatch/internal/http/handlers"
	"github.com/you/scamwatch/internal/http/middleware"
	"github.com/you/scamwatch/internal/infrastructure/audit"
	"github.com/you/scamwatch/internal/infrastructure/auth"
	"github.com/you/scamwatch/internal/infrastructure/database"
	"github.com/you/scamwatch/internal/infrastructure/notifications"
	"github.com/you/scamwatch/internal/infrastructure/repositories"
	"github.com/you/scamwatch/internal/services"
)

// Container wires the whole service: infrastructure, repositories,
// services, handlers and the router.
type Container struct {
	Config *config.Config

	DB     *gorm.DB
	Redis  *database.RedisClient
	Casbin *auth.CasbinService

	UserRepo    domain.UserRepository
	SessionRepo domain.SessionRepository

	PasswordSvc     domain.PasswordService
	TokenSvc        domain.TokenService
	NotificationSvc domain.NotificationService
	OTPSvc          domain.OTPService
	PolicySvc       domain.PolicyService
	AuthSvc         domain.AuthService
	AuditLog        domain.AuditLogger

	Router *gin.Engine
}

// NewContainer builds every dependency and the router serving them.
func NewContainer(cfg *config.Config) (*Container, error) {
	c := &Container{Config: cfg}

	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}
	c.initRepositories()
	c.initServices()
	c.initRouter()
	if err := c.seedPolicies(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initInfrastructure() error {
	db, err := database.Open(c.Config.DSN)
	if err != nil {
		return err
	}
	if err := database.AutoMigrate(db); err != nil {
		return err
	}
	c.DB = db

	cas, err := auth.NewCasbinService(db, c.Config.CasbinModelPath)
	if err != nil {
		return err
	}
	c.Casbin = cas

	c.Redis = database.NewRedis(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB)
	return c.Redis.Ping(context.Background())
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)
	c.SessionRepo = repositories.NewSessionRepository(c.Redis.Client, c.Config.RefreshTTL)
}

func (c *Container) initServices() {
	c.AuditLog = audit.NewAuditLogger(nil)
	c.PasswordSvc = auth.NewPasswordService()
	c.TokenSvc = auth.NewJWTService(c.Config.JWTSecret, c.Config.JWTIssuer, c.Config.AccessTTL, c.Config.RefreshTTL)
	c.NotificationSvc = notifications.NewTwilioService(c.Config.TwilioSID, c.Config.TwilioToken, c.Config.TwilioFrom)

	c.OTPSvc = services.NewOTPService(c.NotificationSvc, c.UserRepo, c.Redis.Client, services.OTPConfig{
		Length:       c.Config.OTPLength,
		TTL:          c.Config.OTPTTL,
		MaxAttempts:  c.Config.OTPMaxAttempts,
		ResendWindow: c.Config.OTPResendWindow,
	})
	c.PolicySvc = services.NewPolicyService(c.Casbin.E)
	c.AuthSvc = services.NewAuthService(c.UserRepo, c.SessionRepo, c.PasswordSvc, c.TokenSvc, c.OTPSvc, c.PolicySvc)
}

func (c *Container) initRouter() {
	authH := handlers.NewAuthHandlers(c.AuthSvc, c.OTPSvc, c.UserRepo, c.AuditLog)
	polH := &handlers.PolicyHandlers{E: c.Casbin.E}
	jwtMW := middleware.NewAuthMW(c.TokenSvc, c.SessionRepo)
	casbinMW := middleware.NewCasbinMW(c.Casbin.E, c.Config.OwnershipRules, c.AuditLog)

	c.Router = httpx.BuildRouter(authH, polH, jwtMW, casbinMW)
}

// seedPolicies installs the default role grants on an empty policy
// store: admins manage everything, moderators read the policy list,
// members manage their own session and challenges.
func (c *Container) seedPolicies() error {
	policies, err := c.Casbin.E.GetPolicy()
	if err != nil {
		return err
	}
	if len(policies) > 0 {
		return nil
	}

	c.Casbin.E.AddPolicy("role_admin", "/admin/*", "(GET|POST|PUT|DELETE)")
	c.Casbin.E.AddPolicy("role_moderator", "/admin/policies", "GET")
	c.Casbin.E.AddPolicy("role_user", "/auth/me", "GET")
	c.Casbin.E.AddPolicy("role_user", "/auth/logout", "POST")
	c.Casbin.E.AddPolicy("role_user", "/auth/otp/*", "POST")
	if err := c.Casbin.E.SavePolicy(); err != nil {
		return err
	}
	log.Println("casbin: seeded default policies")
	return nil
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Redis != nil {
		c.Redis.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
