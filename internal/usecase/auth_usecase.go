package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repo/banstore"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/repository"
	"github.com/kapimkk/Projeto-Agencia-Marketing/pkg/logger/log"
)

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

type AuthUsecase interface {
	Login(ctx context.Context, req models.LoginRequest, ip string) (*LoginResult, error)
	ParseToken(ctx context.Context, token string) (*models.Principal, error)
	// EnsureAdmin creates the admin account when no admin exists yet.
	EnsureAdmin(ctx context.Context, username, password string) (bool, error)
	// CreateAdmin creates an admin account, failing when the username is taken.
	CreateAdmin(ctx context.Context, username, password string) (*models.User, error)
}

type claims struct {
	Username string      `json:"username"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// dummyHash stands in for unknown usernames so every login costs one bcrypt compare.
var dummyHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("agencia-unknown-user"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("hash dummy password: %v", err))
	}
	return hash
})

type authUsecase struct {
	userRepo repository.UserRepository
	bans     banstore.Store
	audit    AuditUsecase
	cfg      config.AuthConfig
	limits   config.RateLimitConfig
	now      func() time.Time
	compare  func(hash, password []byte) error
}

func NewAuthUsecase(
	userRepo repository.UserRepository,
	bans banstore.Store,
	audit AuditUsecase,
	cfg *config.Config,
) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		bans:     bans,
		audit:    audit,
		cfg:      cfg.Auth,
		limits:   cfg.RateLimit,
		now:      time.Now,
		compare:  bcrypt.CompareHashAndPassword,
	}
}

func HashPassword(password string) (string, error) {
	if len(password) < 6 {
		return "", models.InvalidArgument("a senha deve ter pelo menos 6 caracteres")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func (uc *authUsecase) Login(ctx context.Context, req models.LoginRequest, ip string) (*LoginResult, error) {
	if banned, err := uc.bans.IsBanned(ctx, ip); err != nil {
		log.Warnw(ctx, "check ban", "ip", ip, "error", err)
	} else if banned {
		return nil, models.ErrBanned
	}

	user, err := uc.userRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("get user: %w", err)
	}
	hash := dummyHash()
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	matches := uc.compare(hash, []byte(req.Password)) == nil
	if user == nil || !user.IsActive || !matches {
		uc.recordFailure(ctx, ip)
		return nil, models.ErrInvalidCredentials
	}

	token, expiresAt, err := uc.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("generate jwt: %w", err)
	}
	uc.audit.Record(ctx, models.Actor{UserID: user.ID.String(), IP: ip}, models.AuditLogin, user.Username)
	return &LoginResult{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// recordFailure bans ip once it exceeds the login attempt budget.
func (uc *authUsecase) recordFailure(ctx context.Context, ip string) {
	ok, err := uc.bans.Allow(ctx, "login:"+ip, uc.limits.LoginLimit, uc.limits.LoginWindow)
	if err != nil {
		log.Warnw(ctx, "count login failure", "ip", ip, "error", err)
		return
	}
	if ok {
		return
	}
	if err := uc.bans.Ban(ctx, ip, uc.limits.BanTTL); err != nil {
		log.Warnw(ctx, "ban ip", "ip", ip, "error", err)
		return
	}
	log.Warnw(ctx, "ip banned after repeated login failures", "ip", ip, "ttl", uc.limits.BanTTL)
}

func (uc *authUsecase) generateJWT(user *models.User) (string, time.Time, error) {
	now := uc.now()
	expiresAt := now.Add(uc.cfg.TokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})
	signed, err := token.SignedString([]byte(uc.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (uc *authUsecase) ParseToken(ctx context.Context, tokenString string) (*models.Principal, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (any, error) {
		return []byte(uc.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(uc.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		log.Debugw(ctx, "invalid session token", "error", err)
		return nil, models.ErrUnauthenticated
	}
	id := models.ObjectID(c.Subject)
	if !id.Valid() {
		return nil, models.ErrUnauthenticated
	}
	// deleted or deactivated accounts lose their sessions at once
	user, err := uc.userRepo.GetByID(ctx, id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, models.ErrUnauthenticated
	}
	return &models.Principal{UserID: user.ID, Username: user.Username, Role: user.Role}, nil
}

func (uc *authUsecase) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	count, err := uc.userRepo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("count admins: %w", err)
	}
	if count > 0 {
		return false, nil
	}
	if password == "" {
		log.Warnw(ctx, "no admin account exists and ADMIN_PASSWORD is empty; back-office login is disabled")
		return false, nil
	}
	if _, err := uc.CreateAdmin(ctx, username, password); err != nil {
		if errors.Is(err, models.ErrAlreadyExists) {
			return false, nil
		}
		return false, err
	}
	log.Infow(ctx, "bootstrap admin created", "username", username)
	return true, nil
}

func (uc *authUsecase) CreateAdmin(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.InvalidArgument("usuário é obrigatório")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	user := &models.User{
		Username:     username,
		Name:         username,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
