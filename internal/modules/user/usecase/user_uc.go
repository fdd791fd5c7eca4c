package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Puzz-patch/party-puzzle-palooza-sub000/internal/modules/user/domain"
	"github.com/Puzz-patch/party-puzzle-palooza-sub000/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 6
	issuer         = "party-puzzle-palooza"
)

// Options tunes token lifetimes and hashing cost.
type Options struct {
	JWTSecret       string
	TokenDuration   time.Duration
	RefreshDuration time.Duration
	BcryptCost      int
}

// Claims is the JWT payload. The subject carries the player id.
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserUseCase handles accounts, logins and token checks.
type UserUseCase struct {
	repo domain.UserRepository
	opts Options
	now  func() time.Time
}

func NewUserUseCase(repo domain.UserRepository, opts Options) *UserUseCase {
	if opts.TokenDuration <= 0 {
		opts.TokenDuration = 24 * time.Hour
	}
	if opts.RefreshDuration <= 0 {
		opts.RefreshDuration = 7 * 24 * time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &UserUseCase{repo: repo, opts: opts, now: time.Now}
}

func (uc *UserUseCase) Register(ctx context.Context, username, password, displayName string) (int64, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return 0, errors.New("username and password are required")
	}
	if len(password) < minPasswordLen {
		return 0, fmt.Errorf("password must be at least %d characters", minPasswordLen)
	}

	exists, err := uc.repo.UsernameExists(ctx, username)
	if err != nil {
		return 0, err
	}
	if exists {
		return 0, domain.ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), uc.opts.BcryptCost)
	if err != nil {
		return 0, fmt.Errorf("failed to hash password: %w", err)
	}

	if displayName == "" {
		displayName = username
	}
	user := &domain.User{
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: string(hash),
		Status:       domain.UserStatusActive,
	}
	if err := uc.repo.Create(ctx, user); err != nil {
		return 0, err
	}

	logger.Info(ctx).Int64("user_id", user.UserID).Str("username", username).Msg("👤 [Identity] registered")
	return user.UserID, nil
}

func (uc *UserUseCase) Login(ctx context.Context, username, password string) (*domain.TokenPair, error) {
	user, err := uc.repo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	if !user.IsActive() {
		return nil, domain.ErrAccountInactive
	}

	token, expiresAt, err := uc.issueToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	now := uc.now()
	if err := uc.repo.CreateSession(ctx, &domain.Session{
		SessionID: refresh,
		UserID:    user.UserID,
		Token:     token,
		ExpiresAt: now.Add(uc.opts.RefreshDuration),
	}); err != nil {
		return nil, err
	}
	if err := uc.repo.UpdateLastLogin(ctx, user.UserID, now); err != nil {
		logger.Warn(ctx).Err(err).Int64("user_id", user.UserID).Msg("👤 [Identity] last login not recorded")
	}

	logger.Info(ctx).Int64("user_id", user.UserID).Msg("👤 [Identity] login")
	return &domain.TokenPair{
		UserID:       user.UserID,
		Token:        token,
		RefreshToken: refresh,
		ExpiresAt:    expiresAt,
	}, nil
}

// ValidateToken returns the player id, username and expiry carried by token.
func (uc *UserUseCase) ValidateToken(_ context.Context, token string) (int64, string, time.Time, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(uc.opts.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(uc.now),
	)
	if err != nil || !parsed.Valid {
		return 0, "", time.Time{}, fmt.Errorf("%w: %v", domain.ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, "", time.Time{}, fmt.Errorf("%w: bad subject %q", domain.ErrInvalidToken, claims.Subject)
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return userID, claims.Username, expiresAt, nil
}

// Logout drops the sessions minted alongside token.
func (uc *UserUseCase) Logout(ctx context.Context, token string) error {
	return uc.repo.DeleteSessionsByToken(ctx, token)
}

func (uc *UserUseCase) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	session, err := uc.repo.GetSession(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if uc.now().After(session.ExpiresAt) {
		_ = uc.repo.DeleteSession(ctx, session.SessionID)
		return nil, domain.ErrSessionExpired
	}

	user, err := uc.repo.GetByID(ctx, session.UserID)
	if err != nil {
		return nil, err
	}
	if !user.IsActive() {
		return nil, domain.ErrAccountInactive
	}

	token, expiresAt, err := uc.issueToken(user)
	if err != nil {
		return nil, err
	}
	if err := uc.repo.UpdateSessionToken(ctx, session.SessionID, token); err != nil {
		return nil, err
	}

	return &domain.TokenPair{
		UserID:       user.UserID,
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    expiresAt,
	}, nil
}

func (uc *UserUseCase) issueToken(user *domain.User) (string, time.Time, error) {
	now := uc.now()
	expiresAt := now.Add(uc.opts.TokenDuration)

	claims := Claims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.FormatInt(user.UserID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(uc.opts.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
