package auth

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/reelscout/reelscout/internal/config"
	"github.com/reelscout/reelscout/internal/database"
)

//nolint:gosec // settings key, not a credential
const jwtSecretSettingKey = "session_jwt_secret"

// Service registers users, checks credentials and issues session tokens.
type Service struct {
	users      *UserRepository
	jwtSecret  []byte
	bcryptCost int
	sessionTTL time.Duration
	logger     zerolog.Logger

	// dummyHash keeps failed lookups as slow as failed password checks.
	dummyHash []byte
}

// NewService creates the auth service. An empty configured secret is
// loaded from the settings table, or generated and stored there.
func NewService(db *database.DB, cfg config.AuthConfig, logger zerolog.Logger) (*Service, error) {
	secret := []byte(cfg.JWTSecret)
	if len(secret) == 0 {
		var err error
		secret, err = loadOrGenerateSecret(db)
		if err != nil {
			return nil, err
		}
	}

	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare password hasher: %w", err)
	}

	return &Service{
		users:      NewUserRepository(db),
		jwtSecret:  secret,
		bcryptCost: cost,
		sessionTTL: ttl,
		logger:     logger.With().Str("component", "auth").Logger(),
		dummyHash:  dummy,
	}, nil
}

func loadOrGenerateSecret(db *database.DB) ([]byte, error) {
	ctx := context.Background()

	var value string
	err := db.Conn().QueryRowContext(ctx, db.Rebind(`SELECT value FROM settings WHERE key = ?`), jwtSecretSettingKey).Scan(&value)

	switch {
	case err == nil && value != "":
		secret, decErr := hex.DecodeString(value)
		if decErr != nil {
			return nil, fmt.Errorf("failed to decode stored JWT secret: %w", decErr)
		}
		return secret, nil

	case errors.Is(err, sql.ErrNoRows) || (err == nil && value == ""):
		return generateAndPersistSecret(ctx, db)

	default:
		return nil, fmt.Errorf("failed to load JWT secret from database: %w", err)
	}
}

func generateAndPersistSecret(ctx context.Context, db *database.DB) ([]byte, error) {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate JWT secret: %w", err)
	}

	query := db.Rebind(`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`)
	if _, err := db.Conn().ExecContext(ctx, query, jwtSecretSettingKey, hex.EncodeToString(secret)); err != nil {
		return nil, fmt.Errorf("failed to persist JWT secret: %w", err)
	}
	return secret, nil
}

// SessionTTL is how long an issued token stays valid.
func (s *Service) SessionTTL() time.Duration {
	return s.sessionTTL
}

// Register validates the input and creates an account. Input problems,
// including a taken username, come back as *ValidationError.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if err := ValidateRegistration(username, password); err != nil {
		return nil, err
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		return nil, usernameTaken()
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, username, hash)
	if errors.Is(err, ErrUsernameExists) {
		return nil, usernameTaken()
	}
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to create user")
		return nil, err
	}

	s.logger.Info().Int64("userId", user.ID).Str("username", user.Username).Msg("user registered")
	return user, nil
}

func usernameTaken() error {
	verr := &ValidationError{}
	verr.add("username", "Username is already taken")
	return verr
}

// Authenticate checks credentials. Unknown users and wrong passwords both
// yield ErrInvalidCredentials.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*User, error) {
	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrUserNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := ValidatePassword(user.PasswordHash, password); err != nil {
		return nil, err
	}
	return user, nil
}

// User loads an account by id.
func (s *Service) User(ctx context.Context, id int64) (*User, error) {
	return s.users.Get(ctx, id)
}

// HashPassword hashes with the configured bcrypt cost.
func (s *Service) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrPasswordRequired
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ValidatePassword compares a bcrypt hash with a candidate password.
func ValidatePassword(hash, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// GenerateToken issues a signed session token for user.
func (s *Service) GenerateToken(user *User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.sessionTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken verifies a session token and returns its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithIssuer(issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID <= 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
