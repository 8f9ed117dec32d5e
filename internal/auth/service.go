package auth

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"backend-trailhunt/internal/db"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const accessTokenTTL = 7 * 24 * time.Hour

var (
	ErrUsernameRequired = errors.New("username is required")
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")
	ErrUsernameCharset  = errors.New("username can only contain letters, numbers, and underscores")

	usernamePattern = regexp.MustCompile(`^[a-z0-9_]+$`)
)

type Service struct {
	secret []byte
	db     db.Querier
}

type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func NewService(secret string, db db.Querier) *Service {
	return &Service{
		secret: []byte(secret),
		db:     db,
	}
}

// NormalizeUsername trims and lowercases a username and validates it.
func NormalizeUsername(raw string) (string, error) {
	name := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case name == "":
		return "", ErrUsernameRequired
	case len(name) < 3:
		return "", ErrUsernameTooShort
	case !usernamePattern.MatchString(name):
		return "", ErrUsernameCharset
	}
	return name, nil
}

// Login registers the username on first sight and logs it in otherwise. The
// upsert makes concurrent first logins with the same name resolve to one user.
func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	name, err := NormalizeUsername(req.Username)
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	var user User
	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, username)
		VALUES ($1,$2)
		ON CONFLICT (username) DO UPDATE SET username=EXCLUDED.username
		RETURNING id, username, avatar_url, created_at
	`, uuid.NewString(), name)
	if err := row.Scan(&user.ID, &user.Username, &user.AvatarURL, &user.CreatedAt); err != nil {
		return User{}, TokenResponse{}, err
	}

	tokens, err := s.GenerateToken(user)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (User, error) {
	var user User
	row := s.db.QueryRow(ctx, `
		SELECT id, username, avatar_url, created_at
		FROM users WHERE id=$1
	`, id)
	if err := row.Scan(&user.ID, &user.Username, &user.AvatarURL, &user.CreatedAt); err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *Service) GenerateToken(user User) (TokenResponse, error) {
	access, err := s.signToken(user, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(accessTokenTTL.Seconds()),
	}, nil
}

func (s *Service) ValidateAccessToken(token string) (string, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

func (s *Service) signToken(user User, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}
