package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"backend-mongoliatrails/internal/db"
	"backend-mongoliatrails/internal/shared/apperr"
	"backend-mongoliatrails/internal/shared/validate"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	accessTokenTTL  = 15 * time.Minute
	refreshTokenTTL = 7 * 24 * time.Hour

	searchMinLength = 3
	searchLimit     = 5
)

var (
	signTokenFn       = (*Service).signToken
	hashPasswordFn    = bcrypt.GenerateFromPassword
	parseWithClaimsFn = jwt.ParseWithClaims
)

var errInvalidCredentials = apperr.UnauthorizedError{Msg: "invalid credentials"}

type Service struct {
	secret []byte
	db     db.Querier
	admins map[string]bool
}

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type Option func(*Service)

// WithAdminEmails grants the admin role to accounts registered with one of emails.
func WithAdminEmails(emails []string) Option {
	return func(s *Service) {
		for _, e := range emails {
			s.admins[strings.ToLower(strings.TrimSpace(e))] = true
		}
	}
}

func NewService(secret string, q db.Querier, opts ...Option) *Service {
	s := &Service{
		secret: []byte(secret),
		db:     q,
		admins: map[string]bool{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const userColumns = `id, email, username, full_name, avatar_url, phone, address, role, created_at, updated_at`

func scanUser(row pgx.Row, u *User) error {
	return row.Scan(&u.ID, &u.Email, &u.Username, &u.FullName, &u.AvatarURL, &u.Phone, &u.Address, &u.Role, &u.CreatedAt, &u.UpdatedAt)
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (User, TokenResponse, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if err := validate.Struct(req); err != nil {
		return User{}, TokenResponse{}, err
	}
	hash, err := hashPasswordFn([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: string(hash),
		FullName:     req.FullName,
		AvatarURL:    req.AvatarURL,
		Role:         RoleUser,
	}
	if s.admins[strings.ToLower(user.Email)] {
		user.Role = RoleAdmin
	}

	row := s.db.QueryRow(ctx, `
		INSERT INTO users (id, email, username, password_hash, full_name, avatar_url, role)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.Username, user.PasswordHash, user.FullName, user.AvatarURL, user.Role)
	if err := row.Scan(&user.CreatedAt, &user.UpdatedAt); err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, TokenResponse{}, apperr.ConflictError{Resource: "user", Msg: "email or username already registered", Err: err}
		}
		return User{}, TokenResponse{}, fmt.Errorf("insert user: %w", err)
	}

	tokens, err := s.GenerateTokens(ctx, user.ID, user.Role)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (User, TokenResponse, error) {
	row := s.db.QueryRow(ctx, `
		SELECT password_hash, `+userColumns+`
		FROM users WHERE email = $1
	`, strings.TrimSpace(req.Email))

	var user User
	err := row.Scan(&user.PasswordHash, &user.ID, &user.Email, &user.Username, &user.FullName, &user.AvatarURL,
		&user.Phone, &user.Address, &user.Role, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, TokenResponse{}, errInvalidCredentials
	}
	if err != nil {
		return User{}, TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return User{}, TokenResponse{}, errInvalidCredentials
	}

	tokens, err := s.GenerateTokens(ctx, user.ID, user.Role)
	if err != nil {
		return User{}, TokenResponse{}, err
	}
	return user, tokens, nil
}

func (s *Service) GenerateTokens(ctx context.Context, userID, role string) (TokenResponse, error) {
	access, err := signTokenFn(s, userID, role, accessTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refresh, err := signTokenFn(s, userID, role, refreshTokenTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	if err := s.saveRefreshToken(ctx, refresh, userID, refreshTokenTTL); err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(accessTokenTTL.Seconds()),
	}, nil
}

// ValidateRefreshToken checks the stored token and returns claims carrying the
// user's current role, so a promotion takes effect on the next refresh.
func (s *Service) ValidateRefreshToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, apperr.UnauthorizedError{Msg: err.Error()}
	}

	userID, role, expiresAt, err := s.lookupRefreshToken(ctx, token)
	if err != nil || userID != claims.UserID || time.Now().After(expiresAt) {
		return nil, apperr.UnauthorizedError{Msg: "refresh token invalid"}
	}
	claims.Role = role
	return claims, nil
}

func (s *Service) ValidateAccessToken(token string) (*Claims, error) {
	claims, err := s.parseToken(token)
	if err != nil {
		return nil, apperr.UnauthorizedError{Msg: err.Error()}
	}
	return claims, nil
}

func (s *Service) Get(ctx context.Context, userID string) (User, error) {
	var user User
	err := scanUser(s.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID), &user)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user")
	}
	return user, err
}

// SyncProfile stores the phone and address collected after sign-up. An empty
// full name keeps the stored one.
func (s *Service) SyncProfile(ctx context.Context, userID string, req ProfileRequest) (User, error) {
	if err := validate.Struct(req); err != nil {
		return User{}, err
	}
	var user User
	err := scanUser(s.db.QueryRow(ctx, `
		UPDATE users
		SET phone = $2, address = $3, full_name = COALESCE(NULLIF($4, ''), full_name), updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		userID, strings.TrimSpace(req.Phone), strings.TrimSpace(req.Address), strings.TrimSpace(req.FullName)), &user)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user")
	}
	return user, err
}

// Search looks users up by name, username or email for the admin booking form.
// Queries shorter than three characters return nothing.
func (s *Service) Search(ctx context.Context, query string) ([]User, error) {
	query = strings.TrimSpace(query)
	users := []User{}
	if utf8.RuneCountInString(query) < searchMinLength {
		return users, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE full_name ILIKE $1 OR username ILIKE $1 OR email ILIKE $1
		ORDER BY full_name, email
		LIMIT $2
	`, "%"+escapeLike(query)+"%", searchLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var u User
		if err := scanUser(rows, &u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *Service) signToken(userID, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *Service) parseToken(token string) (*Claims, error) {
	parsed, err := parseWithClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
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

func (s *Service) saveRefreshToken(ctx context.Context, token, userID string, ttl time.Duration) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token, expires_at)
		VALUES ($1,$2,$3,$4)
	`, uuid.NewString(), userID, token, time.Now().Add(ttl))
	return err
}

func (s *Service) lookupRefreshToken(ctx context.Context, token string) (string, string, time.Time, error) {
	row := s.db.QueryRow(ctx, `
		SELECT rt.user_id, u.role, rt.expires_at
		FROM refresh_tokens rt
		JOIN users u ON u.id = rt.user_id
		WHERE rt.token = $1 AND rt.revoked_at IS NULL
	`, token)
	var userID, role string
	var expiresAt time.Time
	if err := row.Scan(&userID, &role, &expiresAt); err != nil {
		return "", "", time.Time{}, err
	}
	return userID, role, expiresAt, nil
}
