package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"time"

	"storefront/internal/config"
	"storefront/internal/domain/model"
	"storefront/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// accesstokenの有効期限
const accessTokenTTL = 15 * time.Minute

const bcryptCost = 12

// 再設定リンクの有効期限
const passwordResetTTL = 10 * time.Minute

// アカウントの有無に関係なく同じ文言を返す
const ForgotPasswordMessage = "If an account with that email exists, a reset link has been sent."

// usecaseがValidatorInterfaceに依存する約束
type AuthValidator interface {
	ValidateRegister(ctx context.Context, name string, email string, password string) error
	ValidateLogin(ctx context.Context, email string, password string) error
	ValidateForgotPassword(ctx context.Context, email string) error
	ValidateResetPassword(ctx context.Context, token string, password string) error
}

// 再設定リンクの送信先
type PasswordResetMailer interface {
	SendPasswordReset(ctx context.Context, to string, name string, resetURL string) error
}

type UserDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	TokenVersion int    `json:"token_version"`
	IsActive     bool   `json:"is_active"`
}

type JwtAccessTokenDTO struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenVersion int    `json:"token_version"`
}

type AuthRegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthRegisterResponse struct {
	User UserDTO `json:"user"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginResponse struct {
	User  UserDTO           `json:"user"`
	Token JwtAccessTokenDTO `json:"token"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type AuthUsecase struct {
	cfg       config.Config
	users     repository.UserRepository
	validator AuthValidator
	mailer    PasswordResetMailer
	logger    *zap.Logger
	now       func() time.Time
}

func NewAuthUsecase(
	cfg config.Config,
	users repository.UserRepository,
	validator AuthValidator,
	mailer PasswordResetMailer,
	logger *zap.Logger,
) *AuthUsecase {
	return &AuthUsecase{
		cfg:       cfg,
		users:     users,
		validator: validator,
		mailer:    mailer,
		logger:    logger,
		now:       time.Now,
	}
}

func (u *AuthUsecase) Register(ctx context.Context, req AuthRegisterRequest) (*AuthRegisterResponse, error) {
	//入力検証（validatorに寄せる）
	if err := u.validator.ValidateRegister(ctx, req.Name, req.Email, req.Password); err != nil {
		return nil, err
	}

	//パスワードは必ずハッシュ化して保存（平文保存しない）
	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return nil, ErrInternal
	}

	user := &model.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: string(pwHash),
		Role:         model.RoleUser,
		TokenVersion: 0,
		IsActive:     true,
	}

	if err := u.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrConflict
		}
		return nil, ErrInternal
	}

	return &AuthRegisterResponse{User: toUserDTO(user)}, nil
}

func (u *AuthUsecase) Login(ctx context.Context, req AuthLoginRequest) (*AuthLoginResponse, error) {
	if err := u.validator.ValidateLogin(ctx, req.Email, req.Password); err != nil {
		return nil, err
	}

	//ユーザー取得
	user, err := u.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}

	//停止ユーザーはログイン不可
	if !user.IsActive {
		return nil, ErrForbidden
	}

	//パスワード照合（bcrypt）
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrUnauthorized
	}

	//last_login更新
	now := u.now()
	user.LastLoginAt = &now
	if err := u.users.Update(ctx, user); err != nil {
		u.logger.Warn("update last login failed", zap.Int64("user_id", user.ID), zap.Error(err))
	}

	accessToken, expiresIn, err := u.issueAccessToken(user)
	if err != nil {
		return nil, ErrInternal
	}

	return &AuthLoginResponse{
		User: toUserDTO(user),
		Token: JwtAccessTokenDTO{
			AccessToken:  accessToken,
			ExpiresIn:    expiresIn,
			TokenVersion: user.TokenVersion,
		},
	}, nil
}

func (u *AuthUsecase) Me(ctx context.Context, userID int64) (*UserDTO, error) {
	if userID <= 0 {
		return nil, ErrUnauthorized
	}

	user, err := u.users.FindByID(ctx, userID)
	if err != nil || user == nil {
		return nil, ErrUnauthorized
	}
	if !user.IsActive {
		return nil, ErrForbidden
	}

	dto := toUserDTO(user)
	return &dto, nil
}

// EnsureAdmin は起動時にADMIN_EMAIL/ADMIN_PASSWORDの管理者を用意する
// 既にいればパスワードとロールだけ合わせる
func (u *AuthUsecase) EnsureAdmin(ctx context.Context) error {
	email := strings.ToLower(strings.TrimSpace(u.cfg.AdminEmail))
	if email == "" || u.cfg.AdminPassword == "" {
		u.logger.Info("admin seed skipped (ADMIN_EMAIL / ADMIN_PASSWORD not set)")
		return nil
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(u.cfg.AdminPassword), bcryptCost)
	if err != nil {
		return err
	}

	existing, err := u.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return err
	}
	if existing != nil {
		existing.Role = model.RoleAdmin
		existing.PasswordHash = string(pwHash)
		existing.IsActive = true
		return u.users.Update(ctx, existing)
	}

	admin := &model.User{
		Name:         "Admin",
		Email:        email,
		PasswordHash: string(pwHash),
		Role:         model.RoleAdmin,
		IsActive:     true,
	}
	if err := u.users.Create(ctx, admin); err != nil && !errors.Is(err, repository.ErrDuplicateKey) {
		return err
	}
	u.logger.Info("admin user seeded", zap.String("email", email))
	return nil
}

type ForceLogoutResponse struct {
	UserID       int64 `json:"user_id"`
	TokenVersion int   `json:"token_version"`
}

// token_versionを上げて発行済みのJWTを全部無効にする
func (u *AuthUsecase) ForceLogout(ctx context.Context, userID int64) (*ForceLogoutResponse, error) {
	if userID <= 0 {
		return nil, ErrValidation
	}

	user, err := u.users.FindByID(ctx, userID)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && user == nil) {
		return nil, NewHTTPError(http.StatusNotFound, "user not found")
	}
	if err != nil {
		return nil, ErrInternal
	}

	user.TokenVersion++
	if err := u.users.Update(ctx, user); err != nil {
		return nil, ErrInternal
	}
	u.logger.Info("user force logged out", zap.Int64("user_id", user.ID), zap.Int("token_version", user.TokenVersion))

	return &ForceLogoutResponse{UserID: user.ID, TokenVersion: user.TokenVersion}, nil
}

// ForgotPassword は再設定リンクをメールで送る
// 登録されていないメールでも成功扱い（アカウントの有無を漏らさない）
func (u *AuthUsecase) ForgotPassword(ctx context.Context, req ForgotPasswordRequest) error {
	if err := u.validator.ValidateForgotPassword(ctx, req.Email); err != nil {
		return err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := u.users.FindByEmail(ctx, email)
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && user == nil) {
		u.logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return ErrInternal
	}
	if !user.IsActive {
		u.logger.Info("password reset requested for inactive user", zap.Int64("user_id", user.ID))
		return nil
	}

	raw, err := newResetToken()
	if err != nil {
		return ErrInternal
	}
	hash := hashResetToken(raw)
	exp := u.now().Add(passwordResetTTL)
	user.ResetTokenHash = &hash
	user.ResetTokenExpiresAt = &exp
	if err := u.users.Update(ctx, user); err != nil {
		u.logger.Error("store reset token failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return ErrInternal
	}

	resetURL := u.cfg.PublicBaseURL + "/reset-password?token=" + raw
	if err := u.mailer.SendPasswordReset(ctx, user.Email, user.Name, resetURL); err != nil {
		u.logger.Error("send password reset mail failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return ErrInternal
	}
	u.logger.Info("password reset mail sent", zap.Int64("user_id", user.ID))
	return nil
}

// ResetPassword はトークンを照合して新しいパスワードを保存する
// トークンは1回限り。発行済みのJWTもtoken_versionで無効にする
func (u *AuthUsecase) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := u.validator.ValidateResetPassword(ctx, req.Token, req.Password); err != nil {
		return err
	}

	user, err := u.users.FindByResetTokenHash(ctx, hashResetToken(strings.TrimSpace(req.Token)))
	if errors.Is(err, repository.ErrUserNotFound) || (err == nil && user == nil) {
		return NewHTTPError(http.StatusBadRequest, "invalid token")
	}
	if err != nil {
		return ErrInternal
	}
	if !user.ResetTokenValidAt(u.now()) {
		return NewHTTPError(http.StatusBadRequest, "token has expired, please request a new one")
	}

	pwHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		return ErrInternal
	}
	user.PasswordHash = string(pwHash)
	user.ResetTokenHash = nil
	user.ResetTokenExpiresAt = nil
	user.TokenVersion++
	if err := u.users.Update(ctx, user); err != nil {
		u.logger.Error("reset password failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return ErrInternal
	}
	u.logger.Info("password reset", zap.Int64("user_id", user.ID))
	return nil
}

// 32バイトの乱数を16進で
func newResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func hashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// jwt発行
func (u *AuthUsecase) issueAccessToken(user *model.User) (string, int, error) {
	now := u.now()
	exp := now.Add(accessTokenTTL)

	claims := jwt.MapClaims{
		"sub":   user.ID,
		"role":  string(user.Role),
		"tv":    user.TokenVersion,
		"name":  user.Name,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   exp.Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := t.SignedString([]byte(u.cfg.JWTSecret))
	if err != nil {
		return "", 0, err
	}

	return signed, int(accessTokenTTL.Seconds()), nil
}

// model.UserをAPI返却用DTOに変換。
func toUserDTO(u *model.User) UserDTO {
	return UserDTO{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         string(u.Role),
		TokenVersion: u.TokenVersion,
		IsActive:     u.IsActive,
	}
}
