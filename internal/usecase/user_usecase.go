package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"shoppit/internal/domain/model"
	repo "shoppit/internal/repository"
)

// 平文パスワードからハッシュへ
type PasswordHasher interface {
	Hash(plain string) (string, error)
}

// ハッシュと平文の比較
type PasswordVerifier interface {
	Verify(plain string, hashed string) bool
}

// アクセストークンの発行（実装はmainで注入）
type TokenIssuer interface {
	Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error)
}

// 現在の時間
type Clock interface {
	Now() time.Time
}

type UserUsecase struct {
	userRepo     repo.UserRepository
	cartItemRepo repo.CartItemRepository
	hasher       PasswordHasher
	verifier     PasswordVerifier
	issuer       TokenIssuer
	clock        Clock
}

// DI
func NewUserUsecase(
	userRepo repo.UserRepository,
	cartItemRepo repo.CartItemRepository,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	issuer TokenIssuer,
	clock Clock,
) *UserUsecase {
	return &UserUsecase{
		userRepo:     userRepo,
		cartItemRepo: cartItemRepo,
		hasher:       hasher,
		verifier:     verifier,
		issuer:       issuer,
		clock:        clock,
	}
}

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	City            string
	State           string
	Address         string
	Phone           string
	Country         string
}

// 会員登録。username/emailの重複は400で、どちらが重複したかを返す。
func (u *UserUsecase) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if username == "" {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "username is required")
	}
	if email == "" {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "email is required")
	}
	if in.Password == "" {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "password is required")
	}
	if in.ConfirmPassword == "" {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "confirm_password is required")
	}
	if in.Password != in.ConfirmPassword {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "Passwords do not match")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "invalid email format")
	}

	//username重複
	existing, err := u.userRepo.FindByUsername(ctx, username)
	if err == nil && existing != nil {
		return model.User{}, NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("Username '%s' already exists, please try another one", username))
	}
	if err != nil && !errors.Is(err, repo.ErrUserNotFound) {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	//email重複
	existing, err = u.userRepo.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return model.User{}, NewHTTPError(http.StatusBadRequest, "Email already exists, please try another one")
	}
	if err != nil && !errors.Is(err, repo.ErrUserNotFound) {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	hashed, err := u.hasher.Hash(in.Password)
	if err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "hash error")
	}

	now := u.clock.Now()
	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		City:         in.City,
		State:        in.State,
		Address:      in.Address,
		Phone:        in.Phone,
		Country:      in.Country,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		return model.User{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return *user, nil
}

type LoginOutput struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ログイン。認証失敗はusername/passwordどちらが悪いか明かさない。
func (u *UserUsecase) Login(ctx context.Context, username string, password string) (LoginOutput, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return LoginOutput{}, NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	user, err := u.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repo.ErrUserNotFound) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	if !u.verifier.Verify(password, user.PasswordHash) {
		return LoginOutput{}, NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, expiresAt, err := u.issuer.Issue(user.ID, user.Role, u.clock.Now())
	if err != nil {
		return LoginOutput{}, NewHTTPError(http.StatusInternalServerError, "token error")
	}

	return LoginOutput{AccessToken: token, ExpiresAt: expiresAt}, nil
}

func (u *UserUsecase) GetUsername(ctx context.Context, userID int64) (string, error) {
	if userID <= 0 {
		return "", NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return "", NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return "", NewHTTPError(http.StatusInternalServerError, "db error")
	}

	return user.Username, nil
}

// 注文履歴の1行（支払済みカートの明細）
type OrderItemOutput struct {
	ID        int64         `json:"id"`
	Product   model.Product `json:"product"`
	Quantity  int64         `json:"quantity"`
	OrderID   string        `json:"order_id"`
	OrderDate time.Time     `json:"order_date"`
}

type UserInfoOutput struct {
	ID        int64             `json:"id"`
	Username  string            `json:"username"`
	FirstName string            `json:"first_name"`
	LastName  string            `json:"last_name"`
	Email     string            `json:"email"`
	City      string            `json:"city"`
	Country   string            `json:"country"`
	State     string            `json:"state"`
	Address   string            `json:"address"`
	Phone     string            `json:"phone"`
	Items     []OrderItemOutput `json:"items"`
}

// プロフィール＋直近10件の支払済み明細（カート更新日の新しい順）
func (u *UserUsecase) GetUserInfo(ctx context.Context, userID int64) (UserInfoOutput, error) {
	if userID <= 0 {
		return UserInfoOutput{}, NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}

	user, err := u.userRepo.FindByID(ctx, userID)
	if errors.Is(err, repo.ErrUserNotFound) {
		return UserInfoOutput{}, NewHTTPError(http.StatusNotFound, "not found")
	}
	if err != nil {
		return UserInfoOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	paidItems, err := u.cartItemRepo.ListPaidByUserID(ctx, userID, 10)
	if err != nil {
		return UserInfoOutput{}, NewHTTPError(http.StatusInternalServerError, "db error")
	}

	items := make([]OrderItemOutput, 0, len(paidItems))
	for _, pi := range paidItems {
		items = append(items, OrderItemOutput{
			ID:        pi.Item.ID,
			Product:   pi.Product,
			Quantity:  pi.Item.Quantity,
			OrderID:   pi.OrderID,
			OrderDate: pi.OrderDate,
		})
	}

	return UserInfoOutput{
		ID:        user.ID,
		Username:  user.Username,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
		City:      user.City,
		Country:   user.Country,
		State:     user.State,
		Address:   user.Address,
		Phone:     user.Phone,
		Items:     items,
	}, nil
}
