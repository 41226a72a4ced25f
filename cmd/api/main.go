package main

import (
	"time"

	"shoppit/internal/config"
	"shoppit/internal/domain/model"
	"shoppit/internal/gateway"
	"shoppit/internal/handler"
	"shoppit/internal/infra/cache"
	"shoppit/internal/infra/db"
	infraRepo "shoppit/internal/infra/repository"
	appmw "shoppit/internal/middleware"
	"shoppit/internal/usecase"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

type jwtIssuer struct {
	secret    []byte
	accessTTL time.Duration
}

func (i *jwtIssuer) Issue(userID int64, role model.Role, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(i.accessTTL)

	claims := jwt.MapClaims{
		"sub":  userID,
		"role": string(role),
		"iat":  now.Unix(),
		"exp":  expiresAt.Unix(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, err
	}

	return signed, expiresAt, nil
}

func main() {
	//.envがあれば読む（無ければ環境変数だけで動く）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		panic(err)
	}
	if err := gormDB.AutoMigrate(
		&model.Product{},
		&model.Cart{},
		&model.CartItem{},
		&model.Transaction{},
		&model.User{},
	); err != nil {
		panic(err)
	}

	//redis（REDIS_ADDRが空ならキャッシュ無効）
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}
	productCache := cache.NewProductCache(redisClient, 5*time.Minute)

	//Repository（GORM実装）生成
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	cartItemRepo := infraRepo.NewCartItemGormRepository(gormDB)
	txRepo := infraRepo.NewTransactionGormRepository(gormDB)
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	txManager := infraRepo.NewTxManagerGorm(gormDB)

	//決済ゲートウェイ
	gwClient := gateway.NewHTTPClient(cfg.GatewayTimeout)
	gateways := map[string]gateway.Gateway{
		"flutterwave": gateway.NewFlutterwave(gateway.FlutterwaveConfig{
			SecretKey:   cfg.FlutterwaveSecretKey,
			RedirectURL: cfg.BaseURL + "/payment-status",
		}, gwClient),
		"paypal": gateway.NewPayPal(gateway.PayPalConfig{
			Mode:         cfg.PayPalMode,
			ClientID:     cfg.PayPalClientID,
			ClientSecret: cfg.PayPalClientSecret,
			ReturnBase:   cfg.BaseURL,
		}, gwClient),
	}

	//usecaseに渡す部品
	idGen := &uuidGenerator{}
	clock := &realClock{}

	//bcrypt（会員登録：Hash / ログイン：Verify）
	hasher := usecase.NewBcryptPasswordHasher(12)
	verifier := usecase.NewBcryptPasswordVerifier()

	//JWT issuer
	issuer := &jwtIssuer{
		secret:    []byte(cfg.JWTSecret),
		accessTTL: 24 * time.Hour,
	}

	//Usecase生成
	productUC := usecase.NewProductUsecase(productRepo, productCache)
	cartUC := usecase.NewCartUsecase(cartRepo, cartItemRepo, productRepo)
	paymentUC := usecase.NewPaymentUsecase(cartRepo, cartItemRepo, productRepo, txRepo, userRepo, gateways, idGen)
	settlementUC := usecase.NewSettlementUsecase(txManager, txRepo, gateways)
	userUC := usecase.NewUserUsecase(userRepo, cartItemRepo, hasher, verifier, issuer, clock)

	//Handler生成
	productH := handler.NewProductHandler(productUC)
	adminProductH := handler.NewAdminProductHandler(productUC)
	cartH := handler.NewCartHandler(cartUC)
	paymentH := handler.NewPaymentHandler(paymentUC, settlementUC)
	userH := handler.NewUserHandler(userUC)

	//Server起動
	e := echo.New()
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	authMW := appmw.AuthJWT(cfg.JWTSecret)
	optionalMW := appmw.AuthJWTOptional(cfg.JWTSecret)

	productH.RegisterRoutes(e)
	adminProductH.RegisterRoutes(e, authMW, appmw.AdminRoleGuard())
	cartH.RegisterRoutes(e)
	paymentH.RegisterRoutes(e, authMW, optionalMW)
	userH.RegisterRoutes(e, authMW)

	addr := ":" + cfg.Port
	if cfg.Port[0] == ':' {
		addr = cfg.Port
	}

	e.Logger.Fatal(e.Start(addr))
}
