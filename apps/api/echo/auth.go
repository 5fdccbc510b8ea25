package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

const (
	jwtContextKey  = "userToken"
	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	IsTeacher bool `json:"is_teacher,omitempty"`
	IsStudent bool `json:"is_student,omitempty"`
	IsAdmin   bool `json:"is_admin,omitempty"`
}

func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

func getUserClaims(conf *core.Config, usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   strconv.Itoa(usr.ID),
			ExpiresAt: now.Add(conf.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		IsTeacher: usr.IsTeacher(),
		IsStudent: usr.IsStudent(),
		IsAdmin:   usr.IsAdmin(),
	}
}

// generateToken generates a signed JWT token string representing the user Claims.
func generateToken(conf *core.Config, claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errTokenSigningFailed
	}
	return ss, nil
}

// getContextUser resolves the authenticated principal from the request's JWT.
// The room core trusts this principal; no further credential checks happen
// downstream.
func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	token, ok := ctx.Get(jwtContextKey).(*jwt.Token)
	if !ok {
		return user.User{}, errUnauthorized
	}
	claims, ok := token.Claims.(*Claims)
	if !ok {
		return user.User{}, errUnauthorized
	}
	uid, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return user.User{}, errUnauthorized
	}

	usr, err := svc.GetByID(ctx.Request().Context(), uid)
	if err != nil {
		return user.User{}, errUnauthorized
	}
	if !usr.IsActive {
		return user.User{}, errAccountDeactivated
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

type (
	// LoginRequest is the /auth/login request body.
	LoginRequest struct {
		Username string `json:"username" validate:"required"`
		Password string `json:"password" validate:"required"`
	}

	LoginResponse struct {
		Token string `json:"token"`
	}
)

func (r *LoginRequest) Validate() error {
	r.Username = core.CleanString(r.Username, true /* lower */)
	return core.Validate.Struct(r)
}

type authAPI struct {
	svc  *user.Service
	conf *core.Config
}

func registerAuthAPI(g *echo.Group, svc *user.Service, conf *core.Config) {
	api := authAPI{svc: svc, conf: conf}
	g.POST("/auth/login", api.login)
}

func (api *authAPI) login(ctx echo.Context) error {
	data := new(LoginRequest)
	if err := ctx.Bind(data); err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := api.svc.GetByUsernameOrEmail(ctx.Request().Context(), data.Username)
	if err != nil || usr.CheckPassword(data.Password) != nil {
		return errAuthenticationFailed
	}
	if !usr.IsActive {
		return errAccountDeactivated
	}

	token, err := generateToken(api.conf, getUserClaims(api.conf, usr))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}
