package middleware

import (
	"net/http"

	"storefront/internal/repository"

	"github.com/labstack/echo/v4"
)

// ForceLogoutでtoken_versionが上がったら、それより前のJWTは全部401
// 停止中のユーザーも同じ扱い
func TokenVersionGuard(users repository.UserRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, okID := c.Get(CtxUserIDKey).(int64)
			tv, okTV := c.Get(CtxTokenVersionKey).(int)
			if !okID || !okTV || userID <= 0 || tv < 0 {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			user, err := users.FindByID(c.Request().Context(), userID)
			if err != nil || user == nil || !user.AcceptsTokenVersion(tv) {
				return c.JSON(http.StatusUnauthorized, errorJSON("unauthorized"))
			}

			//名前・メールはトークン発行後に変わっていることがある
			c.Set(CtxUserNameKey, user.Name)
			c.Set(CtxUserEmailKey, user.Email)
			return next(c)
		}
	}
}
