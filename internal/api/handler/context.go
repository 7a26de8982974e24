package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ctxAccount extracts the token claims injected by the Auth middleware and
// fast-fails before touching any service: a missing account id means the
// middleware did not run or the token carried no subject.
func ctxAccount(c echo.Context) (accountID, email string, err error) {
	accountID, _ = c.Get("account_id").(string)
	if accountID == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	email, _ = c.Get("email").(string)
	return accountID, email, nil
}
