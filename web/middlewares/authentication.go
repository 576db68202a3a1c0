package middlewares

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"mneo.com/vms/web/common"
)

// Kiosk sessions: a short-lived HS256 token minted after a successful license
// activation or login, required on every register operation.

type SessionClaims struct {
	DeviceMAC string `json:"deviceMac"`
	jwt.RegisteredClaims
}

func CreateSessionToken(deviceMAC string, secret []byte, ttl time.Duration) (string, error) {
	claims := SessionClaims{
		DeviceMAC: deviceMAC,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mneo-vms",
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func parseSessionToken(tokenStr string, secret []byte) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrTokenUnverifiable
	}
	return claims, nil
}

// Authentication guards register routes with a Bearer session token.
func Authentication(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("missing session token"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("malformed Authorization header"))
			return
		}

		claims, err := parseSessionToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, common.NewErrorResponse("invalid or expired session"))
			return
		}

		c.Set("session", claims)
		c.Next()
	}
}
