package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"peerprep/backend/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	jwt "github.com/golang-jwt/jwt/v5"
)

// generateJWT signs a token that authorizes requests for userID.
func generateJWT(secret []byte, userID string, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(config.TokenLifetime).Unix(),
		"iss":     config.TokenIssuer,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// parseJWT validates the token and returns the user it was issued for.
func parseJWT(secret []byte, raw string) (string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(config.TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("unexpected claims type")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", errors.New("token has no user_id")
	}
	return userID, nil
}

// IssueToken creates a fresh anonymous user id and returns it with its token.
// Callers never choose the id.
func (h *Handler) IssueToken(c *gin.Context) {
	if len(h.JWTSecret) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "token issuing is disabled"})
		return
	}

	userID := uuid.NewString()

	token, err := generateJWT(h.JWTSecret, userID, time.Now())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "userId": userID})
}

// RequireUser rejects requests whose bearer token was not issued for the
// :userId in the path. It lets everything through when no secret is set.
// Browsers cannot set headers on a WebSocket handshake, so ?token= is
// accepted as well.
func (h *Handler) RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(h.JWTSecret) == 0 {
			c.Next()
			return
		}

		raw := c.Query("token")
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			raw = strings.TrimPrefix(header, "Bearer ")
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization token missing"})
			return
		}

		userID, err := parseJWT(h.JWTSecret, raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
			return
		}
		if userID != c.Param("userId") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "token does not belong to this user"})
			return
		}
		c.Next()
	}
}
