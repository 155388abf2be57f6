package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt"

	"content-hub/domain/dto"
)

// Auth validates the Bearer token on API routes and stashes the caller
// identity in the request context. secretKey falls back to SECRET_KEY.
func Auth(secretKey string) gin.HandlerFunc {
	var res dto.Res
	res.ResponseCode = "401"
	res.ResponseMessage = "Unauthorized"

	return func(ctx *gin.Context) {
		key := secretKey
		if key == "" {
			key = os.Getenv("SECRET_KEY")
		}
		authorization := ctx.Request.Header.Get("Authorization")
		if authorization == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		auth := strings.Split(authorization, "Bearer ")
		if len(auth) != 2 {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, res)
			return
		}
		claims, token, err := getClaim(auth[1], key)
		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, describe(err, res))
			return
		}
		ctx.Set("user_id", claims.Issuer)
		if claims.Subject != "" {
			ctx.Set("subject", claims.Subject)
		}
		ctx.Next()
	}
}

func describe(err error, res dto.Res) dto.Res {
	var ve *jwt.ValidationError
	if errors.As(err, &ve) {
		if ve.Errors&jwt.ValidationErrorMalformed != 0 {
			res.ResponseMessage = "That's not even a token"
		} else if ve.Errors&(jwt.ValidationErrorExpired|jwt.ValidationErrorNotValidYet) != 0 {
			// Token is either expired or not active yet
			res.ResponseMessage = "Timing is everything"
		} else {
			res.ResponseMessage = fmt.Sprintf("Couldn't handle this token:%v", err)
		}
	}
	return res
}

func getClaim(raw string, secretKey string) (jwt.StandardClaims, *jwt.Token, error) {
	var claims jwt.StandardClaims
	token, err := jwt.ParseWithClaims(
		raw,
		&claims,
		func(token *jwt.Token) (interface{}, error) {
			return []byte(secretKey), nil
		},
	)
	return claims, token, err
}
