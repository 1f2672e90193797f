package authUtils

import (
	"fmt"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/spf13/viper"
)

// GenerateAndSetToken generates a JWT token for a given user ID and role
func GenerateAndSetToken(userID, role string) (string, error) {
	secretStr := viper.GetString("jwt.secret")
	if secretStr == "" {
		return "", fmt.Errorf("jwt.secret is not configured")
	}

	jwtSecret := []byte(secretStr)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
		"exp":     time.Now().Add(time.Hour * 72).Unix(), // Token expires in 72 hours
	})

	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}
