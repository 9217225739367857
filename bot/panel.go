package bot

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const panelTokenTTL = 12 * time.Hour

// panelToken mints a short-lived admin token for the web panel links the bot
// hands out. The API middleware accepts it either as a Bearer header or a
// ?token= query parameter.
func (b *Bot) panelToken() (string, error) {
	claims := jwt.MapClaims{
		"role": "admin",
		"exp":  time.Now().Add(panelTokenTTL).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(b.cfg.JWTSecret))
}
