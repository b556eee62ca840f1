package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	initdata "github.com/telegram-mini-apps/init-data-golang"
)

const userContextKey = "telegram_user"

// initDataTTL bounds how old the Mini App init data may be.
const initDataTTL = 24 * time.Hour

// TelegramInitData authenticates requests by the Mini App init_data header
// and stores the parsed Telegram user in the gin context.
func TelegramInitData(botToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("init_data")
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Telegram init data required"})
			return
		}

		if err := initdata.Validate(raw, botToken, initDataTTL); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid init data"})
			return
		}

		parsed, err := initdata.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unparseable init data"})
			return
		}

		c.Set(userContextKey, parsed.User)
		c.Next()
	}
}

// TelegramUser returns the authenticated Mini App user, if any.
func TelegramUser(c *gin.Context) (initdata.User, bool) {
	v, ok := c.Get(userContextKey)
	if !ok {
		return initdata.User{}, false
	}
	user, ok := v.(initdata.User)
	return user, ok
}
