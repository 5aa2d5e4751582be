// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// tickerRegex matches plain exchange tickers like AAPL, BRK.B, or RDS-A.
var tickerRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9.\-]{0,11}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("ticker", validateTicker)
		_ = v.RegisterValidation("theme_mode", validateThemeMode)
	}
}

func validateTicker(fl validator.FieldLevel) bool {
	return tickerRegex.MatchString(strings.TrimSpace(fl.Field().String()))
}

func validateThemeMode(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "light", "dark":
		return true
	}
	return false
}
