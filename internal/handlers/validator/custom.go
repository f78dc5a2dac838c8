package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var targetValidRegex = regexp.MustCompile(`^[a-zA-Z0-9:/\\._+-]+$`)

func targetValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}

	if strings.TrimSpace(val) == "" {
		return false
	}

	return targetValidRegex.MatchString(val)
}

func targetTypeValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	switch val {
	case "":
		fallthrough
	case "device":
		fallthrough
	case "path":
		fallthrough
	case "volume":
		return true
	default:
		return false
	}
}
