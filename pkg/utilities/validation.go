package utilities

import (
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s.]+$`)

// Email checks address syntax only; no DNS lookup happens on the request path.
var Email = validation.Match(emailRe).Error("must be a valid email address")
