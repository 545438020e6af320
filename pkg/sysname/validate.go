package sysname

import (
	"fmt"
	"regexp"
	"strings"
)

// Policy rejection codes.
const (
	CodeFormat         = "format"
	CodeIdentical      = "identical"
	CodeDuplicate      = "duplicate"
	CodeCooldown       = "cooldown"
	CodeStatus         = "status"
	CodeVerify         = "verify"
	CodeRollbackWindow = "rollback_window"
	CodeNoHistory      = "no_history"
)

// PolicyError is a sysname change rejection. Code tells callers which
// rule fired; API layers map it to a 4xx-style response.
type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("sysname policy [%s]: %s", e.Code, e.Message)
}

func policyErr(code, format string, args ...interface{}) *PolicyError {
	return &PolicyError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsPolicyError reports whether err is a policy rejection.
func IsPolicyError(err error) bool {
	_, ok := err.(*PolicyError)
	return ok
}

const (
	minLength = 3
	maxLength = 246
)

// reservedNames may not be used as a sysname; they collide with CLI
// keywords or operational conventions.
var reservedNames = map[string]bool{
	"admin":   true,
	"root":    true,
	"system":  true,
	"default": true,
	"olt":     true,
	"huawei":  true,
	"config":  true,
	"debug":   true,
	"test":    true,
	"temp":    true,
}

var (
	charsetRE   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	allDigitRE  = regexp.MustCompile(`^[0-9]+$`)
	ipShapedRE  = regexp.MustCompile(`^[0-9]{1,3}([._-][0-9]{1,3}){3}$`)
	macShapedRE = regexp.MustCompile(`^(?i:[0-9a-f]{2})([-_](?i:[0-9a-f]{2})){5}$`)
	tempNameRE  = regexp.MustCompile(`(?i)^(temp|tmp|test|new)[-_]|[-_](temp|tmp|test|old|bak|backup)$`)
)

// ValidateFormat applies the format rules alone. The guard layers the
// stateful checks (duplicates, cooldown, status) on top.
func ValidateFormat(name string) error {
	switch {
	case name == "":
		return policyErr(CodeFormat, "sysname is empty")
	case len(name) < minLength:
		return policyErr(CodeFormat, "sysname %q shorter than %d characters", name, minLength)
	case len(name) > maxLength:
		return policyErr(CodeFormat, "sysname longer than %d characters", maxLength)
	case !charsetRE.MatchString(name):
		return policyErr(CodeFormat, "sysname %q contains characters outside [A-Za-z0-9_-]", name)
	case name[0] == '-' || name[0] == '_':
		return policyErr(CodeFormat, "sysname %q starts with a hyphen or underscore", name)
	case allDigitRE.MatchString(name):
		return policyErr(CodeFormat, "sysname %q is all digits", name)
	case reservedNames[strings.ToLower(name)]:
		return policyErr(CodeFormat, "sysname %q is a reserved word", name)
	case ipShapedRE.MatchString(name):
		return policyErr(CodeFormat, "sysname %q looks like an IP address", name)
	case macShapedRE.MatchString(name):
		return policyErr(CodeFormat, "sysname %q looks like a MAC address", name)
	case tempNameRE.MatchString(name):
		return policyErr(CodeFormat, "sysname %q looks like a temporary name", name)
	}
	return nil
}
