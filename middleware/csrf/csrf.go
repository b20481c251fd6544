// Package csrf protects the account form endpoints against cross site
// request forgery. Tokens are stateless: an HMAC signed payload bound to
// the caller's session (or IP for anonymous visitors), so no server side
// token store is needed.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key required")
)

const (
	// DefaultContextKey is where the middleware stores the token for views.
	DefaultContextKey = "csrf_token"
	// DefaultFormField is the hidden input name the forms post back.
	DefaultFormField = "_token"
	// DefaultHeaderName is the fallback header for non-form clients.
	DefaultHeaderName = "X-CSRF-Token"

	defaultNonceLength = 32
	minKeyLength       = 32
)

// Config controls token generation and validation.
type Config struct {
	// Skip bypasses the middleware for the given request.
	Skip func(router.Context) bool

	// SecureKey signs tokens. Must be at least 32 bytes.
	SecureKey []byte

	// ContextKey names the request local holding the current token.
	ContextKey string

	// FormField names the form field checked on unsafe methods.
	FormField string

	// HeaderName names the header checked when the form field is absent.
	HeaderName string

	// SafeMethods skip validation. Defaults to GET, HEAD, OPTIONS, TRACE.
	SafeMethods []string

	// Expiration bounds token age. Zero disables the age check.
	Expiration time.Duration

	// Identifier returns the caller identity a token binds to, letting the
	// application bind tokens to its session cookie. Defaults to the
	// client IP.
	Identifier func(router.Context) string

	// ErrorHandler renders validation failures.
	ErrorHandler router.ErrorHandler
}

// New returns middleware that issues a token on every request and
// validates it on unsafe methods. The token and the field/header names
// are stored as request locals so templates can embed them.
func New(config ...Config) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		cfg := configDefault(config...)

		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			token, err := generateToken(ctx, cfg)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			ctx.Locals(cfg.ContextKey, token)
			ctx.Locals(cfg.ContextKey+"_field", cfg.FormField)
			ctx.Locals(cfg.ContextKey+"_header", cfg.HeaderName)

			method := strings.ToUpper(ctx.Method())
			if slices.Contains(cfg.SafeMethods, method) {
				return ctx.Next()
			}

			if err := validateToken(ctx, cfg); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			return ctx.Next()
		}
	}
}

// generateToken mints `base64(timestamp:nonce:identity:hmac)` bound to
// the caller identity.
func generateToken(ctx router.Context, cfg Config) (string, error) {
	nonce := make([]byte, defaultNonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	timestamp := time.Now().UTC().Unix()
	payload := fmt.Sprintf("%d:%s:%s", timestamp, hex.EncodeToString(nonce), cfg.Identifier(ctx))

	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))

	token := payload + ":" + hex.EncodeToString(mac.Sum(nil))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateToken(ctx router.Context, cfg Config) error {
	received := extractToken(ctx, cfg)
	if received == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(received)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestampStr, nonceHex, session, signatureHex := parts[0], parts[1], parts[2], parts[3]

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(nonceHex); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrTokenMismatch
	}

	payload := strings.Join(parts[:3], ":")
	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))

	if !hmac.Equal(signature, mac.Sum(nil)) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(session), []byte(cfg.Identifier(ctx))) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(cfg.Expiration)
		if time.Now().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}

func extractToken(ctx router.Context, cfg Config) string {
	if token := ctx.FormValue(cfg.FormField); token != "" {
		return token
	}
	return ctx.GetString(cfg.HeaderName, "")
}

func ipIdentifier(ctx router.Context) string {
	return "csrf_ip_" + ctx.IP()
}

func configDefault(config ...Config) Config {
	var cfg Config
	if len(config) > 0 {
		cfg = config[0]
	}

	if len(cfg.SecureKey) < minKeyLength {
		panic(fmt.Errorf("csrf: secure key must be at least %d bytes, got %d", minKeyLength, len(cfg.SecureKey)))
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FormField == "" {
		cfg.FormField = DefaultFormField
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}

	if cfg.SafeMethods == nil {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration == 0 {
		cfg.Expiration = 24 * time.Hour
	}

	if cfg.Identifier == nil {
		cfg.Identifier = ipIdentifier
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = defaultErrorHandler
	}

	return cfg
}

func defaultErrorHandler(ctx router.Context, err error) error {
	switch err {
	case ErrTokenMissing:
		return ctx.Status(router.StatusBadRequest).SendString("CSRF token missing")
	case ErrTokenMismatch:
		return ctx.Status(router.StatusForbidden).SendString("CSRF token mismatch")
	case ErrTokenExpired:
		return ctx.Status(router.StatusForbidden).SendString("CSRF token expired")
	default:
		return ctx.Status(router.StatusInternalServerError).SendString("CSRF validation error")
	}
}
