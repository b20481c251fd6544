package config

import (
	"fmt"
	"io/fs"
	"time"
)

// BaseConfig is the root application configuration. Values load from
// config/app.json with environment overrides via the config container.
type BaseConfig struct {
	Server      Server      `json:"server" koanf:"server"`
	Auth        Auth        `json:"auth" koanf:"auth"`
	Persistence Persistence `json:"persistence" koanf:"persistence"`
	Views       Views       `json:"views" koanf:"views"`
	SMTP        SMTP        `json:"smtp" koanf:"smtp"`
}

func (a BaseConfig) Validate() error {
	if a.Auth.SigningKey == "" {
		return fmt.Errorf("auth.signing_key is required")
	}
	if len(a.Auth.CSRFKey) < 32 {
		return fmt.Errorf("auth.csrf_key must be at least 32 bytes")
	}
	return nil
}

func (a *BaseConfig) GetServer() *Server {
	return &a.Server
}

func (a *BaseConfig) GetAuth() *Auth {
	return &a.Auth
}

func (a *BaseConfig) GetPersistence() *Persistence {
	return &a.Persistence
}

func (a *BaseConfig) GetViews() *Views {
	return &a.Views
}

func (a *BaseConfig) GetSMTP() *SMTP {
	return &a.SMTP
}

type Server struct {
	Addr    string `json:"addr" koanf:"addr"`
	BaseURL string `json:"base_url" koanf:"base_url"`
}

func (s Server) GetAddr() string {
	if s.Addr == "" {
		return ":8572"
	}
	return s.Addr
}

func (s Server) GetBaseURL() string {
	if s.BaseURL == "" {
		return "http://localhost:8572"
	}
	return s.BaseURL
}

type Auth struct {
	SigningKey            string   `json:"signing_key" koanf:"signing_key"`
	SigningMethod         string   `json:"signing_method" koanf:"signing_method"`
	ContextKey            string   `json:"context_key" koanf:"context_key"`
	TokenExpiration       int      `json:"token_expiration" koanf:"token_expiration"`
	ExtendedTokenDuration int      `json:"extended_token_duration" koanf:"extended_token_duration"`
	Issuer                string   `json:"issuer" koanf:"issuer"`
	Audience              []string `json:"audience" koanf:"audience"`
	RejectedRouteKey      string   `json:"rejected_route_key" koanf:"rejected_route_key"`
	RejectedRouteDefault  string   `json:"rejected_route_default" koanf:"rejected_route_default"`
	CSRFKey               string   `json:"csrf_key" koanf:"csrf_key"`
	PasswordMinLength     int      `json:"password_min_length" koanf:"password_min_length"`
	VerificationTokenTTL  string   `json:"verification_token_ttl" koanf:"verification_token_ttl"`
}

func (a *Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a *Auth) GetSigningMethod() string {
	if a.SigningMethod == "" {
		return "HS256"
	}
	return a.SigningMethod
}

func (a *Auth) GetContextKey() string {
	if a.ContextKey == "" {
		return "user"
	}
	return a.ContextKey
}

// GetTokenExpiration returns the session duration in hours.
func (a *Auth) GetTokenExpiration() int {
	if a.TokenExpiration == 0 {
		return 24
	}
	return a.TokenExpiration
}

func (a *Auth) GetExtendedTokenDuration() int {
	return a.ExtendedTokenDuration
}

func (a *Auth) GetIssuer() string {
	if a.Issuer == "" {
		return "accounts"
	}
	return a.Issuer
}

func (a *Auth) GetAudience() []string {
	if len(a.Audience) == 0 {
		return []string{"accounts"}
	}
	return a.Audience
}

func (a *Auth) GetRejectedRouteKey() string {
	if a.RejectedRouteKey == "" {
		return "rejected_route"
	}
	return a.RejectedRouteKey
}

func (a *Auth) GetRejectedRouteDefault() string {
	if a.RejectedRouteDefault == "" {
		return "/"
	}
	return a.RejectedRouteDefault
}

// GetCSRFKey returns the key used to sign CSRF tokens.
func (a *Auth) GetCSRFKey() []byte {
	return []byte(a.CSRFKey)
}

func (a *Auth) GetPasswordMinLength() int {
	if a.PasswordMinLength == 0 {
		return 10
	}
	return a.PasswordMinLength
}

// GetVerificationTokenTTL returns how long verification links stay valid.
func (a *Auth) GetVerificationTokenTTL() time.Duration {
	if a.VerificationTokenTTL == "" {
		return 24 * time.Hour
	}
	dur, err := time.ParseDuration(a.VerificationTokenTTL)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", a.VerificationTokenTTL),
		)
	}
	return dur
}

type Persistence struct {
	Driver                string `json:"driver" koanf:"driver"`
	DSN                   string `json:"dsn" koanf:"dsn"`
	Debug                 bool   `json:"debug" koanf:"debug"`
	PingTimeoutExpression string `json:"ping_timeout" koanf:"ping_timeout"`
	Seed                  bool   `json:"seed" koanf:"seed"`
}

func (p Persistence) GetDriver() string {
	if p.Driver == "" {
		return "sqlite"
	}
	return p.Driver
}

func (p Persistence) GetDSN() string {
	if p.DSN == "" {
		return "file:accounts.db?cache=shared&mode=rwc"
	}
	return p.DSN
}

func (p Persistence) GetDebug() bool {
	return p.Debug
}

func (p Persistence) GetSeed() bool {
	return p.Seed
}

func (p Persistence) GetPingTimeout() time.Duration {
	if p.PingTimeoutExpression == "" {
		return 5 * time.Second
	}
	dur, err := time.ParseDuration(p.PingTimeoutExpression)
	if err != nil {
		panic(
			fmt.Sprintf("unable to parse time: expr %s", p.PingTimeoutExpression),
		)
	}
	return dur
}

type Views struct {
	AssetsDir string `json:"assets_dir" koanf:"assets_dir"`
	DirFS     string `json:"dir_fs" koanf:"dir_fs"`
	Ext       string `json:"ext" koanf:"ext"`
	Reload    bool   `json:"reload" koanf:"reload"`
	Debug     bool   `json:"debug" koanf:"debug"`

	assetsFS      fs.FS
	templatesFS   []fs.FS
	templateFuncs map[string]any
}

func (v *Views) GetAssetsDir() string {
	if v.AssetsDir == "" {
		return "public"
	}
	return v.AssetsDir
}

func (v *Views) GetDirFS() string {
	if v.DirFS == "" {
		return "views"
	}
	return v.DirFS
}

func (v *Views) GetExt() string {
	if v.Ext == "" {
		return ".html"
	}
	return v.Ext
}

func (v *Views) GetReload() bool {
	return v.Reload
}

func (v *Views) GetDebug() bool {
	return v.Debug
}

func (v *Views) SetAssetsFS(fsys fs.FS) {
	v.assetsFS = fsys
}

func (v *Views) GetAssetsFS() fs.FS {
	return v.assetsFS
}

func (v *Views) SetTemplatesFS(fsys []fs.FS) {
	v.templatesFS = fsys
}

func (v *Views) GetTemplatesFS() []fs.FS {
	return v.templatesFS
}

func (v *Views) SetTemplateFunctions(funcs map[string]any) {
	v.templateFuncs = funcs
}

func (v *Views) GetTemplateFunctions() map[string]any {
	return v.templateFuncs
}

type SMTP struct {
	Enabled  bool   `json:"enabled" koanf:"enabled"`
	Addr     string `json:"addr" koanf:"addr"`
	From     string `json:"from" koanf:"from"`
	Username string `json:"username" koanf:"username"`
	Password string `json:"password" koanf:"password"`
}

func (s *SMTP) GetEnabled() bool {
	return s.Enabled
}

func (s *SMTP) GetSMTPAddr() string {
	if s.Addr == "" {
		return "localhost:25"
	}
	return s.Addr
}

func (s *SMTP) GetSMTPFrom() string {
	if s.From == "" {
		return "no-reply@localhost"
	}
	return s.From
}

func (s *SMTP) GetSMTPUsername() string {
	return s.Username
}

func (s *SMTP) GetSMTPPassword() string {
	return s.Password
}
