// Package config loads the gatekeeper service configuration from a YAML file,
// GATEKEEPER_ environment variables and defaults.
package config

import (
	"time"
)

type App struct {
	Name    string `mapstructure:"name" validate:"required"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Server struct {
	HTTPAddr        string        `mapstructure:"http_addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"duration_gt0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"duration_gt0"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" validate:"duration_gt0"`
	GracefulTimeout time.Duration `mapstructure:"graceful_timeout" validate:"duration_gt0"`
	TrustProxy      bool          `mapstructure:"trust_proxy"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes" validate:"gt=0"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Pretty bool   `mapstructure:"pretty"`
}

type DB struct {
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gt=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"duration_gt0"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"duration_gt0"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// Redis is optional. An empty Addr keeps the rate limit and blacklist caches
// in process.
type Redis struct {
	Addr     string `mapstructure:"addr" validate:"omitempty,hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db" validate:"gte=0"`
}

type Auth struct {
	SigningMethod      string        `mapstructure:"signing_method" validate:"oneof=hs256 ed25519"`
	KeyID              string        `mapstructure:"key_id"`
	Secret             string        `mapstructure:"secret" validate:"required_if=SigningMethod hs256"`
	PrivateKey         string        `mapstructure:"private_key" validate:"required_if=SigningMethod ed25519,omitempty,base64"`
	PublicKey          string        `mapstructure:"public_key" validate:"required_if=SigningMethod ed25519,omitempty,base64"`
	Issuer             string        `mapstructure:"issuer"`
	Audience           string        `mapstructure:"audience"`
	AccessTTL          time.Duration `mapstructure:"access_ttl" validate:"duration_gt0"`
	RefreshTTL         time.Duration `mapstructure:"refresh_ttl" validate:"duration_gt0,gtefield=AccessTTL"`
	RevokeChainOnReuse bool          `mapstructure:"revoke_chain_on_reuse"`
	DefaultRole        string        `mapstructure:"default_role" validate:"required"`
	AdminRole          string        `mapstructure:"admin_role" validate:"required"`
}

type Password struct {
	Algorithm  string `mapstructure:"algorithm" validate:"oneof=bcrypt argon2id"`
	BcryptCost int    `mapstructure:"bcrypt_cost" validate:"gte=4,lte=31"`
	Workers    int    `mapstructure:"workers" validate:"gte=0"`
}

type Links struct {
	PasswordResetBase string        `mapstructure:"password_reset_base" validate:"omitempty,url"`
	SignedURLTTL      time.Duration `mapstructure:"signed_url_ttl" validate:"duration_gt0"`
	SignedURLMaxTTL   time.Duration `mapstructure:"signed_url_max_ttl" validate:"duration_gt0,gtefield=SignedURLTTL"`
}

type Mail struct {
	SMTPAddr       string        `mapstructure:"smtp_addr" validate:"omitempty,hostname_port"`
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	From           string        `mapstructure:"from" validate:"required_with=SMTPAddr,omitempty,email"`
	UseTLS         bool          `mapstructure:"use_tls"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"duration_gt0"`
	SubjectPrefix  string        `mapstructure:"subject_prefix"`
	SendWelcome    bool          `mapstructure:"send_welcome"`
	VerifyOnSignup bool          `mapstructure:"verify_on_signup"`
}

// Files selects the download source: "local" serves LocalDir, "s3" a bucket.
type Files struct {
	Backend     string `mapstructure:"backend" validate:"oneof=local s3"`
	LocalDir    string `mapstructure:"local_dir" validate:"required_if=Backend local"`
	S3Bucket    string `mapstructure:"s3_bucket" validate:"required_if=Backend s3"`
	S3Region    string `mapstructure:"s3_region"`
	S3Prefix    string `mapstructure:"s3_prefix"`
	S3Endpoint  string `mapstructure:"s3_endpoint" validate:"omitempty,url"`
	S3AccessKey string `mapstructure:"s3_access_key"`
	S3SecretKey string `mapstructure:"s3_secret_key"`
	S3PathStyle bool   `mapstructure:"s3_path_style"`
}

// Federation is disabled while JWKSURL is empty.
type Federation struct {
	Issuers  []string `mapstructure:"issuers" validate:"required_with=JWKSURL"`
	Audience string   `mapstructure:"audience" validate:"required_with=JWKSURL"`
	JWKSURL  string   `mapstructure:"jwks_url" validate:"omitempty,url"`
}

type Observability struct {
	RateLimit        bool          `mapstructure:"rate_limit"`
	Audit            bool          `mapstructure:"audit"`
	AuditBuffer      int           `mapstructure:"audit_buffer" validate:"gt=0"`
	Metrics          bool          `mapstructure:"metrics"`
	LatencyHistogram bool          `mapstructure:"latency_histogram"`
	SweepInterval    time.Duration `mapstructure:"sweep_interval" validate:"duration_gt0"`
}

type Config struct {
	App           App           `mapstructure:"app"`
	Server        Server        `mapstructure:"server"`
	Log           Log           `mapstructure:"log"`
	DB            DB            `mapstructure:"db"`
	Redis         Redis         `mapstructure:"redis"`
	Auth          Auth          `mapstructure:"auth"`
	Password      Password      `mapstructure:"password"`
	Links         Links         `mapstructure:"links"`
	Mail          Mail          `mapstructure:"mail"`
	Files         Files         `mapstructure:"files"`
	Federation    Federation    `mapstructure:"federation"`
	Observability Observability `mapstructure:"observability"`
}
