package config

import (
	"github.com/MrEthical07/gatekeeper/federation"
	"github.com/MrEthical07/gatekeeper/filestore"
	"github.com/MrEthical07/gatekeeper/internal/obs"
	"github.com/MrEthical07/gatekeeper/mail"
	"github.com/MrEthical07/gatekeeper/store/gormstore"
)

func (c *Config) AsLogConfig() obs.LogConfig {
	return obs.LogConfig{
		Level:   c.Log.Level,
		Pretty:  c.Log.Pretty,
		App:     c.App.Name,
		Env:     c.App.Env,
		Version: c.App.Version,
	}
}

func (d DB) AsStoreOptions() gormstore.Options {
	return gormstore.Options{
		MaxOpenConns:    d.MaxOpenConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
	}
}

// Enabled reports whether SMTP delivery is configured. Without it mail is logged.
func (m Mail) Enabled() bool { return m.SMTPAddr != "" }

func (m Mail) AsSMTPConfig() mail.SMTPConfig {
	return mail.SMTPConfig{
		Addr:          m.SMTPAddr,
		User:          m.User,
		Password:      m.Password,
		From:          m.From,
		UseTLS:        m.UseTLS,
		Timeout:       m.Timeout,
		SubjectPrefix: m.SubjectPrefix,
	}
}

func (f Files) AsS3Config() filestore.S3Config {
	return filestore.S3Config{
		Region:       f.S3Region,
		Bucket:       f.S3Bucket,
		Prefix:       f.S3Prefix,
		BaseEndpoint: f.S3Endpoint,
		AccessKey:    f.S3AccessKey,
		SecretKey:    f.S3SecretKey,
		UsePathStyle: f.S3PathStyle,
	}
}

func (f Federation) Enabled() bool { return f.JWKSURL != "" }

func (f Federation) AsVerifierConfig() federation.Config {
	return federation.Config{
		Issuers:  f.Issuers,
		Audience: f.Audience,
		JWKSURL:  f.JWKSURL,
	}
}
