package global

import (
	cfg "github.com/mailio/go-web3-kit/config"
)

// Conf global config
var Conf Config

type Config struct {
	cfg.YamlConfig `yaml:",inline"`
	WebAuthn       WebAuthnConfig   `yaml:"webauthn"`
	Session        SessionConfig    `yaml:"session"`
	Kdf            KdfConfig        `yaml:"kdf"`
	Passphrase     PassphraseConfig `yaml:"passphrase"`
	CouchDB        CouchDBConfig    `yaml:"couchdb"`
	Redis          RedisConfig      `yaml:"redis"`
	Storage        StorageConfig    `yaml:"storage"`
	Prometheus     PrometheusConfig `yaml:"prometheus"`
	RateLimit      RateLimitConfig  `yaml:"rateLimit"`
}

// WebAuthnConfig describes the relying party and the registration options handed to the browser
type WebAuthnConfig struct {
	RPID                    string              `yaml:"rpId"`
	RPDisplayName           string              `yaml:"rpDisplayName"`
	RPOrigins               []string            `yaml:"rpOrigins"`
	TimeoutMs               int                 `yaml:"timeoutMs"`
	Attestation             string              `yaml:"attestation"`             // none, indirect, direct, enterprise
	AuthenticatorAttachment string              `yaml:"authenticatorAttachment"` // platform, cross-platform
	ResidentKey             string              `yaml:"residentKey"`             // discouraged, preferred, required
	UserVerification        string              `yaml:"userVerification"`        // discouraged, preferred, required
	Algorithms              []int               `yaml:"algorithms"`              // COSE algorithm identifiers (-7 ES256, -257 RS256, -8 EdDSA)
	PlaceholderUser         PlaceholderUserConf `yaml:"placeholderUser"`
}

type PlaceholderUserConf struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	DisplayName string `yaml:"displayName"`
}

type SessionConfig struct {
	Store               string `yaml:"store"` // memory or redis
	ChallengeTTLSeconds int    `yaml:"challengeTtlSeconds"`
	UserSessionTTLHours int    `yaml:"userSessionTtlHours"`
	ChallengeCookie     string `yaml:"challengeCookie"`
	UserCookie          string `yaml:"userCookie"`
	CookieDomain        string `yaml:"cookieDomain"`
	SecureCookies       bool   `yaml:"secureCookies"`
}

type KdfConfig struct {
	Iterations int `yaml:"iterations"`
	KeyLength  int `yaml:"keyLength"`
}

type PassphraseConfig struct {
	WordListPath string `yaml:"wordListPath"`
}

type CouchDBConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Scheme   string `yaml:"scheme"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	Username string `yaml:"username"`
	DB       int    `yaml:"db"`
}

type StorageConfig struct {
	Type   string `yaml:"type"` // database or s3
	Key    string `yaml:"key"`
	Secret string `yaml:"secret"`
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`
	Prefix string `yaml:"prefix"`
}

type PrometheusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled"`
	RequestsPerSecond int  `yaml:"requestsPerSecond"`
	LoginPerSecond    int  `yaml:"loginPerSecond"`
}
