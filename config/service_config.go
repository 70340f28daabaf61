package config

// a type with service configuration parameters
type serviceConfig struct {
	// Port on which the service listens.
	Port int `json:"port" yaml:"port"`
	// Maximum number of allowed incoming connections.
	MaxConnections int `json:"maxConnections" yaml:"max_connections"`
	// The externally visible base URL (used for landing pages and DOIs).
	BaseUrl string `yaml:"base_url"`
	// Name of the session cookie.
	SessionCookie string `yaml:"session_cookie"`
	// Base64 fernet key used to seal the impersonation cookie.
	// DO NOT STORE THIS IN A CONFIG FILE! Use an environment variable instead.
	CookieKey string `yaml:"cookie_key"`
	// True when running against the production DataCite API.
	InProduction bool `yaml:"in_production"`
	// feature flags
	Maintenance          bool `yaml:"maintenance"`
	AllowCrawlers        bool `yaml:"allow_crawlers"`
	DisableTwoFactor     bool `yaml:"disable_2fa"`
	DisableCollaboration bool `yaml:"disable_collaboration"`
}

type identityConfig struct {
	// the identity provider used by the UI login flow ("saml", "orcid", "none")
	Provider string `yaml:"provider"`
	// identity provider metadata URL (saml) or client id (orcid)
	MetadataUrl string `yaml:"metadata_url"`
	ClientId    string `yaml:"client_id"`
}
