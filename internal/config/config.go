package config

// Config is everything the server and marketctl read from the environment.
// Each group is a zero-size type whose getters read env vars on every call.
type Config interface {
	EnvConfig
	CorsConfig
	AuthConfig
	SecurityConfig
	StoreConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetDataFolder() string
	GetPublicBaseURL() string

	// outgoing mail
	GetSmtpHost() string
	GetSmtpPort() string
	GetSmtpPassword() string
	GetSmtpAccount() string
	GetSmtpFrom() string

	// first admin account
	GetAdminEmail() string
	GetAdminPassword() string

	// event publishing
	GetAMQPURL() string
	GetAMQPExchange() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Auth
	Security
	Store
}

func New() Config {
	return mainConfig{}
}
