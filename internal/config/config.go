package config

type Config interface {
	EnvConfig
	TokenConfig
	GoogleConfig
}

type mainConfig struct {
	EnvVars
	Tokens
	Google
}

func New() Config {
	return mainConfig{}
}
