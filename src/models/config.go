package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	Security MSecurityConfig `yaml:"security"`
	Network  MNetworkConfig  `yaml:"network"`
	Feed     MFeedConfig     `yaml:"feed"`
}

type MSecurityConfig struct {
	AdminSecret string `yaml:"admin_secret"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MFeedConfig struct {
	TreasuryWsURL     string `yaml:"treasury_ws_url"`
	TreasuryChannel   string `yaml:"treasury_channel"`
	TreasuryEvent     string `yaml:"treasury_event"`
	UsdIdrURL         string `yaml:"usd_idr_url"`
	UsdPollIntervalMs int    `yaml:"usd_poll_interval_ms"`
}
