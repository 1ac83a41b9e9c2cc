package config

// GatewayConfig：api 网关配置（gatewayConfig.yaml）
type GatewayConfig struct {
	Running struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"running"`
	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Mysql struct {
		DSN string `mapstructure:"dsn"`
	} `mapstructure:"mysql"`
	Kafka struct {
		Brokers      []string `mapstructure:"brokers"`
		RequestTopic string   `mapstructure:"requestTopic"`
		ReplyTopic   string   `mapstructure:"replyTopic"`
		ReplyGroup   string   `mapstructure:"replyGroup"`
	} `mapstructure:"kafka"`
	RateLimit struct {
		Limit         int `mapstructure:"limit"`
		WindowSeconds int `mapstructure:"windowSeconds"`
	} `mapstructure:"rateLimit"`
}

// LivekitConfig：livekit-service（Room Backend worker）配置
type LivekitConfig struct {
	Kafka struct {
		Brokers      []string `mapstructure:"brokers"`
		RequestTopic string   `mapstructure:"requestTopic"`
		Group        string   `mapstructure:"group"`
	} `mapstructure:"kafka"`
	Livekit struct {
		APIKey    string `mapstructure:"apiKey"`
		APISecret string `mapstructure:"apiSecret"`
		WsURL     string `mapstructure:"wsUrl"`
	} `mapstructure:"livekit"`
}
