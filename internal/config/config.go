package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type AppCfg struct{ Env, Port string }

type GatewayCfg struct {
	CardURL           string
	RedirectWalletURL string
	ThreeDSecureURL   string
	NativeWalletURL   string
	TimeoutSec        int
}

type StoreCfg struct {
	RedisAddr string
	KeyPrefix string
}

type DBCfg struct{ DSN string } // empty DSN disables flow history

type FlowCfg struct {
	// CancelGraceWindow suppresses provider cancellations arriving this
	// soon after a flow starts. 0 disables the workaround.
	CancelGraceWindow time.Duration
}

type SecurityCfg struct{ APIToken string }

type Cfg struct {
	App     AppCfg
	Gateway GatewayCfg
	Store   StoreCfg
	DB      DBCfg
	Flow    FlowCfg
	Sec     SecurityCfg
}

func Load() Cfg {
	// .env is optional; process env wins either way.
	_ = godotenv.Load()

	viper.AutomaticEnv()
	viper.SetDefault("APP_ENV", "sandbox")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("GATEWAY_TIMEOUT_SEC", 20)
	viper.SetDefault("STORE_KEY_PREFIX", "paybridge")
	viper.SetDefault("CANCEL_GRACE_MS", 500)

	cfg := Cfg{
		App: AppCfg{
			Env:  viper.GetString("APP_ENV"),
			Port: viper.GetString("APP_PORT"),
		},
		Gateway: GatewayCfg{
			CardURL:           viper.GetString("GATEWAY_CARD_URL"),
			RedirectWalletURL: viper.GetString("GATEWAY_REDIRECT_WALLET_URL"),
			ThreeDSecureURL:   viper.GetString("GATEWAY_THREE_D_SECURE_URL"),
			NativeWalletURL:   viper.GetString("GATEWAY_NATIVE_WALLET_URL"),
			TimeoutSec:        viper.GetInt("GATEWAY_TIMEOUT_SEC"),
		},
		Store: StoreCfg{
			RedisAddr: viper.GetString("REDIS_ADDR"),
			KeyPrefix: viper.GetString("STORE_KEY_PREFIX"),
		},
		DB: DBCfg{DSN: viper.GetString("DB_DSN")},
		Flow: FlowCfg{
			CancelGraceWindow: time.Duration(viper.GetInt("CANCEL_GRACE_MS")) * time.Millisecond,
		},
		Sec: SecurityCfg{APIToken: strings.TrimSpace(viper.GetString("API_TOKEN"))},
	}

	// Fail fast on required settings.
	if cfg.Store.RedisAddr == "" {
		log.Fatal().Msg("REDIS_ADDR is required")
	}
	if cfg.Sec.APIToken == "" {
		log.Fatal().Msg("API_TOKEN is required")
	}
	if cfg.Gateway.CardURL == "" || cfg.Gateway.RedirectWalletURL == "" ||
		cfg.Gateway.ThreeDSecureURL == "" || cfg.Gateway.NativeWalletURL == "" {
		log.Fatal().Msg("all four GATEWAY_*_URL settings are required")
	}

	return cfg
}
