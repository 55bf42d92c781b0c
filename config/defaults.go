package config

import (
	"time"

	"github.com/spf13/viper"
)

// DefaultEnvironments are the environments known out of the box.
func DefaultEnvironments() map[string]EnvironmentConfig {
	return map[string]EnvironmentConfig{
		"dev":        {BaseURL: "https://retail.dev.gowithgeo.com", APIBaseURL: "https://api.dev.gowithgeo.com"},
		"qa":         {BaseURL: "https://retail.qa.gowithgeo.com", APIBaseURL: "https://api.qa.gowithgeo.com"},
		"staging":    {BaseURL: "https://retail.stg.gowithgeo.com", APIBaseURL: "https://api.stg.gowithgeo.com"},
		"production": {BaseURL: "https://www.gowithgeo.com", APIBaseURL: "https://api.gowithgeo.com"},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "qa")
	v.SetDefault("project_name", "qapages")
	v.SetDefault("suites_file", "suites.yml")
	v.SetDefault("data_dir", "data")
	v.SetDefault("artifacts_dir", "artifacts")
	v.SetDefault("retention_days", 30)
	// Keys without a meaningful default still need one so QAPAGES_* env values
	// are seen by Unmarshal.
	v.SetDefault("api_base_url", "")
	v.SetDefault("api_token", "")

	envs := map[string]any{}
	for name, e := range DefaultEnvironments() {
		envs[name] = map[string]any{"base_url": e.BaseURL, "api_base_url": e.APIBaseURL}
	}
	v.SetDefault("environments", envs)

	v.SetDefault("site.root", "site")
	v.SetDefault("site.title", "QA Test Runs")
	v.SetDefault("site.keep_runs", 20)
	v.SetDefault("site.public_url", "")

	v.SetDefault("health.attempts", 3)
	v.SetDefault("health.timeout", 10*time.Second)
	v.SetDefault("health.backoff", 2*time.Second)
	v.SetDefault("health.endpoint", "/api/auth/login")
	v.SetDefault("health.endpoints", map[string]string{
		"auth":     "/api/auth/login",
		"flights":  "/api/flight/search-request",
		"packages": "/api/package/all",
		"visa":     "/api/visa/create",
	})

	v.SetDefault("slack.webhook_url", "")
	v.SetDefault("slack.token", "")
	v.SetDefault("slack.channel", "#qa-automation")
	v.SetDefault("slack.username", "")
	v.SetDefault("slack.icon_emoji", ":robot_face:")

	v.SetDefault("email.smtp_server", "smtp.gmail.com")
	v.SetDefault("email.port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.to", "")

	v.SetDefault("browser.bin", "")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window", "1920x1080")
	v.SetDefault("browser.timeout", 30*time.Second)

	v.SetDefault("runner.parallelism", 2)
	v.SetDefault("runner.step_timeout", 0)

	v.SetDefault("server.port", "8080")
}
