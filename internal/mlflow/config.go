package mlflow

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Databricks domain suffixes for URL detection
var databricksDomains = []string{
	".cloud.databricks.com",
	".azuredatabricks.net",
	".gcp.databricks.com",
}

// TrackingConfig is the experiment-tracking configuration, resolved from
// flags and SWGNN_* environment variables by the command layer.
type TrackingConfig struct {
	TrackingURI     string
	ExperimentID    string
	DatabricksHost  string
	DatabricksToken string
}

// TrackingFromViper reads the tracking settings bound on the root command.
func TrackingFromViper() *TrackingConfig {
	return &TrackingConfig{
		TrackingURI:     viper.GetString("tracking_uri"),
		ExperimentID:    viper.GetString("experiment_id"),
		DatabricksHost:  viper.GetString("databricks_host"),
		DatabricksToken: viper.GetString("databricks_token"),
	}
}

// Enabled reports whether tracking should be wired into the run at all.
// Without an experiment ID there is nothing to attach metrics to.
func (c *TrackingConfig) Enabled() bool {
	return c.ExperimentID != ""
}

func (c *TrackingConfig) Validate() error {
	if c.TrackingURI == "" {
		return fmt.Errorf("tracking URI is required")
	}
	return nil
}

// IsDatabricks checks if the tracking URI points to Databricks
func (c *TrackingConfig) IsDatabricks() bool {
	if c.TrackingURI == "databricks" {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "databricks://") {
		return true
	}

	if strings.HasPrefix(c.TrackingURI, "https://") {
		host := strings.TrimPrefix(c.TrackingURI, "https://")
		if idx := strings.Index(host, "/"); idx != -1 {
			host = host[:idx]
		}
		for _, domain := range databricksDomains {
			if strings.HasSuffix(host, domain) {
				return true
			}
		}
	}

	return false
}

// DatabricksProfile extracts the profile name from databricks://{profile}
func (c *TrackingConfig) DatabricksProfile() string {
	if !strings.HasPrefix(c.TrackingURI, "databricks://") {
		return ""
	}

	profile := strings.TrimPrefix(c.TrackingURI, "databricks://")
	if idx := strings.Index(profile, "/"); idx != -1 {
		profile = profile[:idx]
	}
	return profile
}
