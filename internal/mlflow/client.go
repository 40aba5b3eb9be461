// Package mlflow tracks training runs on an MLflow server: run lifecycle,
// the flattened run configuration as parameters, per-epoch metric series,
// and artifact upload of run outputs.
package mlflow

import (
	"fmt"

	"github.com/databricks/databricks-sdk-go"
)

type Client struct {
	client *databricks.WorkspaceClient
	config *TrackingConfig
}

func NewClient(cfg *TrackingConfig) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tracking config: %w", err)
	}

	var databricksConfig *databricks.Config

	if cfg.IsDatabricks() {
		databricksConfig = &databricks.Config{}

		if cfg.TrackingURI == "databricks" {
			if cfg.DatabricksHost != "" {
				databricksConfig.Host = cfg.DatabricksHost
			}
		} else if profile := cfg.DatabricksProfile(); profile != "" {
			databricksConfig.Profile = profile
		} else {
			databricksConfig.Host = cfg.TrackingURI
		}

		// Explicit token overrides the profile.
		if cfg.DatabricksToken != "" {
			databricksConfig.Token = cfg.DatabricksToken
		}

		if databricksConfig.Host == "" && databricksConfig.Profile == "" {
			return nil, fmt.Errorf("Databricks host or profile is required when tracking to Databricks. Set DATABRICKS_HOST, use a full Databricks URL as tracking URI, or specify databricks://{profile}")
		}
	} else {
		// A regular MLflow server ignores the token, but the SDK insists
		// on some credential.
		databricksConfig = &databricks.Config{
			Host:  cfg.TrackingURI,
			Token: "dummy-token-for-regular-mlflow",
		}
	}

	client, err := databricks.NewWorkspaceClient(databricksConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create MLflow client: %w", err)
	}

	return &Client{
		client: client,
		config: cfg,
	}, nil
}
