package mlflow

import (
	"context"
	"fmt"
	"time"

	"github.com/databricks/databricks-sdk-go/service/ml"

	"github.com/biromiro/swgnn/internal/models"
)

func (c *Client) LogParam(ctx context.Context, runID string, key string, value string) error {
	err := c.client.Experiments.LogParam(ctx, ml.LogParam{
		RunId: runID,
		Key:   key,
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to log parameter %s: %w", key, err)
	}

	return nil
}

// LogParams logs a parameter map, typically the flattened run
// configuration at run start.
func (c *Client) LogParams(ctx context.Context, runID string, params map[string]string) error {
	for key, value := range params {
		if err := c.LogParam(ctx, runID, key, value); err != nil {
			return err
		}
	}

	return nil
}

func (c *Client) LogMetric(ctx context.Context, runID string, metric models.Metric) error {
	logMetric := ml.LogMetric{
		RunId:     runID,
		Key:       metric.Key,
		Value:     metric.Value,
		Step:      metric.Step,
		Timestamp: metric.Timestamp.UnixMilli(),
	}
	if metric.Timestamp.IsZero() {
		logMetric.Timestamp = time.Now().UnixMilli()
	}

	if err := c.client.Experiments.LogMetric(ctx, logMetric); err != nil {
		return fmt.Errorf("failed to log metric %s: %w", metric.Key, err)
	}

	return nil
}

// LogEpoch records one epoch's metric map with the epoch number as the
// series step.
func (c *Client) LogEpoch(ctx context.Context, runID string, epoch int, values map[string]float64) error {
	for _, metric := range models.EpochMetrics(epoch, values, time.Now()) {
		if err := c.LogMetric(ctx, runID, metric); err != nil {
			return err
		}
	}
	return nil
}
