package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix is prepended to every environment override key.
const EnvPrefix = "PIXEL_OVERLAY_"

// LoadDotenv merges KEY=VALUE pairs from the given .env file into the process
// environment without overwriting variables that are already set. A missing
// file is not an error.
func LoadDotenv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// ApplyEnv overrides fields from PIXEL_OVERLAY_* environment variables.
// Unparseable values are ignored and the result is re-validated.
func (c *Config) ApplyEnv() {
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	flt := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				*dst = f
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}

	boolean("DEBUG", &c.Debug)
	str("DETECTOR_BACKEND", &c.DetectorBackend)
	str("DETECTOR_CMD", &c.DetectorCmd)
	if v, ok := os.LookupEnv(EnvPrefix + "DETECTOR_ARGS"); ok {
		c.DetectorArgs = strings.Fields(v)
	}
	str("MODEL_PATH", &c.ModelPath)
	flt("CONF_THRESHOLD", &c.ConfThreshold)
	flt("IOU_THRESHOLD", &c.IoUThreshold)
	str("TEMPLATE_PATH", &c.TemplatePath)
	flt("TEMPLATE_THRESHOLD", &c.TemplateThreshold)
	num("TEMPLATE_STRIDE", &c.TemplateStride)
	str("SOURCE", &c.Source)
	str("IMAGE_PATH", &c.ImagePath)
	num("TITLE_BAR_OFFSET", &c.TitleBarOffset)
	num("CONTROL_AREA_HEIGHT", &c.ControlAreaHeight)
	num("EDGE_MARGIN", &c.EdgeMargin)
	flt("RESIZE_SENSITIVITY", &c.ResizeSensitivity)
	num("MAX_RESIZE_STEP", &c.MaxResizeStep)
	num("MAX_MOVE_STEP", &c.MaxMoveStep)
	num("MIN_WINDOW_SIZE", &c.MinWindowSize)
	str("TRIGGER_KEY", &c.TriggerKey)
	boolean("SUPPRESS_TRIGGER", &c.SuppressTrigger)
	num("MOVE_DURATION_MS", &c.MoveDurationMs)
	num("IDLE_DELAY_MS", &c.IdleDelayMs)
	num("SHUTDOWN_TIMEOUT_MS", &c.ShutdownTimeoutMs)
	_ = c.Validate()
}
