package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
)

// Config holds runtime configuration for capture, detection, actuation and the
// overlay window. Fields may be loaded from a JSON file, overridden by
// environment variables (see ApplyEnv) and finally by command-line flags.
// The loaded value is treated as immutable once the control loop starts.
type Config struct {
	Debug bool `json:"debug"`

	// Detection capability
	DetectorBackend string   `json:"detector_backend"` // "subprocess", "gocv" or "template"
	DetectorCmd     string   `json:"detector_cmd"`
	DetectorArgs    []string `json:"detector_args"`
	ModelPath       string   `json:"model_path"`
	ConfThreshold   float64  `json:"conf_threshold"`
	IoUThreshold    float64  `json:"iou_threshold"`

	// Reference image matching ("template" backend)
	TemplatePath      string  `json:"template_path"`
	TemplateThreshold float64 `json:"template_threshold"`
	TemplateMinScale  float64 `json:"template_min_scale"`
	TemplateMaxScale  float64 `json:"template_max_scale"`
	TemplateScaleStep float64 `json:"template_scale_step"`
	TemplateStride    int     `json:"template_stride"`

	// Frame source: "screen" follows the overlay window, "image" replays ImagePath.
	Source    string `json:"source"`
	ImagePath string `json:"image_path"`

	// Window decoration compensation (pixels).
	TitleBarOffset    int `json:"title_bar_offset"`
	ControlAreaHeight int `json:"control_area_height"`

	// Geometry controller
	EdgeMargin        int     `json:"edge_margin"`
	ResizeSensitivity float64 `json:"resize_sensitivity"`
	MaxResizeStep     int     `json:"max_resize_step"`
	MaxMoveStep       int     `json:"max_move_step"`
	MinWindowSize     int     `json:"min_window_size"`

	// Initial overlay window geometry; a zero width or height centers the
	// window on the primary display.
	WindowX int `json:"window_x"`
	WindowY int `json:"window_y"`
	WindowW int `json:"window_w"`
	WindowH int `json:"window_h"`

	// Trigger and actuation
	TriggerKey      string `json:"trigger_key"`
	SuppressTrigger bool   `json:"suppress_trigger"`
	MoveDurationMs  int    `json:"move_duration_ms"`

	// Loop timing
	IdleDelayMs       int `json:"idle_delay_ms"`
	ShutdownTimeoutMs int `json:"shutdown_timeout_ms"`
}

const (
	SourceScreen = "screen"
	SourceImage  = "image"

	BackendSubprocess = "subprocess"
	BackendGoCV       = "gocv"
	BackendTemplate   = "template"
)

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:             false,
		DetectorBackend:   BackendSubprocess,
		DetectorCmd:       "python3",
		DetectorArgs:      []string{"-u", "detector/worker.py"},
		ModelPath:         "models/model_yolo11n.onnx",
		ConfThreshold:     0.55,
		IoUThreshold:      0.45,
		TemplateThreshold: 0.80,
		TemplateMinScale:  0.75,
		TemplateMaxScale:  1.25,
		TemplateScaleStep: 0.05,
		TemplateStride:    2,
		Source:            SourceScreen,
		TitleBarOffset:    30,
		ControlAreaHeight: 50,
		EdgeMargin:        8,
		ResizeSensitivity: 0.1,
		MaxResizeStep:     2,
		MaxMoveStep:       20,
		MinWindowSize:     100,
		WindowX:           100,
		WindowY:           100,
		WindowW:           400,
		WindowH:           300,
		TriggerKey:        "t",
		SuppressTrigger:   false,
		MoveDurationMs:    200,
		IdleDelayMs:       10,
		ShutdownTimeoutMs: 2000,
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	c.DetectorBackend = strings.ToLower(strings.TrimSpace(c.DetectorBackend))
	switch c.DetectorBackend {
	case BackendSubprocess, BackendGoCV, BackendTemplate:
	default:
		c.DetectorBackend = BackendSubprocess
	}
	if c.ConfThreshold <= 0 || c.ConfThreshold > 1 {
		c.ConfThreshold = 0.55
	}
	if c.IoUThreshold <= 0 || c.IoUThreshold > 1 {
		c.IoUThreshold = 0.45
	}
	if c.TemplateThreshold <= 0 || c.TemplateThreshold > 1 {
		c.TemplateThreshold = 0.80
	}
	if c.TemplateMinScale <= 0 || c.TemplateMaxScale < c.TemplateMinScale || c.TemplateScaleStep <= 0 {
		c.TemplateMinScale, c.TemplateMaxScale, c.TemplateScaleStep = 0.75, 1.25, 0.05
	}
	if c.TemplateStride <= 0 {
		c.TemplateStride = 1
	}
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	if c.Source != SourceScreen && c.Source != SourceImage {
		c.Source = SourceScreen
	}
	if c.TitleBarOffset < 0 {
		c.TitleBarOffset = 0
	}
	if c.ControlAreaHeight < 0 {
		c.ControlAreaHeight = 0
	}
	if c.EdgeMargin <= 0 {
		c.EdgeMargin = 8
	}
	if c.ResizeSensitivity <= 0 || c.ResizeSensitivity > 1 {
		c.ResizeSensitivity = 0.1
	}
	if c.MaxResizeStep <= 0 {
		c.MaxResizeStep = 2
	}
	if c.MaxMoveStep <= 0 {
		c.MaxMoveStep = 20
	}
	if c.MinWindowSize <= 0 {
		c.MinWindowSize = 100
	}
	if c.WindowW > 0 && c.WindowW < c.MinWindowSize {
		c.WindowW = c.MinWindowSize
	}
	if c.WindowH > 0 && c.WindowH < c.MinWindowSize {
		c.WindowH = c.MinWindowSize
	}
	c.TriggerKey = strings.ToLower(strings.TrimSpace(c.TriggerKey))
	if c.TriggerKey == "" {
		c.TriggerKey = "t"
	}
	if c.MoveDurationMs < 0 {
		c.MoveDurationMs = 200
	}
	if c.IdleDelayMs <= 0 {
		c.IdleDelayMs = 10
	}
	if c.ShutdownTimeoutMs <= 0 {
		c.ShutdownTimeoutMs = 2000
	}
	return nil
}

// DefaultPath returns the per-user configuration file location.
func DefaultPath() string {
	p, err := xdg.ConfigFile(filepath.Join("pixel-overlay", "config.json"))
	if err != nil {
		return "config.json"
	}
	return p
}

// Load attempts to read configuration from the given JSON file path. If the file does not
// exist it returns DefaultConfig(). On JSON error it returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// Clone returns a deep copy so components can hold an immutable view.
func (c *Config) Clone() *Config {
	if c == nil {
		return DefaultConfig()
	}
	out := *c
	out.DetectorArgs = append([]string(nil), c.DetectorArgs...)
	return &out
}
