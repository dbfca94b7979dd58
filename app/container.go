package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/pixel-overlay-go/config"
	"github.com/soocke/pixel-overlay-go/domain/action"
	"github.com/soocke/pixel-overlay-go/domain/capture"
	"github.com/soocke/pixel-overlay-go/domain/detect"
	"github.com/soocke/pixel-overlay-go/domain/engine"
	"github.com/soocke/pixel-overlay-go/domain/geometry"
	"github.com/soocke/pixel-overlay-go/domain/trigger"
	"github.com/soocke/pixel-overlay-go/ui/presenter"
)

// Factories create the OS-facing collaborators. Tests replace them.
type Factories struct {
	Detector func(cfg *config.Config, logger *slog.Logger) (detect.Detector, error)
	Grabber  func() capture.Grabber
	Pointer  func() action.Pointer
	Keys     func(suppress bool, logger *slog.Logger) trigger.Source
	Display  func() (image.Rectangle, error)
	Desktop  func() image.Rectangle
}

// DefaultFactories returns the production collaborators.
func DefaultFactories() Factories {
	return Factories{
		Detector: NewDetector,
		Grabber:  capture.NewSystemGrabber,
		Pointer:  action.NewSystemPointer,
		Keys:     trigger.NewSystemSource,
		Display:  capture.PrimaryDisplay,
		Desktop:  capture.DesktopBounds,
	}
}

// Container assembles the domain services and the display sink. The Tk
// views and presenters are attached by the UI shell.
type Container struct {
	Config   *config.Config
	Logger   *slog.Logger
	Geometry *geometry.Controller
	Source   capture.Source
	Detector detect.Detector
	Pointer  action.Pointer
	Actuator *action.Actuator  // nil in image mode
	Trigger  *trigger.Listener // nil in image mode
	Sink     *presenter.DisplaySink
	Engine   *engine.Engine

	summaryOnce sync.Once
}

// NewDetector constructs the configured detection backend. Any failure is
// fatal to startup.
func NewDetector(cfg *config.Config, logger *slog.Logger) (detect.Detector, error) {
	switch cfg.DetectorBackend {
	case config.BackendGoCV:
		return detect.NewGoCV(cfg.ModelPath, cfg.ConfThreshold, cfg.IoUThreshold, logger)
	case config.BackendTemplate:
		t, err := detect.LoadTemplate(cfg.TemplatePath, detect.TemplateOptions{
			Threshold: cfg.TemplateThreshold,
			MinScale:  cfg.TemplateMinScale,
			MaxScale:  cfg.TemplateMaxScale,
			ScaleStep: cfg.TemplateScaleStep,
			Stride:    cfg.TemplateStride,
		}, logger.With("component", "detector"))
		if err != nil {
			return nil, err
		}
		return t, nil
	default:
		d, err := detect.NewSubprocess(detect.SubprocessOptions{
			Command:   cfg.DetectorCmd,
			Args:      cfg.DetectorArgs,
			ModelPath: cfg.ModelPath,
			Conf:      cfg.ConfThreshold,
			IoU:       cfg.IoUThreshold,
		}, logger.With("component", "detector"))
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

// Build constructs every component from an immutable copy of cfg. It fails
// when the frame source or the detector cannot be created; nothing is left
// running on failure.
func Build(cfg *config.Config, logger *slog.Logger, f Factories) (*Container, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg = cfg.Clone()
	_ = cfg.Validate()
	c := &Container{Config: cfg, Logger: logger, Sink: presenter.NewDisplaySink()}

	c.Geometry = geometry.NewController(initialGeometry(cfg, f.Display, logger), geometry.Limits{
		Margin:        cfg.EdgeMargin,
		Sensitivity:   cfg.ResizeSensitivity,
		MaxResizeStep: cfg.MaxResizeStep,
		MaxMoveStep:   cfg.MaxMoveStep,
		MinSize:       cfg.MinWindowSize,
	})

	switch cfg.Source {
	case config.SourceImage:
		src, err := capture.LoadImageSource(cfg.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("image source: %w", err)
		}
		w, h := src.Size()
		logger.Info("static image source", "path", src.Path(), "width", w, "height", h)
		c.Source = src
	default:
		var opts []capture.ScreenOption
		if f.Desktop != nil {
			opts = append(opts, capture.WithDesktopBounds(f.Desktop))
		}
		c.Source = capture.NewScreenSource(f.Grabber(), capture.Insets{
			TitleBar:    cfg.TitleBarOffset,
			ControlArea: cfg.ControlAreaHeight,
		}, logger.With("component", "capture"), opts...)
	}

	det, err := f.Detector(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("detector: %w", err)
	}
	c.Detector = det
	closers := []io.Closer{det}

	c.Pointer = f.Pointer()
	if cfg.Source != config.SourceImage {
		c.Actuator = action.NewActuator(action.NewEaseOutMover(c.Pointer), action.ActuatorOptions{
			MoveDuration: time.Duration(cfg.MoveDurationMs) * time.Millisecond,
		}, logger.With("component", "actuator"))
		c.Trigger = trigger.NewListener(f.Keys(cfg.SuppressTrigger, logger), cfg.TriggerKey, cfg.SuppressTrigger, c.Actuator.Arm, logger.With("component", "trigger"))
		closers = append(closers, stopCloser(c.Trigger.Stop))
	}

	deps := engine.Deps{
		Geometry: c.Geometry,
		Source:   c.Source,
		Detector: det,
		Sink:     c.Sink,
		Closers:  closers,
		Logger:   logger,
	}
	if c.Actuator != nil {
		deps.Actuator = c.Actuator
	}
	idle := time.Duration(cfg.IdleDelayMs) * time.Millisecond
	eng, err := engine.New(deps, engine.Options{
		IdleDelay:       idle,
		FramePacing:     idle,
		ShutdownTimeout: time.Duration(cfg.ShutdownTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		_ = det.Close()
		return nil, err
	}
	c.Engine = eng
	return c, nil
}

// Start launches the control loop and the trigger listener. A listener that
// cannot hook the keyboard is logged; the overlay keeps running without
// actuation.
func (c *Container) Start(ctx context.Context) error {
	if err := c.Engine.Start(ctx); err != nil {
		return err
	}
	if c.Trigger != nil {
		if err := c.Trigger.Start(); err != nil {
			c.Logger.Error("trigger listener unavailable", "key", c.Config.TriggerKey, "error", err)
		}
	}
	return nil
}

// Shutdown stops the loop and releases resources. Safe to call repeatedly;
// the summary is logged once.
func (c *Container) Shutdown() error {
	err := c.Engine.Stop()
	if errors.Is(err, engine.ErrStopTimeout) {
		c.Logger.Warn("shutdown exceeded timeout; releasing once the loop exits")
	}
	c.summaryOnce.Do(c.logSummary)
	return err
}

func (c *Container) logSummary() {
	st := c.Engine.Stats()
	presented, dropped := c.Sink.Counts()
	attrs := []any{
		"run_id", c.Engine.RunID(),
		"frames", st.Frames,
		"skipped", st.Skipped,
		"detect_faults", st.DetectFaults,
		"presented", presented,
		"dropped", dropped,
	}
	if s, ok := c.Source.(*capture.ScreenSource); ok {
		cs := s.Stats()
		attrs = append(attrs, "grab_faults", cs.Faults, "avg_grab", cs.AvgGrab)
	}
	if sp, ok := c.Detector.(*detect.Subprocess); ok {
		attrs = append(attrs, "worker_restarts", sp.Restarts())
	}
	if c.Actuator != nil {
		attrs = append(attrs, "moves", c.Actuator.Moves(), "move_failures", c.Actuator.Failures())
	}
	if c.Trigger != nil {
		attrs = append(attrs, "trigger_presses", c.Trigger.Presses())
	}
	c.Logger.Info("session summary", attrs...)
}

// initialGeometry uses the configured window, centering it on the primary
// display when no size is configured.
func initialGeometry(cfg *config.Config, display func() (image.Rectangle, error), logger *slog.Logger) geometry.Geometry {
	g := geometry.Geometry{X: cfg.WindowX, Y: cfg.WindowY, Width: cfg.WindowW, Height: cfg.WindowH}
	if g.Width > 0 && g.Height > 0 {
		return g
	}
	def := config.DefaultConfig()
	if g.Width <= 0 {
		g.Width = def.WindowW
	}
	if g.Height <= 0 {
		g.Height = def.WindowH
	}
	if display == nil {
		return g
	}
	d, err := display()
	if err != nil || d.Empty() {
		logger.Warn("primary display unknown; using configured position", "error", err)
		return g
	}
	g.X = d.Min.X + (d.Dx()-g.Width)/2
	g.Y = d.Min.Y + (d.Dy()-g.Height)/2
	return g
}

type stopCloser func()

func (s stopCloser) Close() error { s(); return nil }
