package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagSections   = flag.String("sections", "", "Path to sections YAML file")
	flagModels     = flag.String("models", "", "Directory that model paths are relative to")
	flagMode       = flag.String("mode", "", "Viewer mode: auto, static or morph")
	flagSection    = flag.Int("section", -1, "Section index shown in static mode")
	flagWindowed   = flag.Bool("windowed", false, "Run in windowed mode")
	flagFullscreen = flag.Bool("fullscreen", false, "Run in fullscreen mode")
	flagWidth      = flag.Int("width", 0, "Window width")
	flagHeight     = flag.Int("height", 0, "Window height")
	flagFPS        = flag.Int("fps", -1, "Frame rate limit (0 disables throttling)")
	flagWatch      = flag.Bool("watch", false, "Reload the sections file when it changes")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagSections != "" {
		cfg.Data.SectionsFile = *flagSections
	}
	if *flagModels != "" {
		cfg.Data.ModelRoot = *flagModels
	}
	if *flagMode != "" {
		cfg.Viewer.Mode = *flagMode
	}
	if *flagSection >= 0 {
		cfg.Viewer.StaticSection = *flagSection
	}
	if *flagWindowed {
		cfg.Graphics.Fullscreen = false
	}
	if *flagFullscreen {
		cfg.Graphics.Fullscreen = true
	}
	if *flagWidth > 0 {
		cfg.Graphics.Width = *flagWidth
	}
	if *flagHeight > 0 {
		cfg.Graphics.Height = *flagHeight
	}
	if *flagFPS >= 0 {
		cfg.Graphics.FPSLimit = *flagFPS
	}
	if *flagWatch {
		cfg.Viewer.Watch = true
	}
}
