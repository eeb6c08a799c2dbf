// Package config handles viewer configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Viewer   ViewerConfig   `yaml:"viewer"`
	Data     DataConfig     `yaml:"data"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DataConfig holds section and model file locations.
type DataConfig struct {
	SectionsFile  string `yaml:"sections_file"`  // YAML list of section descriptors
	ModelRoot     string `yaml:"model_root"`     // Base directory for relative model paths
	ScreenshotDir string `yaml:"screenshot_dir"` // F12 captures land here
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width"`
	Height     int  `yaml:"height"`
	Fullscreen bool `yaml:"fullscreen"`
	VSync      bool `yaml:"vsync"`
	FPSLimit   int  `yaml:"fps_limit"`
	MaxDPR     int  `yaml:"max_dpr"` // Cap on drawable/window pixel ratio
}

// ViewerConfig holds particle viewer behaviour.
type ViewerConfig struct {
	Mode           string          `yaml:"mode"`           // "auto", "static" or "morph"
	StaticSection  int             `yaml:"static_section"` // Section shown in static mode
	FOV            float32         `yaml:"fov"`            // Vertical field of view, degrees
	CameraDistance float32         `yaml:"camera_distance"`
	ResizeDebounce time.Duration   `yaml:"resize_debounce"`
	Seed           int64           `yaml:"seed"` // 0 picks a time-based seed
	ScrollStep     float64         `yaml:"scroll_step"`
	Watch          bool            `yaml:"watch"` // Reload sections file on change
	Profiles       []ProfileConfig `yaml:"profiles"`
}

// ProfileConfig is one row of the animation profile table. Its values are
// factors applied to the animation parameters of every section whose index
// maps to the row.
type ProfileConfig struct {
	AnimationIntensity float32 `yaml:"animation_intensity"`
	AnimationSpeed     float32 `yaml:"animation_speed"`
	GlowIntensity      float32 `yaml:"glow_intensity"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
			FPSLimit:   60,
			MaxDPR:     2,
		},
		Viewer: ViewerConfig{
			Mode:           "auto",
			StaticSection:  0,
			FOV:            45,
			CameraDistance: 5,
			ResizeDebounce: 150 * time.Millisecond,
			ScrollStep:     120,
		},
		Data: DataConfig{
			SectionsFile:  "sections.yaml",
			ModelRoot:     "public",
			ScreenshotDir: "screenshots",
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
