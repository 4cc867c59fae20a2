package config

import "flag"

// Flags holds command-line overrides. Zero values leave the loaded
// setting untouched.
type Flags struct {
	Config     string
	Debug      bool
	FPS        int
	Background string
	Catalog    string
	Listen     string
	ModelsDir  string
	LogFile    string
	Snapshot   string
	SaveConfig string
}

// RegisterFlags binds the shared flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.FPS, "fps", 0, "Target FPS")
	fs.StringVar(&f.Background, "bg", "", "Background color (R,G,B)")
	fs.StringVar(&f.LogFile, "log", "", "Log file path")
	fs.StringVar(&f.SaveConfig, "save-config", "", "Write the effective config to this path and exit")
	return f
}

// RegisterViewerFlags binds the flags only the viewer uses.
func (f *Flags) RegisterViewerFlags(fs *flag.FlagSet) {
	fs.StringVar(&f.Catalog, "catalog", "", "Catalog service base URL")
	fs.StringVar(&f.Snapshot, "snapshot", "", "Write the last frame to this PNG on exit")
}

// RegisterServerFlags binds the flags only the catalog server uses.
func (f *Flags) RegisterServerFlags(fs *flag.FlagSet) {
	fs.StringVar(&f.Listen, "listen", "", "Listen address")
	fs.StringVar(&f.ModelsDir, "models", "", "Directory of .ply files to serve")
}

// apply applies CLI flag overrides to the config.
func (f *Flags) apply(cfg *Config) {
	if f == nil {
		return
	}
	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if f.FPS > 0 {
		cfg.Viewer.FPS = f.FPS
	}
	if f.Background != "" {
		cfg.Viewer.Background = f.Background
	}
	if f.Catalog != "" {
		cfg.Catalog.BaseURL = f.Catalog
	}
	if f.Listen != "" {
		cfg.Server.Listen = f.Listen
	}
	if f.ModelsDir != "" {
		cfg.Server.ModelsDir = f.ModelsDir
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.Snapshot != "" {
		cfg.Viewer.Snapshot = f.Snapshot
	}
}
