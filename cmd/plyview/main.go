// plyview - Terminal point-cloud viewer
// View PLY point clouds (and the points of GLB files) in your terminal,
// from local files or from a catalog service.
//
// Controls:
//
//	Mouse drag  - Rotate (yaw/pitch); auto-rotation stays off until reset
//	Scroll      - Zoom in/out
//	+/-         - Adjust zoom
//	R           - Reset view and resume auto-rotation
//	S           - Save a PNG snapshot of the current frame
//	N/P         - Next/previous catalog model
//	?           - Toggle HUD overlay
//	Esc         - Quit
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	uv "github.com/charmbracelet/ultraviolet"
	"github.com/taigrr/plyview/internal/catalog"
	"github.com/taigrr/plyview/internal/config"
	"github.com/taigrr/plyview/internal/logger"
	"github.com/taigrr/plyview/pkg/pointcloud"
	"github.com/taigrr/plyview/pkg/render"
	"github.com/taigrr/plyview/pkg/viewer"
	"go.uber.org/zap"
)

var modelName = flag.String("model", "", "Catalog model to open (name or id)")

// errNoModels ends a catalog session whose listing is empty. The empty
// state has already been shown.
var errNoModels = errors.New("no models available")

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flags.RegisterViewerFlags(flag.CommandLine)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "plyview - Terminal point-cloud viewer\n\n")
		fmt.Fprintf(os.Stderr, "Usage: plyview [options] <model.ply|model.glb>\n")
		fmt.Fprintf(os.Stderr, "       plyview [options] -catalog URL [-model name]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nControls:\n")
		fmt.Fprintf(os.Stderr, "  Mouse drag  - Rotate model\n")
		fmt.Fprintf(os.Stderr, "  Scroll, +/- - Zoom in/out\n")
		fmt.Fprintf(os.Stderr, "  R           - Reset view\n")
		fmt.Fprintf(os.Stderr, "  S           - Save snapshot\n")
		fmt.Fprintf(os.Stderr, "  N/P         - Next/previous catalog model\n")
		fmt.Fprintf(os.Stderr, "  ?           - Toggle HUD overlay\n")
		fmt.Fprintf(os.Stderr, "  Esc         - Quit\n")
	}
	flag.Parse()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flags.SaveConfig != "" {
		if err := cfg.SaveTo(flags.SaveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// The terminal belongs to the viewer, so logs only go to a file.
	var fileCfg logger.FileConfig
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithFileConfig(cfg.Logging.Level, fileCfg, false); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("plyview starting", zap.String("model", flag.Arg(0)), zap.String("catalog", cfg.Catalog.BaseURL))
	logger.Debug("viewer settings",
		zap.Int("fps", cfg.Viewer.FPS),
		zap.Float64("auto_rotate_step", cfg.Viewer.AutoRotateStep),
		zap.Float64("drag_sensitivity", cfg.Viewer.DragSensitivity))

	if flag.NArg() < 1 && flags.Catalog == "" {
		flag.Usage()
		os.Exit(1)
	}

	if err := run(cfg, flag.Arg(0)); err != nil {
		if errors.Is(err, errNoModels) {
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// fileSource reads models from the local filesystem.
type fileSource struct{}

func (fileSource) FetchModel(ctx context.Context, m catalog.Model) ([]byte, error) {
	return os.ReadFile(m.ID)
}

// playlist is what the viewer can open: either one local file or the
// catalog listing.
type playlist struct {
	models []catalog.Model
	index  int
	cloud  *pointcloud.Cloud // preloaded geometry for GLB files
}

func localPlaylist(path string) (*playlist, viewer.Source, error) {
	base := filepath.Base(path)
	model := catalog.Model{ID: path, Name: base}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".glb", ".gltf":
		cloud, err := pointcloud.LoadGLB(path)
		if err != nil {
			return nil, nil, fmt.Errorf("load model: %w", err)
		}
		cloud.Name = base
		model.Vertices = cloud.Len()
		return &playlist{models: []catalog.Model{model}, cloud: cloud}, nil, nil
	case ".ply":
		f, err := os.Open(path)
		if err != nil {
			return nil, nil, fmt.Errorf("open model: %w", err)
		}
		h, err := pointcloud.ReadHeader(f)
		f.Close()
		if err == nil {
			model.Vertices = h.VertexCount()
			model.HasColors = h.HasColor()
			model.HasNormals = h.HasNormals()
		}
		return &playlist{models: []catalog.Model{model}}, fileSource{}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported format: %s (use .ply or .glb)", filepath.Ext(path))
	}
}

func catalogPlaylist(ctx context.Context, client *catalog.Client, want string) (*playlist, error) {
	models, err := client.ListModels(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load models: %v\n", err)
	}
	if len(models) == 0 {
		fmt.Fprintln(os.Stderr, "No models available")
		return nil, errNoModels
	}
	p := &playlist{models: models}
	if want != "" {
		p.index = -1
		for i, m := range models {
			if m.Name == want || m.ID == want || m.FileID == want {
				p.index = i
				break
			}
		}
		if p.index < 0 {
			return nil, fmt.Errorf("model %q not in catalog", want)
		}
	}
	return p, nil
}

func (p *playlist) open(ctrl *viewer.Controller) {
	m := p.models[p.index]
	if p.cloud != nil {
		ctrl.OpenCloud(m, p.cloud)
		return
	}
	ctrl.Open(m)
}

// step opens the model delta places away. It reports false when there is
// no other model to go to.
func (p *playlist) step(ctrl *viewer.Controller, delta int) bool {
	if len(p.models) < 2 {
		return false
	}
	p.index = (p.index + delta + len(p.models)) % len(p.models)
	p.open(ctrl)
	return true
}

// snapshotPath returns where the s key saves frames.
func snapshotPath(cfg *config.Config) string {
	if cfg.Viewer.Snapshot != "" {
		return cfg.Viewer.Snapshot
	}
	return "plyview.png"
}

func run(cfg *config.Config, modelPath string) error {
	log := logger.Named("plyview")

	background, err := config.ParseColor(cfg.Viewer.Background)
	if err != nil {
		return err
	}
	accent, err := config.ParseColor(cfg.Viewer.Accent)
	if err != nil {
		return err
	}

	// Context for clean shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	var (
		list *playlist
		src  viewer.Source
	)
	if modelPath != "" {
		list, src, err = localPlaylist(modelPath)
	} else {
		client := catalog.NewClient(cfg.Catalog.BaseURL, nil, cfg.Catalog.Timeout)
		src = client
		list, err = catalogPlaylist(ctx, client, *modelName)
	}
	if err != nil {
		return err
	}

	// Create terminal
	term := uv.DefaultTerminal()

	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}

	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	// Enable mouse mode
	fmt.Fprint(os.Stdout, "\x1b[?1003h") // Enable any-event mouse tracking
	fmt.Fprint(os.Stdout, "\x1b[?1006h") // Enable SGR extended mouse mode

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	// Two pixel rows per terminal row.
	fb := render.NewFramebuffer(width, height*2)
	hud := NewHUD()

	loop := viewer.NewLoop(cfg.Viewer.FPS)
	ctrl := viewer.New(loop, fb, src, viewer.Options{
		FPS:             cfg.Viewer.FPS,
		AutoRotateStep:  cfg.Viewer.AutoRotateStep,
		DragSensitivity: cfg.Viewer.DragSensitivity,
		InitialPitch:    cfg.Viewer.InitialPitch,
		FallbackPoints:  cfg.Viewer.FallbackPoints,
		Style:           render.Style{Background: background, Accent: accent},
	}, log.Named("viewer"))

	ctrl.OnFrame(func(s *viewer.Session) {
		hud.UpdateFPS()
		term.Draw(uv.DrawableFunc(func(scr uv.Screen, area uv.Rectangle) {
			fb.Draw(scr, area)
			hud.Draw(scr, area, s)
		}))
		if err := term.Display(); err != nil {
			log.Warn("display failed", zap.Error(err))
		}
	})

	loop.Post(func() { list.open(ctrl) })

	// Event handler
	go func() {
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				w, h := ev.Width, ev.Height
				loop.Post(func() {
					width, height = w, h
					term.Erase()
					term.Resize(width, height)
					fb = render.NewFramebuffer(width, height*2)
					ctrl.SetCanvas(fb)
				})

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape", "ctrl+c", "q"):
					cancel()
					return
				case ev.MatchString("r"):
					loop.Post(ctrl.ResetView)
				case ev.MatchString("+", "="):
					loop.Post(func() { ctrl.Zoom(1.25) })
				case ev.MatchString("-", "_"):
					loop.Post(func() { ctrl.Zoom(0.8) })
				case ev.MatchString("s"):
					loop.Post(func() {
						path := snapshotPath(cfg)
						if err := fb.SavePNG(path); err != nil {
							log.Warn("snapshot failed", zap.String("path", path), zap.Error(err))
							hud.Flash("snapshot failed: " + err.Error())
							return
						}
						hud.Flash("saved " + path)
					})
				case ev.MatchString("n", "right"):
					loop.Post(func() {
						if !list.step(ctrl, 1) {
							hud.Flash("no other models")
						}
					})
				case ev.MatchString("p", "left"):
					loop.Post(func() {
						if !list.step(ctrl, -1) {
							hud.Flash("no other models")
						}
					})
				case ev.MatchString("?"), ev.MatchString("shift+/"):
					loop.Post(func() { hud.Visible = !hud.Visible })
				}

			case uv.MouseClickEvent:
				x, y := float64(ev.X), float64(ev.Y*2)
				loop.Post(func() { ctrl.PointerDown(x, y) })

			case uv.MouseReleaseEvent:
				loop.Post(ctrl.PointerUp)

			case uv.MouseMotionEvent:
				x, y := float64(ev.X), float64(ev.Y*2)
				loop.Post(func() {
					if x < 0 || y < 0 || int(x) >= width || int(y) >= height*2 {
						ctrl.PointerLeave()
						return
					}
					ctrl.PointerMove(x, y)
				})

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					loop.Post(func() { ctrl.Zoom(1.1) })
				case uv.MouseWheelDown:
					loop.Post(func() { ctrl.Zoom(1 / 1.1) })
				}
			}
		}
	}()

	err = loop.Run(ctx)
	ctrl.Close()
	cleanup()

	if cfg.Viewer.Snapshot != "" {
		if err := fb.SavePNG(cfg.Viewer.Snapshot); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
