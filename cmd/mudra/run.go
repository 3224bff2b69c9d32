package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/classifier"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/display"
	"github.com/ayusman/mudra/internal/publish"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func handleRun(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	camera := fs.Int("camera", cfg.Camera.Device, "Camera device index")
	video := fs.String("video", cfg.Camera.VideoFile, "Video file to replay instead of the camera")
	model := fs.String("model", cfg.Classifier.Model, "Classifier model path")
	labelsPath := fs.String("labels", cfg.Classifier.Labels, "Label catalog path")
	modelName := fs.String("model-name", cfg.Classifier.RegistryName, "Registered model name")
	mode := fs.String("display", cfg.Display.Mode, "Display mode: window, stream or none")
	addr := fs.String("addr", cfg.Server.Addr, "HTTP address for stream mode")
	landmarks := fs.Bool("landmarks", cfg.Display.DrawLandmarks, "Draw hand landmarks")
	fs.Parse(args)

	cfg.Camera.Device = *camera
	cfg.Camera.VideoFile = *video
	cfg.Classifier.Model = *model
	cfg.Classifier.Labels = *labelsPath
	cfg.Classifier.RegistryName = *modelName
	cfg.Display.Mode = *mode
	cfg.Server.Addr = *addr
	cfg.Display.DrawLandmarks = *landmarks

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	modelPath, catalogPath, err := resolveArtifacts(cfg.Classifier, cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("resolve classifier: %w", err)
	}

	cls, scorer, err := classifier.Open(modelPath, catalogPath)
	if err != nil {
		return err
	}
	defer scorer.Close()
	log.Infof("Loaded classifier %s with %d labels", modelPath, cls.Catalog().Len())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var quit display.QuitFlag
	quitSignals := []display.QuitSignal{&quit}

	var a *app.App
	var srv *server.Server
	var sink display.Sink
	switch cfg.Display.Mode {
	case config.DisplayWindow:
		w := display.NewWindow(cfg.Display.WindowTitle)
		quitSignals = append(quitSignals, w)
		sink = w
	case config.DisplayStream:
		srv = server.New(server.Config{
			StaticDir: cfg.Server.StaticDir,
			Catalog:   cls.Catalog(),
			Stats:     func() app.Stats { return a.Stats() },
		})
		sink = srv
	default:
		sink = &display.Discard{}
	}

	a, err = app.New(app.Config{
		Camera:        newSource(cfg.Camera),
		Detector:      app.NewDetector(detectorConfig(cfg.Detector)),
		Classifier:    cls,
		Sink:          sink,
		Quit:          display.AnyQuit(quitSignals...),
		Axes:          cfg.Axes(),
		DrawLandmarks: cfg.Display.DrawLandmarks,
	})
	if err != nil {
		return fmt.Errorf("create application: %w", err)
	}

	if srv != nil {
		a.OnResult(srv.Publish)
		go func() {
			if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
				log.Errorf("HTTP server failed: %v", err)
				quit.Raise()
			}
		}()
	}

	if pub := publish.New(cfg.MQTT); pub != nil {
		if err := pub.Start(); err != nil {
			log.Errorf("MQTT publishing unavailable: %v", err)
		} else {
			a.OnResult(pub.Observe)
			defer pub.Stop()
		}
	}

	if cfg.Tray.Enabled {
		return runWithTray(ctx, a, &quit, cfg)
	}

	if err := a.Run(ctx); err != nil {
		return fmt.Errorf("detection loop: %w", err)
	}
	return nil
}

// runWithTray keeps the tray on the main thread and the loop on a goroutine.
func runWithTray(ctx context.Context, a *app.App, quit *display.QuitFlag, cfg *config.Config) error {
	t := tray.New()
	t.OnQuit(quit.Raise)
	if cfg.Display.Mode == config.DisplayStream {
		url := "http://" + cfg.Server.Addr + "/api/stream"
		t.OnPreview(func() { openBrowser(url) })
	}
	a.OnResult(t.Update)

	if err := a.Start(ctx); err != nil {
		return fmt.Errorf("start detection loop: %w", err)
	}
	go func() {
		if err := a.Wait(); err != nil {
			log.Errorf("Detection loop failed: %v", err)
		}
		t.Quit()
	}()

	t.Run()
	return a.Stop()
}

func newSource(cc config.CameraConfig) capture.Camera {
	if cc.VideoFile != "" {
		log.Infof("Replaying %s", cc.VideoFile)
		return capture.NewVideoFile(cc.VideoFile)
	}
	return capture.NewCameraWithOptions(cc.Device, capture.Options{
		Width:  cc.Width,
		Height: cc.Height,
		FPS:    cc.FPS,
	})
}

func detectorConfig(dc config.DetectorConfig) detector.Config {
	return detector.Config{
		MaxHands:        dc.MaxHands,
		MinConfidence:   dc.MinConfidence,
		MinTrackingConf: dc.MinTrackingConfidence,
		Script:          dc.Script,
		Python:          dc.Python,
	}
}

// resolveArtifacts picks the model and label catalog paths. A registry name
// wins over explicit paths; with neither, the active registry model is used.
func resolveArtifacts(cc config.ClassifierConfig, storePath string) (string, string, error) {
	if cc.RegistryName == "" && cc.Model != "" && cc.Labels != "" {
		return cc.Model, cc.Labels, nil
	}
	if cc.RegistryName == "" && (cc.Model != "" || cc.Labels != "") {
		return "", "", errors.New("both a model and a labels path are required")
	}

	st, err := store.New(storePath)
	if err != nil {
		return "", "", fmt.Errorf("open model registry: %w", err)
	}
	defer st.Close()

	name := cc.RegistryName
	if name == "" {
		name, err = st.Settings().Get(store.ActiveModelKey)
		if errors.Is(err, store.ErrNotFound) {
			return "", "", errors.New("no classifier configured: pass -model and -labels, or register one with 'mudra models add'")
		}
		if err != nil {
			return "", "", err
		}
	}

	m, err := st.Models().GetByName(name)
	if err != nil {
		return "", "", fmt.Errorf("registered model %q: %w", name, err)
	}
	return m.ModelPath, m.LabelsPath, nil
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warnf("Failed to open browser: %v", err)
	}
}
