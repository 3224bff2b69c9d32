package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logger"
)

const version = "0.3.0"

// Native windows and the system tray must run on the main OS thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "Path to a YAML configuration file")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "version":
		fmt.Printf("mudra version %s\n", version)
		return
	case "help":
		printUsage()
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	closer := logger.Init(cfg.Log)

	switch command {
	case "run":
		err = handleRun(cfg, args)
	case "models":
		err = handleModels(cfg, args)
	case "labels":
		err = handleLabels(cfg, args)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		err = fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		log.Error(err)
	}
	closer.Close()
	if err != nil {
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`mudra - real-time hand gesture recognition

Usage: mudra [-config file] <command> [options]

Commands:
  run        Recognize gestures from a camera or video file
  models     Manage the model registry (add, list, rm, use)
  labels     Print a label catalog with class indices
  version    Show mudra version
  help       Show this help message

Run Flags:
  -camera <n>          Camera device index (default 0)
  -video <file>        Replay a recorded clip instead of the camera
  -model <path>        Classifier model (.onnx, .pb or linear .json)
  -labels <path>       Label catalog, one class name per line
  -model-name <name>   Use a model from the registry
  -display <mode>      window, stream or none
  -addr <host:port>    HTTP address for stream mode
  -landmarks           Draw the hand skeleton on frames

Configuration is read from defaults, the -config file, a .env file and
MUDRA_* environment variables (e.g. MUDRA_CAMERA_DEVICE=1).

Examples:
  mudra run -model models/gesture.onnx -labels models/labels.txt
  mudra models add -name asl -model models/asl.onnx -labels models/asl.txt
  mudra models use -name asl
  mudra run -display stream -addr :8420`)
}
