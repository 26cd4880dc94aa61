package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"voxpad/audio"
	"voxpad/backend"
	"voxpad/encoder"
	"voxpad/history"
	"voxpad/log"
)

var version = "dev"

const defaultServer = "http://localhost:5000"

var shutdownOnce sync.Once

func gracefulShutdown(flow *Flow, store *history.Store) {
	shutdownOnce.Do(func() {
		if n := flow.NoteCount(); n > 0 {
			log.SessionEnd(n)
		}
		store.Close()
		log.Close()
		tuiMu.Lock()
		p := tuiProgram
		tuiMu.Unlock()
		if p != nil {
			p.Quit()
		}
		os.Exit(0)
	})
}

func main() {
	serverFlag := flag.String("server", "", "Backend server URL (default $VOXPAD_SERVER or "+defaultServer+")")
	formatFlag := flag.String("format", "wav", "Upload format: wav or flac")
	setupFlag := flag.Bool("setup", false, "Select microphone device (otherwise uses system default)")
	deviceFlag := flag.String("device", "", "Use named microphone device")
	syncFlag := flag.Bool("sync", false, "Use the legacy synchronous endpoint instead of the job flow")
	fakeFlag := flag.Bool("fake", false, "Run against an in-process fake backend (demo mode)")
	logPathFlag := flag.String("logpath", "", "log directory path (default: OS-specific location, use ./ for current dir)")
	timeoutFlag := flag.Duration("timeout", backend.DefaultTimeout, "Per-request timeout")
	historyFlag := flag.String("history", "", "History database path (default: OS-specific location)")
	versionFlag := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("voxpad %s\n", version)
		os.Exit(0)
	}

	logPath, err := log.ResolveDir(*logPathFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to resolve log directory: %v\n", err)
		os.Exit(1)
	}
	log.SetDir(logPath)
	if err := log.EnsureDir(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not create log directory: %v\n", err)
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
	}

	server := *serverFlag
	if server == "" {
		server = os.Getenv("VOXPAD_SERVER")
	}
	if server == "" {
		server = defaultServer
	}

	switch *formatFlag {
	case "wav", "flac":
	default:
		fmt.Printf("Error: unknown format %q (use wav or flac)\n", *formatFlag)
		os.Exit(1)
	}

	ctx, err := audio.NewContext()
	if err != nil {
		log.Errorf("audio context init error: %v", err)
		fmt.Printf("Error initializing audio context: %v\n", err)
		os.Exit(1)
	}
	defer ctx.Close()

	var selectedDevice *audio.DeviceInfo
	if *deviceFlag != "" {
		if devices, err := ctx.Devices(); err == nil {
			for i := range devices {
				if devices[i].Name == *deviceFlag {
					selectedDevice = &devices[i]
					break
				}
			}
		}
	} else if *setupFlag {
		selectedDevice, err = audio.SelectDevice(ctx)
		if err != nil {
			log.Warnf("device selection failed: %v", err)
			fmt.Printf("Warning: device selection failed: %v\n", err)
			fmt.Println("Falling back to default device")
			selectedDevice = nil
		}
	}

	captureConfig := audio.CaptureConfig{
		SampleRate: encoder.SampleRate,
		Channels:   encoder.Channels,
	}
	captureDevice, err := ctx.NewCapture(selectedDevice, captureConfig)
	if err != nil {
		log.Errorf("capture device init error: %v", err)
		fmt.Printf("Error initializing capture device: %v\n", err)
		os.Exit(1)
	}
	defer captureDevice.Close()

	var svc backend.Service
	if *fakeFlag {
		f := backend.NewFake("This is a demo note, no server involved.")
		f.PendingMsgs = []string{"transcribing…", "editing…"}
		f.Delay = 700 * time.Millisecond
		svc = f
		server = "fake"
	} else {
		client := backend.NewClient(server, *timeoutFlag)
		go client.Warm()
		svc = client
	}

	histPath := *historyFlag
	if histPath == "" {
		histPath = history.DefaultPath()
	}
	store := history.Open(histPath)

	flow := newFlow(captureDevice, svc, store, *formatFlag, *syncFlag, tuiSend)
	log.SessionStart(server, *formatFlag)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		gracefulShutdown(flow, store)
	}()

	tuiMu.Lock()
	tuiProgram = NewTUIProgram(flow, server, *formatFlag, store.All())
	tuiMu.Unlock()

	if _, err := tuiProgram.Run(); err != nil {
		log.Errorf("TUI error: %v", err)
		os.Exit(1)
	}
	gracefulShutdown(flow, store)
}
