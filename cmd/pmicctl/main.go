// =============================================================================
// main.go - pmicctl Entry Point
// =============================================================================
//
// pmicctl is the command-line front end of the PMIC state-sync engine. It
// opens the evaluation kit's serial port, identifies the attached PMIC,
// builds the peripheral modules of that model and runs a REPL for reading
// and writing the PMIC configuration. Without a kit, --offline simulates
// a PMIC model so configurations can be prepared in advance.
//
// Usage:
//
//	pmicctl                           Find the kit's port and connect
//	pmicctl --port /dev/ttyACM0       Connect to a specific port
//	pmicctl --offline --model npm2100 Simulate an nPM2100
//	pmicctl --mqtt tcp://host:1883    Mirror state changes to a broker
//	pmicctl --help                    Show help
//
// Settings come from three layers, later ones winning:
//  1. built-in defaults
//  2. the YAML config file (--config, default in the user config dir)
//  3. command-line flags
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pmicpanel/pmicsync/config"
	"github.com/pmicpanel/pmicsync/confirm"
	"github.com/pmicpanel/pmicsync/eventbus"
	"github.com/pmicpanel/pmicsync/mirror"
	"github.com/pmicpanel/pmicsync/peripheral"
	"github.com/pmicpanel/pmicsync/session"
	"github.com/pmicpanel/pmicsync/settings"
	"github.com/pmicpanel/pmicsync/state"
	"github.com/pmicpanel/pmicsync/transport/serialport"
)

// =============================================================================
// Version Information
// =============================================================================

const (
	// version is the current version of pmicctl.
	version = "0.4.0"

	// appName is the application name.
	appName = "pmicctl"
)

// fullTitle returns the application name with version.
func fullTitle() string {
	return fmt.Sprintf("%s v%s", appName, version)
}

// welcomeBanner returns the banner displayed when the REPL starts.
func welcomeBanner(target string) string {
	return fmt.Sprintf(`%s - PMIC evaluation kit console
%s

Type '.help' for available commands.
Type '.quit' to exit.
`, fullTitle(), target)
}

// =============================================================================
// Command-Line Arguments
// =============================================================================

// arguments holds the parsed command line. Zero values mean "not given",
// so the config file value is kept.
type arguments struct {
	configPath string
	port       string
	baud       int
	timeout    time.Duration
	offline    bool
	model      string
	mqttBroker string
	logLevel   string
	settings   string

	listPorts   bool
	showHelp    bool
	showVersion bool
}

// GO CONCEPT: Consuming a Slice as a Queue
// ----------------------------------------
// "for len(remaining) > 0" is Go's while loop. Each iteration takes the
// first argument off the front of the slice; options with a value take a
// second one through next().
//
// Compare with Python: `while remaining: arg = remaining.pop(0)`.

// parseArguments parses argv, which excludes the program name.
func parseArguments(argv []string) (arguments, error) {
	var args arguments
	remaining := argv

	next := func(flag string) (string, error) {
		if len(remaining) == 0 {
			return "", fmt.Errorf("%s requires an argument", flag)
		}
		v := remaining[0]
		remaining = remaining[1:]
		return v, nil
	}

	for len(remaining) > 0 {
		arg := remaining[0]
		remaining = remaining[1:]

		var err error
		switch arg {
		case "--config", "-c":
			args.configPath, err = next(arg)
		case "--port", "-p":
			args.port, err = next(arg)
		case "--baud":
			var v string
			if v, err = next(arg); err == nil {
				args.baud, err = strconv.Atoi(v)
				if err != nil || args.baud <= 0 {
					err = fmt.Errorf("--baud: %q is not a positive number", v)
				}
			}
		case "--timeout":
			var v string
			if v, err = next(arg); err == nil {
				args.timeout, err = time.ParseDuration(v)
				if err != nil || args.timeout <= 0 {
					err = fmt.Errorf("--timeout: %q is not a positive duration", v)
				}
			}
		case "--offline":
			args.offline = true
		case "--model", "-m":
			args.model, err = next(arg)
		case "--mqtt":
			args.mqttBroker, err = next(arg)
		case "--log-level":
			args.logLevel, err = next(arg)
		case "--settings":
			args.settings, err = next(arg)
		case "--list-ports":
			args.listPorts = true
		case "--help", "-h":
			args.showHelp = true
		case "--version", "-v":
			args.showVersion = true
		default:
			err = fmt.Errorf("unknown argument: %s", arg)
		}
		if err != nil {
			return args, err
		}
	}
	return args, nil
}

// apply overrides cfg with every argument that was given.
func (a arguments) apply(cfg *config.Config) {
	if a.port != "" {
		cfg.Port = a.port
	}
	if a.baud > 0 {
		cfg.Baud = a.baud
	}
	if a.timeout > 0 {
		cfg.Timeout = a.timeout
	}
	if a.offline {
		cfg.Offline = true
	}
	if a.model != "" {
		cfg.Model = strings.ToLower(a.model)
	}
	if a.mqttBroker != "" {
		cfg.MQTT.Broker = a.mqttBroker
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.settings != "" {
		cfg.Settings = a.settings
	}
}

func printUsage(w io.Writer) {
	models := make([]string, 0, len(peripheral.Models()))
	for _, m := range peripheral.Models() {
		models = append(models, string(m))
	}
	fmt.Fprintf(w, `USAGE: pmicctl [options]

OPTIONS:
  --port, -p <name>     Serial port of the evaluation kit (default: first USB CDC port)
  --baud <rate>         Baud rate (default: %d)
  --timeout <dur>       Command timeout, e.g. 5s
  --offline             Simulate a PMIC without a kit
  --model, -m <model>   Model to simulate with --offline (%s)
  --config, -c <path>   Config file (default: %s)
  --settings <path>     File for "do not ask again" choices
  --mqtt <broker>       Mirror state changes to an MQTT broker, e.g. tcp://localhost:1883
  --log-level <level>   trace, debug, info, warn or error
  --list-ports          List serial ports and exit
  --help, -h            Show this help
  --version, -v         Show version

EXAMPLES:
  pmicctl                              Connect to the first kit found
  pmicctl --port /dev/ttyACM0          Connect to a specific port
  pmicctl --offline --model npm2100    Prepare an nPM2100 configuration
`, config.DefaultBaud, strings.Join(models, ", "), config.DefaultPath())
}

func printError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}

// =============================================================================
// Session Setup
// =============================================================================

// newLogger writes human-readable logs to stderr so they stay out of the
// REPL's output.
func newLogger(level zerolog.Level) zerolog.Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// openSettings opens the persisted prompt choices, falling back to memory.
func openSettings(path string, log zerolog.Logger) confirm.Settings {
	fs, err := settings.Open(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("settings not persisted")
		return settings.NewMemStore()
	}
	return fs
}

// openSession connects to the kit, or builds an offline session. A kit
// without a PMIC is not fatal: the REPL stays usable and .identify can be
// run once a PMIC is attached.
func openSession(ctx context.Context, cfg config.Config, log zerolog.Logger) (*session.Session, string, error) {
	opts := session.Options{
		Timeout:  cfg.Timeout,
		Settings: openSettings(cfg.Settings, log),
		Logger:   log,
	}

	if cfg.Offline {
		sess, err := session.Offline(peripheral.Model(cfg.Model), opts)
		if err != nil {
			return nil, "", err
		}
		return sess, fmt.Sprintf("Offline simulation of %s", cfg.Model), nil
	}

	name, err := serialport.FindPort(cfg.Port)
	if err != nil {
		return nil, "", err
	}
	if cfg.Port != "" {
		if err := serialport.WaitForPort(ctx, name, serialport.DefaultWaitTimeout); err != nil {
			return nil, "", err
		}
	}
	port, err := serialport.Open(name, cfg.Baud, log)
	if err != nil {
		return nil, "", err
	}
	sess, err := session.Open(ctx, port, opts)
	if err != nil {
		port.Close()
		return nil, "", err
	}

	if err := sess.Identify(ctx); err != nil {
		if !errors.Is(err, session.ErrNoPmic) && !errors.Is(err, peripheral.ErrUnsupportedModel) {
			log.Error().Err(err).Msg("identify failed")
		}
		fmt.Fprintf(os.Stderr, "Warning: %v (run .identify to retry)\n", err)
	}
	return sess, fmt.Sprintf("Connected to %s at %d baud", name, cfg.Baud), nil
}

// startMirror publishes bus events to the configured broker. It returns a
// no-op cleanup when no broker is configured or the broker is unreachable.
func startMirror(cfg config.Config, bus *eventbus.Bus, log zerolog.Logger) func() {
	if cfg.MQTT.Broker == "" {
		return func() {}
	}
	client, err := mirror.Dial(mirror.ClientOptions{
		Broker:   cfg.MQTT.Broker,
		ClientID: cfg.MQTT.ClientID,
	})
	if err != nil {
		log.Warn().Err(err).Msg("state mirror disabled")
		return func() {}
	}
	m := mirror.New(client, cfg.MQTT.Prefix, bus, log)
	log.Info().Str("broker", cfg.MQTT.Broker).Str("prefix", cfg.MQTT.Prefix).Msg("mirroring state")
	return func() {
		m.Close()
		client.Close()
	}
}

// watchEvents prints asynchronous device events, the way a terminal
// program shows a notification between prompts.
func watchEvents(bus *eventbus.Bus, w io.Writer) {
	eventbus.On(bus, eventbus.ConnectionUpdate, func(c state.Connection) {
		fmt.Fprintf(w, "\n*** Connection: %s\n", c.State)
	})
	eventbus.On(bus, eventbus.RebootUpdate, func(r state.Reboot) {
		fmt.Fprintf(w, "\n*** Reboot %s\n", r.Phase)
	})
	eventbus.On(bus, eventbus.ProfileDownloadUpdate, func(d state.ProfileDownload) {
		if d.Message != "" {
			fmt.Fprintf(w, "\n*** Battery model %s: %s\n", d.State, d.Message)
			return
		}
		fmt.Fprintf(w, "\n*** Battery model %s %.0f%%\n", d.State, d.Progress)
	})
}

// =============================================================================
// Signal Handling
// =============================================================================

// setupSignalHandler runs cleanup and exits on SIGINT or SIGTERM. The
// channel is buffered because signal.Notify never blocks on delivery.
func setupSignalHandler(cleanup func()) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Println()
		cleanup()
		os.Exit(0)
	}()
}

// =============================================================================
// Main
// =============================================================================

func main() {
	args, err := parseArguments(os.Args[1:])
	if err != nil {
		printError(err.Error())
		printUsage(os.Stderr)
		os.Exit(1)
	}

	if args.showHelp {
		printUsage(os.Stdout)
		return
	}
	if args.showVersion {
		fmt.Println(fullTitle())
		return
	}
	if args.listPorts {
		ports, err := serialport.ListPorts()
		if err != nil {
			printError(err.Error())
			os.Exit(1)
		}
		for _, p := range ports {
			fmt.Println(p)
		}
		return
	}

	path := args.configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		printError(err.Error())
		os.Exit(1)
	}
	args.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		printError(err.Error())
		os.Exit(1)
	}

	log := newLogger(cfg.Level())
	ctx, cancel := context.WithCancel(context.Background())

	sess, target, err := openSession(ctx, cfg, log)
	if err != nil {
		cancel()
		printError(err.Error())
		os.Exit(1)
	}
	stopMirror := startMirror(cfg, sess.Bus(), log)
	watchEvents(sess.Bus(), os.Stderr)

	editor := NewLineEditor()
	sess.Gate().SetHandler((&dialog{in: editor, out: os.Stdout}).handle)

	// GO CONCEPT: Closures Capture by Reference
	// -------------------------------------------
	// cleanup captures editor, sess and the other locals. It can run from
	// the signal goroutine and at the end of main, so sync.Once makes the
	// second call a no-op.
	//
	// Compare with Python: a flag checked in an atexit handler.
	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			editor.Close()
			stopMirror()
			if err := sess.Close(); err != nil {
				log.Debug().Err(err).Msg("close session")
			}
			cancel()
		})
	}
	setupSignalHandler(cleanup)

	if editor.IsInteractive() {
		fmt.Print(welcomeBanner(target))
		fmt.Println()
	}

	newREPL(ctx, sess, editor, os.Stdout, os.Stderr).run()

	cleanup()
}
