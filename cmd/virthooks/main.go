package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/virthooks/internal/config"
	"github.com/tjfontaine/virthooks/internal/telemetry"
	"github.com/tjfontaine/virthooks/pkg/hooks"
)

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: virthooks <command> [options]

Commands:
  run <hook-point>        run the hook point; payload on stdin, result on stdout
  info <hook-point>       print the script fingerprint map as JSON
  flags save <id> <flag>  persist a launch flag for an entity
  flags load <id>         print an entity's persisted launch flag
  flags remove <id>       delete an entity's launch flag`)
	os.Exit(2)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
	}

	shutdown, err := telemetry.InitTracer("virthooks", logger)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	eng, err := hooks.New(hooks.WithConfig(cfg), hooks.WithLogger(logger))
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	defer eng.Close()

	switch os.Args[1] {
	case "run":
		runCmd(eng, os.Args[2:])
	case "info":
		infoCmd(eng, os.Args[2:])
	case "flags":
		flagsCmd(eng, os.Args[2:])
	default:
		usage()
	}
}

func runCmd(eng *hooks.Engine, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	jsonKind := fs.Bool("json", false, "treat the stdin payload as structured JSON")
	lenient := fs.Bool("lenient", false, "return faults as diagnostics instead of failing")
	entityID := fs.String("entity", "", "entity identifier exported to the hooks")
	fs.Parse(args)

	if fs.NArg() != 1 {
		usage()
	}
	hookPoint := fs.Arg(0)

	input, err := io.ReadAll(os.Stdin)
	if err != nil {
		log.Fatalf("Failed to read payload: %v", err)
	}

	var payload hooks.Payload
	if *jsonKind {
		var data map[string]any
		if len(input) > 0 {
			if err := json.Unmarshal(input, &data); err != nil {
				log.Fatalf("Payload is not valid JSON: %v", err)
			}
		}
		payload = hooks.JSONPayload(data)
	} else {
		payload = hooks.DomainXMLPayload(string(input))
	}

	mode := hooks.ModeStrict
	if *lenient {
		mode = hooks.ModeLenient
	}

	res, err := eng.Run(context.Background(), hooks.Request{
		HookPoint: hookPoint,
		Payload:   payload,
		Entity:    hooks.EntityConfig{ID: *entityID},
		Mode:      mode,
	})
	if err != nil {
		log.Fatalf("Hook point failed: %v", err)
	}

	for _, d := range res.Diagnostics {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", d.Severity, d.Script, d.Detail)
	}
	if payload.Kind == hooks.KindJSON {
		out, err := json.Marshal(res.Payload.Data)
		if err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
		os.Stdout.Write(out)
		fmt.Println()
		return
	}
	fmt.Print(res.Payload.Text)
}

func infoCmd(eng *hooks.Engine, args []string) {
	if len(args) != 1 {
		usage()
	}
	info, err := eng.HookInfo(args[0])
	if err != nil {
		log.Fatalf("Failed to inspect hook point: %v", err)
	}
	out, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		log.Fatalf("Failed to encode fingerprints: %v", err)
	}
	fmt.Println(string(out))
}

func flagsCmd(eng *hooks.Engine, args []string) {
	if len(args) < 2 {
		usage()
	}
	switch args[0] {
	case "save":
		if len(args) != 3 {
			usage()
		}
		flagValue, err := strconv.Atoi(args[2])
		if err != nil {
			log.Fatalf("Flag must be an integer: %v", err)
		}
		if err := eng.SaveLaunchFlags(args[1], flagValue); err != nil {
			log.Fatalf("Failed to save launch flags: %v", err)
		}
	case "load":
		flagValue, err := eng.LoadLaunchFlags(args[1])
		if err != nil {
			log.Fatalf("Failed to load launch flags: %v", err)
		}
		fmt.Println(flagValue)
	case "remove":
		if err := eng.RemoveLaunchFlags(args[1]); err != nil {
			log.Fatalf("Failed to remove launch flags: %v", err)
		}
	default:
		usage()
	}
}
