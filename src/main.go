package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"

	"idfstore/src/engine"
	"idfstore/src/helpers"
	"idfstore/src/schema"
	"idfstore/src/settings"
)

// printUsage prints helpful usage information
func printUsage() {
	log.Println("idfstore - a fast IDF/epJSON building-model object store")
	log.Println("\nUsage:")
	log.Println("  idfstore [options]")
	log.Println("\nOptions:")
	flag.PrintDefaults()

	log.Println("\nExamples:")
	log.Println("  idfstore --in model.idf --out model.epJSON")
	log.Println("  idfstore --in model.epJSON --out model.idf --strict")
	log.Println("  idfstore --in model.idf --stats")
}

func main() {
	// Get the global settings instance
	args := settings.GetSettings()

	// Define command line flags that map to the Arguments struct
	flag.StringVar(&args.InputFile, "in", "", "Input model file (.idf or .epJSON)")
	flag.StringVar(&args.OutputFile, "out", "", "Output file; format follows the extension (stdout if empty)")
	flag.StringVar(&args.Format, "format", "", "Output format override (idf, epjson)")
	flag.StringVar(&args.SchemaVersion, "schema", "", "Schema version override, e.g. 24.1 (auto-detected if empty)")
	flag.BoolVar(&args.Strict, "strict", false, "Strict parsing: warnings become errors")
	flag.BoolVar(&args.Stats, "stats", false, "Print object and reference counts after loading")
	flag.BoolVar(&args.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&args.Debug, "debug", false, "Enable debug mode")

	// Parse the command line
	flag.Parse()

	if err := validateArguments(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n\n", err)
		printUsage()
		os.Exit(1)
	}

	var logger *zap.Logger
	var err error

	if args.Debug {
		// Development configuration with more verbose output
		z := zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stdout"}
		logger, err = z.Build()
	} else {
		// Production configuration
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	if !helpers.FileExists(args.InputFile, sugar) {
		sugar.Fatalf("Input file not found: %s", args.InputFile)
	}

	opts := engine.ParseOptions{Strict: args.Strict}
	if args.SchemaVersion != "" {
		version, err := schema.ParseVersion(args.SchemaVersion)
		if err != nil {
			sugar.Fatalf("Invalid --schema value %q: %v", args.SchemaVersion, err)
		}
		opts.Version = &version
	}

	doc, err := engine.LoadFile(args.InputFile, opts, sugar)
	if err != nil {
		sugar.Fatalf("Failed to load %s: %v", args.InputFile, err)
	}

	if args.Verbose {
		sugar.Infof("Loaded %s: schema %s, %d objects", args.InputFile, doc.Version.Label(), doc.Len())
	}

	if args.Stats {
		printStats(doc)
	}

	if args.OutputFile == "" && !args.Stats {
		format := outputFormat(args, "")
		out, err := engine.WriteString(doc, format, sugar)
		if err != nil {
			sugar.Fatalf("Failed to serialize model: %v", err)
		}
		fmt.Print(out)
		return
	}

	if args.OutputFile != "" {
		format := outputFormat(args, args.OutputFile)
		n, err := engine.WriteFile(doc, args.OutputFile, format, sugar)
		if err != nil {
			sugar.Fatalf("Failed to write %s: %v", args.OutputFile, err)
		}
		if args.Verbose {
			sugar.Infof("Wrote %d bytes to %s", n, args.OutputFile)
		}
	}
}

func validateArguments(args *settings.Arguments) error {
	if args.InputFile == "" {
		return fmt.Errorf("--in is required")
	}
	switch args.Format {
	case "", string(engine.FormatIDF), string(engine.FormatEPJSON):
	default:
		return fmt.Errorf("unknown format %q (idf, epjson)", args.Format)
	}
	return nil
}

// outputFormat picks the explicit --format, then the output file
// extension, then falls back to epJSON.
func outputFormat(args *settings.Arguments, path string) engine.Format {
	if args.Format != "" {
		return engine.Format(args.Format)
	}
	if path != "" {
		if format, err := engine.DetectFormat(path); err == nil {
			return format
		}
	}
	return engine.FormatEPJSON
}

func printStats(doc *engine.Document) {
	fmt.Printf("schema version: %s\n", doc.Version.Label())
	fmt.Printf("objects: %d\n", doc.Len())
	for key, value := range doc.RefStats() {
		fmt.Printf("%s: %d\n", key, value)
	}
	if dangling := doc.DanglingReferences(); len(dangling) > 0 {
		fmt.Printf("dangling references: %d\n", len(dangling))
		for _, dref := range dangling {
			fmt.Printf("  %s\n", dref.Error())
		}
	}
}
