package main

// Analyze one resume against a target role:
//   go run ./cmd/analyze --resume-file resume.pdf --role "Backend Engineer"
//   go run ./cmd/analyze --input INPUT.json --out report.json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"resume-gap-analyzer/internal/analyses"
	"resume-gap-analyzer/internal/bootstrap"
	"resume-gap-analyzer/internal/extract"
	"resume-gap-analyzer/internal/gapanalysis"
	"resume-gap-analyzer/internal/input"
	"resume-gap-analyzer/internal/shared/config"
	"resume-gap-analyzer/internal/shared/telemetry"
)

const (
	exitFailure = 1
	exitInput   = 2
)

type options struct {
	inputPath  string
	resumeFile string
	role       string
	company    string
	level      string
	context    string
	outPath    string
	configPath string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		if gapanalysis.IsInputError(err) || errors.Is(err, gapanalysis.ErrMissingCredential) {
			os.Exit(exitInput)
		}
		os.Exit(exitFailure)
	}
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	fs.StringVarP(&opts.inputPath, "input", "i", "INPUT.json", "Path to the JSON input payload")
	fs.StringVarP(&opts.resumeFile, "resume-file", "r", "", "Resume file (pdf, docx or txt); replaces resumeText")
	fs.StringVar(&opts.role, "role", "", "Target role")
	fs.StringVar(&opts.company, "company", "", "Target company")
	fs.StringVar(&opts.level, "level", "", "Experience level")
	fs.StringVar(&opts.context, "context", "", "Additional context")
	fs.StringVarP(&opts.outPath, "out", "o", "", "Also write the report to this file")
	fs.StringVarP(&opts.configPath, "config", "c", "", "Optional YAML config file")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}
	if opts.configPath != "" {
		if err := os.Setenv("CONFIG_FILE", opts.configPath); err != nil {
			return err
		}
	}
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)

	payload, err := loadPayload(ctx, opts)
	if err != nil {
		return err
	}
	req, err := payload.Request()
	if err != nil {
		return err
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer app.Close()

	credential := input.ResolveCredential(cfg.LLMCredential, payload.Credential())
	analysis, err := app.AnalysesService.Run(ctx, analyses.SourceCLI, req, credential)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(analysis.Report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	out = append(out, '\n')
	if _, err := stdout.Write(out); err != nil {
		return err
	}
	if opts.outPath != "" {
		if err := os.WriteFile(opts.outPath, out, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", opts.outPath, err)
		}
	}
	return nil
}

// loadPayload reads the input document unless a resume file is given, then
// applies flag overrides.
func loadPayload(ctx context.Context, opts options) (input.Payload, error) {
	var payload input.Payload
	if strings.TrimSpace(opts.resumeFile) == "" {
		p, err := input.ReadFile(opts.inputPath)
		if err != nil {
			return input.Payload{}, err
		}
		payload = p
	} else {
		text, err := extract.TextFromFile(ctx, opts.resumeFile)
		if err != nil {
			return input.Payload{}, &gapanalysis.InputError{Field: "resumeFile", Reason: err.Error()}
		}
		payload.ResumeText = text
	}

	override := func(dst *string, val string) {
		if strings.TrimSpace(val) != "" {
			*dst = val
		}
	}
	override(&payload.TargetRole, opts.role)
	override(&payload.TargetCompany, opts.company)
	override(&payload.ExperienceLevel, opts.level)
	override(&payload.AdditionalContext, opts.context)
	return payload, nil
}
