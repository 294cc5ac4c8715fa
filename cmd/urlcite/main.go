// Command urlcite resolves hyperlinks and citation markers in a
// pandoc-style JSON document into fully formed citations, backed by a
// persistent fetch-once cache of bibliographic records.
//
// It follows the filter convention: the document is read from stdin,
// the transformed document is written to stdout, and the optional
// positional argument names the host's output format. Diagnostics go to
// stderr.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/coolbeans/urlcite/pkg/ast"
	"github.com/coolbeans/urlcite/pkg/bib"
	"github.com/coolbeans/urlcite/pkg/pipeline"
	"github.com/coolbeans/urlcite/pkg/transform"
)

var version = "0.1.0"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// optionFlags maps flag names to the configuration keys they override.
var optionFlags = map[string]string{
	"mode":           transform.KeyMode,
	"link-output":    transform.KeyLinkOutput,
	"cache":          transform.KeyCachePath,
	"allow-dangling": transform.KeyAllowDangling,
	"output-bib":     transform.KeyOutputBib,
	"escape-ids":     transform.KeyEscapeIDs,
}

func rootCmd() *cobra.Command {
	var (
		inputPath    string
		outputPath   string
		defaultsPath string
		endpoint     string
		converterCmd string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:   "urlcite [output-format]",
		Short: "Resolve URLs and citation keys into bibliographic citations",
		Long: `urlcite rewrites citation and link nodes of a pandoc-style JSON
document into citation-augmented nodes. Bibliographic metadata for each
URL is fetched once and cached on disk; citation keys declared in prose
as "[@key]: http://..." and embedded BibTeX blocks are picked up along
the way.

The document is read from stdin and written to stdout unless --input or
--output name files. The positional argument is the host output format
(pandoc filter convention) and selects the default link output shape.`,
		Args:    cobra.MaximumNArgs(1),
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := buildLogger(verbose)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			targetFormat := ""
			if len(args) > 0 {
				targetFormat = args[0]
			}

			overrides, err := collectOverrides(cmd, defaultsPath)
			if err != nil {
				return err
			}

			input, err := readInput(inputPath)
			if err != nil {
				return err
			}
			doc, err := ast.DecodeDoc(input)
			if err != nil {
				return err
			}

			converter := bib.NewConverter(converterCmd)
			clientConfig := bib.DefaultConfig()
			clientConfig.Converter = converter
			clientConfig.Logger = logger
			if endpoint != "" {
				clientConfig.Endpoint = endpoint
			}

			err = pipeline.Run(doc, pipeline.Config{
				Overrides:    overrides,
				TargetFormat: targetFormat,
				Fetcher:      bib.NewClient(clientConfig),
				Converter:    converter,
				Logger:       logger,
			})
			if err != nil {
				return err
			}

			output, err := doc.Encode()
			if err != nil {
				return err
			}
			return writeOutput(outputPath, append(output, '\n'))
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&inputPath, "input", "", "read the document from this file instead of stdin")
	flags.StringVar(&outputPath, "output", "", "write the document to this file instead of stdout")
	flags.StringVar(&defaultsPath, "defaults", "", "YAML file of option overrides (flags still win)")
	flags.StringVar(&endpoint, "endpoint", "", "bibliography lookup service URL")
	flags.StringVar(&converterCmd, "converter", "", "external encoding converter command (default pandoc)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug diagnostics on stderr")

	flags.String("mode", "", `which links to convert: "all-links" or "citation-only"`)
	flags.String("link-output", "", `converted link shape: "cite-only", "sup" or "normal"`)
	flags.String("cache", "", "citation cache file path")
	flags.Bool("allow-dangling", false, "leave unresolvable citations untouched instead of failing")
	flags.String("output-bib", "", "write all cached records to this bibliography file")
	flags.Bool("escape-ids", true, "escape URLs into citation-key-safe ids")

	return cmd
}

// buildLogger builds the stderr diagnostics logger. stdout is reserved for
// the transformed document.
func buildLogger(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// collectOverrides merges the defaults file (if any) with explicitly set
// option flags; flags win over file entries, and both win over document
// metadata downstream.
func collectOverrides(cmd *cobra.Command, defaultsPath string) (map[string]string, error) {
	overrides := make(map[string]string)

	if defaultsPath != "" {
		data, err := os.ReadFile(defaultsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read defaults file: %w", err)
		}
		var fromFile map[string]any
		if err := yaml.Unmarshal(data, &fromFile); err != nil {
			return nil, fmt.Errorf("failed to parse defaults file %s: %w", defaultsPath, err)
		}
		for key, value := range fromFile {
			overrides[key] = fmt.Sprintf("%v", value)
		}
	}

	for flagName, optionKey := range optionFlags {
		if !cmd.Flags().Changed(flagName) {
			continue
		}
		value, err := cmd.Flags().GetString(flagName)
		if err != nil {
			boolValue, boolErr := cmd.Flags().GetBool(flagName)
			if boolErr != nil {
				return nil, err
			}
			value = fmt.Sprintf("%v", boolValue)
		}
		overrides[optionKey] = value
	}

	return overrides, nil
}

func readInput(path string) ([]byte, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read document from stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	return data, nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		if _, err := os.Stdout.Write(data); err != nil {
			return fmt.Errorf("failed to write document to stdout: %w", err)
		}
		return nil
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
