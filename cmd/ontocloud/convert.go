package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/twinfer/ontocloud/rdf"
	"github.com/twinfer/ontocloud/ttl"
)

func newConvertCmd(a *app) *cobra.Command {
	var (
		baseURI   string
		namespace string
		format    string
		output    string
		maxDepth  int
		strict    bool
		quoted    bool
	)

	cmd := &cobra.Command{
		Use:   "convert [file]",
		Short: "Convert a JSON object to Turtle or another RDF format",
		Long: `Reads a JSON object from file (or stdin when file is "-" or omitted) and
writes it as RDF. Unset flags fall back to the converter section of the config.

Formats: ` + formatList(),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv := a.cfg.Converter
			flags := cmd.Flags()
			if flags.Changed("base-uri") {
				conv.BaseURI = baseURI
			}
			if flags.Changed("namespace") {
				conv.Namespace = namespace
			}
			if flags.Changed("format") {
				conv.Format = format
			}
			if flags.Changed("max-depth") {
				conv.MaxDepth = maxDepth
			}
			if flags.Changed("strict") {
				conv.Strict = strict
			}
			if flags.Changed("quote-array-scalars") {
				conv.QuoteArrayScalars = quoted
			}

			input := "-"
			if len(args) == 1 {
				input = args[0]
			}
			data, err := readInput(cmd, input)
			if err != nil {
				return err
			}

			doc, err := ttl.New(conv.SerializerOptions()...).ConvertJSON(data, conv.BaseURI, conv.Namespace)
			if err != nil {
				return fmt.Errorf("failed to convert %s: %w", input, err)
			}
			content, err := rdf.Render(doc, rdf.Format(conv.Format))
			if err != nil {
				return err
			}
			a.logger.Debug("converted",
				zap.String("input", input),
				zap.Int("subjects", doc.SubjectCount()),
				zap.Int("triples", doc.TripleCount()))

			return writeOutput(cmd, output, content)
		},
	}

	cmd.Flags().StringVar(&baseURI, "base-uri", "", "base URI bound to the namespace prefix")
	cmd.Flags().StringVar(&namespace, "namespace", "", "namespace prefix")
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	cmd.Flags().IntVar(&maxDepth, "max-depth", ttl.DefaultMaxDepth, "deepest JSON nesting accepted")
	cmd.Flags().BoolVar(&strict, "strict", false, "reject non-absolute base URIs and invalid prefixes")
	cmd.Flags().BoolVar(&quoted, "quote-array-scalars", false, "write scalar array elements as quoted strings")
	return cmd
}

func formatList() string {
	formats := rdf.Formats()
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	return strings.Join(names, ", ")
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return data, nil
}

func writeOutput(cmd *cobra.Command, path, content string) error {
	if path == "-" || path == "" {
		_, err := io.WriteString(cmd.OutOrStdout(), content)
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
