package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/twinfer/ontocloud"
	"github.com/twinfer/ontocloud/fuseki"
)

func newLoadCmd(a *app) *cobra.Command {
	var (
		name       string
		desc       string
		uploadedBy string
		importMode bool
	)

	cmd := &cobra.Command{
		Use:   "load <file>",
		Short: "Store a JSON document as a dataset, or import a dataset export",
		Long: `Without --import, stores the JSON document in file as a new dataset named
after the file (or --name). With --import, file must be a JSON array written by
"ontocloud export"; records whose id already exists are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if importMode {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open export: %w", err)
				}
				defer f.Close()

				n, err := store.ReadFrom(f)
				if err != nil {
					return err
				}
				a.logger.Info("imported datasets", zap.String("file", args[0]), zap.Int64("bytes", n))
				return nil
			}

			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			}
			d, err := store.CreateDataset(cmd.Context(), ontocloud.Dataset{
				Name:        name,
				Description: desc,
				Data:        data,
				UploadedBy:  uploadedBy,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "dataset name (default: file name without extension)")
	cmd.Flags().StringVar(&desc, "description", "", "dataset description")
	cmd.Flags().StringVar(&uploadedBy, "uploaded-by", "", "uploader id")
	cmd.Flags().BoolVar(&importMode, "import", false, "import a dataset export")
	return cmd
}

func newExportCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every dataset as a JSON array",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("failed to create output: %w", err)
				}
				defer f.Close()
				out = f
			}
			n, err := store.WriteTo(out)
			if err != nil {
				return err
			}
			a.logger.Debug("exported datasets", zap.Int64("bytes", n))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}

func newUploadCmd(a *app) *cobra.Command {
	var dataset string

	cmd := &cobra.Command{
		Use:   "upload <file.ttl>",
		Short: "Load a Turtle file into Fuseki",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if dataset == "" {
				dataset = a.cfg.Fuseki.Dataset
			}
			fc := a.cfg.Fuseki
			client := fuseki.NewClient(fc.URL, fc.ClientOptions(a.logger)...)
			if err := client.Upload(cmd.Context(), dataset, string(data)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %s into %s/%s\n", args[0], client.URL(), dataset)
			return nil
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "Fuseki dataset (overrides fuseki.dataset)")
	return cmd
}
