package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/doc-analyzer/internal/extract"
	"github.com/sells-group/doc-analyzer/internal/model"
	"github.com/sells-group/doc-analyzer/internal/pipeline"
)

var (
	analyzeVariant  string
	analyzeProvider string
	analyzeOutput   string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Analyze a PDF document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		variant, err := model.ParseVariant(analyzeVariant)
		if err != nil {
			return err
		}
		provider, err := model.ParseProvider(analyzeProvider)
		if err != nil {
			return err
		}
		if err := checkOutputFormat(analyzeOutput); err != nil {
			return err
		}

		env, err := initPipelines(cfg, "analyze")
		if err != nil {
			return err
		}

		data, err := readDocument(args[0], cfg.Extract.MaxBytes)
		if err != nil {
			return err
		}

		s := spinner.New(spinner.CharSets[11], 100*time.Millisecond, spinner.WithWriter(cmd.ErrOrStderr()))
		s.Suffix = fmt.Sprintf(" Analyzing %s (%s)...", args[0], variant)
		s.Start()
		out, err := env.Pipeline(variant).Execute(cmd.Context(), data, provider)
		s.Stop()

		if err != nil {
			color.New(color.FgRed).Fprintln(cmd.ErrOrStderr(), pipeline.FormatFailure(err)) //nolint:errcheck
			return err
		}

		status := fmt.Sprintf("✓ Analysis complete with %s", out.Provider)
		if out.FellBack {
			status += " (fell back from anthropic)"
		}
		if out.Retried {
			status += " after one evaluator retry"
		}
		color.New(color.FgGreen).Fprintln(cmd.ErrOrStderr(), status) //nolint:errcheck

		return writeOutcome(cmd.OutOrStdout(), out, analyzeOutput)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeVariant, "variant", "document", "analysis variant: fee or document")
	analyzeCmd.Flags().StringVar(&analyzeProvider, "provider", "openai", "LLM provider for the fee variant: openai or anthropic")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "human", "output format: human, json or yaml")
	rootCmd.AddCommand(analyzeCmd)
}

func checkOutputFormat(format string) error {
	switch format {
	case "human", "json", "yaml":
		return nil
	default:
		return eris.Errorf("unsupported output format %q (supported: human, json, yaml)", format)
	}
}

func readDocument(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return extract.ReadAll(f, maxBytes)
}

// writeOutcome renders a successful run in the requested format.
func writeOutcome(w io.Writer, out *pipeline.Outcome, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(out), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(out); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return eris.Wrap(enc.Close(), "encode yaml")
	default:
		_, err := fmt.Fprint(w, out.Report)
		return err
	}
}
