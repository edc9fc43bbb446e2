package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"ragprompt/internal/service"
)

type requestFlags struct {
	documentType   string
	additionalInfo string
	model          string
	embeddingModel string
	noProgress     bool
}

func (f *requestFlags) register(cmd *cobra.Command, withModel bool) {
	cmd.Flags().StringVarP(&f.documentType, "type", "t", "", "document type to create (default from config: elevator pitch)")
	cmd.Flags().StringVarP(&f.additionalInfo, "info", "i", "", "additional information for the writer")
	cmd.Flags().StringVarP(&f.embeddingModel, "embedding-model", "e", "", "embedding model (tfidf for local embeddings)")
	cmd.Flags().BoolVar(&f.noProgress, "no-progress", false, "do not draw the embedding progress bar")
	if withModel {
		cmd.Flags().StringVarP(&f.model, "model", "m", "", "generation model")
	}
}

func (f *requestFlags) request(path string) service.Request {
	return service.Request{
		Path:           path,
		FileName:       filepath.Base(path),
		DocumentType:   f.documentType,
		AdditionalInfo: f.additionalInfo,
		Model:          f.model,
		EmbeddingModel: f.embeddingModel,
	}
}

// NewProcessCmd creates the process command.
func NewProcessCmd() *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "process <file>",
		Short: "Generate a document grounded on a file",
		Long: `Index the file, retrieve the passages most relevant to the requested
document type and generate the document with the configured model.`,
		Example: `  ragprompt process patent.pdf
  ragprompt process patent.pdf --type abstract --info "for investors" --model llama3`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(logger)
			if err != nil {
				return err
			}
			req := flags.request(args[0])
			progress, finish := newEmbeddingProgress(!flags.noProgress && progressEnabled())
			req.Progress = progress
			res, err := svc.Generate(cmd.Context(), req)
			finish()
			if err != nil {
				return err
			}
			docType := req.DocumentType
			if docType == "" {
				docType = svc.Settings().DocumentType
			}
			printHeader(cmd.ErrOrStderr(), fmt.Sprintf("%s for %s", docType, req.FileName))
			fmt.Fprintln(cmd.OutOrStdout(), res.GeneratedText)
			return nil
		},
	}
	flags.register(cmd, true)
	return cmd
}

// NewPromptCmd creates the prompt command.
func NewPromptCmd() *cobra.Command {
	var flags requestFlags
	cmd := &cobra.Command{
		Use:   "prompt <file>",
		Short: "Print the grounded prompt without generating",
		Long: `Run retrieval for the file and print the prompt that process would send
to the generation model.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(logger)
			if err != nil {
				return err
			}
			req := flags.request(args[0])
			progress, finish := newEmbeddingProgress(!flags.noProgress && progressEnabled())
			req.Progress = progress
			prompt, err := svc.BuildPrompt(cmd.Context(), req)
			finish()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), prompt)
			return nil
		},
	}
	flags.register(cmd, false)
	return cmd
}
