package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"ragprompt/internal/domain"
	"ragprompt/internal/embedding"
	"ragprompt/internal/uploads"
)

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	errorColor  = color.New(color.FgRed, color.Bold)
	hintColor   = color.New(color.FgYellow)
)

// PrintError writes err with its kind and, when one applies, a hint.
func PrintError(w io.Writer, err error) {
	kind := domain.KindOf(err)
	if kind == domain.KindInternal {
		errorColor.Fprint(w, "Error: ")
	} else {
		errorColor.Fprintf(w, "Error (%s): ", kind)
	}
	fmt.Fprintln(w, err)
	if hint := hintFor(err); hint != "" {
		hintColor.Fprintln(w, hint)
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, uploads.ErrNotFound):
		return "Upload the file first or pass a path to an existing file."
	case errors.Is(err, domain.ErrNoExtractableText):
		return "The document has no extractable text; scanned PDFs need OCR first."
	case errors.Is(err, domain.ErrEmbedding):
		return "Check that the embedding endpoint is running and the model is pulled, or use --embedding-model tfidf."
	case errors.Is(err, domain.ErrIndexAllocation):
		return "Check the vector store settings in the config file."
	case errors.Is(err, domain.ErrGeneration):
		return "Check that the generator endpoint is reachable and --model names a model it serves."
	}
	return ""
}

func printHeader(w io.Writer, title string) {
	headerColor.Fprintln(w, title)
}

func progressEnabled() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// newEmbeddingProgress returns a progress callback drawing an embedding bar
// on stderr, and a function that clears it.
func newEmbeddingProgress(enabled bool) (embedding.ProgressFunc, func()) {
	if !enabled {
		return nil, func() {}
	}
	var bar *progressbar.ProgressBar
	progress := func(done, total int) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionSetDescription("embedding"),
				progressbar.OptionSetWidth(32),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(done)
	}
	finish := func() {
		if bar != nil {
			_ = bar.Finish()
		}
	}
	return progress, finish
}
