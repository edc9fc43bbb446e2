// Package mcpserver exposes document generation as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"ragprompt/internal/domain"
	"ragprompt/internal/service"
)

// Pipeline is the subset of the RAG service used by the tools.
type Pipeline interface {
	BuildPrompt(ctx context.Context, req service.Request) (string, error)
	Generate(ctx context.Context, req service.Request) (service.Result, error)
}

// Lister lists documents available to the tools.
type Lister interface {
	List() ([]string, error)
}

type Handlers struct {
	pipeline Pipeline
	files    Lister
	log      *slog.Logger
}

// NewServer creates an MCP server with every tool registered.
func NewServer(version string, pipeline Pipeline, files Lister, logger *slog.Logger) *mcpserver.MCPServer {
	server := mcpserver.NewMCPServer("ragprompt", version)
	RegisterTools(server, pipeline, files, logger)
	return server
}

// RegisterTools registers list_files and generate_document.
func RegisterTools(server *mcpserver.MCPServer, pipeline Pipeline, files Lister, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{pipeline: pipeline, files: files, log: logger}

	server.AddTool(mcp.Tool{
		Name:        "list_files",
		Description: "List the uploaded documents that can be used as grounding for generate_document.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, h.ListFiles)

	server.AddTool(mcp.Tool{
		Name:        "generate_document",
		Description: "Generate a document (for example an elevator pitch or an abstract) grounded on the most relevant passages of one uploaded file.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"file_name": map[string]interface{}{
					"type":        "string",
					"description": "Name of an uploaded file, as returned by list_files",
				},
				"document_type": map[string]interface{}{
					"type":        "string",
					"description": "Kind of document to write (default: elevator pitch)",
				},
				"additional_info": map[string]interface{}{
					"type":        "string",
					"description": "Extra instructions for the writer",
				},
				"model_name": map[string]interface{}{
					"type":        "string",
					"description": "Generation model",
				},
				"embedding_model_name": map[string]interface{}{
					"type":        "string",
					"description": "Embedding model used for retrieval",
				},
				"prompt_only": map[string]interface{}{
					"type":        "boolean",
					"description": "Return the grounded prompt without calling the generation model",
					"default":     false,
				},
			},
			Required: []string{"file_name"},
		},
	}, h.GenerateDocument)

	return h
}

// ListFiles handles the list_files tool.
func (h *Handlers) ListFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := h.files.List()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list files: %v", err)), nil
	}
	data, err := json.Marshal(map[string][]string{"files": names})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// GenerateDocument handles the generate_document tool.
func (h *Handlers) GenerateDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fileName, err := request.RequireString("file_name")
	if err != nil || fileName == "" {
		return mcp.NewToolResultError("file_name argument is required and must be a string"), nil
	}
	req := service.Request{
		FileName:       fileName,
		DocumentType:   request.GetString("document_type", ""),
		AdditionalInfo: request.GetString("additional_info", ""),
		Model:          request.GetString("model_name", ""),
		EmbeddingModel: request.GetString("embedding_model_name", ""),
	}

	if request.GetBool("prompt_only", false) {
		prompt, err := h.pipeline.BuildPrompt(ctx, req)
		if err != nil {
			return h.failure(err), nil
		}
		return mcp.NewToolResultText(prompt), nil
	}
	res, err := h.pipeline.Generate(ctx, req)
	if err != nil {
		return h.failure(err), nil
	}
	return mcp.NewToolResultText(res.GeneratedText), nil
}

func (h *Handlers) failure(err error) *mcp.CallToolResult {
	kind := domain.KindOf(err)
	h.log.Warn("tool call failed", "kind", kind, "error", err)
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", kind, err))
}
