package tool

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"burlymcp/internal/pathguard"
	"burlymcp/pkg/envelope"
)

// blogStageMarkdownHandler writes a markdown document into the staging
// root, per the seed scenario naming blog_stage_markdown(file_path,
// content). It is in-process: no subprocess is warranted for a single
// bounded file write.
type blogStageMarkdownHandler struct{}

func (blogStageMarkdownHandler) Handle(ctx context.Context, req Request) (envelope.ToolResult, error) {
	filePath, _ := req.Args["file_path"].(string)
	content, _ := req.Args["content"].(string)

	if !req.ExtensionAllowed(filePath) {
		return envelope.ToolResult{Success: false, ExitCode: 1, Summary: "File extension not allowed: " + filepath.Ext(filePath)}, nil
	}

	resolved, err := pathguard.Validate(filePath, req.StageRoot, "blog_stage_markdown")
	if err != nil {
		return envelope.ToolResult{}, err
	}

	if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
		return envelope.ToolResult{Success: false, ExitCode: 1}, fmt.Errorf("blog_stage_markdown: mkdir: %w", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0o644); err != nil {
		return envelope.ToolResult{Success: false, ExitCode: 1}, fmt.Errorf("blog_stage_markdown: write: %w", err)
	}

	return envelope.ToolResult{
		Success: true,
		Summary: "Staged " + filepath.Base(resolved),
		Data:    map[string]any{"staged_path": resolved, "bytes_written": len(content)},
	}, nil
}

// blogPublishStaticHandler copies a set of already-staged files into the
// publish root. It is the sole seeded entry of the mutating-tool
// allowlist: the dispatcher guarantees _confirm was already verified
// truthy before this handler runs.
type blogPublishStaticHandler struct{}

func (blogPublishStaticHandler) Handle(ctx context.Context, req Request) (envelope.ToolResult, error) {
	raw, _ := req.Args["source_files"].([]any)
	if len(raw) == 0 {
		return envelope.ToolResult{Success: false, ExitCode: 1, Summary: "source_files must not be empty"}, nil
	}

	published := make([]string, 0, len(raw))
	for _, item := range raw {
		name, ok := item.(string)
		if !ok {
			return envelope.ToolResult{Success: false, ExitCode: 1, Summary: "source_files entries must be strings"}, nil
		}
		if !req.ExtensionAllowed(name) {
			return envelope.ToolResult{Success: false, ExitCode: 1, Summary: "File extension not allowed: " + filepath.Ext(name)}, nil
		}

		src, err := pathguard.Validate(name, req.StageRoot, "blog_publish_static:source")
		if err != nil {
			return envelope.ToolResult{}, err
		}
		dst, err := pathguard.Validate(filepath.Base(src), req.PublishRoot, "blog_publish_static:dest")
		if err != nil {
			return envelope.ToolResult{}, err
		}

		if err := copyFile(src, dst); err != nil {
			return envelope.ToolResult{Success: false, ExitCode: 1}, fmt.Errorf("blog_publish_static: copy %s: %w", name, err)
		}
		published = append(published, dst)
	}

	return envelope.ToolResult{
		Success: true,
		Summary: fmt.Sprintf("Published %d file(s)", len(published)),
		Data:    map[string]any{"published_files": published},
	}, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

// builtinHandlers is the registry of in-process handlers keyed by tool
// name; any tool absent from this map falls back to ShellHandler.
var builtinHandlers = map[string]Handler{
	"blog_stage_markdown": blogStageMarkdownHandler{},
	"blog_publish_static": blogPublishStaticHandler{},
}
