package app

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hyperifyio/goassess/internal/export"
	"github.com/hyperifyio/goassess/internal/extract"
	"github.com/hyperifyio/goassess/internal/report"
)

// ReadInput loads the configured input, reading stdin when InputPath is ""
// or "-". A configured Format overrides the sniffed one.
func ReadInput(cfg Config, stdin io.Reader) (extract.Input, error) {
	var (
		data []byte
		err  error
	)
	if cfg.InputPath == "" || cfg.InputPath == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(cfg.InputPath)
	}
	if err != nil {
		return extract.Input{}, fmt.Errorf("read input: %w", err)
	}
	in, err := extract.Load(cfg.InputPath, data)
	if err != nil {
		return extract.Input{}, err
	}
	if cfg.Format != "" {
		in.Format = report.Format(cfg.Format)
	}
	return in, nil
}

// WriteOutputs renders a to every configured output path. The Markdown
// report goes to stdout when OutputPath is "-".
func WriteOutputs(cfg Config, a *export.Assessment, stdout io.Writer) error {
	md := export.Markdown(a)
	if cfg.OutputPath == "-" {
		if _, err := io.WriteString(stdout, md); err != nil {
			return err
		}
	} else if cfg.OutputPath != "" {
		if err := writeFile(cfg.OutputPath, []byte(md)); err != nil {
			return err
		}
	}
	if cfg.OutputJSONPath != "" {
		var buf bytes.Buffer
		if err := export.WriteJSON(&buf, a); err != nil {
			return fmt.Errorf("render json: %w", err)
		}
		if err := writeFile(cfg.OutputJSONPath, buf.Bytes()); err != nil {
			return err
		}
	}
	if cfg.OutputSARIFPath != "" {
		var buf bytes.Buffer
		if err := export.WriteSARIF(&buf, a); err != nil {
			return fmt.Errorf("render sarif: %w", err)
		}
		if err := writeFile(cfg.OutputSARIFPath, buf.Bytes()); err != nil {
			return err
		}
	}
	if cfg.OutputPDFPath != "" {
		if err := ensureParent(cfg.OutputPDFPath); err != nil {
			return err
		}
		if err := export.WritePDF(md, cfg.OutputPDFPath); err != nil {
			return fmt.Errorf("render pdf: %w", err)
		}
	}
	return nil
}

func writeFile(path string, b []byte) error {
	if err := ensureParent(path); err != nil {
		return err
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func ensureParent(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	return nil
}
