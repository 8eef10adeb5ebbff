// Package encoder holds the conversion strategies: in-process image codecs
// and document renderers that shell out to external tools.
package encoder

import (
	"errors"
	"fmt"
	"os/exec"
	"sort"
	"sync"

	"fileconv/config"
	"fileconv/logger"
)

// ErrToolUnavailable is returned by a document strategy whose external
// command was not found on PATH when the strategies were registered.
var ErrToolUnavailable = errors.New("conversion tool not available")

// Converter implements every conversion strategy the dispatcher can pick
type Converter struct {
	runner Runner
	cfg    config.RenderConfig

	mu      sync.RWMutex
	missing map[string]string // strategy → command not found on PATH
}

func New(runner Runner, cfg config.RenderConfig) *Converter {
	return &Converter{runner: runner, cfg: cfg, missing: map[string]string{}}
}

// Register records that strategy depends on cmdName and reports whether the
// command is on PATH. A strategy registered with a missing command fails
// fast instead of spawning the tool.
func (c *Converter) Register(strategy, cmdName string) bool {
	_, err := exec.LookPath(cmdName)

	c.mu.Lock()
	if err != nil {
		c.missing[strategy] = cmdName
	} else {
		delete(c.missing, strategy)
	}
	c.mu.Unlock()

	if err != nil {
		logger.Warnf("encoder [%s]: command '%s' not found in PATH", strategy, cmdName)
		return false
	}
	logger.Debugf("encoder [%s] available (command: %s)", strategy, cmdName)
	return true
}

// RegisterDefaults checks the tools configured for the document strategies
// and reports which strategies are ready.
func (c *Converter) RegisterDefaults() map[string]bool {
	status := map[string]bool{
		"markdown_to_pdf": c.Register("markdown_to_pdf", c.cfg.PDFRenderer),
		"office_to_pdf":   c.Register("office_to_pdf", c.cfg.Office),
		"pdf_to_markdown": c.Register("pdf_to_markdown", c.cfg.PDFText),
	}
	for _, name := range []string{"image_convert", "image_compress", "image_resize", "image_strip_metadata"} {
		status[name] = true
	}

	var ready []string
	for name, ok := range status {
		if ok {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)
	logger.Infof("Conversion strategies ready: %v", ready)
	return status
}

// requireTool fails when strategy was registered and its command was missing.
// Strategies never registered are attempted.
func (c *Converter) requireTool(strategy string) error {
	c.mu.RLock()
	cmd, missing := c.missing[strategy]
	c.mu.RUnlock()
	if missing {
		return fmt.Errorf("%w: %s needs '%s' on PATH", ErrToolUnavailable, strategy, cmd)
	}
	return nil
}
