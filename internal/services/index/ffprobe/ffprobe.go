// Package ffprobe extracts container metadata for files whose duration the
// filesystem index cannot know on its own.
package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type Prober struct {
	binary string
}

func New(binary string) *Prober {
	bin := strings.TrimSpace(binary)
	if bin == "" {
		bin = "ffprobe"
	}
	return &Prober{binary: bin}
}

const maxProbeTimeout = 30 * time.Second

// DurationMs probes the container and returns the duration in milliseconds.
// Returns 0 with no error when the container carries no duration metadata.
func (p *Prober) DurationMs(ctx context.Context, filePath string) (int64, error) {
	path := strings.TrimSpace(filePath)
	if path == "" {
		return 0, errors.New("file path is required")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxProbeTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return 0, fmt.Errorf("ffprobe: %s", msg)
		}
		return 0, fmt.Errorf("ffprobe: %w", err)
	}

	return parseDurationMs(stdout.Bytes())
}

type probeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func parseDurationMs(raw []byte) (int64, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	value := strings.TrimSpace(out.Format.Duration)
	if value == "" || value == "N/A" {
		return 0, nil
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", value, err)
	}
	if seconds < 0 {
		return 0, nil
	}
	return int64(seconds * 1000), nil
}
