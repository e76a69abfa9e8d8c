package timestamp

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// VideoProber reads candidate date tags from a video container. Keys are
// lowercased tag names; format-level tags win over stream-level ones.
type VideoProber interface {
	ProbeTags(ctx context.Context, path string) (map[string]string, error)
}

// FFprobeProber shells out to ffprobe for container metadata.
type FFprobeProber struct {
	Path    string
	Timeout time.Duration
}

// NewFFprobeProber creates a prober using the given ffprobe binary.
func NewFFprobeProber(path string, timeout time.Duration) *FFprobeProber {
	if path == "" {
		path = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &FFprobeProber{Path: path, Timeout: timeout}
}

type ffprobeOutput struct {
	Format struct {
		Tags map[string]string `json:"tags"`
	} `json:"format"`
	Streams []struct {
		Tags map[string]string `json:"tags"`
	} `json:"streams"`
}

// ProbeTags runs ffprobe with a bounded deadline and flattens format and
// stream tags into one lowercase-keyed map.
func (p *FFprobeProber) ProbeTags(ctx context.Context, path string) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, p.Path,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", path, err)
	}

	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, fmt.Errorf("ffprobe output for %s: %w", path, err)
	}

	tags := make(map[string]string)
	for _, stream := range parsed.Streams {
		for k, v := range stream.Tags {
			tags[strings.ToLower(k)] = v
		}
	}
	for k, v := range parsed.Format.Tags {
		tags[strings.ToLower(k)] = v
	}
	return tags, nil
}
