// Package uploader publishes a staged video through the youtube-upload CLI.
package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os/exec"
	"strings"

	"shorts-agent/shared/config"
)

const uploadCommand = "youtube-upload"

// PublishError carries the uploader process's exit status and captured
// error output.
type PublishError struct {
	ExitCode int
	Stderr   string
}

func (e *PublishError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s exited with status %d", uploadCommand, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with status %d: %s", uploadCommand, e.ExitCode, e.Stderr)
}

type Uploader struct {
	config *config.ShortsConfig
}

func New(cfg *config.ShortsConfig) *Uploader {
	return &Uploader{config: cfg}
}

// Publish uploads the file and blocks until the process exits. A non-zero
// exit comes back as a *PublishError.
func (u *Uploader) Publish(ctx context.Context, filePath, title, description string, tags []string) error {
	args := u.buildArgs(filePath, title, description, tags)

	log.Printf("RUN: %s %s", uploadCommand, strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, uploadCommand, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &PublishError{
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
			}
		}
		return fmt.Errorf("failed to run %s: %w", uploadCommand, err)
	}

	return nil
}

func (u *Uploader) buildArgs(filePath, title, description string, tags []string) []string {
	return []string{
		"--client-secrets", u.config.ClientSecretsFile,
		"--credentials-file", u.config.CredentialsFile,
		"--title", title,
		"--category", u.config.Category,
		"--description", description,
		"--tags", strings.Join(tags, ","),
		"--privacy", u.config.Privacy,
		filePath,
	}
}
