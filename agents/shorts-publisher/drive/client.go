// Package drive lists and downloads candidate videos from Google Drive
// folders using a service account.
package drive

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"shorts-agent/internal/models"
	"shorts-agent/shared/config"

	"golang.org/x/oauth2/google"
	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

var videoExtensions = []string{".mp4", ".mov", ".m4v", ".webm"}

type Client struct {
	service *drive.Service
	config  *config.ShortsConfig
}

func NewClient(ctx context.Context, cfg *config.ShortsConfig) (*Client, error) {
	raw, err := base64.StdEncoding.DecodeString(cfg.ServiceAccountB64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode service account blob: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(raw, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}

	service, err := drive.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Drive service: %w", err)
	}

	return &Client{
		service: service,
		config:  cfg,
	}, nil
}

// ListAllVideos drains every configured folder and concatenates the results.
func (c *Client) ListAllVideos(ctx context.Context, folderIDs []string) ([]*models.Asset, error) {
	var all []*models.Asset
	for _, folderID := range folderIDs {
		assets, err := c.listVideosInFolder(ctx, folderID)
		if err != nil {
			return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
		}
		all = append(all, assets...)
	}
	return all, nil
}

func (c *Client) listVideosInFolder(ctx context.Context, folderID string) ([]*models.Asset, error) {
	query := fmt.Sprintf("'%s' in parents and trashed=false", folderID)

	var files []*drive.File
	pageToken := ""
	for {
		call := c.service.Files.List().
			Q(query).
			Spaces("drive").
			Fields("nextPageToken, files(id, name, mimeType, size, modifiedTime)").
			PageToken(pageToken).
			Context(ctx)

		resp, err := call.Do()
		if err != nil {
			return nil, err
		}

		files = append(files, resp.Files...)
		pageToken = resp.NextPageToken
		if pageToken == "" {
			break
		}
	}

	return filterVideoAssets(files), nil
}

// filterVideoAssets keeps files with a known video extension and converts
// them to the pool representation.
func filterVideoAssets(files []*drive.File) []*models.Asset {
	var assets []*models.Asset
	for _, f := range files {
		if !isVideo(f.Name) {
			continue
		}
		asset := &models.Asset{
			ID:   f.Id,
			Name: f.Name,
			Size: f.Size,
		}
		if modified, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			asset.ModifiedTime = modified
		}
		assets = append(assets, asset)
	}
	return assets
}

func isVideo(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Download streams the file to dest, logging coarse progress along the way.
func (c *Client) Download(ctx context.Context, fileID, dest string) error {
	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return fmt.Errorf("failed to start download of %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	defer out.Close()

	writer := &progressWriter{total: resp.ContentLength}
	if _, err := io.Copy(io.MultiWriter(out, writer), resp.Body); err != nil {
		return fmt.Errorf("failed to download %s: %w", fileID, err)
	}

	return nil
}

// progressWriter logs download progress in 25% steps when the size is known.
type progressWriter struct {
	total   int64
	written int64
	lastPct int
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.written += int64(len(b))
	if p.total > 0 {
		pct := int(p.written * 100 / p.total)
		if pct >= p.lastPct+25 {
			p.lastPct = pct - pct%25
			log.Printf("Download %d%%", p.lastPct)
		}
	}
	return len(b), nil
}
