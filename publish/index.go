package publish

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shono-io/acasci/sdk"
)

type UploadStatus string

const (
	Uploaded UploadStatus = "uploaded"
	Skipped  UploadStatus = "skipped"
)

type (
	IndexConfig struct {
		Name     string `mapstructure:"name"`
		Url      string `mapstructure:"url"`
		Username string `mapstructure:"username"`
		Password string `mapstructure:"password"`
	}

	Uploader interface {
		Name() string
		Upload(ctx context.Context, artifact sdk.Artifact) (UploadStatus, error)
	}

	UploadResult struct {
		Artifact sdk.Artifact
		Status   UploadStatus
	}
)

// Index uploads artifacts through the legacy upload API. Artifacts the index already holds are
// reported as skipped instead of failing.
type Index struct {
	cfg IndexConfig
	hc  *http.Client
}

func NewIndex(cfg IndexConfig, hc *http.Client) (*Index, error) {
	if strings.TrimSpace(cfg.Url) == "" {
		return nil, fmt.Errorf("package index %q has no upload url", cfg.Name)
	}

	if hc == nil {
		hc = &http.Client{Timeout: 5 * time.Minute}
	}

	return &Index{cfg: cfg, hc: hc}, nil
}

func (i *Index) Name() string {
	return i.cfg.Name
}

func (i *Index) Upload(ctx context.Context, a sdk.Artifact) (UploadStatus, error) {
	body, contentType, err := uploadForm(a)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, i.cfg.Url, body)
	if err != nil {
		return "", fmt.Errorf("unable to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.SetBasicAuth(i.cfg.Username, i.cfg.Password)

	resp, err := i.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("unable to upload %s to %s: %w", filepath.Base(a.Path), i.cfg.Name, err)
	}
	defer resp.Body.Close()

	text, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		log.Info().Str("index", i.cfg.Name).Str("artifact", filepath.Base(a.Path)).Msg("artifact uploaded")
		return Uploaded, nil
	}

	if alreadyExists(resp.StatusCode, resp.Status, string(text)) {
		log.Info().Str("index", i.cfg.Name).Str("artifact", filepath.Base(a.Path)).Msg("artifact already exists, skipping")
		return Skipped, nil
	}

	return "", fmt.Errorf("upload of %s to %s failed: %s: %s", filepath.Base(a.Path), i.cfg.Name, resp.Status, strings.TrimSpace(string(text)))
}

// alreadyExists recognises the ways package indexes reject a file they already hold.
func alreadyExists(status int, reason string, text string) bool {
	reason = strings.ToLower(reason)
	text = strings.ToLower(text)
	either := func(s string) bool {
		return strings.Contains(reason, s) || strings.Contains(text, s)
	}

	switch status {
	case http.StatusConflict:
		return true
	case http.StatusBadRequest:
		return either("already exist") || either("updating asset") || strings.Contains(text, "already been taken")
	case http.StatusForbidden:
		return strings.Contains(text, "overwrite artifact")
	}

	return false
}

func uploadForm(a sdk.Artifact) (*bytes.Buffer, string, error) {
	content, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, "", fmt.Errorf("unable to read artifact: %w", err)
	}

	md5sum := md5.Sum(content)
	sha := sha256.Sum256(content)

	fields := [][2]string{
		{":action", "file_upload"},
		{"protocol_version", "1"},
		{"metadata_version", "2.1"},
		{"name", a.Name},
		{"version", a.Version},
		{"filetype", string(a.Kind)},
		{"pyversion", a.PyVersion},
		{"md5_digest", hex.EncodeToString(md5sum[:])},
		{"sha256_digest", hex.EncodeToString(sha[:])},
	}

	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	fw, err := mw.CreateFormFile("content", filepath.Base(a.Path))
	if err != nil {
		return nil, "", err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return body, mw.FormDataContentType(), nil
}

// UploadAll uploads the sdist and the wheel, stopping at the first failure.
func UploadAll(ctx context.Context, up Uploader, set sdk.ArtifactSet) ([]UploadResult, error) {
	var results []UploadResult
	for _, a := range set.All() {
		status, err := up.Upload(ctx, a)
		if err != nil {
			return results, err
		}
		results = append(results, UploadResult{Artifact: a, Status: status})
	}

	return results, nil
}

// ShouldPublishProduction gates the production index on tag creation.
func ShouldPublishProduction(event sdk.TriggerEvent) bool {
	return event.Kind == sdk.TagCreateEvent
}
