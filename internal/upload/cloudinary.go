package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"wapistore/internal/apperr"
	applog "wapistore/internal/log"
)

// Cloudinary posts unsigned uploads using an upload preset.
type Cloudinary struct {
	httpClient *http.Client
	endpoint   string
	preset     string
}

func NewCloudinary(baseURL, cloudName, preset string) *Cloudinary {
	return &Cloudinary{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		endpoint:   strings.TrimRight(baseURL, "/") + "/" + cloudName + "/auto/upload",
		preset:     preset,
	}
}

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	PublicID  string `json:"public_id"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Bytes     int64  `json:"bytes"`
	Format    string `json:"format"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Cloudinary) Upload(ctx context.Context, f File) (Result, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	name := f.Name
	if name == "" {
		name = "upload"
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, err, "building upload")
	}
	if _, err := part.Write(f.Data); err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, err, "building upload")
	}
	if err := mw.WriteField("upload_preset", c.preset); err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, err, "building upload")
	}
	if err := mw.Close(); err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, err, "building upload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindInternal, err, "building upload")
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindUnavailable, err, "media host unreachable")
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			applog.Logger().Warn().Str("action", "upload.close").Err(cerr).Send()
		}
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Result{}, apperr.Wrap(apperr.KindUnavailable, err, "reading media host response")
	}
	var out cloudinaryResponse
	_ = json.Unmarshal(raw, &out)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := fmt.Sprintf("status %d", resp.StatusCode)
		if out.Error != nil && out.Error.Message != "" {
			msg += ": " + out.Error.Message
		}
		return Result{}, apperr.Wrap(apperr.KindUnavailable, errors.New(msg), "media host rejected upload")
	}
	url := out.SecureURL
	if url == "" {
		url = out.URL
	}
	if url == "" {
		return Result{}, apperr.New(apperr.KindUnavailable, "media host returned no url")
	}
	return Result{
		URL:      url,
		PublicID: out.PublicID,
		Width:    out.Width,
		Height:   out.Height,
		Bytes:    out.Bytes,
		Format:   out.Format,
	}, nil
}
