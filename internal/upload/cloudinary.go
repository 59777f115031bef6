// Package upload pushes listing and profile images to Cloudinary.
//
// The uploader is optional infrastructure, wired the same way as any other
// external dependency: main constructs it when credentials are present and
// the services fall back to a placeholder URL when it's absent. The access
// token for the upload never reaches the browser — the SPA posts the file to
// us, we forward it.
package upload

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// Cloudinary uploads images into a single folder of one Cloudinary account.
type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

// New creates a Cloudinary uploader from account credentials. folder is the
// remote directory all uploads land in (e.g. "friendly-listeh").
func New(cloudName, apiKey, apiSecret, folder string) (*Cloudinary, error) {
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("upload: creating cloudinary client: %w", err)
	}
	return &Cloudinary{cld: cld, folder: folder}, nil
}

// Upload stores the image and returns its public HTTPS URL. name becomes the
// public ID within the folder; re-uploading under the same name overwrites,
// which is exactly what image replacement on update wants.
func (c *Cloudinary) Upload(ctx context.Context, file io.Reader, name string) (string, error) {
	overwrite := true
	resp, err := c.cld.Upload.Upload(ctx, file, uploader.UploadParams{
		Folder:    c.folder,
		PublicID:  name,
		Overwrite: &overwrite,
	})
	if err != nil {
		return "", fmt.Errorf("upload: uploading image %s: %w", name, err)
	}
	// The SDK reports some failures in the response body instead of err.
	if resp.Error.Message != "" {
		return "", fmt.Errorf("upload: uploading image %s: %s", name, resp.Error.Message)
	}
	if resp.SecureURL == "" {
		return "", fmt.Errorf("upload: cloudinary returned no URL for image %s", name)
	}

	return resp.SecureURL, nil
}
