package execclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	appErr "streamjudge/pkg/errors"
)

// InputSlot is a write target for one oversized input: a presigned upload
// location plus the opaque reference id the backend accepts in place of
// inline stdin.
type InputSlot struct {
	PresignedURL string `json:"presigned_url"`
	InputID      string `json:"input_id"`
}

// StageInput prepares the stdin payload for one execution request. Inputs
// under the inline ceiling are returned as-is; at or above it the content is
// uploaded out-of-band and the returned reference id replaces inline content.
// Exactly one of the two return values is non-empty on success. A failure
// here is fatal for the one test case only.
func (c *Client) StageInput(ctx context.Context, content string) (stdin string, stdinID string, err error) {
	if len(content) < c.cfg.InlineStdinLimit {
		return content, "", nil
	}

	slot, err := c.requestInputSlot(ctx)
	if err != nil {
		return "", "", err
	}
	if err := c.uploadInput(ctx, slot.PresignedURL, content); err != nil {
		return "", "", err
	}
	return "", slot.InputID, nil
}

func (c *Client) requestInputSlot(ctx context.Context) (InputSlot, error) {
	if c.cfg.InputSlotURL == "" {
		return InputSlot{}, appErr.New(appErr.OffloadFailed).WithMessage("input slot URL is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.InputSlotURL, nil)
	if err != nil {
		return InputSlot{}, appErr.Wrapf(err, appErr.OffloadFailed, "build input slot request failed")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return InputSlot{}, appErr.Wrapf(err, appErr.OffloadFailed, "request input slot failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return InputSlot{}, appErr.Wrapf(err, appErr.OffloadFailed, "read input slot response failed")
	}
	var slot InputSlot
	if err := json.Unmarshal(body, &slot); err != nil {
		return InputSlot{}, appErr.Wrapf(err, appErr.OffloadFailed, "decode input slot response failed")
	}
	if slot.PresignedURL == "" || slot.InputID == "" {
		return InputSlot{}, appErr.New(appErr.OffloadFailed).WithMessage("input slot response is incomplete")
	}
	return slot, nil
}

func (c *Client) uploadInput(ctx context.Context, presignedURL, content string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, presignedURL, strings.NewReader(content))
	if err != nil {
		return appErr.Wrapf(err, appErr.OffloadFailed, "build input upload request failed")
	}
	req.ContentLength = int64(len(content))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return appErr.Wrapf(err, appErr.OffloadFailed, "upload input failed")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return appErr.Newf(appErr.OffloadFailed, "upload input failed with status %d", resp.StatusCode)
	}
	return nil
}
