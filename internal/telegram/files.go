package telegram

import (
	"context"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/go-telegram/bot"

	"github.com/jarekbird/telegram-receiver/internal/extapi"
)

// DownloadFile resolves fileID via getFile and streams the file body to a
// local temp file. The returned cleanup func removes the file and may be
// called from any exit path, including after the file was already consumed.
//
// Failures are classified: unreachable API or transport errors map to
// connection/timeout, a non-2xx download response maps to invalid_response.
func (c *Client) DownloadFile(ctx context.Context, fileID string) (string, func(), error) {
	const op = "download_file"

	file, err := c.bot.GetFile(ctx, &bot.GetFileParams{FileID: fileID})
	if err != nil {
		return "", nil, extapi.Classify(op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bot.FileDownloadLink(file), nil)
	if err != nil {
		return "", nil, extapi.New(extapi.KindInvalidResponse, op, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, extapi.Classify(op, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", nil, extapi.Newf(extapi.KindInvalidResponse, op, "file download returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(c.tempDir, "telegram-audio-*")
	if err != nil {
		return "", nil, err
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, extapi.Classify(op, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", nil, err
	}

	var once sync.Once
	cleanup := func() { once.Do(func() { os.Remove(tmp.Name()) }) }
	return tmp.Name(), cleanup, nil
}
