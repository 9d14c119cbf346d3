package coldstore

import (
	"context"
	"errors"
	"io"

	"artsync/internal/models"
)

// ChunkSize is the session chunk threshold. Sources smaller than one chunk
// are uploaded in a single call; anything larger goes through an upload
// session.
const ChunkSize = 4 * 1024 * 1024

// UploadResult is the committed destination of a completed transfer.
type UploadResult struct {
	Path string
	Size int64
}

type uploadArg struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Mute bool   `json:"mute"`
}

type sessionCursor struct {
	SessionID string `json:"session_id"`
	Offset    int64  `json:"offset"`
}

type sessionStartArg struct {
	Close bool `json:"close"`
}

type sessionAppendArg struct {
	Cursor sessionCursor `json:"cursor"`
	Close  bool          `json:"close"`
}

type sessionFinishArg struct {
	Cursor sessionCursor `json:"cursor"`
	Commit uploadArg     `json:"commit"`
}

// Transfer streams src into destPath on cold storage. Chunk commits are
// strictly sequential: every append carries the cumulative offset of all
// bytes sent before it, and the session protocol rejects any mismatch.
// Uploads always use overwrite mode, so re-running a transfer after a partial
// failure converges on the correct final file.
func (c *Client) Transfer(ctx context.Context, src io.Reader, destPath string, creds models.DropboxCredentials) (UploadResult, error) {
	commit := uploadArg{Path: destPath, Mode: "overwrite", Mute: true}

	buf := make([]byte, ChunkSize)
	n, err := readChunk(src, buf)
	if err != nil {
		return UploadResult{}, &TransferError{Cause: err}
	}

	// Small-file path: the stream ended before one full chunk.
	if n < ChunkSize {
		var out struct {
			PathDisplay string `json:"path_display"`
			Size        int64  `json:"size"`
		}
		if err := c.content(ctx, creds, "/2/files/upload", commit, buf[:n], &out); err != nil {
			return UploadResult{}, &TransferError{Cause: err}
		}
		return UploadResult{Path: pathOr(out.PathDisplay, destPath), Size: int64(n)}, nil
	}

	// Large-file path: open a session with the first full chunk.
	var started struct {
		SessionID string `json:"session_id"`
	}
	if err := c.content(ctx, creds, "/2/files/upload_session/start", sessionStartArg{}, buf[:n], &started); err != nil {
		return UploadResult{}, &TransferError{Cause: err}
	}

	offset := int64(n)
	for {
		n, err := readChunk(src, buf)
		if err != nil {
			return UploadResult{}, &TransferError{Cause: err}
		}

		cursor := sessionCursor{SessionID: started.SessionID, Offset: offset}

		// A short (or empty) read means the stream is done: this chunk
		// finishes the session and binds it to the destination path.
		if n < ChunkSize {
			var out struct {
				PathDisplay string `json:"path_display"`
				Size        int64  `json:"size"`
			}
			finish := sessionFinishArg{Cursor: cursor, Commit: commit}
			if err := c.content(ctx, creds, "/2/files/upload_session/finish", finish, buf[:n], &out); err != nil {
				return UploadResult{}, &TransferError{Cause: err}
			}
			return UploadResult{Path: pathOr(out.PathDisplay, destPath), Size: offset + int64(n)}, nil
		}

		app := sessionAppendArg{Cursor: cursor}
		if err := c.content(ctx, creds, "/2/files/upload_session/append_v2", app, buf[:n], nil); err != nil {
			return UploadResult{}, &TransferError{Cause: err}
		}
		offset += int64(n)
	}
}

// readChunk fills buf from r, tolerating end-of-stream. It returns how many
// bytes were read; fewer than len(buf) means the stream is exhausted.
func readChunk(r io.Reader, buf []byte) (int, error) {
	n, err := io.ReadFull(r, buf)
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		return n, nil
	}
	return n, err
}

func pathOr(got, fallback string) string {
	if got != "" {
		return got
	}
	return fallback
}
