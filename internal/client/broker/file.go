package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileSource serves orders from per-user JSON exports named <user_id>.json.
// A file holds either an array of orders or an object with a results array.
type FileSource struct {
	Dir string
}

func NewFileSource(dir string) *FileSource {
	return &FileSource{Dir: dir}
}

func (s *FileSource) FetchOrders(ctx context.Context, userID string, since time.Time) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" || strings.ContainsAny(userID, `/\`) || userID == "." || userID == ".." {
		return nil, fmt.Errorf("file source: invalid user id %q", userID)
	}
	body, err := os.ReadFile(filepath.Join(s.Dir, userID+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("file source %s: %w", userID, ErrUnknownUser)
	}
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}
	items, err := decodeExport(body)
	if err != nil {
		return nil, fmt.Errorf("file source %s: %w", userID, err)
	}
	records := decodeRecords(items)
	if since.IsZero() {
		return records, nil
	}
	out := records[:0]
	for _, r := range records {
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(r.Order.CreatedAt))
		if err != nil || !ts.Before(since) {
			out = append(out, r)
		}
	}
	return out, nil
}

func decodeExport(body []byte) ([]json.RawMessage, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, errors.New("empty export")
	}
	var items []json.RawMessage
	if body[0] == '[' {
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, err
		}
		return items, nil
	}
	var page orderPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, err
	}
	return page.Results, nil
}
