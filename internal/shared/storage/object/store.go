package object

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"resume-gap-analyzer/internal/shared/util"
)

// ObjectStore saves and retrieves uploaded resumes and archived reports.
type ObjectStore interface {
	// Save stores r under namespace with a random prefix and sniffs its MIME type.
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	// SaveWithKey stores r at an exact key, replacing any previous object.
	SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
}

const (
	NamespaceUploads = "uploads"
	NamespaceReports = "reports"
)

const sniffLen = 512

// ReportKey is the archive location of a finished report: reports/YYYY/MM/<id>.json.
func ReportKey(analysisID string, completedAt time.Time) string {
	t := completedAt.UTC()
	return path.Join(NamespaceReports, fmt.Sprintf("%04d", t.Year()), fmt.Sprintf("%02d", int(t.Month())), strings.TrimSpace(analysisID)+".json")
}

// UploadKey builds a unique key for fileName inside namespace. Blank or
// escaping namespaces fall back to NamespaceUploads.
func UploadKey(namespace, fileName string) (string, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", fmt.Errorf("sanitize file name: %w", err)
	}
	ns := strings.Trim(strings.TrimSpace(namespace), "/")
	if ns == "" || strings.Contains(ns, "..") {
		ns = NamespaceUploads
	}
	return path.Join(ns, uuid.NewString()+"_"+name), nil
}

// Sniff detects the MIME type of r from its first bytes and returns a reader
// that still yields the whole body.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [sniffLen]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	return http.DetectContentType(head[:n]), io.MultiReader(bytes.NewReader(head[:n]), r), nil
}
