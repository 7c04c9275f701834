// Package filetype provides the small set of content-addressing and MIME
// helpers shared by the chunking engine: SHA-256 hashing for Visual chunks'
// BinaryReference, and a MIME table limited to the eight formats the engine
// understands plus the common image types embedded in them.
package filetype

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// HashFile computes the SHA-256 hash of a file's contents.
func HashFile(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// HashBytes computes the SHA-256 hash of the provided bytes. Used to build
// content-addressed Visual.BinaryReference values for embedded images.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// mimeByExtension maps the extensions the engine's dispatcher recognizes,
// and the image extensions Visual chunks point at, to their canonical MIME
// type.
var mimeByExtension = map[string]string{
	".png":      "image/png",
	".jpg":      "image/jpeg",
	".jpeg":     "image/jpeg",
	".gif":      "image/gif",
	".webp":     "image/webp",
	".svg":      "image/svg+xml",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".html":     "text/html",
	".htm":      "text/html",
	".txt":      "text/plain",
	".csv":      "text/csv",
	".docx":     "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".pptx":     "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	".xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".pdf":      "application/pdf",
}

// DetectMIME determines the MIME type of content by extension, falling back
// to a JSON sniff then octet-stream.
func DetectMIME(path string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := mimeByExtension[ext]; ok {
		return mt
	}
	if len(content) > 0 && (content[0] == '{' || content[0] == '[') {
		return "application/json"
	}
	return "application/octet-stream"
}
