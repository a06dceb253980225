package encoding

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	// sniffLen is the number of bytes used by http.DetectContentType.
	sniffLen = 512
	// checkLen is the prefix scanned for null bytes.
	checkLen = 1024
	// nullThreshold is the share of null bytes above which content is binary.
	nullThreshold = 0.15
)

// utf8Name is the canonical name returned for UTF-8 content.
const utf8Name = "utf-8"

var knownTextMIMEPrefixes = map[string]bool{
	"text/":                  true,
	"application/json":       true,
	"application/xml":        true,
	"application/javascript": true,
	"application/yaml":       true,
	"application/toml":       true,
	"application/markdown":   true,
	"image/svg+xml":          true,
}

var knownTextMIMESuffixes = []string{"+xml", "+json"}

// EncodingHandler detects the character encoding of update targets, converts
// them to UTF-8 for marker scanning and converts the result back.
type EncodingHandler interface {
	// DetectAndDecode converts content to UTF-8. It returns the detected IANA
	// encoding name and whether detection was certain. The configured default
	// encoding replaces an uncertain guess.
	DetectAndDecode(content []byte) (utf8Content []byte, detectedEncoding string, certainty bool, err error)

	// Encode converts UTF-8 content back to the named encoding.
	Encode(utf8Content []byte, encodingName string) ([]byte, error)

	// IsBinary reports whether content is likely binary, using MIME sniffing on
	// the first 512 bytes and the null byte share of the first 1024 bytes.
	IsBinary(content []byte) bool
}

type goCharsetEncodingHandler struct {
	defaultEncoding string
}

// NewGoCharsetEncodingHandler creates an EncodingHandler backed by golang.org/x/net/html/charset.
func NewGoCharsetEncodingHandler(defaultEncoding string) EncodingHandler {
	return &goCharsetEncodingHandler{defaultEncoding: defaultEncoding}
}

// DetectAndDecode implements EncodingHandler.
func (h *goCharsetEncodingHandler) DetectAndDecode(content []byte) ([]byte, string, bool, error) {
	enc, name, certain := charset.DetermineEncoding(content, "")

	if !certain && h.defaultEncoding != "" {
		if fallback, fallbackName := charset.Lookup(h.defaultEncoding); fallback != nil {
			enc, name, certain = fallback, fallbackName, true
		}
	}
	if name == "" {
		name = utf8Name
	}
	if enc == nil || isUTF8(name) {
		return content, name, certain, nil
	}

	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(content), enc.NewDecoder()))
	if err != nil {
		return content, name, certain, fmt.Errorf("failed to convert from '%s': %w", name, err)
	}
	return decoded, name, certain, nil
}

// Encode implements EncodingHandler.
func (h *goCharsetEncodingHandler) Encode(content []byte, encodingName string) ([]byte, error) {
	if encodingName == "" || isUTF8(encodingName) {
		return content, nil
	}
	enc, _ := charset.Lookup(encodingName)
	if enc == nil {
		return nil, fmt.Errorf("unknown encoding '%s'", encodingName)
	}
	encoded, _, err := transform.Bytes(enc.NewEncoder(), content)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to '%s': %w", encodingName, err)
	}
	return encoded, nil
}

func isUTF8(name string) bool {
	n := strings.ToLower(name)
	return n == utf8Name || n == "utf8"
}

func isMIMETextBased(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])

	if strings.HasPrefix(mimeType, "text/") || knownTextMIMEPrefixes[mimeType] {
		return true
	}
	for _, suffix := range knownTextMIMESuffixes {
		if strings.HasSuffix(mimeType, suffix) {
			return true
		}
	}
	// octet-stream is inconclusive; the null byte check decides.
	return mimeType == "application/octet-stream"
}

// IsBinary implements EncodingHandler.
func (h *goCharsetEncodingHandler) IsBinary(content []byte) bool {
	if len(content) == 0 {
		return false
	}

	if !isMIMETextBased(http.DetectContentType(content[:min(len(content), sniffLen)])) {
		return true
	}

	prefix := content[:min(len(content), checkLen)]
	nullCount := bytes.Count(prefix, []byte{0x00})
	return float64(nullCount)/float64(len(prefix)) > nullThreshold
}
