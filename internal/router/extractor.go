package router

import (
	"fmt"
	"strings"
)

// ExtractServiceName pulls the service name out of a gRPC request path of
// the form /package.Service/Method. The dotted form is preserved (the
// hierarchical fallback happens later, at tunnel resolution) and the simple
// dotless form /service/Method is accepted as-is.
func ExtractServiceName(path string) (string, error) {
	trimmed := strings.TrimPrefix(path, "/")
	segments := strings.SplitN(trimmed, "/", 2)
	if len(segments) < 2 || segments[0] == "" || segments[1] == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return segments[0], nil
}
