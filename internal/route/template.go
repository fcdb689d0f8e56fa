package route

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Template is an output file name pattern.
//
// Recognised placeholders:
//
//	[name]     logical name of the artifact
//	[extname]  extension with its leading separator (".png")
//	[ext]      extension without the separator ("png")
type Template string

const (
	placeholderName    = "[name]"
	placeholderExtname = "[extname]"
	placeholderExt     = "[ext]"
)

var placeholderPattern = regexp.MustCompile(`\[[^\]]*\]`)

// Validate checks that t can produce a relative path inside the output root.
func (t Template) Validate() error {
	s := string(t)
	if strings.TrimSpace(s) == "" {
		return errors.New("template is empty")
	}
	if !strings.Contains(s, placeholderName) {
		return fmt.Errorf("template %q does not reference %s", s, placeholderName)
	}
	for _, p := range placeholderPattern.FindAllString(s, -1) {
		switch p {
		case placeholderName, placeholderExtname, placeholderExt:
		default:
			return fmt.Errorf("template %q uses unknown placeholder %s", s, p)
		}
	}
	if strings.Contains(s, `\`) {
		return fmt.Errorf("template %q must use forward slashes", s)
	}
	if path.IsAbs(s) {
		return fmt.Errorf("template %q must be relative", s)
	}
	for _, seg := range strings.Split(s, "/") {
		if seg == ".." {
			return fmt.Errorf("template %q escapes the output directory", s)
		}
	}
	return nil
}

// Expand substitutes the placeholders. ext is taken verbatim.
func (t Template) Expand(name, ext string) string {
	r := strings.NewReplacer(
		placeholderName, name,
		placeholderExtname, ext,
		placeholderExt, strings.TrimPrefix(ext, "."),
	)
	return r.Replace(string(t))
}
