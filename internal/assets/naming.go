// Package assets names and uploads logo files and records them in the pages
// document's logo registry.
package assets

import (
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// LogoDir is where logo files live in the store.
const LogoDir = "assets/logos"

// GenerateUniqueLogoFileName returns "logo-<type>-<n>.<ext>" where n is one
// more than the highest number used by an existing "logo-<type>-<n>.*" file,
// or 1 when there is none. Names of other types and non-numeric suffixes are
// ignored. files may be bare names or paths.
func GenerateUniqueLogoFileName(files []string, logoType, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	pattern := regexp.MustCompile(`^logo-` + regexp.QuoteMeta(logoType) + `-(\d+)\.[A-Za-z0-9]+$`)
	highest := 0
	for _, f := range files {
		m := pattern.FindStringSubmatch(path.Base(f))
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("logo-%s-%d.%s", logoType, highest+1, ext)
}

// RegistryKey is the logos registry key for a generated file name:
// "logo-primary-4.svg" becomes "primary-4".
func RegistryKey(fileName string) string {
	base := strings.TrimSuffix(path.Base(fileName), path.Ext(fileName))
	return strings.TrimPrefix(base, "logo-")
}
