package services

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/drawkeeper/internal/common"
)

// allowedExtensions lists the CAD formats the translation service accepts.
var allowedExtensions = map[string]struct{}{
	"dwg": {}, "dxf": {}, "dwf": {}, "dwfx": {}, "dwt": {},
	"rvt": {}, "ifc": {}, "nwd": {}, "nwc": {},
	"stp": {}, "step": {}, "igs": {}, "iges": {}, "sat": {},
	"ipt": {}, "iam": {}, "f3d": {}, "3dm": {}, "skp": {},
}

const maxSanitizedName = 120

var (
	unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)
	underscores = regexp.MustCompile(`_+`)
)

// Extension returns the lower-cased extension of name without the dot.
func Extension(name string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
}

// AllowedExtension reports whether name has a supported CAD extension.
func AllowedExtension(name string) bool {
	_, ok := allowedExtensions[Extension(name)]
	return ok
}

// SanitizeFileName makes name safe for use inside a storage key.
func SanitizeFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	s := unsafeChars.ReplaceAllString(name, "_")
	s = underscores.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_.")
	if s == "" {
		return "file"
	}
	if len(s) > maxSanitizedName {
		ext := filepath.Ext(s)
		if len(ext) >= maxSanitizedName {
			ext = ""
		}
		s = s[:maxSanitizedName-len(ext)] + ext
	}
	return s
}

// BlobKey is the storage location of an uploaded original.
func BlobKey(ownerID string, at time.Time, fileName string) string {
	return fmt.Sprintf("drawings/%s/%d_%s", ownerID, at.UnixMilli(), SanitizeFileName(fileName))
}

// validateUpload runs every check that needs no I/O.
func validateUpload(req UploadRequest, maxSize int64) error {
	if req.OwnerID == "" {
		return fmt.Errorf("%w: owner is required", common.ErrValidation)
	}
	if strings.TrimSpace(req.FileName) == "" {
		return fmt.Errorf("%w: file name is required", common.ErrValidation)
	}
	if !AllowedExtension(req.FileName) {
		return fmt.Errorf("%w: unsupported file type %q", common.ErrValidation, Extension(req.FileName))
	}
	size := int64(len(req.Data))
	if size == 0 {
		return fmt.Errorf("%w: file is empty", common.ErrValidation)
	}
	if size > maxSize {
		return fmt.Errorf("%w: file is %d bytes, limit is %d", common.ErrValidation, size, maxSize)
	}
	return nil
}
