package translation

import "errors"

var (
	// ErrBucketExists is returned by EnsureBucket when the bucket is already
	// there. Callers treat it as success.
	ErrBucketExists = errors.New("bucket already exists")

	// ErrManifestNotFound means no translation job is known for the urn yet.
	ErrManifestNotFound = errors.New("manifest not found")

	// ErrUnknownStatus is returned for a manifest status outside the known set.
	ErrUnknownStatus = errors.New("unknown manifest status")
)
