package config

const (
	// MaxNameLength bounds channel, folder and page names.
	// Matches the VARCHAR(255) columns of the hierarchy tables.
	MaxNameLength = 255

	// MaxMultipartMemory is how much of a multipart upload is buffered in memory
	// before spilling to temporary files.
	MaxMultipartMemory = 32 << 20

	// MaxUploadBodySize caps the request body of upload endpoints. Per content
	// type limits live in the capabilities registry.
	MaxUploadBodySize = 2 << 30

	// MaxJSONBodySize caps JSON request bodies (10 MB).
	MaxJSONBodySize = 10 << 20

	// MaxTraverseDepth limits how deep a hierarchy traversal descends.
	MaxTraverseDepth = 32
)
