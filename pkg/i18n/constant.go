package i18n

var ALLOW_LANG = map[string]bool{
	"en": true,
}

const DEFAULT_LANG = "en"

const (
	ERROR_INTERNAL          = "error.internal"
	ERROR_NOT_FOUND         = "error.notfound"
	ERROR_INVALIDARGUMENT   = "error.invalidargument"
	ERROR_EXIST             = "error.exist"
	ERROR_FORBIDDEN         = "error.forbidden"
	ERROR_TOO_MANY_REQUESTS = "error.tooManyRequests"

	ERROR_UNSUPPORTED_SOURCE        = "error.content.unsupported.source"
	ERROR_UNSUPPORTED_MIME_TYPE     = "error.content.unsupported.mimetype"
	ERROR_EMPTY_CONTENT             = "error.content.empty"
	ERROR_EXTRACTION_FAILED         = "error.content.extraction.failed"
	ERROR_EMBEDDING_FAILED          = "error.content.embedding.failed"
	ERROR_PROCESSING_FAILED         = "error.content.processing.failed"
	ERROR_CONTENT_ALREADY_RUNNING   = "error.content.run.active"
	ERROR_CONTENT_NOT_REPROCESSABLE = "error.content.not.reprocessable"
	ERROR_FILE_NOT_FOUND            = "error.file.notfound"
	ERROR_FILE_ACCESS_DENIED        = "error.file.access.denied"
	ERROR_SOURCE_UNREACHABLE        = "error.source.unreachable"
)
