package translator

import (
	"path"
	"regexp"
	"strings"
)

// MIME types for the document formats the remote service handles.
const (
	MIMEPresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEDocument     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPDF          = "application/pdf"
	MIMEBinary       = "application/octet-stream"
)

var contentTypes = map[string]string{
	".pptx": MIMEPresentation,
	".docx": MIMEDocument,
	".pdf":  MIMEPDF,
}

var unsafeLangChars = regexp.MustCompile(`[^A-Za-z0-9]`)

// ContentTypeFor maps a file extension (with dot) to the response MIME type.
func ContentTypeFor(ext string) string {
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return MIMEBinary
}

// OutputFilename derives "<base>_<target><ext>" from the uploaded name.
// Every character of target outside [A-Za-z0-9] becomes '_'.
func OutputFilename(originalName, targetLang string) string {
	name := path.Base(strings.ReplaceAll(originalName, `\`, "/"))
	if name == "." || name == "/" {
		name = ""
	}
	ext := path.Ext(name)
	base := strings.TrimSuffix(name, ext)
	return base + "_" + unsafeLangChars.ReplaceAllString(targetLang, "_") + ext
}

// ContentDisposition builds the attachment header value for filename.
func ContentDisposition(filename string) string {
	return `attachment; filename="` + quoteEscaper.Replace(filename) + `"`
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\r", "", "\n", "")
