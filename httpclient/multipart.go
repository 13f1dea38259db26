package httpclient

import (
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"strings"
)

// MultipartBody is a multipart/form-data request body. It is encoded lazily
// while the request is sent, so file parts never sit in memory as a whole.
type MultipartBody struct {
	// Fields are written in order; a name may repeat.
	Fields []FormField
	// Files are written after the fields.
	Files []FileField
}

// FormField is a plain form value.
type FormField struct {
	Name  string
	Value string
}

// FileField is a file part.
type FileField struct {
	// FieldName is the form field name (e.g., "file").
	FieldName string
	// FileName is the file name sent to the server.
	FileName string
	// ContentType defaults to application/octet-stream.
	ContentType string
	// Data is the content for small in-memory parts. Used when Open is nil.
	Data []byte
	// Open returns the content stream. It is called once per send and the
	// result is closed when the part has been written or the send aborts.
	Open func() (io.ReadCloser, error)
}

// AddField appends a form field and returns the body for chaining.
func (m *MultipartBody) AddField(name, value string) *MultipartBody {
	m.Fields = append(m.Fields, FormField{Name: name, Value: value})
	return m
}

// FileFromPath returns a FileField that streams the file at path.
func FileFromPath(fieldName, path, fileName, contentType string) FileField {
	return FileField{
		FieldName:   fieldName,
		FileName:    fileName,
		ContentType: contentType,
		Open:        func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// stream starts encoding into a pipe. The returned reader yields the body;
// closing it stops the writer goroutine and releases any open file.
func (m *MultipartBody) stream() (io.ReadCloser, string) {
	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(m.write(w))
	}()
	return pr, w.FormDataContentType()
}

func (m *MultipartBody) write(w *multipart.Writer) error {
	for _, f := range m.Fields {
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return err
		}
	}
	for _, f := range m.Files {
		if err := writeFile(w, f); err != nil {
			return err
		}
	}
	return w.Close()
}

func writeFile(w *multipart.Writer, f FileField) error {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		`form-data; name="`+escapeQuotes(f.FieldName)+`"; filename="`+escapeQuotes(f.FileName)+`"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}

	if f.Open == nil {
		_, err = part.Write(f.Data)
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	_, err = io.Copy(part, rc)
	return err
}

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
