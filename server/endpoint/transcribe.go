package endpoint

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kbukum/sttkit/errors"
	"github.com/kbukum/sttkit/logger"
	"github.com/kbukum/sttkit/transcription"
	"github.com/kbukum/sttkit/validation"
)

// Transcriber routes a transcription request. *transcription.Router
// implements it.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, req transcription.Request) (*transcription.Result, error)
}

// Transcriptions handles a multipart upload: the "file" part is spooled to
// spoolDir (the OS temp dir when empty) under its original extension, routed,
// and removed once the response is written.
func Transcriptions(t Transcriber, spoolDir string) gin.HandlerFunc {
	log := logger.Get("server.transcriptions")
	return func(c *gin.Context) {
		fh, err := c.FormFile("file")
		if err != nil {
			RespondWithError(c, uploadError(err))
			return
		}

		req, appErr := bindRequest(c)
		if appErr != nil {
			RespondWithError(c, appErr)
			return
		}

		path, err := spool(fh, spoolDir)
		if err != nil {
			log.WithContext(c.Request.Context()).Error("failed to spool upload", logger.Fields(
				logger.FieldFile, fh.Filename,
				logger.FieldError, err,
			))
			RespondWithError(c, uploadError(err))
			return
		}
		defer func() { _ = os.Remove(path) }()

		res, err := t.Transcribe(c.Request.Context(), path, req)
		if err != nil {
			_ = c.Error(err)
			RespondWithError(c, err)
			return
		}
		RespondOK(c, res)
	}
}

func bindRequest(c *gin.Context) (transcription.Request, *errors.AppError) {
	v := validation.New()
	providerName := strings.TrimSpace(c.PostForm("provider"))
	language := strings.ToLower(strings.TrimSpace(c.PostForm("language")))
	v.MaxLength("provider", providerName, 64).LanguageCode("language", language)
	diarize := v.Bool("diarize", c.PostForm("diarize"))
	timestamps := v.Bool("timestamps", c.PostForm("timestamps"))
	if appErr := v.Validate(); appErr != nil {
		return transcription.Request{}, appErr
	}

	req := transcription.Request{
		Provider: providerName,
		Options:  transcription.Options{Language: language, Timestamps: timestamps},
	}
	if diarize != nil {
		req.Diarize = *diarize
	}
	return req, nil
}

func uploadError(err error) *errors.AppError {
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		return errors.New(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("Upload exceeds the %d byte limit.", tooLarge.Limit),
			http.StatusRequestEntityTooLarge).WithDetail("max_file_size", tooLarge.Limit)
	case stderrors.Is(err, http.ErrMissingFile):
		return errors.InvalidInput("file", "an audio file part named \"file\" is required")
	case stderrors.Is(err, multipart.ErrMessageTooLarge):
		return errors.InvalidInput("file", "multipart form is too large")
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return errors.InvalidInput("file", "could not read the upload").WithCause(err)
}

func spool(fh *multipart.FileHeader, dir string) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.CreateTemp(dir, "upload-*"+safeExt(fh.Filename))
	if err != nil {
		return "", errors.Internal(err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dst.Name())
		return "", errors.Internal(err)
	}
	return dst.Name(), nil
}

// safeExt keeps the extension providers validate against, dropping anything
// that is not a letter or digit.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	clean := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return -1
	}, strings.TrimPrefix(ext, "."))
	if clean == "" {
		return ""
	}
	return "." + clean
}
