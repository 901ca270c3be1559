package httpapi

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/civic-sense/inference-services/internal/apperr"
)

// FieldS3Key names the form field that points a video endpoint at an object
// in the media bucket instead of an inline file.
const FieldS3Key = "s3_key"

// upload is one file taken from a request, read as a stream.
type upload struct {
	Body     io.Reader
	Filename string
	closer   io.Closer
}

func (u *upload) Close() error {
	if u.closer == nil {
		return nil
	}
	return u.closer.Close()
}

// openUpload streams the multipart file part named field. Parts before it
// are skipped. When allowS3 is set and no file part is present, an s3_key
// field is resolved against the media bucket. A nil upload with a nil error
// means nothing was uploaded.
func (s *Server) openUpload(w http.ResponseWriter, r *http.Request, field string, allowS3 bool) (*upload, error) {
	const op = "httpapi.openUpload"

	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		// Not a multipart request, so no file can be present.
		return nil, nil
	}

	var s3Key string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, uploadError(op, err)
		}

		name := part.FormName()
		if name == field && part.FileName() != "" {
			return &upload{Body: part, Filename: part.FileName()}, nil
		}
		if allowS3 && name == FieldS3Key {
			s3Key, err = readField(part, 1024)
			if err != nil {
				return nil, uploadError(op, err)
			}
		}
		part.Close()
	}

	if s3Key == "" || s.s3 == nil {
		return nil, nil
	}
	body, name, err := s.s3.Open(r.Context(), s3Key)
	if err != nil {
		return nil, err
	}
	return &upload{Body: body, Filename: name, closer: body}, nil
}

func readField(part *multipart.Part, limit int64) (string, error) {
	b, err := io.ReadAll(io.LimitReader(part, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(b)) > limit {
		return "", apperr.New(apperr.InvalidRequest, "httpapi.readField", "Form field too long")
	}
	return strings.TrimSpace(string(b)), nil
}

func uploadError(op string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Wrap(apperr.PayloadTooLarge, op, "Upload too large", err)
	}
	if _, ok := err.(*apperr.Error); ok {
		return err
	}
	return apperr.Wrap(apperr.InvalidRequest, op, "Malformed multipart body", err)
}
