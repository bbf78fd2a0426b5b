package handler

import (
	"bytes"
	"io"
	"log/slog"
	"mime/multipart"
	"net/textproto"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/faceauth/internal/api/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// createMultipartRequest builds a form with an optional image part and
// user_name field.
func createMultipartRequest(userName string, imageContent []byte, contentType string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if userName != "" {
		_ = writer.WriteField("user_name", userName)
	}

	if imageContent != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", `form-data; name="image"; filename="face.jpg"`)
		h.Set("Content-Type", contentType)

		part, err := writer.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		_, _ = part.Write(imageContent)
	}

	_ = writer.Close()
	return body, writer.FormDataContentType(), nil
}

func createTestApp() *fiber.App {
	return fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(testLogger()),
		BodyLimit:    16 * 1024 * 1024,
	})
}
