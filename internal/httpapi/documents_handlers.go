package httpapi

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/dealdesk/dealdesk/internal/logging"
	"github.com/dealdesk/dealdesk/internal/store"
)

// DocumentStore is the repository surface for one resource collection.
// Implemented by *store.Documents.
type DocumentStore interface {
	List(ctx context.Context) ([]*store.Document, error)
	GetByID(ctx context.Context, id string) (*store.Document, error)
	Create(ctx context.Context, doc *store.Document) (*store.Document, error)
	Update(ctx context.Context, id string, update store.DocumentUpdate) (*store.Document, error)
	Delete(ctx context.Context, id string) (*store.Document, error)
	Kind() string
}

// FileStore is the object-storage surface. Implemented by *storage.S3.
type FileStore interface {
	Put(ctx context.Context, key string, reader io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

var errNotPDF = goerrors.New("uploaded file must be a PDF", goerrors.CategoryValidation).
	WithCode(goerrors.CodeBadRequest)

type documentHandlers struct {
	docs   DocumentStore
	files  FileStore
	logger logging.Logger
}

func newDocumentHandlers(docs DocumentStore, files FileStore, logger logging.Logger) *documentHandlers {
	return &documentHandlers{docs: docs, files: files, logger: logger}
}

func (h *documentHandlers) List(c *fiber.Ctx) error {
	docs, err := h.docs.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(docs)
}

func (h *documentHandlers) Get(c *fiber.Ctx) error {
	doc, err := h.docs.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(doc)
}

func (h *documentHandlers) Create(c *fiber.Ctx) error {
	payload := new(DocumentRequest)
	if err := c.BodyParser(payload); err != nil {
		return badPayload(err)
	}
	if err := payload.Validate(); err != nil {
		return err
	}

	doc := &store.Document{
		Title:       payload.Title,
		Description: payload.Description,
	}

	file, err := h.uploadedFile(c)
	if err != nil {
		return err
	}
	if file != nil {
		ref, err := h.storeFile(c.UserContext(), file)
		if err != nil {
			return err
		}
		doc.File = ref
	}

	created, err := h.docs.Create(c.UserContext(), doc)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *documentHandlers) Update(c *fiber.Ctx) error {
	update := store.DocumentUpdate{}

	if title := c.FormValue("title"); title != "" {
		payload := DocumentRequest{Title: title, Description: c.FormValue("description")}
		if err := payload.Validate(); err != nil {
			return err
		}
		update.Title = &payload.Title
	}
	if description := c.FormValue("description"); description != "" {
		update.Description = &description
	}

	file, err := h.uploadedFile(c)
	if err != nil {
		return err
	}

	var previous *store.FileRef
	if file != nil {
		current, err := h.docs.GetByID(c.UserContext(), c.Params("id"))
		if err != nil {
			return err
		}
		previous = current.File

		ref, err := h.storeFile(c.UserContext(), file)
		if err != nil {
			return err
		}
		update.File = ref
	}

	doc, err := h.docs.Update(c.UserContext(), c.Params("id"), update)
	if err != nil {
		return err
	}

	if previous != nil {
		if err := h.files.Delete(c.UserContext(), previous.Key); err != nil {
			h.logger.Warn("failed to delete replaced %s file %s: %v", h.docs.Kind(), previous.Key, err)
		}
	}

	return c.JSON(doc)
}

func (h *documentHandlers) Delete(c *fiber.Ctx) error {
	doc, err := h.docs.Delete(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}

	if doc.File != nil {
		if err := h.files.Delete(c.UserContext(), doc.File.Key); err != nil {
			h.logger.Warn("failed to delete stored %s file %s: %v", h.docs.Kind(), doc.File.Key, err)
		}
	}

	return c.JSON(fiber.Map{"message": "Deleted successfully!"})
}

// uploadedFile returns the optional multipart PDF, nil when the request
// carries no file part.
func (h *documentHandlers) uploadedFile(c *fiber.Ctx) (*multipart.FileHeader, error) {
	file, err := c.FormFile("file")
	if err != nil {
		return nil, nil
	}

	if !isPDF(file) {
		return nil, errNotPDF
	}
	return file, nil
}

func (h *documentHandlers) storeFile(ctx context.Context, file *multipart.FileHeader) (*store.FileRef, error) {
	src, err := file.Open()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read uploaded file").
			WithCode(goerrors.CodeInternal)
	}
	defer src.Close()

	key := fmt.Sprintf("%ss/%s.pdf", h.docs.Kind(), uuid.New())

	url, err := h.files.Put(ctx, key, src, "application/pdf")
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store uploaded file").
			WithCode(goerrors.CodeInternal)
	}

	return &store.FileRef{
		Key:  key,
		URL:  url,
		Name: file.Filename,
		Size: file.Size,
	}, nil
}

func isPDF(file *multipart.FileHeader) bool {
	if strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		return true
	}
	return strings.EqualFold(file.Header.Get(fiber.HeaderContentType), "application/pdf")
}
