package routes

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"document-qa-platform/internal/config"
	"document-qa-platform/internal/store"
	"document-qa-platform/services"
	"document-qa-platform/utils"
)

// SetupDocumentRoutes registers the upload and document read endpoints.
func SetupDocumentRoutes(router *gin.Engine, cfg *config.Config, st *store.Store, ingestor *services.Ingestor) {
	router.POST("/upload", HandleUpload(cfg, ingestor))
	router.GET("/pdfs", ListDocuments(st))
	router.GET("/pdf/:id", GetDocumentContent(st))
	router.GET("/text/:id", GetDocumentText(st))
	router.GET("/status/:id", GetDocumentStatus(st))
	router.POST("/reset", ResetStore(st))
}

// HandleUpload accepts a multipart PDF upload. With ?extractText=true the
// text is derived before persistence and a processing job is enqueued.
func HandleUpload(cfg *config.Config, ingestor *services.Ingestor) gin.HandlerFunc {
	return func(c *gin.Context) {
		file, header, err := c.Request.FormFile("pdf")
		if err != nil {
			utils.RespondWithBadRequest(c, "No PDF file uploaded")
			return
		}
		defer file.Close()

		if err := validateUpload(cfg, header.Header.Get("Content-Type"), header.Filename, header.Size); err != nil {
			utils.RespondWithBadRequest(c, err.Error())
			return
		}

		raw, err := io.ReadAll(io.LimitReader(file, cfg.MaxFileSize+1))
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to read uploaded file")
			return
		}
		if int64(len(raw)) > cfg.MaxFileSize {
			utils.RespondWithBadRequest(c, fmt.Sprintf("File size exceeds %d byte limit", cfg.MaxFileSize))
			return
		}

		extractText := c.Query("extractText") == "true"

		result, err := ingestor.Submit(c.Request.Context(), header.Filename, raw, extractText, "")
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// ListDocuments returns all plain documents with their derived
// content_type.
func ListDocuments(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		docs, err := st.ListDocuments(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve document list")
			return
		}

		c.JSON(http.StatusOK, docs)
	}
}

// GetDocumentContent streams the stored raw PDF bytes.
func GetDocumentContent(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := st.GetDocument(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		if len(doc.PDFContent) == 0 {
			utils.RespondWithNotFound(c, "No PDF content available for this document. It may only have text content.")
			return
		}

		c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", doc.Filename))
		c.Data(http.StatusOK, "application/pdf", doc.PDFContent)
	}
}

// GetDocumentText returns the extracted text of a document.
func GetDocumentText(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := st.GetDocument(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		if doc.TextContent == "" {
			utils.RespondWithNotFound(c, "No text content available for this document. It may only have PDF content.")
			return
		}

		c.JSON(http.StatusOK, gin.H{"text_content": doc.TextContent})
	}
}

// GetDocumentStatus reports a document's lifecycle status for polling.
func GetDocumentStatus(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		doc, err := st.GetDocument(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"id":         doc.ID,
			"filename":   doc.Filename,
			"status":     doc.Status,
			"created_at": doc.CreatedAt,
			"updated_at": doc.UpdatedAt,
		})
	}
}

// ResetStore drops all records. Operator endpoint.
func ResetStore(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := st.Reset(c.Request.Context()); err != nil {
			utils.RespondWithInternalError(c, "Failed to reset database")
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Database reset successfully"})
	}
}

func validateUpload(cfg *config.Config, contentType, filename string, size int64) error {
	if size > cfg.MaxFileSize {
		return fmt.Errorf("file size exceeds %d byte limit", cfg.MaxFileSize)
	}

	allowed := false
	for _, t := range cfg.AllowedTypes {
		if strings.Contains(contentType, strings.TrimSpace(t)) {
			allowed = true
			break
		}
	}
	if !allowed && !strings.HasSuffix(strings.ToLower(filename), ".pdf") {
		return fmt.Errorf("only PDF files are allowed")
	}

	return nil
}
