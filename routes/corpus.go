package routes

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"document-qa-platform/internal/config"
	"document-qa-platform/internal/store"
	"document-qa-platform/services"
	"document-qa-platform/utils"
)

// SetupCorpusRoutes registers corpus creation, listing and scoped question
// answering.
func SetupCorpusRoutes(router *gin.Engine, cfg *config.Config, st *store.Store, ingestor *services.Ingestor, questions *services.QuestionService) {
	router.POST("/corpus", HandleCorpusUpload(cfg, ingestor))
	router.GET("/corpus", ListCorpora(st))
	router.GET("/corpus/:id", GetCorpus(st))
	router.POST("/corpus/:id/question", HandleQuestion(questions, true))
}

// HandleCorpusUpload creates a corpus from a multipart form carrying a
// "title" field and one or more "pdf" files. Each file becomes a member
// document with its own processing job; members are not deduplicated.
func HandleCorpusUpload(cfg *config.Config, ingestor *services.Ingestor) gin.HandlerFunc {
	return func(c *gin.Context) {
		form, err := c.MultipartForm()
		if err != nil {
			utils.RespondWithBadRequest(c, "Invalid multipart form")
			return
		}

		title := c.PostForm("title")
		headers := form.File["pdf"]
		if len(headers) == 0 {
			utils.RespondWithBadRequest(c, "No PDF files uploaded")
			return
		}

		files := make([]services.CorpusFile, 0, len(headers))
		for _, header := range headers {
			if err := validateUpload(cfg, header.Header.Get("Content-Type"), header.Filename, header.Size); err != nil {
				utils.RespondWithBadRequest(c, err.Error())
				return
			}

			file, err := header.Open()
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to open uploaded file")
				return
			}
			raw, err := io.ReadAll(io.LimitReader(file, cfg.MaxFileSize+1))
			file.Close()
			if err != nil {
				utils.RespondWithInternalError(c, "Failed to read uploaded file")
				return
			}

			files = append(files, services.CorpusFile{
				Filename: header.Filename,
				Raw:      raw,
			})
		}

		result, err := ingestor.SubmitCorpus(c.Request.Context(), title, files)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusCreated, result)
	}
}

// ListCorpora returns all corpora with their aggregate status.
func ListCorpora(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		corpora, err := st.ListCorpora(c.Request.Context())
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve corpus list")
			return
		}

		c.JSON(http.StatusOK, corpora)
	}
}

// GetCorpus returns one corpus together with its member documents.
func GetCorpus(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		corpus, err := st.GetCorpus(c.Request.Context(), c.Param("id"))
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		members, err := st.CorpusMembers(c.Request.Context(), corpus.ID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to retrieve corpus members")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"corpus":    corpus,
			"documents": members,
		})
	}
}
