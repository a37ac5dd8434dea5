package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"document-qa-platform/services"
	"document-qa-platform/utils"
)

// SetupQuestionRoutes registers document-scoped question answering.
func SetupQuestionRoutes(router *gin.Engine, questions *services.QuestionService) {
	router.POST("/question/:id", HandleQuestion(questions, false))
}

type questionRequest struct {
	Question string `json:"question" binding:"required"`
}

// HandleQuestion answers a question scoped to the document (or corpus,
// with corpusScope set) named by the :id path parameter.
func HandleQuestion(questions *services.QuestionService, corpusScope bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req questionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Question is required")
			return
		}

		answer, err := questions.Answer(c.Request.Context(), c.Param("id"), req.Question, corpusScope)
		if err != nil {
			utils.RespondWithServiceError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"question": req.Question,
			"answer":   answer,
		})
	}
}
