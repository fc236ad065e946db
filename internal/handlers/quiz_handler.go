package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"github.com/etraincon/learning-service/internal/services"
	"github.com/etraincon/learning-service/internal/utils"
	"github.com/etraincon/learning-service/internal/validator"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

// GenerateQuiz asks the generator for a new question set for a course.
// @Summary Generate quiz
// @Tags quizzes
// @Param course_id query int true "Course ID"
// @Success 200 {object} models.GeneratedQuiz
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /quizzes/generate [post]
func (h *QuizHandler) GenerateQuiz(c *gin.Context) {
	courseID := h.courseID(c)
	h.LogRequest(c, "Generating quiz", "course_id", courseID)

	quiz, err := h.quizService.Generate(c.Request.Context(), courseID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

// courseID reads course_id from a JSON body, then the form, then the query string.
// Anything unparsable reads as 0 and is rejected by the service.
func (h *QuizHandler) courseID(c *gin.Context) int64 {
	if c.Request.Method == http.MethodPost && strings.HasPrefix(c.ContentType(), binding.MIMEJSON) {
		var req validator.GenerateQuizRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			return req.CourseID
		}
		return 0
	}

	raw, ok := c.GetPostForm("course_id")
	if !ok {
		raw = c.Query("course_id")
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
