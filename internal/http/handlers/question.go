package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cosmosits/questionbank-backend/internal/domain/questions"
	"github.com/cosmosits/questionbank-backend/internal/http/response"
	pkgerrors "github.com/cosmosits/questionbank-backend/internal/pkg/errors"
	"github.com/cosmosits/questionbank-backend/internal/platform/apierr"
	"github.com/cosmosits/questionbank-backend/internal/platform/logger"
	"github.com/cosmosits/questionbank-backend/internal/services"
)

type QuestionHandler struct {
	log  *logger.Logger
	sync services.QuestionSyncService
}

func NewQuestionHandler(log *logger.Logger, sync services.QuestionSyncService) *QuestionHandler {
	return &QuestionHandler{
		log:  log.With("handler", "QuestionHandler"),
		sync: sync,
	}
}

type createQuestionData struct {
	*questions.QuestionPart
	VectorDimensions int    `json:"vector_dimensions"`
	Namespace        string `json:"namespace"`
	Index            string `json:"index"`
}

func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	var in services.CreateQuestionInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":   false,
			"error":     "invalid request body: " + err.Error(),
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	res, err := h.sync.CreateQuestion(c.Request.Context(), in)
	if err != nil {
		h.respondSyncError(c, "CreateQuestion", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Question created and embedded",
		"data": createQuestionData{
			QuestionPart:     res.Part,
			VectorDimensions: res.VectorDimensions,
			Namespace:        res.Namespace,
			Index:            res.IndexName,
		},
	})
}

func (h *QuestionHandler) UpdateCourseEmbeddings(c *gin.Context) {
	short := c.Param("course")
	res, err := h.sync.ReembedCourse(c.Request.Context(), short)
	if err != nil {
		h.respondSyncError(c, "UpdateCourseEmbeddings", err)
		return
	}

	updated := res.Updated
	if updated == nil {
		updated = []services.ReembedUpdated{}
	}
	failed := res.Failed
	if failed == nil {
		failed = []services.ReembedFailed{}
	}

	// Per-record failures are data, not HTTP errors; the batch itself
	// succeeded once the loop ran.
	response.RespondOK(c, gin.H{
		"success":   true,
		"message":   "Embedding update finished for course " + short,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"total":     res.Total,
		"updated":   updated,
		"failed":    failed,
		"summary":   res.Summary,
	})
}

func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	id, err := parseQuestionID(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
		return
	}

	res, err := h.sync.DeleteQuestion(c.Request.Context(), id)
	if err != nil {
		h.respondSyncError(c, "DeleteQuestion", err)
		return
	}

	response.RespondOK(c, gin.H{
		"message":     "Question and embedding deleted",
		"deletedId":   res.DeletedID,
		"vectorId":    res.VectorID,
		"transaction": services.TxCompleted,
	})
}

func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	id, err := parseQuestionID(c)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_question_id", err)
		return
	}

	part, err := h.sync.GetQuestion(c.Request.Context(), id)
	if err != nil {
		h.respondSyncError(c, "GetQuestion", err)
		return
	}
	response.RespondOK(c, gin.H{"question": part})
}

func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	short := c.Query("short")
	parts, err := h.sync.ListCourseQuestions(c.Request.Context(), short)
	if err != nil {
		h.respondSyncError(c, "ListQuestions", err)
		return
	}
	if parts == nil {
		parts = []*questions.QuestionPart{}
	}
	response.RespondOK(c, gin.H{"questions": parts, "total": len(parts)})
}

func parseQuestionID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: question id must be an integer", pkgerrors.ErrInvalidArgument)
	}
	return id, nil
}

// respondSyncError maps service errors onto the wire contract: apierr carries
// its own status; SyncFailure is always a 500 with the transaction outcome
// attached; anything else is an opaque 500.
func (h *QuestionHandler) respondSyncError(c *gin.Context, op string, err error) {
	ts := time.Now().UTC().Format(time.RFC3339)

	var ae *apierr.Error
	if errors.As(err, &ae) {
		c.JSON(ae.Status, gin.H{
			"success":   false,
			"error":     ae.Error(),
			"timestamp": ts,
		})
		return
	}

	var sf *services.SyncFailure
	if errors.As(err, &sf) {
		h.log.Error(op+" failed", "stage", sf.Stage, "transaction", sf.Transaction, "critical", sf.Critical, "error", err)
		body := gin.H{
			"success":     false,
			"error":       sf.Err.Error(),
			"transaction": sf.Transaction,
			"timestamp":   ts,
		}
		if sf.Critical {
			body["criticalError"] = true
			body["message"] = "Vector removed but record delete failed; reconciliation sweep will retry. Manual check advised if it persists."
		}
		if sf.QuestionID != 0 {
			body["questionId"] = sf.QuestionID
		}
		if sf.VectorID != "" {
			body["vectorId"] = sf.VectorID
		}
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	h.log.Error(op+" failed", "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"success":   false,
		"error":     err.Error(),
		"timestamp": ts,
	})
}
